// Package id issues time-sortable ULID identifiers.
package id

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"hash/fnv"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	mu   sync.Mutex
	mono io.Reader
)

func init() {
	var seed int64
	_ = binary.Read(cryptoRand.Reader, binary.LittleEndian, &seed)
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	mono = ulid.Monotonic(rand.New(rand.NewSource(seed)), 0)
}

// New returns a ULID stamped with the wall clock and unpredictable entropy.
func New() string {
	mu.Lock()
	defer mu.Unlock()

	id, err := ulid.New(ulid.Timestamp(time.Now().UTC()), mono)
	if err != nil {
		panic(err)
	}
	return id.String()
}

// Generator produces ULIDs from caller-supplied timestamps and seeded
// entropy, so a replay of the same bars yields the same identifiers.
type Generator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func NewGenerator(seed int64) *Generator {
	return &Generator{
		entropy: ulid.Monotonic(rand.New(rand.NewSource(seed)), 0),
	}
}

// ForSymbol derives a generator whose seed mixes in the symbol. Each
// per-symbol simulator gets its own stream regardless of scheduling.
func ForSymbol(seed int64, symbol string) *Generator {
	h := fnv.New64a()
	_, _ = h.Write([]byte(symbol))
	return NewGenerator(seed ^ int64(h.Sum64()))
}

// New returns the next ULID for time t.
func (g *Generator) New(t time.Time) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	id, err := ulid.New(ulid.Timestamp(t.UTC()), g.entropy)
	if err != nil {
		// only possible when the monotonic counter overflows within one ms
		panic(err)
	}
	return id.String()
}
