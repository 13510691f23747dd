package market

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

func bar(i int, c float64) Bar {
	return Bar{Symbol: "SPY", Time: t0.AddDate(0, 0, i), Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 1000}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		bar     Bar
		wantErr string
	}{
		{"ok", bar(0, 100), ""},
		{"negative close", Bar{Time: t0, High: 1, Close: -1}, "negative close"},
		{"negative volume", Bar{Time: t0, High: 1, Low: 1, Close: 1, Open: 1, Volume: -5}, "negative volume"},
		{"nan", Bar{Time: t0, High: math.NaN()}, "high is not finite"},
		{"inverted range", Bar{Time: t0, High: 1, Low: 2, Close: 1.5, Open: 1.5}, "high 1 below low 2"},
		{"zero time", Bar{High: 1, Low: 1, Close: 1, Open: 1}, "missing timestamp"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := Validate(tt.bar)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.True(t, errors.Is(err, ErrBadData))
		})
	}
}

func TestValidateSeriesOrdering(t *testing.T) {
	t.Parallel()

	ok := []Bar{bar(0, 100), bar(1, 101), bar(2, 102)}
	assert.NoError(t, ValidateSeries(ok))

	dup := []Bar{bar(0, 100), bar(1, 101), bar(1, 102)}
	err := ValidateSeries(dup)
	require.Error(t, err)

	var de *DataError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, 2, de.Index)
	assert.Contains(t, de.Reason, "not after previous bar")

	back := []Bar{bar(1, 100), bar(0, 101)}
	assert.ErrorIs(t, ValidateSeries(back), ErrBadData)
}

func TestSequencerRejectsWithoutAdvancing(t *testing.T) {
	t.Parallel()

	var s Sequencer
	require.NoError(t, s.Check(bar(0, 100)))
	require.Error(t, s.Check(Bar{Symbol: "SPY", Time: t0.AddDate(0, 0, 1), Close: -1}))
	assert.Equal(t, 1, s.Count())

	// a good bar still goes through after a rejected one
	assert.NoError(t, s.Check(bar(1, 101)))
	assert.Equal(t, 2, s.Count())
}

func TestBarMid(t *testing.T) {
	assert.InDelta(t, 100.0, bar(0, 100).Mid(), 1e-12)
}
