package strategies

import "github.com/rustyeddy/trendguard/indicators"

// Noop never trades. Useful as a baseline run.
type Noop struct{}

func (Noop) Name() string { return "noop" }

func (Noop) Evaluate(cur, prev indicators.Snapshot) Signal { return Hold }
