package market

import "time"

// Resample aggregates bars into timeframe buckets aligned with
// time.Truncate (midnight UTC for days, Monday for weeks). A bucket keeps
// the first open, the extreme high and low, the last close and the summed
// volume, stamped with its start time. Buckets built from fewer than
// minBars source bars are dropped.
func Resample(bars []Bar, timeframe time.Duration, minBars int) []Bar {
	if timeframe <= 0 || len(bars) == 0 {
		return nil
	}
	minBars = max(minBars, 1)

	var (
		out   []Bar
		cur   Bar
		count int
	)
	flush := func() {
		if count >= minBars {
			out = append(out, cur)
		}
		count = 0
	}

	for _, b := range bars {
		start := b.Time.UTC().Truncate(timeframe)
		if count > 0 && !start.Equal(cur.Time) {
			flush()
		}
		if count == 0 {
			cur = Bar{Symbol: b.Symbol, Time: start, Open: b.Open, High: b.High, Low: b.Low, Close: b.Close, Volume: b.Volume}
			count = 1
			continue
		}
		cur.High = max(cur.High, b.High)
		cur.Low = min(cur.Low, b.Low)
		cur.Close = b.Close
		cur.Volume += b.Volume
		count++
	}
	flush()
	return out
}

type GapKind string

const (
	GapMinor      GapKind = "minor"
	GapWeekend    GapKind = "weekend"
	GapSuspicious GapKind = "suspicious"
)

// Gap is a run of missing intervals between two consecutive bars.
type Gap struct {
	After   time.Time // last bar before the gap
	Before  time.Time // first bar after it
	Missing int       // whole intervals missing
	Kind    GapKind
}

type GapStats struct {
	Bars           int
	Missing        int
	GapCount       int
	WeekendGaps    int
	SuspiciousGaps int
	LongestGap     int
	LongestGapKind GapKind
}

// GapReport lists the holes in a time-ordered series.
type GapReport struct {
	Interval time.Duration
	Bars     int
	Gaps     []Gap
}

// NewGapReport scans bars for gaps. interval 0 uses the smallest spacing
// found in the series.
func NewGapReport(bars []Bar, interval time.Duration) GapReport {
	if interval <= 0 {
		interval = InferInterval(bars)
	}
	r := GapReport{Interval: interval, Bars: len(bars)}
	if interval <= 0 {
		return r
	}

	for i := 1; i < len(bars); i++ {
		delta := bars[i].Time.Sub(bars[i-1].Time)
		missing := int(delta/interval) - 1
		if missing < 1 {
			continue
		}
		r.Gaps = append(r.Gaps, Gap{
			After:   bars[i-1].Time,
			Before:  bars[i].Time,
			Missing: missing,
			Kind:    classifyGap(bars[i-1].Time.Add(interval), delta-interval, interval),
		})
	}
	return r
}

// classifyGap calls a gap of a day or more starting Fri/Sat/Sun (UTC) a
// weekend; other day-long gaps, and gaps of ten or more intervals, are
// suspicious.
func classifyGap(start time.Time, length, interval time.Duration) GapKind {
	if length >= Day {
		switch start.UTC().Weekday() {
		case time.Friday, time.Saturday, time.Sunday:
			return GapWeekend
		}
		return GapSuspicious
	}
	if length >= 10*interval {
		return GapSuspicious
	}
	return GapMinor
}

func (r GapReport) Stats() GapStats {
	s := GapStats{Bars: r.Bars}
	for _, g := range r.Gaps {
		s.GapCount++
		s.Missing += g.Missing
		if g.Missing > s.LongestGap {
			s.LongestGap = g.Missing
			s.LongestGapKind = g.Kind
		}
		switch g.Kind {
		case GapWeekend:
			s.WeekendGaps++
		case GapSuspicious:
			s.SuspiciousGaps++
		}
	}
	return s
}

// InferInterval returns the smallest positive spacing between consecutive
// bars, or 0 for fewer than two bars.
func InferInterval(bars []Bar) time.Duration {
	var best time.Duration
	for i := 1; i < len(bars); i++ {
		if d := bars[i].Time.Sub(bars[i-1].Time); d > 0 && (best == 0 || d < best) {
			best = d
		}
	}
	return best
}
