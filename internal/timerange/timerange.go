// Package timerange holds the pure interval math used by availability
// and fee calculations.
package timerange

import "time"

const day = 24 * time.Hour

// Range is a half-open interval [Start, End).
type Range struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func New(start, end time.Time) Range {
	return Range{Start: start, End: end}
}

// Bounded reports whether both bounds are supplied. An unbounded range
// enforces no availability constraint.
func (r Range) Bounded() bool {
	return !r.Start.IsZero() && !r.End.IsZero()
}

// Valid reports whether the range is bounded and Start <= End.
func (r Range) Valid() bool {
	return r.Bounded() && !r.Start.After(r.End)
}

// Overlaps applies the half-open overlap rule: [s1,e1) and [s2,e2)
// conflict iff s1 < e2 && s2 < e1.
func (r Range) Overlaps(o Range) bool {
	return r.Start.Before(o.End) && o.Start.Before(r.End)
}

// Days is the duration of the range in whole days, rounded up,
// never less than 1.
func (r Range) Days() int {
	return ceilDays(r.End.Sub(r.Start))
}

// DaysLate is the number of chargeable late days when goods come back
// at actual instead of the committed end. Zero when on time.
func DaysLate(committedEnd, actual time.Time) int {
	if !actual.After(committedEnd) {
		return 0
	}
	return ceilDays(actual.Sub(committedEnd))
}

func ceilDays(d time.Duration) int {
	if d <= 0 {
		return 1
	}
	days := int(d / day)
	if d%day != 0 {
		days++
	}
	return days
}
