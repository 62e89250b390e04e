package marketdata

import "time"

// Interval is a polling cadence for the realtime quote surface. Historical
// bars are always minute granularity; Interval only controls how often the
// watch loop asks providers for fresh quotes.
type Interval string

const (
	IntervalFiveSeconds   Interval = "5s"
	IntervalTenSeconds    Interval = "10s"
	IntervalThirtySeconds Interval = "30s"
	IntervalOneMinute     Interval = "1m"
	IntervalFiveMinutes   Interval = "5m"
)

// AllIntervals lists the supported polling cadences in ascending order.
var AllIntervals = []Interval{
	IntervalFiveSeconds,
	IntervalTenSeconds,
	IntervalThirtySeconds,
	IntervalOneMinute,
	IntervalFiveMinutes,
}

// Duration returns the wall-clock duration of the interval. Unknown values
// fall back to one minute, the bar granularity.
func (i Interval) Duration() time.Duration {
	switch i {
	case IntervalFiveSeconds:
		return 5 * time.Second
	case IntervalTenSeconds:
		return 10 * time.Second
	case IntervalThirtySeconds:
		return 30 * time.Second
	case IntervalOneMinute:
		return time.Minute
	case IntervalFiveMinutes:
		return 5 * time.Minute
	default:
		return time.Minute
	}
}

// Valid reports whether i is one of the supported cadences.
func (i Interval) Valid() bool {
	for _, known := range AllIntervals {
		if i == known {
			return true
		}
	}

	return false
}
