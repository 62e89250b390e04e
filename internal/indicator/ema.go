package indicator

import "fmt"

// EMA is a rolling exponential moving average. The first value is seeded with
// the simple average of the first period samples, then updated with
// alpha = 2/(period+1) to match the pandas ewm adjust=False convention.
type EMA struct {
	period  int
	alpha   float64
	value   float64
	seedSum float64
	count   int
}

// NewEMA creates a rolling EMA. Period must be positive.
func NewEMA(period int) (*EMA, error) {
	if period <= 0 {
		return nil, fmt.Errorf("period must be a positive integer, got %d", period)
	}

	return &EMA{
		period:  period,
		alpha:   2.0 / float64(period+1),
		value:   0,
		seedSum: 0,
		count:   0,
	}, nil
}

// Push feeds the next value into the average.
func (e *EMA) Push(value float64) {
	e.count++

	if e.count < e.period {
		e.seedSum += value

		return
	}

	if e.count == e.period {
		e.seedSum += value
		e.value = e.seedSum / float64(e.period)

		return
	}

	e.value = value*e.alpha + e.value*(1-e.alpha)
}

// Value returns the current average. The second return is false until period
// samples have been seen.
func (e *EMA) Value() (float64, bool) {
	if e.count < e.period {
		return 0, false
	}

	return e.value, true
}

// Ready reports whether the average has seen period values.
func (e *EMA) Ready() bool {
	return e.count >= e.period
}

// Period returns the configured smoothing length.
func (e *EMA) Period() int {
	return e.period
}
