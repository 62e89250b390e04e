// Package indicator provides rolling indicator math for built-in strategies.
// Indicators are fed one close at a time and report a value once enough
// samples have been seen.
package indicator

import "fmt"

// SMA is a rolling simple moving average over the last period values.
type SMA struct {
	period int
	values []float64
	next   int
	count  int
	sum    float64
}

// NewSMA creates a rolling SMA. Period must be positive.
func NewSMA(period int) (*SMA, error) {
	if period <= 0 {
		return nil, fmt.Errorf("period must be a positive integer, got %d", period)
	}

	return &SMA{
		period: period,
		values: make([]float64, period),
		next:   0,
		count:  0,
		sum:    0,
	}, nil
}

// Push feeds the next value into the window.
func (s *SMA) Push(value float64) {
	if s.count < s.period {
		s.values[s.next] = value
		s.sum += value
		s.count++
	} else {
		s.sum += value - s.values[s.next]
		s.values[s.next] = value
	}

	s.next = (s.next + 1) % s.period
}

// Value returns the current average. The second return is false until the
// window has seen period values.
func (s *SMA) Value() (float64, bool) {
	if s.count < s.period {
		return 0, false
	}

	return s.sum / float64(s.period), true
}

// Ready reports whether the window is fully warmed up.
func (s *SMA) Ready() bool {
	return s.count >= s.period
}

// Period returns the configured window length.
func (s *SMA) Period() int {
	return s.period
}
