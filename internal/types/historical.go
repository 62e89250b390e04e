package types

import (
	"sort"
	"time"

	"github.com/rxtech-lab/argo-equity/pkg/errors"
)

// HistoricalData holds the time-ordered bar series for exactly one symbol.
// It is built once (during service initialization or cache load) and treated
// as read-only afterwards; concurrent readers need no locking.
type HistoricalData struct {
	symbol string
	bars   []Bar
}

// NewHistoricalData creates an empty series for the given symbol.
func NewHistoricalData(symbol string) *HistoricalData {
	return &HistoricalData{
		symbol: symbol,
		bars:   nil,
	}
}

// Symbol returns the symbol this series belongs to.
func (h *HistoricalData) Symbol() string {
	return h.symbol
}

// Len returns the number of bars in the series.
func (h *HistoricalData) Len() int {
	return len(h.bars)
}

// Add inserts a bar keeping the series sorted by time. A bar with a foreign
// symbol is rejected; a bar at an existing timestamp replaces the old one.
func (h *HistoricalData) Add(bar Bar) error {
	if bar.Symbol != h.symbol {
		return errors.Newf(errors.ErrCodeSymbolMismatch, "cannot add %s bar to %s series", bar.Symbol, h.symbol)
	}

	i := sort.Search(len(h.bars), func(i int) bool {
		return !h.bars[i].Time.Before(bar.Time)
	})

	if i < len(h.bars) && h.bars[i].Time.Equal(bar.Time) {
		h.bars[i] = bar

		return nil
	}

	h.bars = append(h.bars, Bar{})
	copy(h.bars[i+1:], h.bars[i:])
	h.bars[i] = bar

	return nil
}

// Bars returns a copy of the full series in time order.
func (h *HistoricalData) Bars() []Bar {
	out := make([]Bar, len(h.bars))
	copy(out, h.bars)

	return out
}

// Range returns bars with start <= time <= end, in time order.
func (h *HistoricalData) Range(start, end time.Time) []Bar {
	lo := sort.Search(len(h.bars), func(i int) bool {
		return !h.bars[i].Time.Before(start)
	})
	hi := sort.Search(len(h.bars), func(i int) bool {
		return h.bars[i].Time.After(end)
	})

	if lo >= hi {
		return nil
	}

	out := make([]Bar, hi-lo)
	copy(out, h.bars[lo:hi])

	return out
}

// Floor returns the bar at the greatest timestamp <= t.
func (h *HistoricalData) Floor(t time.Time) (Bar, bool) {
	i := sort.Search(len(h.bars), func(i int) bool {
		return h.bars[i].Time.After(t)
	})

	if i == 0 {
		return Bar{}, false
	}

	return h.bars[i-1], true
}

// First returns the earliest bar in the series.
func (h *HistoricalData) First() (Bar, bool) {
	if len(h.bars) == 0 {
		return Bar{}, false
	}

	return h.bars[0], true
}

// Last returns the latest bar in the series.
func (h *HistoricalData) Last() (Bar, bool) {
	if len(h.bars) == 0 {
		return Bar{}, false
	}

	return h.bars[len(h.bars)-1], true
}

// PercentChange computes the close-to-close percentage change between the
// floor bars of from and to.
func (h *HistoricalData) PercentChange(from, to time.Time) (float64, error) {
	fromBar, ok := h.Floor(from)
	if !ok {
		return 0, errors.Newf(errors.ErrCodeDataNotFound, "%s has no bar at or before %s", h.symbol, from)
	}

	toBar, ok := h.Floor(to)
	if !ok {
		return 0, errors.Newf(errors.ErrCodeDataNotFound, "%s has no bar at or before %s", h.symbol, to)
	}

	if fromBar.Close == 0 {
		return 0, errors.Newf(errors.ErrCodeDataNotFound, "%s close at %s is zero", h.symbol, fromBar.Time)
	}

	return (toBar.Close - fromBar.Close) / fromBar.Close * 100, nil
}
