package engine

import (
	"sort"
	"time"

	"github.com/rxtech-lab/argo-equity/internal/types"
	"github.com/rxtech-lab/argo-equity/pkg/errors"
)

// Timeline is the replay axis: distinct minute-truncated timestamps in
// ascending order, each mapping ticker to the first bar seen in that minute.
// Keys are normalized to UTC so bars delivered in different zones share a
// minute.
type Timeline struct {
	timestamps []time.Time
	bars       map[time.Time]map[string]types.Bar
}

// newTimeline builds the axis from per-ticker bar slices. Tickers are walked
// in sorted order and the first bar per minute and ticker wins, so the result
// never depends on map iteration order.
func newTimeline(data map[string][]types.Bar) (*Timeline, error) {
	bars := make(map[time.Time]map[string]types.Bar)

	tickers := make([]string, 0, len(data))
	for ticker := range data {
		tickers = append(tickers, ticker)
	}

	sort.Strings(tickers)

	for _, ticker := range tickers {
		for _, bar := range data[ticker] {
			minute := bar.MinuteTime().UTC()

			slot, ok := bars[minute]
			if !ok {
				slot = make(map[string]types.Bar)
				bars[minute] = slot
			}

			if _, seen := slot[ticker]; seen {
				continue
			}

			slot[ticker] = bar
		}
	}

	if len(bars) == 0 {
		return nil, errors.New(errors.ErrCodeEmptyTimeline, "no data points available for backtesting")
	}

	timestamps := make([]time.Time, 0, len(bars))
	for ts := range bars {
		timestamps = append(timestamps, ts)
	}

	sort.Slice(timestamps, func(i, j int) bool {
		return timestamps[i].Before(timestamps[j])
	})

	return &Timeline{
		timestamps: timestamps,
		bars:       bars,
	}, nil
}

// Len returns the number of distinct minutes on the axis.
func (tl *Timeline) Len() int {
	return len(tl.timestamps)
}

// Timestamps returns a copy of the full axis in ascending order.
func (tl *Timeline) Timestamps() []time.Time {
	out := make([]time.Time, len(tl.timestamps))
	copy(out, tl.timestamps)

	return out
}

// BarsAt returns the ticker bars recorded for t's minute. Callers must treat
// the result as read-only.
func (tl *Timeline) BarsAt(t time.Time) map[string]types.Bar {
	return tl.bars[t.Truncate(time.Minute).UTC()]
}

// First returns the earliest minute and its bars.
func (tl *Timeline) First() (time.Time, map[string]types.Bar) {
	if len(tl.timestamps) == 0 {
		return time.Time{}, nil
	}

	first := tl.timestamps[0]

	return first, tl.bars[first]
}

// Last returns the latest minute and its bars.
func (tl *Timeline) Last() (time.Time, map[string]types.Bar) {
	if len(tl.timestamps) == 0 {
		return time.Time{}, nil
	}

	last := tl.timestamps[len(tl.timestamps)-1]

	return last, tl.bars[last]
}

// sessionTimestamps filters the axis to timestamps the market session admits.
// Weekends are always dropped; unless runOnMarketClosed is set, timestamps
// outside [open, close] are dropped too. The close minute itself is admitted.
func (tl *Timeline) sessionTimestamps(market types.Market, loc *time.Location, runOnMarketClosed bool) []time.Time {
	out := make([]time.Time, 0, len(tl.timestamps))

	for _, ts := range tl.timestamps {
		if market.IsWeekend(ts, loc) {
			continue
		}

		if !runOnMarketClosed && !market.IsOpenAt(ts, loc) {
			continue
		}

		out = append(out, ts)
	}

	return out
}
