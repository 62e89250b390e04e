package market

import (
	"sort"
	"sync"
	"time"
)

// Segment is a closed time window [Start, End].
type Segment struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the segment.
func (s Segment) Contains(t time.Time) bool {
	return !t.Before(s.Start) && !t.After(s.End)
}

// SegmentIndex tracks which time windows are known per ticker. Adding a
// window merges it with any overlapping or touching windows, so the
// per-ticker list stays sorted and disjoint and gap planning is a single
// sweep.
type SegmentIndex struct {
	mu       sync.RWMutex
	segments map[string][]Segment
}

// NewSegmentIndex creates an empty index.
func NewSegmentIndex() *SegmentIndex {
	return &SegmentIndex{
		mu:       sync.RWMutex{},
		segments: make(map[string][]Segment),
	}
}

// Add records a covered window for ticker. Windows with End before Start are
// ignored.
func (x *SegmentIndex) Add(ticker string, seg Segment) {
	if seg.End.Before(seg.Start) {
		return
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	merged := seg

	var out []Segment

	for _, existing := range x.segments[ticker] {
		if existing.End.Before(merged.Start) || existing.Start.After(merged.End) {
			out = append(out, existing)

			continue
		}

		// Overlapping or touching: absorb into the merged window.
		if existing.Start.Before(merged.Start) {
			merged.Start = existing.Start
		}

		if existing.End.After(merged.End) {
			merged.End = existing.End
		}
	}

	out = append(out, merged)
	sort.Slice(out, func(i, j int) bool {
		return out[i].Start.Before(out[j].Start)
	})

	x.segments[ticker] = out
}

// Segments returns the covered windows for ticker in ascending order.
func (x *SegmentIndex) Segments(ticker string) []Segment {
	x.mu.RLock()
	defer x.mu.RUnlock()

	out := make([]Segment, len(x.segments[ticker]))
	copy(out, x.segments[ticker])

	return out
}

// Gaps returns the sub-windows of window not covered by any segment, in
// ascending order. Gap endpoints may touch covered segments: a gap between
// covered [a,b] and [c,d] is reported as [b,c], which is the range a fetch
// plan would request.
func (x *SegmentIndex) Gaps(ticker string, window Segment) []Segment {
	if window.End.Before(window.Start) {
		return nil
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	if !window.Start.Before(window.End) {
		// Degenerate instant window: covered iff some segment contains it.
		for _, seg := range x.segments[ticker] {
			if seg.Contains(window.Start) {
				return nil
			}
		}

		return []Segment{window}
	}

	var gaps []Segment

	cursor := window.Start

	for _, seg := range x.segments[ticker] {
		if seg.End.Before(cursor) {
			continue
		}

		if seg.Start.After(window.End) {
			break
		}

		if seg.Start.After(cursor) {
			gaps = append(gaps, Segment{Start: cursor, End: seg.Start})
		}

		if seg.End.After(cursor) {
			cursor = seg.End
		}
	}

	if cursor.Before(window.End) {
		gaps = append(gaps, Segment{Start: cursor, End: window.End})
	}

	return gaps
}

// Covered reports whether window is fully inside the ticker's known
// segments.
func (x *SegmentIndex) Covered(ticker string, window Segment) bool {
	return len(x.Gaps(ticker, window)) == 0
}
