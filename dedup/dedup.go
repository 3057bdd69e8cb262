// Package dedup decides which OCR readings represent new pickup events.
//
// The game shows loot notifications in a fixed stack of five rows. A new
// pickup appears in the bottom row and pushes older entries one slot up
// until they fade off the top. OCR re-reads every visible notification on
// every tick, so one physical pickup produces many identical readings in
// the same row, and the same notification is later re-read one row higher
// after each push. The filter suppresses both effects while still letting
// through bursts of textually identical but physically distinct drops.
package dedup

import (
	"strings"
	"time"
)

// Rows is the fixed size of the game's notification stack.
const Rows = 5

// Config holds the filter thresholds. The durations are empirically tuned
// against capture traces of the live game UI; treat them as calibration
// values, not invariants.
type Config struct {
	RegionHeight int
	Window       time.Duration // retention period for past readings
	SameRowTTL   time.Duration // same text + same row within this is a re-read
	ShiftTTL     time.Duration // same text one row up within this is a FIFO push
	BurstWindow  time.Duration // identical drops this close together are a burst
}

// DefaultConfig returns the tuned thresholds for a region of the given
// pixel height.
func DefaultConfig(regionHeight int) Config {
	return Config{
		RegionHeight: regionHeight,
		Window:       3000 * time.Millisecond,
		SameRowTTL:   1500 * time.Millisecond,
		ShiftTTL:     500 * time.Millisecond,
		BurstWindow:  200 * time.Millisecond,
	}
}

type retained struct {
	text string
	row  int
	at   time.Time
}

// Filter is the row-aware temporal deduplication filter. It is not safe for
// concurrent use; the pipeline's single consumer is its only caller.
type Filter struct {
	cfg       Config
	rowHeight int
	recent    []retained
}

func NewFilter(cfg Config) *Filter {
	if cfg.Window <= 0 {
		cfg = DefaultConfig(cfg.RegionHeight)
	}
	rowHeight := cfg.RegionHeight / Rows
	if rowHeight <= 0 {
		rowHeight = 1
	}
	return &Filter{cfg: cfg, rowHeight: rowHeight}
}

// Row buckets a bbox top coordinate into one of the five notification rows.
func (f *Filter) Row(top int) int {
	row := top / f.rowHeight
	if row < 0 {
		return 0
	}
	if row >= Rows {
		return Rows - 1
	}
	return row
}

// Accept reports whether the reading is a new pickup event. Accepted
// readings are retained for future comparison; rejected ones are discarded.
//
// Policy: within the retention window, a same-text reading in the same row
// inside SameRowTTL is a re-read of the same notification — unless it
// arrived inside BurstWindow of the previous one, or at least two other
// identical readings in that row landed within BurstWindow (a burst of
// distinct drops). A same-text reading exactly one row above the previous
// one inside ShiftTTL is the same notification after a FIFO push. Anything
// else is a distinct pickup. This deliberately risks the rare false accept
// over the common false reject.
func (f *Filter) Accept(text string, top int, at time.Time) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	row := f.Row(top)
	f.purge(at)

	if prev, ok := f.lastWithText(text); ok {
		dt := at.Sub(prev.at)
		switch {
		case prev.row == row && dt < f.cfg.SameRowTTL:
			if dt >= f.cfg.BurstWindow && !f.inBurst(text, row, at) {
				return false
			}
		case row == prev.row-1 && dt < f.cfg.ShiftTTL:
			// FIFO push: the old notification moved one slot up.
			return false
		}
	}

	f.recent = append(f.recent, retained{text: text, row: row, at: at})
	return true
}

// purge drops retained readings that fell out of the window. Lazy, done on
// each new reading rather than on a timer.
func (f *Filter) purge(now time.Time) {
	cutoff := now.Add(-f.cfg.Window)
	kept := f.recent[:0]
	for _, r := range f.recent {
		if r.at.After(cutoff) {
			kept = append(kept, r)
		}
	}
	f.recent = kept
}

func (f *Filter) lastWithText(text string) (retained, bool) {
	for i := len(f.recent) - 1; i >= 0; i-- {
		if f.recent[i].text == text {
			return f.recent[i], true
		}
	}
	return retained{}, false
}

// inBurst reports whether at least two identical-text readings in the same
// row landed within the burst window before this one.
func (f *Filter) inBurst(text string, row int, at time.Time) bool {
	n := 0
	for i := len(f.recent) - 1; i >= 0; i-- {
		r := f.recent[i]
		if at.Sub(r.at) > f.cfg.BurstWindow {
			break
		}
		if r.text == text && r.row == row {
			n++
			if n >= 2 {
				return true
			}
		}
	}
	return false
}

// Retained reports how many readings are currently held for comparison.
func (f *Filter) Retained() int { return len(f.recent) }
