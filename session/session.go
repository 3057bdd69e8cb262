// Package session owns the grind-session lifecycle and the running loot tally.
package session

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/Donobuz/BDO-Loot-Bot-sub001/catalog"
	"github.com/Donobuz/BDO-Loot-Bot-sub001/match"
)

var (
	ErrNoLocation = errors.New("no location set")
	ErrNotActive  = errors.New("session not active")
)

// State is the ledger lifecycle position:
// Idle → (location set) → Ready → (start) → Active → (end) → Ended.
type State int

const (
	StateIdle State = iota
	StateReady
	StateActive
	StateEnded
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateReady:
		return "ready"
	case StateActive:
		return "active"
	case StateEnded:
		return "ended"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Ledger accumulates deduplicated, matched pickups into running counts.
// All mutation flows through RecordMatch/RecordSilver on the pipeline's
// single consumer; nothing else writes to the loot map.
type Ledger struct {
	id       uuid.UUID
	location string
	cat      *catalog.Catalog
	loot     map[string]int
	silver   int64
	start    time.Time
	end      time.Time
}

func NewLedger() *Ledger {
	return &Ledger{loot: make(map[string]int)}
}

// SetLocation stores the location and swaps in a fresh catalog snapshot.
// When the provider cannot supply a catalog the ledger degrades to an
// empty, never-matching one and still returns the load error so the caller
// can report it.
func (l *Ledger) SetLocation(name string, provider catalog.Provider) error {
	l.location = name
	l.cat = catalog.Empty(name)
	if provider == nil {
		return fmt.Errorf("%w: no catalog provider", catalog.ErrNoCatalog)
	}
	entries, err := provider.Load(name)
	if err != nil {
		log.Printf("catalog load failed for %q, continuing with empty catalog: %v", name, err)
		return err
	}
	l.cat = catalog.New(name, entries)
	return nil
}

// Start clears the tally and activates the ledger. Restarting an ended
// ledger begins a new session under the same location.
func (l *Ledger) Start() error {
	if l.location == "" {
		return ErrNoLocation
	}
	l.id = uuid.New()
	l.loot = make(map[string]int)
	l.silver = 0
	l.start = time.Now()
	l.end = time.Time{}
	return nil
}

// RecordMatch adds a matched pickup to the tally. Reported as a failure,
// not a panic, when the session is not active.
func (l *Ledger) RecordMatch(m match.Loot) error {
	if !l.IsActive() {
		return ErrNotActive
	}
	l.loot[m.Item] += m.Quantity
	return nil
}

// RecordSilver adds a parsed silver gain.
func (l *Ledger) RecordSilver(amount int64) error {
	if !l.IsActive() {
		return ErrNotActive
	}
	l.silver += amount
	return nil
}

// End freezes the ledger and returns the session summary.
func (l *Ledger) End() (Summary, error) {
	if !l.IsActive() {
		return Summary{}, ErrNotActive
	}
	l.end = time.Now()
	return l.Summarize(), nil
}

// IsActive reports whether a start time is set and no end time is.
func (l *Ledger) IsActive() bool {
	return !l.start.IsZero() && l.end.IsZero()
}

func (l *Ledger) State() State {
	switch {
	case !l.end.IsZero():
		return StateEnded
	case !l.start.IsZero():
		return StateActive
	case l.location != "":
		return StateReady
	}
	return StateIdle
}

func (l *Ledger) ID() uuid.UUID    { return l.id }
func (l *Ledger) Location() string { return l.location }

// Catalog returns the active snapshot, or an empty one before any location
// was set.
func (l *Ledger) Catalog() *catalog.Catalog {
	if l.cat == nil {
		return catalog.Empty(l.location)
	}
	return l.cat
}

// Summary is a frozen view of the session's results.
type Summary struct {
	ID        uuid.UUID
	Location  string
	StartedAt time.Time
	EndedAt   time.Time
	Duration  time.Duration
	Loot      map[string]int
	Items     int
	Silver    int64
	// TotalValue is a placeholder until market pricing lands.
	TotalValue int64
}

// Summarize snapshots the current tally. The loot map is copied so callers
// never alias the live session state.
func (l *Ledger) Summarize() Summary {
	loot := make(map[string]int, len(l.loot))
	items := 0
	for name, n := range l.loot {
		loot[name] = n
		items += n
	}
	end := l.end
	if end.IsZero() {
		end = time.Now()
	}
	var dur time.Duration
	if !l.start.IsZero() {
		dur = end.Sub(l.start)
	}
	return Summary{
		ID:        l.id,
		Location:  l.location,
		StartedAt: l.start,
		EndedAt:   l.end,
		Duration:  dur,
		Loot:      loot,
		Items:     items,
		Silver:    l.silver,
	}
}
