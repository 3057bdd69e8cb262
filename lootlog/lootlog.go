// Package lootlog writes the append-only per-session event log: a header
// block at session start, one line per accepted detection, and a footer
// block with totals at session end.
package lootlog

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Donobuz/BDO-Loot-Bot-sub001/match"
	"github.com/Donobuz/BDO-Loot-Bot-sub001/screenshot"
)

// Writer appends to one session's log file. Safe for use from the pipeline
// consumer plus the occasional footer write at stop time.
type Writer struct {
	mu sync.Mutex
	f  *os.File
}

// Create opens a new log file named after the session ID inside dir,
// creating dir if needed.
func Create(dir string, id uuid.UUID) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create session log dir: %w", err)
	}
	name := filepath.Join(dir, fmt.Sprintf("session_%s.log", id))
	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open session log: %w", err)
	}
	return &Writer{f: f}, nil
}

// Path returns the underlying file path.
func (w *Writer) Path() string { return w.f.Name() }

// Header writes the session preamble.
func (w *Writer) Header(id uuid.UUID, location string, region screenshot.Region, interval time.Duration, start time.Time) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, err := fmt.Fprintf(w.f,
		"=== session %s ===\nlocation: %s\nregion: %s\ninterval: %s\nstarted: %s\n---\n",
		id, location, region, interval, start.Format(time.RFC3339))
	return err
}

// Event writes one accepted detection line:
//
//	[2026-03-01T12:00:00Z] [EXACT] Black Stone x2 (0.92, 113ms)
func (w *Writer) Event(at time.Time, loot match.Loot, elapsed time.Duration) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, err := fmt.Fprintf(w.f, "[%s] [%s] %s (%.2f, %dms)\n",
		at.Format(time.RFC3339), loot.Method, loot.OriginalText, loot.Confidence, elapsed.Milliseconds())
	return err
}

// Silver writes one accepted silver-gain line.
func (w *Writer) Silver(at time.Time, amount int64, elapsed time.Duration) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, err := fmt.Fprintf(w.f, "[%s] [SILVER] %d (%dms)\n",
		at.Format(time.RFC3339), amount, elapsed.Milliseconds())
	return err
}

// Footer writes the closing block and closes the file.
func (w *Writer) Footer(end time.Time, duration time.Duration, attempts uint64, avg time.Duration) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, werr := fmt.Fprintf(w.f,
		"---\nended: %s\nduration: %s\nattempts: %d\navg processing: %s\n=== end ===\n",
		end.Format(time.RFC3339), duration.Round(time.Second), attempts, avg.Round(time.Millisecond))
	cerr := w.f.Close()
	if werr != nil {
		return werr
	}
	return cerr
}

// Close closes the file without a footer, for abnormal teardown.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.f.Close()
}
