// Package logutil routes the standard logger to a size-rotated debug file,
// or discards it entirely so stdout stays clean for the detection stream.
package logutil

import (
	"fmt"
	"io"
	"log"
	"os"
)

const (
	fileName     = "lootbot_debug.log"
	maxSizeBytes = 10 * 1024 * 1024
	maxArchives  = 3
)

// Setup configures the global logger. With file logging disabled all
// log.Printf output is dropped.
func Setup(enableFileLogging bool) {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if !enableFileLogging {
		log.SetOutput(io.Discard)
		return
	}
	f, err := openRotated()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open debug log: %v\n", err)
		return
	}
	log.SetOutput(&rotatingWriter{f: f})
}

type rotatingWriter struct{ f *os.File }

func (w *rotatingWriter) Write(p []byte) (int, error) {
	if st, err := w.f.Stat(); err == nil && st.Size()+int64(len(p)) > maxSizeBytes {
		_ = w.f.Close()
		nf, err := openRotated()
		if err != nil {
			return 0, err
		}
		w.f = nf
	}
	return w.f.Write(p)
}

// openRotated shifts full archives down one slot (oldest dropped) and opens
// a fresh append handle.
func openRotated() (*os.File, error) {
	if st, err := os.Stat(fileName); err == nil && st.Size() > maxSizeBytes {
		_ = os.Remove(archive(maxArchives))
		for i := maxArchives - 1; i >= 1; i-- {
			_ = os.Rename(archive(i), archive(i+1))
		}
		_ = os.Rename(fileName, archive(1))
	}
	return os.OpenFile(fileName, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}

func archive(n int) string { return fmt.Sprintf("%s.%d", fileName, n) }
