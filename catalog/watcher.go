package catalog

import (
	"log"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher reports when the catalog file changes on disk so the caller can
// reload it on the next location change. The active in-session snapshot is
// never swapped out from under the matcher.
type Watcher struct {
	fw   *fsnotify.Watcher
	done chan struct{}
}

// Watch starts watching the catalog file's directory (editors replace files
// rather than write in place, so watching the file itself misses renames).
// onChange is invoked from the watcher goroutine for every relevant event.
func Watch(path string, onChange func()) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		fw.Close()
		return nil, err
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, err
	}

	w := &Watcher{fw: fw, done: make(chan struct{})}
	go func() {
		defer close(w.done)
		for {
			select {
			case ev, ok := <-fw.Events:
				if !ok {
					return
				}
				if ev.Name != abs {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
					log.Printf("catalog file changed (%s), reload pending", ev.Op)
					onChange()
				}
			case err, ok := <-fw.Errors:
				if !ok {
					return
				}
				log.Printf("catalog watcher error: %v", err)
			}
		}
	}()
	return w, nil
}

// Close stops the watcher and waits for its goroutine to exit.
func (w *Watcher) Close() error {
	err := w.fw.Close()
	<-w.done
	return err
}
