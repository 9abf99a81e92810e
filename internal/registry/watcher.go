package registry

import (
	"log"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceWindow batches bursts of file events into a single reload.
const debounceWindow = 100 * time.Millisecond

// watcher observes descriptor directories and invokes reload after a quiet
// period. Missing directories are skipped; a watcher over zero directories
// is still valid and simply never fires.
type watcher struct {
	fs     *fsnotify.Watcher
	done   chan struct{}
	reload func()
}

func newWatcher(dirs []string, reload func()) (*watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := fs.Add(dir); err != nil {
			// A missing root may be created later; watching resumes on the
			// next explicit Reload + Watch cycle.
			log.Printf("[registry] watch %s: %v", dir, err)
		}
	}

	w := &watcher{
		fs:     fs,
		done:   make(chan struct{}),
		reload: reload,
	}
	go w.run()
	return w, nil
}

// run collects events and fires reload once per debounce window.
func (w *watcher) run() {
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounceWindow)
				timerC = timer.C
			} else {
				timer.Reset(debounceWindow)
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			log.Printf("[registry] watcher error: %v", err)
		case <-timerC:
			timer = nil
			timerC = nil
			w.reload()
		}
	}
}

func (w *watcher) stop() {
	close(w.done)
	_ = w.fs.Close()
}
