package config

import (
	"log"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
)

// Watcher watches a configuration file for changes and emits freshly
// loaded Documents on Changes(). It does not itself touch any running
// instrument graph; the engine's reconfiguration consumer decides how
// and when to apply what arrives.
type Watcher struct {
	path    string
	fw      *fsnotify.Watcher
	changes chan Document
	done    chan struct{}
}

// NewWatcher starts watching the directory containing path (fsnotify
// watches directories, not bare files, so renames-over and editors
// that write-then-rename are both observed).
func NewWatcher(path string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "config: failed to start file watcher")
	}
	dir := dirOf(path)
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, errors.Wrapf(err, "config: failed to watch %s", dir)
	}
	w := &Watcher{
		path:    path,
		fw:      fw,
		changes: make(chan Document, 1),
		done:    make(chan struct{}),
	}
	go w.run()
	return w, nil
}

func dirOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i]
		}
	}
	return "."
}

func baseOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[i+1:]
		}
	}
	return path
}

func (w *Watcher) run() {
	target := baseOf(w.path)
	for {
		select {
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if baseOf(ev.Name) != target {
				continue
			}
			if !(ev.Op&(fsnotify.Write|fsnotify.Create) != 0) {
				continue
			}
			doc, err := Load(w.path)
			if err != nil {
				log.Printf("config: reload of %s failed: %v", w.path, err)
				continue
			}
			select {
			case w.changes <- doc:
			default:
				// drop the stale pending reload, the new one supersedes it
				<-w.changes
				w.changes <- doc
			}
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			log.Printf("config: watcher error: %v", err)
		case <-w.done:
			return
		}
	}
}

// Changes returns the channel on which freshly reloaded Documents are
// delivered, coalesced: a still-unconsumed reload is replaced by a
// newer one rather than queued.
func (w *Watcher) Changes() <-chan Document { return w.changes }

// Close stops watching and releases the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fw.Close()
}
