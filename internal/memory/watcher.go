package memory

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/stellarlinkco/clawdash/internal/logger"
)

// Change describes one notes file event.
type Change struct {
	Path string
	Op   string
}

// Watcher reports create, write, remove and rename events for markdown
// files under the notes root and its memory directory.
type Watcher struct {
	notes   *Notes
	mu      sync.Mutex
	watcher *fsnotify.Watcher
	done    chan struct{}
	log     zerolog.Logger
}

func NewWatcher(notes *Notes) *Watcher {
	return &Watcher{notes: notes, log: logger.WithComponent("memory")}
}

// Start begins watching. Directories that do not exist are skipped; if
// none exist Start is a no-op. Calling Start twice has no effect.
func (w *Watcher) Start(callback func(Change)) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watcher != nil {
		return nil
	}

	var dirs []string
	for _, dir := range []string{w.notes.Root(), w.notes.Dir()} {
		info, err := os.Stat(dir)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}
		if info.IsDir() {
			dirs = append(dirs, dir)
		}
	}
	if len(dirs) == 0 {
		w.log.Debug().Str("root", w.notes.Root()).Msg("no notes directory to watch")
		return nil
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	for _, dir := range dirs {
		if err := fw.Add(dir); err != nil {
			_ = fw.Close()
			return err
		}
	}
	w.watcher = fw
	w.done = make(chan struct{})

	go w.loop(fw, w.done, callback)
	return nil
}

func (w *Watcher) loop(fw *fsnotify.Watcher, done chan struct{}, callback func(Change)) {
	defer close(done)
	for {
		select {
		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if strings.ToLower(filepath.Ext(event.Name)) != ".md" {
				continue
			}
			w.log.Debug().Str("file", event.Name).Str("op", event.Op.String()).Msg("notes changed")
			if callback != nil {
				callback(Change{Path: event.Name, Op: event.Op.String()})
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.log.Warn().Err(err).Msg("watcher error")
		}
	}
}

// Close stops the watcher and waits for the event loop to exit.
func (w *Watcher) Close() error {
	w.mu.Lock()
	fw, done := w.watcher, w.done
	w.watcher, w.done = nil, nil
	w.mu.Unlock()
	if fw == nil {
		return nil
	}
	err := fw.Close()
	<-done
	return err
}
