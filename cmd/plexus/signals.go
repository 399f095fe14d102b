package main

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// signalWatcher watches the data directory's signals folder so an operator
// can request a graceful shutdown by touching a "stop" file.
type signalWatcher struct {
	watcher *fsnotify.Watcher
	done    chan struct{}
	once    sync.Once
}

// watchStopSignal sets up a watcher on <dataDir>/signals next to the memory
// database.
func watchStopSignal(memoryPath string) (*signalWatcher, error) {
	signalsDir := filepath.Join(filepath.Dir(memoryPath), "signals")
	if err := os.MkdirAll(signalsDir, 0755); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(signalsDir); err != nil {
		watcher.Close()
		return nil, err
	}

	w := &signalWatcher{watcher: watcher, done: make(chan struct{})}
	go w.loop()
	return w, nil
}

func (w *signalWatcher) loop() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) == "stop" && event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				os.Remove(event.Name)
				w.once.Do(func() { close(w.done) })
				return
			}
		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

// Done is closed once a stop signal has been observed.
func (w *signalWatcher) Done() <-chan struct{} {
	return w.done
}

// Close stops watching.
func (w *signalWatcher) Close() error {
	return w.watcher.Close()
}
