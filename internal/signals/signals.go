// Package signals provides file-based run control via the .probe directory.
// Touching .probe/signals/stop cancels a live run; .probe/signals/pause gates
// dispatch between passes; removing pause resumes.
package signals

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher monitors the signals directory for stop/pause files.
type Watcher struct {
	probeDir string

	mu          sync.RWMutex
	stopSignal  bool
	pauseSignal bool

	// onStop and onPause are invoked from the watch goroutine, at most once
	// per transition.
	onStop   func()
	onPause  func(paused bool)
	watcher  *fsnotify.Watcher
	done     chan struct{}
	doneOnce sync.Once
}

// New creates a watcher rooted at dir (usually the working directory).
// Without fsnotify support the watcher still works via the polling checks.
func New(dir string) (*Watcher, error) {
	probeDir := filepath.Join(dir, ".probe")
	signalsDir := filepath.Join(probeDir, "signals")
	if err := os.MkdirAll(signalsDir, 0755); err != nil {
		return nil, err
	}

	w := &Watcher{
		probeDir: probeDir,
		done:     make(chan struct{}),
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return w, nil
	}
	if err := fsw.Add(signalsDir); err != nil {
		fsw.Close()
		return w, nil
	}
	w.watcher = fsw
	go w.watch()

	return w, nil
}

// OnStop registers a callback for the stop signal.
func (w *Watcher) OnStop(fn func()) {
	w.mu.Lock()
	w.onStop = fn
	w.mu.Unlock()
}

// OnPause registers a callback for pause transitions. The argument is the new
// paused state.
func (w *Watcher) OnPause(fn func(paused bool)) {
	w.mu.Lock()
	w.onPause = fn
	w.mu.Unlock()
}

func (w *Watcher) watch() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(event)
		case <-w.watcher.Errors:
			// Keep watching; polling covers missed events.
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	base := filepath.Base(event.Name)
	created := event.Op&fsnotify.Create != 0 || event.Op&fsnotify.Write != 0
	removed := event.Op&fsnotify.Remove != 0

	w.mu.Lock()
	var notifyStop func()
	var notifyPause func(bool)
	var pausedNow bool
	switch {
	case base == "stop" && created:
		if !w.stopSignal {
			w.stopSignal = true
			notifyStop = w.onStop
		}
	case base == "pause" && created:
		if !w.pauseSignal {
			w.pauseSignal = true
			pausedNow = true
			notifyPause = w.onPause
		}
	case base == "pause" && removed:
		if w.pauseSignal {
			w.pauseSignal = false
			pausedNow = false
			notifyPause = w.onPause
		}
	}
	w.mu.Unlock()

	if notifyStop != nil {
		notifyStop()
	}
	if notifyPause != nil {
		notifyPause(pausedNow)
	}
}

// ShouldStop returns true if a stop signal has been received.
// It also checks the file directly in case the watcher missed it.
func (w *Watcher) ShouldStop() bool {
	if _, err := os.Stat(w.signalPath("stop")); err == nil {
		w.mu.Lock()
		w.stopSignal = true
		w.mu.Unlock()
	}

	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.stopSignal
}

// ShouldPause returns true if a pause signal is active.
func (w *Watcher) ShouldPause() bool {
	w.mu.Lock()
	if _, err := os.Stat(w.signalPath("pause")); err == nil {
		w.pauseSignal = true
	} else if os.IsNotExist(err) {
		w.pauseSignal = false
	}
	paused := w.pauseSignal
	w.mu.Unlock()
	return paused
}

// SendStop creates the stop signal file.
func (w *Watcher) SendStop() error {
	return os.WriteFile(w.signalPath("stop"), []byte(time.Now().Format(time.RFC3339)), 0644)
}

// SendPause creates the pause signal file.
func (w *Watcher) SendPause() error {
	return os.WriteFile(w.signalPath("pause"), []byte(time.Now().Format(time.RFC3339)), 0644)
}

// ClearPause removes the pause signal file.
func (w *Watcher) ClearPause() error {
	err := os.Remove(w.signalPath("pause"))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Clear removes all signal files and resets signal state.
func (w *Watcher) Clear() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.stopSignal = false
	w.pauseSignal = false

	os.Remove(w.signalPath("stop"))
	os.Remove(w.signalPath("pause"))
}

// ProbeDir returns the path to the .probe directory.
func (w *Watcher) ProbeDir() string {
	return w.probeDir
}

func (w *Watcher) signalPath(name string) string {
	return filepath.Join(w.probeDir, "signals", name)
}

// Close shuts down the watcher.
func (w *Watcher) Close() {
	w.doneOnce.Do(func() { close(w.done) })
	if w.watcher != nil {
		w.watcher.Close()
	}
}
