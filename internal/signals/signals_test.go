package signals

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSendAndDetectStop(t *testing.T) {
	w, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	if w.ShouldStop() {
		t.Fatal("fresh watcher must not report stop")
	}
	if err := w.SendStop(); err != nil {
		t.Fatalf("SendStop: %v", err)
	}
	if !w.ShouldStop() {
		t.Error("stop signal not detected")
	}
}

func TestPauseFollowsFile(t *testing.T) {
	w, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	if err := w.SendPause(); err != nil {
		t.Fatalf("SendPause: %v", err)
	}
	if !w.ShouldPause() {
		t.Error("pause signal not detected")
	}

	if err := w.ClearPause(); err != nil {
		t.Fatalf("ClearPause: %v", err)
	}
	if w.ShouldPause() {
		t.Error("pause should clear when the file is removed")
	}
}

func TestClearResetsState(t *testing.T) {
	w, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	w.SendStop()
	w.SendPause()
	w.Clear()

	if w.ShouldStop() || w.ShouldPause() {
		t.Error("Clear must reset both signals")
	}
}

func TestStopCallbackFires(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()
	if w.watcher == nil {
		t.Skip("fsnotify unavailable; polling fallback covered elsewhere")
	}

	fired := make(chan struct{}, 1)
	w.OnStop(func() { fired <- struct{}{} })

	if err := os.WriteFile(filepath.Join(dir, ".probe", "signals", "stop"), []byte("now"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("stop callback not invoked")
	}
}

func TestSignalsSurviveWatcherAbsence(t *testing.T) {
	w := &Watcher{probeDir: filepath.Join(t.TempDir(), ".probe"), done: make(chan struct{})}
	if err := os.MkdirAll(filepath.Join(w.probeDir, "signals"), 0755); err != nil {
		t.Fatal(err)
	}

	if err := w.SendStop(); err != nil {
		t.Fatal(err)
	}
	if !w.ShouldStop() {
		t.Error("polling fallback must detect the stop file without fsnotify")
	}
}
