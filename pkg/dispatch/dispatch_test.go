package dispatch

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"radarlink/pkg/logger"
)

// syncWriter lets tests read back what the logger wrote.
type syncWriter struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (w *syncWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Write(p)
}

func (w *syncWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.String()
}

func newTestLog() (*logger.Log, *syncWriter) {
	w := &syncWriter{}
	return logger.New(w, logger.LevelDebug), w
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("condition not met within deadline")
}

func TestHandlerReceivesMessage(t *testing.T) {
	log, _ := newTestLog()
	defer log.Close()

	d := New[string]("test", log)
	var mu sync.Mutex
	var got []string
	d.SetHandler(1, func(m string) {
		mu.Lock()
		got = append(got, m)
		mu.Unlock()
	})

	d.Start()
	defer d.Stop()

	d.Dispatch(1, "one", 7, "hello")
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1 && got[0] == "hello"
	})
}

func TestHandlerInstalledWhileStoppedTakesEffect(t *testing.T) {
	log, _ := newTestLog()
	defer log.Close()

	d := New[int]("test", log)
	var mu sync.Mutex
	received := 0
	// Installed before Start: must be in effect for the first
	// message.
	d.SetHandler(5, func(int) {
		mu.Lock()
		received++
		mu.Unlock()
	})

	d.Start()
	defer d.Stop()
	d.Dispatch(5, "five", 7, 42)

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return received == 1
	})
}

func TestMissingHandlerLogsOnceASecond(t *testing.T) {
	log, out := newTestLog()
	defer log.Close()

	d := New[int]("test", log)
	d.Start()

	d.Dispatch(9, "nine", 7, 1)
	d.Dispatch(9, "nine", 7, 2)
	d.Dispatch(9, "nine", 7, 3)
	d.Stop()
	log.Close()

	if got := bytes.Count([]byte(out.String()), []byte("no handler for type nine on connection 7")); got != 1 {
		t.Fatalf("missing-handler log appeared %d times, want 1", got)
	}
}

func TestIgnoredTypeStaysQuiet(t *testing.T) {
	log, out := newTestLog()
	defer log.Close()

	d := New[int]("test", log)
	d.Ignore(9)
	d.Start()

	d.Dispatch(9, "nine", 7, 1)
	d.Stop()
	log.Close()

	if bytes.Contains([]byte(out.String()), []byte("no handler")) {
		t.Fatalf("ignored type still logged")
	}
}

func TestPanickingHandlerIsContained(t *testing.T) {
	log, out := newTestLog()
	defer log.Close()

	d := New[int]("test", log)
	var mu sync.Mutex
	delivered := 0
	d.SetHandler(1, func(int) { panic("boom") })
	d.SetHandler(2, func(int) {
		mu.Lock()
		delivered++
		mu.Unlock()
	})

	d.Start()
	d.Dispatch(1, "one", 12, 0)
	d.Dispatch(2, "two", 12, 0)

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return delivered == 1
	})
	d.Stop()
	log.Close()

	if !bytes.Contains([]byte(out.String()), []byte("type one on connection 12 panicked")) {
		t.Fatalf("handler panic not logged with type and connection id")
	}
}
