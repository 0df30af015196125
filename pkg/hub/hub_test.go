package hub

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeConn is an in-memory websocket connection.
type fakeConn struct {
	mu      sync.Mutex
	written [][]byte
	closed  chan struct{}
	once    sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{closed: make(chan struct{})}
}

func (f *fakeConn) SetReadLimit(int64) {}
func (f *fakeConn) SetReadDeadline(time.Time) error { return nil }
func (f *fakeConn) SetWriteDeadline(time.Time) error { return nil }
func (f *fakeConn) SetPongHandler(func(string) error) {}
func (f *fakeConn) ReadMessage() (int, []byte, error) {
	<-f.closed
	return 0, nil, errors.New("closed")
}

func (f *fakeConn) WriteMessage(_ int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(data) > 0 {
		f.written = append(f.written, append([]byte(nil), data...))
	}
	return nil
}

func (f *fakeConn) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeConn) messages() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.written...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHubBroadcastsEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := New(nil)
	go h.Run(ctx)

	conn := newFakeConn()
	client := newClient(h, conn)
	go client.Run()

	waitFor(t, func() bool { return h.ClientCount() == 1 })

	ev, err := NewEvent(EventProgress, "run-1", map[string]int{"frame": 3})
	if err != nil {
		t.Fatalf("NewEvent failed: %v", err)
	}
	if err := h.Publish(ev); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	waitFor(t, func() bool { return len(conn.messages()) == 1 })

	var got Event
	if err := json.Unmarshal(conn.messages()[0], &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Type != EventProgress || got.RunID != "run-1" || string(got.Data) != `{"frame":3}` {
		t.Errorf("Unexpected event: %+v", got)
	}
}

func TestHubUnregistersClosedClient(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := New(nil)
	go h.Run(ctx)

	conn := newFakeConn()
	go newClient(h, conn).Run()
	waitFor(t, func() bool { return h.ClientCount() == 1 })

	conn.Close()
	waitFor(t, func() bool { return h.ClientCount() == 0 })
}

func TestHubStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := New(nil)

	stopped := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(stopped)
	}()
	waitFor(t, h.IsRunning)

	conn := newFakeConn()
	go newClient(h, conn).Run()
	waitFor(t, func() bool { return h.ClientCount() == 1 })

	cancel()
	<-stopped

	if h.IsRunning() || h.ClientCount() != 0 {
		t.Errorf("running=%v clients=%d after stop", h.IsRunning(), h.ClientCount())
	}

	// Registering after stop must not block.
	late := newClient(h, newFakeConn())
	if _, ok := <-late.send; ok {
		t.Error("late client should get a closed send channel")
	}
}

func TestNewEventWithoutData(t *testing.T) {
	ev, err := NewEvent(EventFailed, "r", nil)
	if err != nil {
		t.Fatal(err)
	}
	data, _ := json.Marshal(ev)
	if string(data) != `{"type":"failed","run_id":"r"}` {
		t.Errorf("encoded = %s", data)
	}
}
