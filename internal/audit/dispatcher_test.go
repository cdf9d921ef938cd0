package audit

import (
	"context"
	"sync"
	"testing"
	"time"
)

type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordingSink) Emit(_ context.Context, event Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func TestDispatcherDeliversAndDrainsOnClose(t *testing.T) {
	sink := &recordingSink{}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 16, DropIfFull: true}, sink)

	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), Event{EventType: "login", Timestamp: time.Now()})
	}
	d.Close()

	if got := sink.count(); got != 10 {
		t.Fatalf("delivered = %d, want 10", got)
	}
	if d.Dropped() != 0 {
		t.Fatalf("dropped = %d", d.Dropped())
	}
}

func TestDispatcherDisabledDropsSilently(t *testing.T) {
	sink := &recordingSink{}
	d := NewDispatcher(Config{Enabled: false}, sink)

	d.Emit(context.Background(), Event{EventType: "login"})
	d.Close()

	if got := sink.count(); got != 0 {
		t.Fatalf("delivered = %d, want 0", got)
	}
}

func TestDispatcherNilSafe(t *testing.T) {
	var d *Dispatcher
	d.Emit(context.Background(), Event{EventType: "login"})
	d.Close()
	if d.Dropped() != 0 {
		t.Fatal("nil dispatcher must report zero drops")
	}
}

func TestDispatcherEmitAfterCloseIsNoOp(t *testing.T) {
	sink := &recordingSink{}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 4, DropIfFull: true}, sink)
	d.Close()

	d.Emit(context.Background(), Event{EventType: "login"})
	if got := sink.count(); got != 0 {
		t.Fatalf("delivered = %d, want 0", got)
	}
}
