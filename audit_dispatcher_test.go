package authcore

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"
)

// blockingSink stalls every Emit until released, so tests can fill the
// dispatcher buffer deterministically.
type blockingSink struct {
	release chan struct{}
	seen    chan AuditEvent
}

func newBlockingSink() *blockingSink {
	return &blockingSink{
		release: make(chan struct{}),
		seen:    make(chan AuditEvent, 128),
	}
}

func (s *blockingSink) Emit(_ context.Context, event AuditEvent) {
	<-s.release
	s.seen <- event
}

func TestAuditDispatcher_DeliversInBackground(t *testing.T) {
	sink := NewChannelSink(16)
	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 16, DropIfFull: true}, sink)
	defer d.Close()

	d.Emit(context.Background(), AuditEvent{EventType: "login_success", EmployeeID: "E1001"})

	select {
	case ev := <-sink.Events():
		if ev.EventType != "login_success" || ev.EmployeeID != "E1001" {
			t.Fatalf("event = %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("event never delivered")
	}
}

func TestAuditDispatcher_DropIfFull(t *testing.T) {
	sink := newBlockingSink()
	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 2, DropIfFull: true}, sink)
	defer d.Close()

	ctx := context.Background()

	// One event may be held by the worker, two fit the buffer; the rest
	// must be dropped without blocking the caller.
	for i := 0; i < 10; i++ {
		d.Emit(ctx, AuditEvent{EventType: "login_failure"})
	}
	if d.Dropped() == 0 {
		t.Fatal("no events dropped with a full buffer")
	}

	close(sink.release)
}

func TestAuditDispatcher_CloseDrains(t *testing.T) {
	sink := NewChannelSink(16)
	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 16, DropIfFull: true}, sink)

	for i := 0; i < 5; i++ {
		d.Emit(context.Background(), AuditEvent{EventType: "login_success"})
	}
	d.Close()

	for i := 0; i < 5; i++ {
		select {
		case <-sink.Events():
		case <-time.After(2 * time.Second):
			t.Fatalf("only %d of 5 events delivered before close", i)
		}
	}

	// Emit after close is a silent no-op.
	d.Emit(context.Background(), AuditEvent{EventType: "login_success"})
	select {
	case ev := <-sink.Events():
		t.Fatalf("event delivered after close: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestAuditDispatcher_DisabledIsNil(t *testing.T) {
	d := newAuditDispatcher(AuditConfig{Enabled: false}, NoOpSink{})
	if d != nil {
		t.Fatal("disabled dispatcher not nil")
	}

	// Nil receivers are safe on every method.
	d.Emit(context.Background(), AuditEvent{})
	d.Close()
	if d.Dropped() != 0 {
		t.Fatal("nil Dropped != 0")
	}
}

func TestAuditDispatcher_ConcurrentEmit(t *testing.T) {
	sink := NewChannelSink(1024)
	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 1024, DropIfFull: false}, sink)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				d.Emit(context.Background(), AuditEvent{EventType: "login_success"})
			}
		}()
	}
	wg.Wait()
	d.Close()

	got := 0
	for {
		select {
		case <-sink.Events():
			got++
		default:
			if got != 400 {
				t.Fatalf("delivered %d of 400 events", got)
			}
			return
		}
	}
}

func TestJSONWriterSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)

	sink.Emit(context.Background(), AuditEvent{
		Timestamp:  time.Now().UTC(),
		EventType:  "account_locked",
		EmployeeID: "E1001",
		Reason:     "INVALID_PASSWORD",
		Metadata:   map[string]string{"failed_attempts": "5"},
	})

	line := strings.TrimSpace(buf.String())
	var decoded AuditEvent
	if err := json.Unmarshal([]byte(line), &decoded); err != nil {
		t.Fatalf("output not valid JSON: %v", err)
	}
	if decoded.EventType != "account_locked" || decoded.Metadata["failed_attempts"] != "5" {
		t.Fatalf("decoded = %+v", decoded)
	}
}
