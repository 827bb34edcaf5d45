package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// mockEmitter implements Emitter for tests.
type mockEmitter struct {
	mu      sync.Mutex
	events  []*Event
	emitErr error
}

func (m *mockEmitter) Emit(ctx context.Context, event *Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return m.emitErr
}

func (m *mockEmitter) Close() error { return nil }

func (m *mockEmitter) getEvents() []*Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.events
}

func TestEmitAsync_NilEmitter(t *testing.T) {
	// Should not panic.
	EmitAsync(nil, &Event{EventType: EventLogin})
}

func TestEmitAsync_NilEvent(t *testing.T) {
	emitter := &mockEmitter{}
	EmitAsync(emitter, nil)

	time.Sleep(10 * time.Millisecond)
	if got := emitter.getEvents(); len(got) != 0 {
		t.Errorf("expected 0 events, got %d", len(got))
	}
}

func TestEmitAsync_SuccessfulEmit(t *testing.T) {
	emitter := &mockEmitter{}
	event := &Event{
		SubjectID: "u1",
		SessionID: "s1",
		EventType: EventRotate,
		Source:    "test",
		CreatedAt: time.Now().UTC(),
	}

	EmitAsync(emitter, event)

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if len(emitter.getEvents()) == 1 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	events := emitter.getEvents()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].SubjectID != "u1" || events[0].EventType != EventRotate {
		t.Errorf("event = %+v", events[0])
	}
}

func TestEmitAsync_EmitErrorDoesNotPanic(t *testing.T) {
	emitter := &mockEmitter{emitErr: errors.New("broker down")}
	EmitAsync(emitter, &Event{EventType: EventRevoke})
	time.Sleep(20 * time.Millisecond)
}
