package otel

import (
	"context"
	"testing"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"session-control-plane/internal/audit"
)

func TestNewEventEmitter_NilProvider_ReturnsNoop(t *testing.T) {
	em := NewEventEmitter(nil)
	if em == nil {
		t.Fatal("NewEventEmitter(nil) returned nil")
	}
	if err := em.Emit(context.Background(), nil); err != nil {
		t.Errorf("noop Emit(ctx, nil): %v", err)
	}
	if err := em.Emit(context.Background(), &audit.Event{SubjectID: "u1"}); err != nil {
		t.Errorf("noop Emit(ctx, event): %v", err)
	}
	if err := em.Close(); err != nil {
		t.Errorf("noop Close: %v", err)
	}
}

func TestEmit_NilEvent_ReturnsNil(t *testing.T) {
	provider := sdklog.NewLoggerProvider()
	defer func() { _ = provider.Shutdown(context.Background()) }()
	em := NewEventEmitter(provider)
	if err := em.Emit(context.Background(), nil); err != nil {
		t.Errorf("Emit(ctx, nil): %v", err)
	}
}

// recordCapture stores the last Record passed to Emit for assertion.
type recordCapture struct {
	rec otellog.Record
}

func (r *recordCapture) Emit(ctx context.Context, rec otellog.Record) {
	r.rec = rec
}

func TestEmit_AttributeMapping(t *testing.T) {
	cap := &recordCapture{}
	em := newEventEmitterWithLogger(cap)
	now := time.Now().UTC()
	event := &audit.Event{
		ID:        "e1",
		SubjectID: "u1",
		SessionID: "s1",
		EventType: audit.EventRotate,
		Source:    "session-service",
		IP:        "10.0.0.1",
		CreatedAt: now,
	}
	if err := em.Emit(context.Background(), event); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	rec := cap.rec

	if rec.Timestamp().Unix() != now.Unix() {
		t.Errorf("timestamp = %v, want %v", rec.Timestamp(), now)
	}
	if rec.Body().AsString() != audit.EventRotate {
		t.Errorf("body = %q, want %q", rec.Body().AsString(), audit.EventRotate)
	}

	attrs := make(map[string]string)
	rec.WalkAttributes(func(kv otellog.KeyValue) bool {
		attrs[kv.Key] = kv.Value.AsString()
		return true
	})
	want := map[string]string{
		"event_id": "e1", "subject_id": "u1", "session_id": "s1",
		"event_type": audit.EventRotate, "source": "session-service", "ip": "10.0.0.1",
	}
	for k, v := range want {
		if attrs[k] != v {
			t.Errorf("attr %q = %q, want %q", k, attrs[k], v)
		}
	}
}

func TestEmit_ZeroTimestamp_SetsCurrentTime(t *testing.T) {
	cap := &recordCapture{}
	em := newEventEmitterWithLogger(cap)
	before := time.Now().UTC()
	if err := em.Emit(context.Background(), &audit.Event{EventType: audit.EventLogin}); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	after := time.Now().UTC()
	ts := cap.rec.Timestamp()
	if ts.Before(before) || ts.After(after) {
		t.Errorf("timestamp = %v, should be between %v and %v", ts, before, after)
	}
}

func TestEmit_EmptyFieldsOmitted(t *testing.T) {
	cap := &recordCapture{}
	em := newEventEmitterWithLogger(cap)
	if err := em.Emit(context.Background(), &audit.Event{EventType: audit.EventLoginFailure, IP: "1.2.3.4"}); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	attrs := make(map[string]string)
	cap.rec.WalkAttributes(func(kv otellog.KeyValue) bool {
		attrs[kv.Key] = kv.Value.AsString()
		return true
	})
	if _, ok := attrs["subject_id"]; ok {
		t.Error("subject_id should be omitted when empty")
	}
	if _, ok := attrs["session_id"]; ok {
		t.Error("session_id should be omitted when empty")
	}
	if attrs["event_type"] != audit.EventLoginFailure || attrs["ip"] != "1.2.3.4" {
		t.Errorf("attributes = %v", attrs)
	}
}
