// Package audit keeps the append-only record of operational events. Every
// guarded operation in the catalog and auth services reports here; entries
// are never edited or removed.
package audit

import (
	"context"
	"sync"
	"time"

	"marketplace/internal/domain"

	"go.uber.org/zap"
)

// Sink receives a copy of every recorded event, typically for durable
// storage. Append failures must not block or fail the recording caller.
type Sink interface {
	Append(ctx context.Context, event *domain.AuditEvent) error
}

// Trail is the in-memory audit trail. Identity and timestamp are assigned on
// append; timestamps never go backwards relative to insertion order.
type Trail struct {
	mu     sync.RWMutex
	events []domain.AuditEvent
	nextID int64
	last   time.Time

	logger *zap.Logger
	sink   Sink
}

// New creates an empty trail that mirrors each event to the given logger.
func New(logger *zap.Logger) *Trail {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Trail{nextID: 1, logger: logger}
}

// WithSink attaches a durable sink. Sink errors are logged and swallowed so
// that auditing never turns a successful operation into a failed one.
func (t *Trail) WithSink(sink Sink) *Trail {
	t.mu.Lock()
	t.sink = sink
	t.mu.Unlock()
	return t
}

// Record appends an event with the given severity and returns a copy of it.
func (t *Trail) Record(actorID *int64, action, details string, level domain.AuditLevel) domain.AuditEvent {
	t.mu.Lock()

	now := time.Now()
	if now.Before(t.last) {
		now = t.last
	}
	t.last = now

	event := domain.AuditEvent{
		ID:        t.nextID,
		Timestamp: now,
		ActorID:   copyID(actorID),
		Action:    action,
		Details:   details,
		Level:     level,
	}
	t.nextID++
	t.events = append(t.events, event)
	sink := t.sink
	t.mu.Unlock()

	fields := []zap.Field{
		zap.Int64("event_id", event.ID),
		zap.String("action", action),
		zap.String("details", details),
	}
	if actorID != nil {
		fields = append(fields, zap.Int64("actor_id", *actorID))
	}
	if level == domain.AuditError {
		t.logger.Error("audit event", fields...)
	} else {
		t.logger.Info("audit event", fields...)
	}

	if sink != nil {
		if err := sink.Append(context.Background(), &event); err != nil {
			t.logger.Warn("audit sink append failed", zap.Int64("event_id", event.ID), zap.Error(err))
		}
	}

	return event
}

// Info appends an INFO event.
func (t *Trail) Info(actorID *int64, action, details string) domain.AuditEvent {
	return t.Record(actorID, action, details, domain.AuditInfo)
}

// Error appends an ERROR event.
func (t *Trail) Error(actorID *int64, action, details string) domain.AuditEvent {
	return t.Record(actorID, action, details, domain.AuditError)
}

// Events returns a newest-first copy of the trail.
func (t *Trail) Events() []domain.AuditEvent {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]domain.AuditEvent, len(t.events))
	for i, e := range t.events {
		out[len(t.events)-1-i] = e
	}
	return out
}

// Len returns the number of recorded events.
func (t *Trail) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.events)
}

func copyID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
