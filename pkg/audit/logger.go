package audit

import (
	"context"
	"time"

	"github.com/openbiome/coral/pkg/observability"
)

// Logger is the append-only audit sink.
type Logger interface {
	// Append writes one event. Implementations must not block permission
	// decisions; callers treat failures as best-effort.
	Append(ctx context.Context, event *Event) error

	// Close flushes and releases the sink.
	Close() error
}

// NewEvent builds an event with the timestamp and the request id carried
// by the context populated.
func NewEvent(ctx context.Context, eventType EventType, status EventStatus) *Event {
	return &Event{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Status:    status,
		RequestID: observability.RequestID(ctx),
	}
}

// NopLogger discards every event.
type NopLogger struct{}

func (NopLogger) Append(ctx context.Context, event *Event) error { return nil }
func (NopLogger) Close() error                                   { return nil }
