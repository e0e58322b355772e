package audit

import "time"

// EventType categorizes an audit event.
type EventType string

const (
	// Access decisions
	EventTypeAccessCheck  EventType = "access.check"
	EventTypeAccessDenied EventType = "access.denied"

	// Grant lifecycle
	EventTypeGrantReplace EventType = "grant.replace"
	EventTypeGrantRevoke  EventType = "grant.revoke"

	// Propagation to the external file-authorization system
	EventTypePropagationRun        EventType = "propagation.run"
	EventTypePropagationFileUpdate EventType = "propagation.file_update"
	EventTypePropagationFailure    EventType = "propagation.failure"
)

// EventStatus is the outcome of an audited operation.
type EventStatus string

const (
	EventStatusSuccess EventStatus = "success"
	EventStatusFailure EventStatus = "failure"
	EventStatusDenied  EventStatus = "denied"
)

// ResourceType names the kind of resource an event concerns.
type ResourceType string

const (
	ResourceTypeProject ResourceType = "project"
	ResourceTypeGroup   ResourceType = "project_group"
	ResourceTypeSample  ResourceType = "sample"
	ResourceTypeFile    ResourceType = "file"
)

// Event is a single audit entry.
type Event struct {
	ID        int64       `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	EventType EventType   `json:"event_type"`
	Status    EventStatus `json:"status"`

	UserID   *int64 `json:"user_id,omitempty"`
	Username string `json:"username,omitempty"`

	ResourceType ResourceType `json:"resource_type,omitempty"`
	ResourceID   string       `json:"resource_id,omitempty"`

	RequestID string `json:"request_id,omitempty"`

	Message      string                 `json:"message,omitempty"`
	ErrorMessage string                 `json:"error_message,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}
