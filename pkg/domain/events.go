package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventMutation      EventType = "mutation"
	EventRejected      EventType = "rejected"
	EventSnapshotSaved EventType = "snapshot_saved"
	EventSnapshotError EventType = "snapshot_error"
	EventGenerate      EventType = "generate"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	ProjectID string    `json:"project_id"`
}

// MutationEvent reports an operation that changed the model.
type MutationEvent struct {
	EventBase
	Op  string `json:"op"`
	Pin *int   `json:"pin,omitempty"`
}

// RejectedEvent reports an operation refused by validation.
type RejectedEvent struct {
	EventBase
	Op  string `json:"op"`
	Err error  `json:"-"`
}

// SnapshotEvent reports the outcome of a persistence write.
type SnapshotEvent struct {
	EventBase
	Duration time.Duration `json:"duration"`
	Err      error         `json:"-"`
}

// GenerateEvent reports a code generation run.
type GenerateEvent struct {
	EventBase
	Bytes int `json:"bytes"`
	Pins  int `json:"pins"`
}

// LifecycleHooks defines callbacks for project observability.
type LifecycleHooks struct {
	OnMutation func(context.Context, *MutationEvent)
	OnRejected func(context.Context, *RejectedEvent)
	OnSnapshot func(context.Context, *SnapshotEvent)
	OnGenerate func(context.Context, *GenerateEvent)
}

// Merge returns hooks that call h first, then other.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnMutation: chain(h.OnMutation, other.OnMutation),
		OnRejected: chain(h.OnRejected, other.OnRejected),
		OnSnapshot: chain(h.OnSnapshot, other.OnSnapshot),
		OnGenerate: chain(h.OnGenerate, other.OnGenerate),
	}
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
