package observability

import (
	"context"
	"log/slog"

	"github.com/robotpit/pinsmith/pkg/domain"
)

// LoggingHooks returns lifecycle hooks that write every event to logger.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnMutation: func(ctx context.Context, e *domain.MutationEvent) {
			attrs := []any{"project", e.ProjectID, "op", e.Op}
			if e.Pin != nil {
				attrs = append(attrs, "pin", *e.Pin)
			}
			logger.InfoContext(ctx, "mutation", attrs...)
		},
		OnRejected: func(ctx context.Context, e *domain.RejectedEvent) {
			logger.InfoContext(ctx, "rejected",
				"project", e.ProjectID,
				"op", e.Op,
				"reason", Reason(e.Err),
				"err", e.Err,
			)
		},
		OnSnapshot: func(ctx context.Context, e *domain.SnapshotEvent) {
			if e.Err != nil {
				logger.WarnContext(ctx, "snapshot_error", "project", e.ProjectID, "err", e.Err)
				return
			}
			logger.DebugContext(ctx, "snapshot_saved", "project", e.ProjectID, "duration", e.Duration)
		},
		OnGenerate: func(ctx context.Context, e *domain.GenerateEvent) {
			logger.InfoContext(ctx, "generate", "project", e.ProjectID, "bytes", e.Bytes, "pins", e.Pins)
		},
	}
}
