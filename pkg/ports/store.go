package ports

import (
	"context"
	"time"

	"github.com/robotpit/pinsmith/pkg/domain"
)

// SnapshotStore persists project snapshots.
// It is the Persistence Adapter of a project: the model never lives here,
// the store only keeps the latest serialized copy.
type SnapshotStore interface {
	// Save persists the snapshot for a given project ID, replacing any previous one.
	Save(ctx context.Context, projectID string, snap *domain.Snapshot) error

	// Load retrieves the snapshot for a given project ID.
	// Returns domain.ErrProjectNotFound if the project does not exist.
	Load(ctx context.Context, projectID string) (*domain.Snapshot, error)

	// Delete removes the snapshot for a given project ID.
	Delete(ctx context.Context, projectID string) error

	// List returns the IDs of all stored projects.
	List(ctx context.Context) ([]string, error)
}

// UnlockFunc releases a lock obtained from a DistributedLocker.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker guards a project key shared by several processes
// editing through the same SnapshotStore.
type DistributedLocker interface {
	// Lock waits until key is free or ctx ends. The lock expires after ttl
	// if its holder disappears; callers release it earlier with the UnlockFunc.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
