package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robotpit/pinsmith"
	"github.com/robotpit/pinsmith/internal/logging"
	"github.com/robotpit/pinsmith/pkg/domain"
	"github.com/robotpit/pinsmith/pkg/ports"
)

// DefaultLockTTL bounds how long a crashed replica can hold a project.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates project access, ensuring safe concurrent operations.
// It uses Reference Counting to garbage collect unused locks.
type Manager struct {
	store ports.SnapshotStore

	mu    sync.Mutex            // Global lock for the map
	locks map[string]*lockEntry // Map of active locks

	locker  ports.DistributedLocker // Optional distributed locker
	lockTTL time.Duration
	logger  *slog.Logger
	opts    []pinsmith.Option // Applied to every Project the Manager opens
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the expiry of distributed locks.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithProjectOptions sets options passed to every Project opened by Edit.
func WithProjectOptions(opts ...pinsmith.Option) Option {
	return func(m *Manager) {
		m.opts = append(m.opts, opts...)
	}
}

// NewManager creates a new Manager with the given persistence store.
func NewManager(store ports.SnapshotStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		locks:   make(map[string]*lockEntry),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(projectID) after unlocking.
func (m *Manager) acquire(projectID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[projectID]
	if !exists {
		entry = &lockEntry{}
		m.locks[projectID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(projectID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[projectID]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, projectID)
	}
}

// Edit opens the latest stored copy of a project and runs fn on it while
// holding the project's lock. A project that was never saved starts empty.
//
// Unlike pinsmith.Open, a failing store aborts the call: a server must not
// edit an empty model and then overwrite the stored one with it.
func (m *Manager) Edit(ctx context.Context, projectID string, fn func(context.Context, *pinsmith.Project) error) error {
	return m.WithLock(ctx, projectID, func(ctx context.Context) error {
		opts := append([]pinsmith.Option{
			pinsmith.WithStore(m.store),
			pinsmith.WithLogger(m.logger),
		}, m.opts...)

		p, err := pinsmith.New(projectID, opts...)
		if err != nil {
			return err
		}
		if err := p.Reload(ctx); err != nil {
			return err
		}
		return fn(ctx, p)
	})
}

// Load retrieves a stored snapshot.
func (m *Manager) Load(ctx context.Context, projectID string) (*domain.Snapshot, error) {
	var snap *domain.Snapshot
	err := m.WithLock(ctx, projectID, func(ctx context.Context) error {
		var err error
		snap, err = m.store.Load(ctx, projectID)
		return err
	})
	return snap, err
}

// Exists reports whether a snapshot is stored for projectID.
func (m *Manager) Exists(ctx context.Context, projectID string) (bool, error) {
	_, err := m.Load(ctx, projectID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, domain.ErrProjectNotFound):
		return false, nil
	default:
		return false, err
	}
}

// Save replaces the stored snapshot.
func (m *Manager) Save(ctx context.Context, projectID string, snap *domain.Snapshot) error {
	return m.WithLock(ctx, projectID, func(ctx context.Context) error {
		return m.store.Save(ctx, projectID, snap)
	})
}

// Delete removes the project from the store.
func (m *Manager) Delete(ctx context.Context, projectID string) error {
	return m.WithLock(ctx, projectID, func(ctx context.Context) error {
		return m.store.Delete(ctx, projectID)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying snapshot store.
func (m *Manager) Store() ports.SnapshotStore {
	return m.store
}

// WithLock executes a function while holding the lock for the project.
func (m *Manager) WithLock(ctx context.Context, projectID string, fn func(context.Context) error) error {
	entry := m.acquire(projectID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(projectID)
	}()

	// Distributed Locking
	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, projectID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"project", projectID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
