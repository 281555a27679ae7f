package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/robotpit/pinsmith"
	"github.com/robotpit/pinsmith/internal/adapters/redis"
	"github.com/robotpit/pinsmith/pkg/adapters/memory"
	"github.com/robotpit/pinsmith/pkg/domain"
	"github.com/robotpit/pinsmith/pkg/session"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// SlowStore simulates latency to provoke race conditions if locking is missing.
type SlowStore struct {
	data map[string]*domain.Snapshot
	mu   sync.Mutex
}

func (s *SlowStore) Save(ctx context.Context, projectID string, snap *domain.Snapshot) error {
	time.Sleep(2 * time.Millisecond) // Simulate IO
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data == nil {
		s.data = make(map[string]*domain.Snapshot)
	}
	s.data[projectID] = snap.Clone()
	return nil
}

func (s *SlowStore) Load(ctx context.Context, projectID string) (*domain.Snapshot, error) {
	time.Sleep(2 * time.Millisecond) // Simulate IO
	s.mu.Lock()
	defer s.mu.Unlock()

	if snap, ok := s.data[projectID]; ok {
		return snap.Clone(), nil
	}
	return nil, domain.ErrProjectNotFound
}

func (s *SlowStore) Delete(ctx context.Context, projectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, projectID)
	return nil
}

func (s *SlowStore) List(ctx context.Context) ([]string, error) {
	return nil, nil
}

func addDelay(ctx context.Context, p *pinsmith.Project) error {
	_, err := p.AddBlock(ctx, domain.BlockDelay)
	return err
}

func TestManager_EditSerializesWrites(t *testing.T) {
	store := &SlowStore{}
	manager := session.NewManager(store)
	ctx := context.Background()
	id := "race-test"

	var wg sync.WaitGroup
	concurrentWrites := 10

	// Every Edit is a read-modify-write; without locking, updates would be lost.
	for i := 0; i < concurrentWrites; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, manager.Edit(ctx, id, addDelay))
		}()
	}
	wg.Wait()

	snap, err := manager.Load(ctx, id)
	require.NoError(t, err)
	assert.Len(t, snap.Blocks, concurrentWrites)
}

func TestManager_DistributedLockAcrossReplicas(t *testing.T) {
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	// Two managers share a store and a Redis lock, like two server replicas.
	store := &SlowStore{}
	locker := redis.NewLocker(client, "test:")
	replicas := []*session.Manager{
		session.NewManager(store, session.WithLocker(locker), session.WithLockTTL(5*time.Second)),
		session.NewManager(store, session.WithLocker(locker)),
	}

	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(m *session.Manager) {
			defer wg.Done()
			assert.NoError(t, m.Edit(ctx, "shared", addDelay))
		}(replicas[i%2])
	}
	wg.Wait()

	snap, err := store.Load(ctx, "shared")
	require.NoError(t, err)
	assert.Len(t, snap.Blocks, 8)
	assert.False(t, mr.Exists("test:lock:shared"), "lock must be released")
}

func TestManager_EditStartsEmptyProject(t *testing.T) {
	manager := session.NewManager(memory.NewStore())
	ctx := context.Background()

	exists, err := manager.Exists(ctx, "fresh")
	require.NoError(t, err)
	assert.False(t, exists)

	err = manager.Edit(ctx, "fresh", func(ctx context.Context, p *pinsmith.Project) error {
		assert.True(t, p.Snapshot().Empty())
		_, err := p.ApplyConfig(ctx, 5, domain.KindLED, "", nil)
		return err
	})
	require.NoError(t, err)

	exists, err = manager.Exists(ctx, "fresh")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, manager.Delete(ctx, "fresh"))
	exists, err = manager.Exists(ctx, "fresh")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestManager_EditPropagatesErrors(t *testing.T) {
	manager := session.NewManager(memory.NewStore(), session.WithProjectOptions(pinsmith.WithStrictParams(true)))
	ctx := context.Background()

	err := manager.Edit(ctx, "p", func(ctx context.Context, p *pinsmith.Project) error {
		_, err := p.ApplyConfig(ctx, 34, domain.KindRelay, "", nil)
		return err
	})
	assert.ErrorIs(t, err, domain.ErrIncompatiblePin)

	sentinel := errors.New("boom")
	err = manager.Edit(ctx, "p", func(context.Context, *pinsmith.Project) error { return sentinel })
	assert.ErrorIs(t, err, sentinel)
}

type unreachableStore struct{ SlowStore }

func (*unreachableStore) Load(context.Context, string) (*domain.Snapshot, error) {
	return nil, errors.New("connection refused")
}

func TestManager_EditAbortsOnStoreFailure(t *testing.T) {
	manager := session.NewManager(&unreachableStore{})

	called := false
	err := manager.Edit(context.Background(), "p", func(context.Context, *pinsmith.Project) error {
		called = true
		return nil
	})
	assert.Error(t, err)
	assert.False(t, called, "an unreadable project must not be edited")
}
