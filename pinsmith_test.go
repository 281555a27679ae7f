package pinsmith_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/robotpit/pinsmith"
	"github.com/robotpit/pinsmith/internal/adapters/file"
	"github.com/robotpit/pinsmith/pkg/adapters/memory"
	"github.com/robotpit/pinsmith/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBackend = errors.New("backend unavailable")

// brokenStore fails every call.
type brokenStore struct {
	mu    sync.Mutex
	saves int
}

func (s *brokenStore) Save(context.Context, string, *domain.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	return errBackend
}

func (s *brokenStore) Load(context.Context, string) (*domain.Snapshot, error) {
	return nil, errBackend
}

func (s *brokenStore) Delete(context.Context, string) error { return errBackend }

func (s *brokenStore) List(context.Context) ([]string, error) { return nil, errBackend }

func fixedClock() time.Time {
	return time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)
}

func TestProject_RequiresID(t *testing.T) {
	_, err := pinsmith.Open(context.Background(), "")
	assert.Error(t, err)

	_, err = pinsmith.New("")
	assert.Error(t, err)
}

func TestProject_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := file.New(t.TempDir())

	p, err := pinsmith.Open(ctx, "bench", pinsmith.WithStore(store), pinsmith.WithClock(fixedClock))
	require.NoError(t, err)

	_, err = p.ApplyConfig(ctx, 5, domain.KindLED, "Status", nil)
	require.NoError(t, err)
	_, err = p.ApplyConfig(ctx, 18, domain.KindServo, "Arm", map[string]string{"max_angle": "150"})
	require.NoError(t, err)
	idx, err := p.AddStep(ctx, 5)
	require.NoError(t, err)
	require.NoError(t, p.SetStepType(ctx, 5, idx, domain.ActionBlink))
	require.NoError(t, p.SetStepParamByName(ctx, 5, idx, "interval", "250"))
	b, err := p.AddBlock(ctx, domain.BlockDelay)
	require.NoError(t, err)
	require.NoError(t, p.SetBlockParam(ctx, 0, "time", 300))
	assert.NotEmpty(t, b.ID)

	reopened, err := pinsmith.Open(ctx, "bench", pinsmith.WithStore(store), pinsmith.WithClock(fixedClock))
	require.NoError(t, err)

	if diff := cmp.Diff(p.Snapshot(), reopened.Snapshot()); diff != "" {
		t.Errorf("reopened project differs (-before +after):\n%s", diff)
	}
	assert.Equal(t, p.Generate(ctx), reopened.Generate(ctx))
}

func TestProject_RemoveAllPersistsEmptyModel(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	p, err := pinsmith.Open(ctx, "wipe", pinsmith.WithStore(store))
	require.NoError(t, err)
	_, err = p.ApplyConfig(ctx, 4, domain.KindRelay, "", nil)
	require.NoError(t, err)
	_, err = p.AddBlock(ctx, domain.BlockLoop)
	require.NoError(t, err)

	p.RemoveAll(ctx)

	reopened, err := pinsmith.Open(ctx, "wipe", pinsmith.WithStore(store))
	require.NoError(t, err)
	assert.True(t, reopened.Snapshot().Empty())
}

func TestProject_RejectionDoesNotSave(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	var saved, rejected int
	hooks := domain.LifecycleHooks{
		OnSnapshot: func(context.Context, *domain.SnapshotEvent) { saved++ },
		OnRejected: func(_ context.Context, e *domain.RejectedEvent) {
			rejected++
			assert.Equal(t, "apply_config", e.Op)
			assert.ErrorIs(t, e.Err, domain.ErrInvalidPin)
		},
	}

	p, err := pinsmith.Open(ctx, "strict", pinsmith.WithStore(store), pinsmith.WithLifecycleHooks(hooks))
	require.NoError(t, err)

	_, err = p.ApplyConfig(ctx, 6, domain.KindLED, "", nil)
	assert.ErrorIs(t, err, domain.ErrInvalidPin)
	assert.Equal(t, 0, saved)
	assert.Equal(t, 1, rejected)

	_, err = store.Load(ctx, "strict")
	assert.ErrorIs(t, err, domain.ErrProjectNotFound)
}

func TestProject_Hooks(t *testing.T) {
	ctx := context.Background()

	var mutations []string
	var snapshots []domain.EventType
	var generated *domain.GenerateEvent
	hooks := domain.LifecycleHooks{
		OnMutation: func(_ context.Context, e *domain.MutationEvent) {
			mutations = append(mutations, e.Op)
			assert.Equal(t, "hooks", e.ProjectID)
			assert.Equal(t, fixedClock(), e.Timestamp)
		},
		OnSnapshot: func(_ context.Context, e *domain.SnapshotEvent) {
			snapshots = append(snapshots, e.Type)
		},
		OnGenerate: func(_ context.Context, e *domain.GenerateEvent) {
			generated = e
		},
	}

	p, err := pinsmith.Open(ctx, "hooks", pinsmith.WithLifecycleHooks(hooks), pinsmith.WithClock(fixedClock))
	require.NoError(t, err)

	_, err = p.ApplyConfig(ctx, 5, domain.KindLED, "", nil)
	require.NoError(t, err)
	_, err = p.AddStep(ctx, 5)
	require.NoError(t, err)

	// Moving a single step is a no-op and must not be reported.
	moved, err := p.MoveStep(ctx, 5, 0, 1)
	require.NoError(t, err)
	assert.False(t, moved)
	assert.False(t, p.ClearBlocks(ctx))

	code := p.Generate(ctx)

	assert.Equal(t, []string{"apply_config", "add_step"}, mutations)
	assert.Equal(t, []domain.EventType{domain.EventSnapshotSaved, domain.EventSnapshotSaved}, snapshots)
	require.NotNil(t, generated)
	assert.Equal(t, len(code), generated.Bytes)
	assert.Equal(t, 1, generated.Pins)
}

func TestProject_ToleratesBrokenStore(t *testing.T) {
	ctx := context.Background()
	store := &brokenStore{}

	var failures int
	hooks := domain.LifecycleHooks{
		OnSnapshot: func(_ context.Context, e *domain.SnapshotEvent) {
			if e.Type == domain.EventSnapshotError {
				failures++
				assert.ErrorIs(t, e.Err, errBackend)
			}
		},
	}

	p, err := pinsmith.Open(ctx, "offline", pinsmith.WithStore(store), pinsmith.WithLifecycleHooks(hooks))
	require.NoError(t, err, "a failing load must not prevent editing")
	assert.True(t, p.Snapshot().Empty())

	cfg, err := p.ApplyConfig(ctx, 23, domain.KindRelay, "Pump", nil)
	require.NoError(t, err, "a failing save must not surface to the caller")
	assert.Equal(t, "Pump", cfg.Label)
	assert.Len(t, p.Configs(), 1)
	assert.Equal(t, 1, store.saves)
	assert.Equal(t, 1, failures)

	assert.ErrorIs(t, p.Reload(ctx), errBackend)
	assert.ErrorIs(t, p.SaveAs(ctx, "copy"), errBackend)
}

func TestProject_Import(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	p, err := pinsmith.Open(ctx, "bench", pinsmith.WithStore(store))
	require.NoError(t, err)

	snap := domain.NewSnapshot()
	snap.Configs[5] = domain.PinConfig{Pin: 5, Kind: domain.KindLED, Label: "Status"}
	snap.Configs[9] = domain.PinConfig{Pin: 9, Kind: domain.KindRelay, Label: "Flash"}
	snap.Actions[9] = []domain.ActionStep{{Type: domain.ActionOn}}

	dropped, err := p.Import(ctx, snap)
	require.NoError(t, err)
	assert.Equal(t, []int{9}, dropped)

	stored, err := store.Load(ctx, "bench")
	require.NoError(t, err)
	assert.Equal(t, []int{5}, stored.Pins())
	assert.Empty(t, stored.Actions)

	_, err = p.Import(ctx, nil)
	assert.Error(t, err)

	broken, err := pinsmith.New("bench", pinsmith.WithStore(&brokenStore{}))
	require.NoError(t, err)
	_, err = broken.Import(ctx, snap)
	assert.ErrorIs(t, err, errBackend)
}

func TestProject_SaveAsAndReload(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	p, err := pinsmith.Open(ctx, "bench", pinsmith.WithStore(store))
	require.NoError(t, err)
	_, err = p.ApplyConfig(ctx, 34, domain.KindSensorTemp, "Temp", nil)
	require.NoError(t, err)

	require.NoError(t, p.SaveAs(ctx, "copy"))
	assert.Error(t, p.SaveAs(ctx, ""))

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"bench", "copy"}, ids)

	require.NoError(t, p.RemovePin(ctx, 34))
	assert.Empty(t, p.Configs())

	// Reloading an unknown project resets to empty instead of failing.
	other, err := pinsmith.New("copy", pinsmith.WithStore(store))
	require.NoError(t, err)
	assert.True(t, other.Snapshot().Empty())
	require.NoError(t, other.Reload(ctx))
	assert.Len(t, other.Configs(), 1)

	require.NoError(t, store.Delete(ctx, "copy"))
	require.NoError(t, other.Reload(ctx))
	assert.True(t, other.Snapshot().Empty())
}

func TestProject_StrictParams(t *testing.T) {
	ctx := context.Background()

	p, err := pinsmith.Open(ctx, "strict", pinsmith.WithStrictParams(true))
	require.NoError(t, err)
	_, err = p.ApplyConfig(ctx, 5, domain.KindLED, "", nil)
	require.NoError(t, err)
	idx, err := p.AddStep(ctx, 5)
	require.NoError(t, err)
	require.NoError(t, p.SetStepType(ctx, 5, idx, domain.ActionBlink))

	err = p.SetStepParam(ctx, 5, idx, 0, "10")
	assert.ErrorIs(t, err, domain.ErrInvalidParam)
	require.NoError(t, p.SetStepParam(ctx, 5, idx, 0, "100"))
	assert.Equal(t, "100", p.Steps(5)[idx].Params["interval"])
}

func TestProject_BlockIDs(t *testing.T) {
	ctx := context.Background()
	n := 0
	ids := func() string {
		n++
		return "blk-" + string(rune('0'+n))
	}

	p, err := pinsmith.Open(ctx, "blocks", pinsmith.WithBlockIDs(ids))
	require.NoError(t, err)

	a, err := p.AddBlock(ctx, domain.BlockCondition)
	require.NoError(t, err)
	b, err := p.AddBlock(ctx, domain.BlockDelay)
	require.NoError(t, err)
	assert.Equal(t, "blk-1", a.ID)
	assert.Equal(t, "blk-2", b.ID)

	assert.True(t, p.MoveBlock(ctx, 1, -1))
	assert.False(t, p.MoveBlock(ctx, 1, 1))
	assert.Equal(t, "blk-2", p.Blocks()[0].ID)

	require.NoError(t, p.DeleteBlock(ctx, 0))
	assert.ErrorIs(t, p.DeleteBlock(ctx, 5), domain.ErrIndexOutOfRange)
	assert.True(t, p.ClearBlocks(ctx))
	assert.Empty(t, p.Blocks())

	_, err = p.AddBlock(ctx, "switch")
	assert.ErrorIs(t, err, domain.ErrUnknownBlockType)
}
