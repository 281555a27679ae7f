package ports

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/robotpit/pinsmith/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSnapshotStoreContract runs a suite of tests to verify that a SnapshotStore implementation
// adheres to the defined interface contract.
func RunSnapshotStoreContract(t *testing.T, store SnapshotStore) {
	ctx := context.Background()
	projectID := "contract-test-project-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		snap := contractSnapshot()

		err := store.Save(ctx, projectID, snap)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, projectID)
		require.NoError(t, err, "Load should not return error")
		if diff := cmp.Diff(snap, loaded); diff != "" {
			t.Errorf("round-trip mismatch (-saved +loaded):\n%s", diff)
		}
	})

	t.Run("Save Is Isolated From Later Mutation", func(t *testing.T) {
		snap := contractSnapshot()
		require.NoError(t, store.Save(ctx, projectID, snap))

		snap.Configs[5] = domain.PinConfig{Pin: 5, Kind: domain.KindRelay, Label: "Mutated"}
		snap.Blocks = snap.Blocks[:0]

		loaded, err := store.Load(ctx, projectID)
		require.NoError(t, err)
		assert.Equal(t, "Status", loaded.Configs[5].Label)
		assert.Len(t, loaded.Blocks, 2)
	})

	t.Run("Empty Snapshot", func(t *testing.T) {
		id := projectID + "-empty"
		defer func() { _ = store.Delete(ctx, id) }()

		require.NoError(t, store.Save(ctx, id, domain.NewSnapshot()))
		loaded, err := store.Load(ctx, id)
		require.NoError(t, err)
		assert.True(t, loaded.Empty())
		assert.NotNil(t, loaded.Configs)
		assert.NotNil(t, loaded.Blocks)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+projectID)
		assert.ErrorIs(t, err, domain.ErrProjectNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, projectID, domain.NewSnapshot())
		require.NoError(t, err)

		err = store.Delete(ctx, projectID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, projectID)
		assert.ErrorIs(t, err, domain.ErrProjectNotFound, "Load after Delete should return ErrProjectNotFound")

		assert.NoError(t, store.Delete(ctx, projectID), "Delete should be idempotent")
	})

	t.Run("List", func(t *testing.T) {
		id1 := projectID + "-1"
		id2 := projectID + "-2"
		_ = store.Save(ctx, id1, domain.NewSnapshot())
		_ = store.Save(ctx, id2, domain.NewSnapshot())

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		projects, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, projects, id1)
		assert.Contains(t, projects, id2)
	})
}

func contractSnapshot() *domain.Snapshot {
	sensor := 34
	led := 5
	snap := domain.NewSnapshot()
	snap.Configs[5] = domain.PinConfig{Pin: 5, Kind: domain.KindLED, Label: "Status"}
	snap.Configs[18] = domain.PinConfig{
		Pin: 18, Kind: domain.KindServo, Label: "Arm",
		Params: map[string]string{"min_angle": "10", "max_angle": "170"},
	}
	snap.Configs[34] = domain.PinConfig{Pin: 34, Kind: domain.KindSensorTemp, Label: "Temp"}
	snap.Actions[5] = []domain.ActionStep{
		{Type: domain.ActionBlink, Params: map[string]string{"interval": "250"}},
		{Type: domain.ActionOff},
	}
	snap.Actions[18] = []domain.ActionStep{}
	snap.Blocks = []domain.Block{
		{ID: "b1", Type: domain.BlockCondition, Condition: &domain.ConditionParams{Pin: &sensor, Operator: domain.OpGreater, Value: "500"}},
		{ID: "b2", Type: domain.BlockAction, Action: &domain.ActionParams{Pin: &led, Action: domain.ActionOn}},
	}
	return snap
}
