package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/robotpit/pinsmith/internal/adapters/file"
	"github.com/robotpit/pinsmith/pkg/domain"
	"github.com/robotpit/pinsmith/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Ensure Store implements SnapshotStore
var _ ports.SnapshotStore = (*file.Store)(nil)

func TestFileStore_Contract(t *testing.T) {
	store := file.New(t.TempDir())
	ports.RunSnapshotStoreContract(t, store)
}

func TestFileStore_Layout(t *testing.T) {
	dir := t.TempDir()
	store := file.New(dir)
	ctx := context.Background()

	t.Run("WritesOneFilePerProject", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, "bench", domain.NewSnapshot()))

		_, err := os.Stat(filepath.Join(dir, "bench.json"))
		assert.NoError(t, err)
	})

	t.Run("ListIgnoresForeignFiles", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("garbage"), 0644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "tmp-bench-123.json"), []byte("{}"), 0644))

		list, err := store.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"bench"}, list)
	})

	t.Run("RejectsPathTraversal", func(t *testing.T) {
		err := store.Save(ctx, "../escape", domain.NewSnapshot())
		assert.Error(t, err)

		_, err = store.Load(ctx, "")
		assert.Error(t, err)
	})

	t.Run("CorruptFile", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{not json"), 0644))

		_, err := store.Load(ctx, "broken")
		assert.Error(t, err)
		assert.NotErrorIs(t, err, domain.ErrProjectNotFound)
	})

	t.Run("ListMissingDirectory", func(t *testing.T) {
		list, err := file.New(filepath.Join(dir, "nope")).List(ctx)
		require.NoError(t, err)
		assert.Empty(t, list)
	})
}
