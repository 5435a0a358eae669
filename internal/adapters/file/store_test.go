package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/concierge/internal/adapters/file"
	"github.com/aretw0/concierge/pkg/domain"
	"github.com/aretw0/concierge/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ports.CheckpointStore = (*file.Store)(nil)

func TestFileStore_Contract(t *testing.T) {
	ports.RunCheckpointStoreContract(t, file.New(t.TempDir()))
}

func TestFileStore_AtomicReplace(t *testing.T) {
	dir := t.TempDir()
	store := file.New(dir)
	ctx := context.Background()

	conv := domain.NewConversation("thread-1", "patient-1", time.Now())
	require.NoError(t, store.Save(ctx, "thread-1", conv))

	conv.Version = 2
	require.NoError(t, store.Save(ctx, "thread-1", conv))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
	assert.FileExists(t, filepath.Join(dir, "thread-1.json"))

	loaded, err := store.Load(ctx, "thread-1")
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Version)
}

func TestFileStore_RejectsPathTraversal(t *testing.T) {
	store := file.New(t.TempDir())
	err := store.Save(context.Background(), "../escape", domain.NewConversation("x", "", time.Now()))
	assert.ErrorIs(t, err, file.ErrInvalidThreadID)
}

func TestFileStore_ListMissingDir(t *testing.T) {
	store := file.New(filepath.Join(t.TempDir(), "absent"))
	threads, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, threads)
}
