package core

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"parishregistry/internal/infra/persistence/memory"
	"parishregistry/internal/infra/persistence/sqlite"
	"parishregistry/pkg/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenPersistentStoreMemory(t *testing.T) {
	store, err := OpenPersistentStore(context.Background(), StorageConfig{Driver: StorageMemory}, nil)
	require.NoError(t, err)
	assert.IsType(t, &memory.Store{}, store)
}

func TestOpenPersistentStoreDefaultsToSQLite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "registry.db")
	store, err := OpenPersistentStore(ctx, StorageConfig{SQLitePath: path}, nil)
	require.NoError(t, err)
	require.IsType(t, &sqlite.Store{}, store)

	svc := NewService(store, WithIDGenerator(sequentialIDs("id")))
	out, err := svc.RunReposition(ctx, decreeRequest("S-1", nil))
	require.NoError(t, err)
	closer, ok := store.(io.Closer)
	require.True(t, ok)
	require.NoError(t, closer.Close())

	reopened, err := OpenPersistentStore(ctx, StorageConfig{Driver: StorageSQLite, SQLitePath: path}, nil)
	require.NoError(t, err)
	defer func() { _ = reopened.(io.Closer).Close() }()
	decree, ok := reopened.FindDecree(out.DecreeID)
	require.True(t, ok)
	assert.Equal(t, "S-1", decree.DecreeNumber)

	svc = NewService(reopened)
	_, err = svc.RunReposition(ctx, decreeRequest("s-1", nil))
	assert.Equal(t, domain.FailureDuplicateDecreeNumber, domain.KindOf(err), "uniqueness survives a reload")
}

func TestOpenPersistentStoreUnknownDriver(t *testing.T) {
	store, err := OpenPersistentStore(context.Background(), StorageConfig{Driver: "oracle"}, nil)
	require.ErrorContains(t, err, "unknown storage driver oracle")
	assert.Nil(t, store)
}
