package blob

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseStore runs the shared contract every driver must honor.
func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	info, err := store.Put(ctx, "archives/baptism-1990.csv", strings.NewReader("libro,folio\n1,2\n"), PutOptions{
		ContentType: "text/csv",
		Metadata:    map[string]string{"parish": "p1"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(16), info.Size)
	assert.NotEmpty(t, info.ETag)

	_, err = store.Put(ctx, "archives/baptism-1990.csv", strings.NewReader("x"), PutOptions{})
	require.ErrorIs(t, err, ErrExists)

	got, rc, err := store.Get(ctx, "archives/baptism-1990.csv")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "libro,folio\n1,2\n", string(data))
	assert.Equal(t, "p1", got.Metadata["parish"])
	assert.Equal(t, "text/csv", got.ContentType)

	head, err := store.Head(ctx, "archives/baptism-1990.csv")
	require.NoError(t, err)
	assert.Equal(t, info.ETag, head.ETag)

	_, err = store.Put(ctx, "reports/r1.json", strings.NewReader("{}"), PutOptions{})
	require.NoError(t, err)
	listed, err := store.List(ctx, "archives/")
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "archives/baptism-1990.csv", listed[0].Key)

	_, _, err = store.Get(ctx, "archives/missing.csv")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = store.Head(ctx, "archives/missing.csv")
	require.ErrorIs(t, err, ErrNotFound)

	existed, err := store.Delete(ctx, "archives/baptism-1990.csv")
	require.NoError(t, err)
	assert.True(t, existed)
	existed, err = store.Delete(ctx, "archives/baptism-1990.csv")
	require.NoError(t, err)
	assert.False(t, existed)
}

func TestOpenFilesystem(t *testing.T) {
	store, err := Open(context.Background(), Config{FSRoot: t.TempDir()})
	require.NoError(t, err)
	require.Equal(t, DriverFilesystem, store.Driver())
	exerciseStore(t, store)
}

func TestOpenMemory(t *testing.T) {
	store, err := Open(context.Background(), Config{Driver: DriverMemory})
	require.NoError(t, err)
	require.Equal(t, DriverMemory, store.Driver())
	exerciseStore(t, store)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: "ftp"})
	require.ErrorContains(t, err, "unknown blob driver")
}

func TestFilesystemRejectsUnsafeKeys(t *testing.T) {
	store, err := Open(context.Background(), Config{FSRoot: t.TempDir()})
	require.NoError(t, err)
	for _, key := range []string{"", "/etc/passwd", "../escape", "a/../../b", "x.meta"} {
		_, err := store.Put(context.Background(), key, strings.NewReader("x"), PutOptions{})
		assert.Error(t, err, key)
	}
}
