package document

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worklink/pkg/platform/sentinel"
)

func TestFSStore(t *testing.T) {
	ctx := context.Background()

	newStore := func(t *testing.T) *FSStore {
		t.Helper()
		store, err := NewFSStore(t.TempDir())
		require.NoError(t, err)
		return store
	}

	t.Run("put then get round trips", func(t *testing.T) {
		store := newStore(t)

		ref, err := store.Put(ctx, []byte("scanned passport"))
		require.NoError(t, err)
		require.NotEmpty(t, ref)

		data, err := store.Get(ctx, ref)
		require.NoError(t, err)
		assert.Equal(t, []byte("scanned passport"), data)
	})

	t.Run("identical content collapses to one ref", func(t *testing.T) {
		store := newStore(t)

		a, err := store.Put(ctx, []byte("same bytes"))
		require.NoError(t, err)
		b, err := store.Put(ctx, []byte("same bytes"))
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})

	t.Run("different content gets different refs", func(t *testing.T) {
		store := newStore(t)

		a, err := store.Put(ctx, []byte("passport"))
		require.NoError(t, err)
		b, err := store.Put(ctx, []byte("work permit"))
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})

	t.Run("unknown ref is not found", func(t *testing.T) {
		store := newStore(t)

		_, err := store.Get(ctx, Ref("deadbeef"))
		assert.ErrorIs(t, err, sentinel.ErrNotFound)

		_, err = store.Get(ctx, Ref("x"))
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("no temp files remain after put", func(t *testing.T) {
		dir := t.TempDir()
		store, err := NewFSStore(dir)
		require.NoError(t, err)

		_, err = store.Put(ctx, []byte("content"))
		require.NoError(t, err)

		var leftovers []string
		err = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && filepath.Base(path)[0] == '.' {
				leftovers = append(leftovers, path)
			}
			return nil
		})
		require.NoError(t, err)
		assert.Empty(t, leftovers)
	})

	t.Run("cancelled context refuses work", func(t *testing.T) {
		store := newStore(t)
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := store.Put(cancelled, []byte("doc"))
		assert.ErrorIs(t, err, sentinel.ErrUnavailable)
	})
}

func TestInMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewInMemory()

	ref, err := store.Put(ctx, []byte("doc"))
	require.NoError(t, err)
	assert.Equal(t, 1, store.Len())

	data, err := store.Get(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, []byte("doc"), data)

	_, err = store.Get(ctx, Ref("missing"))
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	// Same content, same ref, still one blob.
	again, err := store.Put(ctx, []byte("doc"))
	require.NoError(t, err)
	assert.Equal(t, ref, again)
	assert.Equal(t, 1, store.Len())
}
