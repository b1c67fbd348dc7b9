package objstore

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) (*Store, func()) {
	dir, err := os.MkdirTemp("", "cellvcs-objstore-test")
	require.NoError(t, err)

	meta, err := OpenMetaCache(dir + "/meta")
	require.NoError(t, err)

	store, err := Open(dir, meta)
	require.NoError(t, err)

	cleanup := func() {
		meta.Close()
		os.RemoveAll(dir)
	}
	return store, cleanup
}

func TestPutGetRoundTrip(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	hash, err := store.Put(KindBlob, []byte("Hello"))
	require.NoError(t, err)

	kind, payload, err := store.Get(hash)
	require.NoError(t, err)
	assert.Equal(t, KindBlob, kind)
	assert.Equal(t, "Hello", string(payload))
}

func TestPutIsIdempotent(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	h1, err := store.Put(KindBlob, []byte("Hello"))
	require.NoError(t, err)
	h2, err := store.Put(KindBlob, []byte("Hello"))
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
}

func TestExists(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	hash, err := store.Put(KindBlob, []byte("Hello"))
	require.NoError(t, err)
	assert.True(t, store.Exists(hash))

	other, err := store.Put(KindBlob, []byte("World"))
	require.NoError(t, err)
	assert.NotEqual(t, hash, other)
}

func TestGetNotFound(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	_, _, err := store.Get(zeroHash(t))
	assert.Error(t, err)
}

func TestGetCorruptObject(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	hash, err := store.Put(KindBlob, []byte("Hello"))
	require.NoError(t, err)

	path := store.pathFor(hash)
	require.NoError(t, os.WriteFile(path, []byte("not zlib"), 0o644))

	store.mu.Lock()
	store.cache.Remove(hash)
	store.mu.Unlock()

	_, _, err = store.Get(hash)
	assert.Error(t, err)
}

func zeroHash(t *testing.T) (h [20]byte) {
	return h
}
