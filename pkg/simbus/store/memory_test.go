package store_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swarmlab/simbus/pkg/simbus/store"
)

func TestMemoryStore_SaveLoad(t *testing.T) {
	s := store.NewMemoryStore()

	require.NoError(t, s.Save("key", []byte("data")))

	data, err := s.Load("key")
	require.NoError(t, err)
	assert.Equal(t, []byte("data"), data)
}

func TestMemoryStore_NotFound(t *testing.T) {
	s := store.NewMemoryStore()

	_, err := s.Load("missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestMemoryStore_CopyIsolation(t *testing.T) {
	s := store.NewMemoryStore()

	original := []byte("data")
	require.NoError(t, s.Save("key", original))

	// Mutating the caller's slice must not affect the stored copy
	original[0] = 'X'

	loaded, err := s.Load("key")
	require.NoError(t, err)
	assert.Equal(t, []byte("data"), loaded)

	// Mutating a loaded slice must not affect later loads
	loaded[0] = 'Y'
	again, err := s.Load("key")
	require.NoError(t, err)
	assert.Equal(t, []byte("data"), again)
}

func TestMemoryStore_Delete(t *testing.T) {
	s := store.NewMemoryStore()

	require.NoError(t, s.Save("key", []byte("data")))
	require.NoError(t, s.Delete("key"))

	_, err := s.Load("key")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestMemoryStore_ClosedOperations(t *testing.T) {
	s := store.NewMemoryStore()
	require.NoError(t, s.Close())

	assert.ErrorIs(t, s.Save("key", []byte("data")), store.ErrStoreClosed)
	_, err := s.Load("key")
	assert.ErrorIs(t, err, store.ErrStoreClosed)
	assert.ErrorIs(t, s.Delete("key"), store.ErrStoreClosed)
}
