// ABOUTME: Tests for the badger-backed key-value store
// ABOUTME: Exercises in-memory and on-disk stores
package storage

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryStore(t *testing.T) {
	s, err := OpenInMemory()
	require.NoError(t, err)
	defer s.Close()

	assert.False(t, s.Persistent())

	_, err = s.Get("missing")
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, s.Set("leadlab.a", []byte("1")))
	require.NoError(t, s.Set("leadlab.b", []byte("2")))
	require.NoError(t, s.Set("other", []byte("3")))

	v, err := s.Get("leadlab.a")
	require.NoError(t, err)
	assert.Equal(t, "1", string(v))

	require.NoError(t, s.Delete("leadlab.a", "never-set"))
	_, err = s.Get("leadlab.a")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTakeIsOneShot(t *testing.T) {
	s, err := OpenInMemory()
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Set("restore", []byte("/deals")))
	v, err := s.Take("restore")
	require.NoError(t, err)
	assert.Equal(t, "/deals", string(v))

	_, err = s.Take("restore")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDiskStoreSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	assert.True(t, s.Persistent())

	type snapshot struct {
		Name string `json:"name"`
	}
	require.NoError(t, SetJSON(s, "user", snapshot{Name: "Ada"}))
	require.NoError(t, s.Close())
	require.NoError(t, s.Close(), "close is idempotent")

	s, err = Open(dir)
	require.NoError(t, err)
	defer s.Close()

	var got snapshot
	require.NoError(t, GetJSON(s, "user", &got))
	assert.Equal(t, "Ada", got.Name)

	require.NoError(t, s.Set("user", []byte("{")))
	assert.Error(t, GetJSON(s, "user", &got))
}

func TestDiskStoreLocked(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	defer s.Close()

	_, err = Open(dir)
	assert.ErrorIs(t, err, ErrLocked)
}
