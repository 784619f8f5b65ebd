package sqlitestore_test

import (
	"testing"

	"github.com/jrsteele09/go-social-client/kvstore/sqlitestore"
	"github.com/stretchr/testify/require"
)

func TestStorePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	s, err := sqlitestore.Open(dir)
	require.NoError(t, err)
	require.NoError(t, s.Set("accessToken", "a1"))
	require.NoError(t, s.Set("accessToken", "a2"))
	require.NoError(t, s.Set("email", "jo@example.com"))
	require.NoError(t, s.Close())

	s, err = sqlitestore.Open(dir)
	require.NoError(t, err)
	defer s.Close()

	v, ok, err := s.Get("accessToken")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "a2", v)

	keys, err := s.Keys()
	require.NoError(t, err)
	require.Equal(t, []string{"accessToken", "email"}, keys)
}

func TestStoreDelete(t *testing.T) {
	s, err := sqlitestore.Open(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Set("a", "1"))
	require.NoError(t, s.Set("b", "2"))
	require.NoError(t, s.Set("c", "3"))
	require.NoError(t, s.Delete("a", "b", "missing"))
	require.NoError(t, s.Delete())

	_, ok, err := s.Get("a")
	require.NoError(t, err)
	require.False(t, ok)

	v, ok, err := s.Get("c")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "3", v)
}
