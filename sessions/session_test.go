package sessions_test

import (
	"testing"

	"github.com/jrsteele09/go-social-client/kvstore/memstore"
	"github.com/jrsteele09/go-social-client/sessions"
	"github.com/jrsteele09/go-social-client/users"
	"github.com/stretchr/testify/require"
)

func TestStoreSetAndGet(t *testing.T) {
	kv := memstore.New()
	store := sessions.NewStore(kv)

	profile := &users.Profile{ID: "u-1", Email: "jo@example.com", Username: "jo"}
	require.NoError(t, store.Set(sessions.Session{
		AccessToken:  "access",
		RefreshToken: "refresh",
		Profile:      profile,
	}))

	got, err := store.Get()
	require.NoError(t, err)
	require.Equal(t, "access", got.AccessToken)
	require.Equal(t, "refresh", got.RefreshToken)
	require.Equal(t, "u-1", got.UserID)
	require.Equal(t, "jo@example.com", got.Email)
	require.Equal(t, profile, got.Profile)
}

func TestStoreSetTokensKeepsRefreshWhenEmpty(t *testing.T) {
	store := sessions.NewStore(memstore.New())
	require.NoError(t, store.SetTokens("a1", "r1"))
	require.NoError(t, store.SetTokens("a2", ""))

	got, err := store.Get()
	require.NoError(t, err)
	require.Equal(t, "a2", got.AccessToken)
	require.Equal(t, "r1", got.RefreshToken)
}

func TestStoreClearRemovesEveryKey(t *testing.T) {
	kv := memstore.New()
	require.NoError(t, kv.Set("darkMode", "true"))
	store := sessions.NewStore(kv)
	require.NoError(t, store.Set(sessions.Session{
		AccessToken:  "a",
		RefreshToken: "r",
		UserID:       "u",
		Email:        "e",
		Profile:      &users.Profile{ID: "u"},
	}))

	require.NoError(t, store.Clear())

	for _, key := range sessions.AllKeys {
		_, ok, err := kv.Get(key)
		require.NoError(t, err)
		require.False(t, ok, key)
	}
	// Preferences are not session state.
	require.Equal(t, 1, kv.Len())
}

func TestStoreReplaceDropsPreviousFields(t *testing.T) {
	kv := memstore.New()
	require.NoError(t, kv.Set("darkMode", "true"))
	store := sessions.NewStore(kv)
	require.NoError(t, store.Set(sessions.Session{
		AccessToken:  "a",
		RefreshToken: "r",
		UserID:       "alice",
		Email:        "alice@example.com",
		Profile:      &users.Profile{ID: "alice"},
	}))

	require.NoError(t, store.Replace(sessions.Session{AccessToken: "b"}))

	got, err := store.Get()
	require.NoError(t, err)
	require.Equal(t, sessions.Session{AccessToken: "b"}, got)
	_, ok, err := kv.Get("darkMode")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestStoreIgnoresCorruptProfile(t *testing.T) {
	kv := memstore.New()
	require.NoError(t, kv.Set(sessions.KeyUser, "{not json"))
	require.NoError(t, kv.Set(sessions.KeyAccessToken, "a"))

	got, err := sessions.NewStore(kv).Get()
	require.NoError(t, err)
	require.Nil(t, got.Profile)
	require.True(t, got.HasAccessToken())
}
