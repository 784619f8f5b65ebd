package sessions

import (
	"encoding/json"
	"fmt"

	"github.com/jrsteele09/go-social-client/kvstore"
	"github.com/jrsteele09/go-social-client/users"
)

// Persisted keys. The names match what the browser client kept in local storage.
const (
	KeyAccessToken  = "accessToken"
	KeyRefreshToken = "refreshToken"
	KeyUserID       = "userId"
	KeyEmail        = "email"
	KeyUser         = "user"
)

// AllKeys lists every key owned by the session.
var AllKeys = []string{KeyAccessToken, KeyRefreshToken, KeyUserID, KeyEmail, KeyUser}

// Session is the credential pair plus identity snapshot for the signed-in user.
type Session struct {
	AccessToken  string
	RefreshToken string
	UserID       string
	Email        string
	Profile      *users.Profile
}

// HasAccessToken reports whether an access token is present.
func (s Session) HasAccessToken() bool {
	return s.AccessToken != ""
}

// Store is the process-wide session state. Only the session manager and the
// refresh coordinator write token fields; everything else reads.
type Store interface {
	// Get returns the stored session. Missing fields are left empty.
	Get() (Session, error)

	// Set writes every non-empty field of s, leaving other fields untouched.
	Set(s Session) error

	// SetTokens replaces the token pair. An empty refresh token keeps the existing one.
	SetTokens(accessToken, refreshToken string) error

	// SetProfile replaces the cached profile snapshot.
	SetProfile(profile *users.Profile) error

	// Replace clears the stored session and writes s in its place, so no
	// field of a previous account survives a new login.
	Replace(s Session) error

	// Clear removes every session key.
	Clear() error
}

var _ Store = (*KVStore)(nil)

// KVStore keeps the session in a kvstore.Store.
type KVStore struct {
	kv kvstore.Store
}

func NewStore(kv kvstore.Store) *KVStore {
	return &KVStore{kv: kv}
}

func (s *KVStore) Get() (Session, error) {
	var sess Session
	fields := []struct {
		key string
		dst *string
	}{
		{KeyAccessToken, &sess.AccessToken},
		{KeyRefreshToken, &sess.RefreshToken},
		{KeyUserID, &sess.UserID},
		{KeyEmail, &sess.Email},
	}
	for _, f := range fields {
		v, _, err := s.kv.Get(f.key)
		if err != nil {
			return Session{}, fmt.Errorf("read %s: %w", f.key, err)
		}
		*f.dst = v
	}

	raw, ok, err := s.kv.Get(KeyUser)
	if err != nil {
		return Session{}, fmt.Errorf("read %s: %w", KeyUser, err)
	}
	if ok && raw != "" {
		var p users.Profile
		// A corrupt snapshot is treated as absent; verify/refresh will replace it.
		if err := json.Unmarshal([]byte(raw), &p); err == nil {
			sess.Profile = &p
		}
	}
	return sess, nil
}

func (s *KVStore) Set(sess Session) error {
	values := map[string]string{
		KeyAccessToken:  sess.AccessToken,
		KeyRefreshToken: sess.RefreshToken,
		KeyUserID:       sess.UserID,
		KeyEmail:        sess.Email,
	}
	for _, key := range []string{KeyAccessToken, KeyRefreshToken, KeyUserID, KeyEmail} {
		if values[key] == "" {
			continue
		}
		if err := s.kv.Set(key, values[key]); err != nil {
			return fmt.Errorf("write %s: %w", key, err)
		}
	}
	if sess.Profile != nil {
		return s.SetProfile(sess.Profile)
	}
	return nil
}

func (s *KVStore) SetTokens(accessToken, refreshToken string) error {
	if err := s.kv.Set(KeyAccessToken, accessToken); err != nil {
		return fmt.Errorf("write %s: %w", KeyAccessToken, err)
	}
	if refreshToken == "" {
		return nil
	}
	if err := s.kv.Set(KeyRefreshToken, refreshToken); err != nil {
		return fmt.Errorf("write %s: %w", KeyRefreshToken, err)
	}
	return nil
}

func (s *KVStore) SetProfile(profile *users.Profile) error {
	if profile == nil {
		return s.kv.Delete(KeyUser)
	}
	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	if err := s.kv.Set(KeyUser, string(data)); err != nil {
		return fmt.Errorf("write %s: %w", KeyUser, err)
	}
	if profile.ID != "" {
		if err := s.kv.Set(KeyUserID, profile.ID); err != nil {
			return fmt.Errorf("write %s: %w", KeyUserID, err)
		}
	}
	if profile.Email != "" {
		if err := s.kv.Set(KeyEmail, profile.Email); err != nil {
			return fmt.Errorf("write %s: %w", KeyEmail, err)
		}
	}
	return nil
}

func (s *KVStore) Replace(sess Session) error {
	if err := s.Clear(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return s.Set(sess)
}

func (s *KVStore) Clear() error {
	return s.kv.Delete(AllKeys...)
}
