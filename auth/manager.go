package auth

import (
	"context"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/jrsteele09/go-social-client/api"
	"github.com/jrsteele09/go-social-client/flight"
	interrors "github.com/jrsteele09/go-social-client/internal/errors"
	"github.com/jrsteele09/go-social-client/sessions"
	"github.com/jrsteele09/go-social-client/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const defaultRevokeTimeout = 3 * time.Second

// Backend is the subset of the REST auth endpoints the manager drives.
// *api.AuthAPI satisfies it.
type Backend interface {
	Login(ctx context.Context, email, password string) (*api.TokenResponse, error)
	Register(ctx context.Context, req api.RegisterRequest) error
	VerifyOTP(ctx context.Context, email, otp string) (*api.TokenResponse, error)
	Verify(ctx context.Context, accessToken string) (*users.Profile, error)
	RevokeToken(ctx context.Context, accessToken, refreshToken string) error
	OAuth2LoginURL(ctx context.Context, redirectURI string) (string, error)
}

// TokenRefresher renews the stored access token. *refresh.Coordinator
// satisfies it.
type TokenRefresher interface {
	EnsureFreshToken(ctx context.Context) (string, error)
}

// IDTokenVerifier checks an OpenID Connect id_token. *oidc.IDTokenVerifier
// satisfies it.
type IDTokenVerifier interface {
	Verify(ctx context.Context, rawIDToken string) (*oidc.IDToken, error)
}

// OAuthResult is what the OAuth redirect hands back to the client.
type OAuthResult struct {
	AccessToken  string
	RefreshToken string
	IDToken      string
}

// Manager owns the session lifecycle: checking a stored session at startup,
// interactive login, refresh and logout. It is safe for concurrent use.
type Manager struct {
	store         sessions.Store
	backend       Backend
	refresher     TokenRefresher
	idVerifier    IDTokenVerifier
	revokeTimeout time.Duration

	checks flight.Group[State]

	mu           sync.Mutex
	state        State
	justLoggedIn bool
	listeners    map[int]func(State)
	nextListener int
}

// ManagerOption defines a function type to modify the Manager instance.
type ManagerOption func(*Manager)

// WithRevokeTimeout bounds how long Logout waits for the revoke call.
func WithRevokeTimeout(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.revokeTimeout = d
		}
	}
}

// WithIDTokenVerifier enables id_token verification in CompleteOAuthLogin.
func WithIDTokenVerifier(v IDTokenVerifier) ManagerOption {
	return func(m *Manager) {
		m.idVerifier = v
	}
}

// NewManager initializes a Manager with required dependencies.
func NewManager(store sessions.Store, backend Backend, refresher TokenRefresher, options ...ManagerOption) (*Manager, error) {
	if store == nil {
		return nil, errors.New("[NewManager] session store is required")
	}
	if backend == nil {
		return nil, errors.New("[NewManager] auth backend is required")
	}
	if refresher == nil {
		return nil, errors.New("[NewManager] token refresher is required")
	}

	m := &Manager{
		store:         store,
		backend:       backend,
		refresher:     refresher,
		revokeTimeout: defaultRevokeTimeout,
		state:         State{Status: StatusUnchecked, IsLoading: true},
		listeners:     make(map[int]func(State)),
	}
	for _, opt := range options {
		opt(m)
	}
	return m, nil
}

// State returns a snapshot of the current session state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// OnChange registers fn to be called after every state change. The returned
// function removes the listener.
func (m *Manager) OnChange(fn func(State)) (cancel func()) {
	m.mu.Lock()
	id := m.nextListener
	m.nextListener++
	m.listeners[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

// CheckSession resolves whether the stored session is still usable. Callers
// arriving while a check runs share its result.
func (m *Manager) CheckSession(ctx context.Context) (State, error) {
	state, shared, err := m.checks.Do(ctx, m.checkSession)
	if shared {
		log.Debug().Msg("joined in-flight session check")
	}
	if err != nil {
		return m.State(), err
	}
	return state, nil
}

// PendingChecks returns the number of callers waiting on the current check.
func (m *Manager) PendingChecks() int {
	return m.checks.Waiting()
}

func (m *Manager) checkSession(ctx context.Context) (State, error) {
	m.mu.Lock()
	skipVerify := m.justLoggedIn
	m.justLoggedIn = false
	m.mu.Unlock()

	m.update(func(s *State) {
		s.Status = StatusChecking
		s.IsLoading = true
	})

	sess, err := m.store.Get()
	if err != nil {
		m.setUnauthenticated()
		return m.State(), errors.Wrap(err, "[CheckSession] read session")
	}
	if !sess.HasAccessToken() {
		log.Debug().Msg("no stored access token")
		return m.setUnauthenticated(), nil
	}

	if skipVerify {
		log.Debug().Msg("session established by login, skipping verify")
		return m.setAuthenticated(sess.Profile), nil
	}

	profile, verifyErr := m.backend.Verify(ctx, sess.AccessToken)
	if verifyErr == nil {
		if sess.Profile == nil && profile != nil {
			if err := m.store.SetProfile(profile); err != nil {
				log.Warn().Err(err).Msg("failed to cache verified profile")
			}
			sess.Profile = profile
		}
		return m.setAuthenticated(sess.Profile), nil
	}
	log.Info().Err(verifyErr).Msg("stored access token rejected, attempting refresh")

	return m.refreshOrClear(ctx)
}

// Refresh renews the access token through the coordinator. A failed refresh
// ends the session.
func (m *Manager) Refresh(ctx context.Context) (State, error) {
	state, err := m.refreshOrClear(ctx)
	if err != nil {
		return state, err
	}
	if !state.IsAuthenticated {
		return state, interrors.ErrRefreshFailed
	}
	return state, nil
}

func (m *Manager) refreshOrClear(ctx context.Context) (State, error) {
	if _, err := m.refresher.EnsureFreshToken(ctx); err != nil {
		log.Info().Err(err).Msg("refresh failed, clearing session")
		if clearErr := m.store.Clear(); clearErr != nil {
			m.setUnauthenticated()
			return m.State(), errors.Wrap(clearErr, "[Refresh] clear session")
		}
		return m.setUnauthenticated(), nil
	}

	sess, err := m.store.Get()
	if err != nil {
		m.setUnauthenticated()
		return m.State(), errors.Wrap(err, "[Refresh] read session")
	}
	return m.setAuthenticated(sess.Profile), nil
}

// Login authenticates with email and password and adopts the returned
// session. The next CheckSession trusts it without a verify round trip.
func (m *Manager) Login(ctx context.Context, email, password string) (State, error) {
	if err := ValidateCredentials(email, password); err != nil {
		return m.State(), err
	}
	resp, err := m.backend.Login(ctx, email, password)
	if err != nil {
		m.update(func(s *State) { s.LoginAttempted = true })
		return m.State(), err
	}
	return m.adopt(email, resp)
}

// Register creates an account. The backend sends a one-time code to email
// which VerifyOTP exchanges for a session.
func (m *Manager) Register(ctx context.Context, req api.RegisterRequest) error {
	if err := ValidateCredentials(req.Email, req.Password); err != nil {
		return err
	}
	if err := users.ValidatePasswordStrength(req.Password); err != nil {
		return errors.Wrap(interrors.ErrInvalidRequest, err.Error())
	}
	return m.backend.Register(ctx, req)
}

// VerifyOTP completes registration and adopts the returned session.
func (m *Manager) VerifyOTP(ctx context.Context, email, otp string) (State, error) {
	if err := ValidateOTP(otp); err != nil {
		return m.State(), err
	}
	resp, err := m.backend.VerifyOTP(ctx, email, otp)
	if err != nil {
		m.update(func(s *State) { s.LoginAttempted = true })
		return m.State(), err
	}
	return m.adopt(email, resp)
}

// OAuthLoginURL returns the provider URL that starts an OAuth login whose
// redirect lands on redirectURI.
func (m *Manager) OAuthLoginURL(ctx context.Context, redirectURI string) (string, error) {
	if redirectURI != "" {
		if err := ValidateRedirectURI(redirectURI); err != nil {
			return "", err
		}
	}
	return m.backend.OAuth2LoginURL(ctx, redirectURI)
}

// CompleteOAuthLogin adopts the tokens delivered by the OAuth redirect. When
// an id_token verifier is configured and an id_token was delivered, the token
// must verify before anything is stored.
func (m *Manager) CompleteOAuthLogin(ctx context.Context, result OAuthResult) (State, error) {
	if result.AccessToken == "" {
		return m.State(), errors.Wrap(interrors.ErrNoAccessToken, "[CompleteOAuthLogin]")
	}
	if err := ValidateAccessToken(result.AccessToken); err != nil {
		return m.State(), err
	}

	var identity struct {
		Sub   string `json:"sub"`
		Email string `json:"email"`
	}
	if m.idVerifier != nil && result.IDToken != "" {
		idToken, err := m.idVerifier.Verify(ctx, result.IDToken)
		if err != nil {
			return m.State(), errors.Wrapf(interrors.ErrInvalidIDToken, "[CompleteOAuthLogin] %v", err)
		}
		if err := idToken.Claims(&identity); err != nil {
			return m.State(), errors.Wrapf(interrors.ErrInvalidIDToken, "[CompleteOAuthLogin] claims: %v", err)
		}
	}

	profile, err := m.backend.Verify(ctx, result.AccessToken)
	if err != nil {
		return m.State(), errors.Wrap(err, "[CompleteOAuthLogin] verify access token")
	}
	if profile == nil && identity.Sub != "" {
		profile = &users.Profile{ID: identity.Sub, Email: identity.Email}
	}

	return m.adopt(identity.Email, &api.TokenResponse{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		User:         profile,
	})
}

func (m *Manager) adopt(email string, resp *api.TokenResponse) (State, error) {
	sess := sessions.Session{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		Email:        email,
		Profile:      resp.User,
	}
	if resp.User != nil {
		sess.UserID = resp.User.ID
		if resp.User.Email != "" {
			sess.Email = resp.User.Email
		}
	}
	if err := m.store.Replace(sess); err != nil {
		return m.State(), errors.Wrap(err, "[Login] store session")
	}

	m.mu.Lock()
	m.justLoggedIn = true
	m.mu.Unlock()

	log.Info().Str("email", sess.Email).Msg("logged in")
	return m.setAuthenticated(resp.User), nil
}

// Logout revokes the session tokens and clears local state. The revoke call
// is bounded by the revoke timeout and its outcome never prevents the local
// clear.
func (m *Manager) Logout(ctx context.Context) error {
	sess, err := m.store.Get()
	if err != nil {
		log.Warn().Err(err).Msg("failed to read session for revoke")
	}
	if sess.HasAccessToken() {
		m.revoke(ctx, sess)
	}

	m.mu.Lock()
	m.justLoggedIn = false
	m.mu.Unlock()

	clearErr := m.store.Clear()
	m.setUnauthenticated()
	if clearErr != nil {
		return errors.Wrap(clearErr, "[Logout] clear session")
	}
	log.Info().Msg("logged out")
	return nil
}

func (m *Manager) revoke(ctx context.Context, sess sessions.Session) {
	ctx, cancel := context.WithTimeout(ctx, m.revokeTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- m.backend.RevokeToken(ctx, sess.AccessToken, sess.RefreshToken)
	}()

	select {
	case err := <-done:
		if err != nil {
			log.Warn().Err(err).Msg("token revoke failed")
		}
	case <-ctx.Done():
		log.Warn().Err(ctx.Err()).Msg("token revoke abandoned")
	}
}

func (m *Manager) setAuthenticated(profile *users.Profile) State {
	return m.update(func(s *State) {
		s.Status = StatusAuthenticated
		s.IsAuthenticated = true
		s.IsLoading = false
		s.LoginAttempted = true
		s.User = profile
	})
}

func (m *Manager) setUnauthenticated() State {
	return m.update(func(s *State) {
		s.Status = StatusUnauthenticated
		s.IsAuthenticated = false
		s.IsLoading = false
		s.LoginAttempted = true
		s.User = nil
	})
}

// update applies fn under the lock and notifies listeners outside it.
func (m *Manager) update(fn func(*State)) State {
	m.mu.Lock()
	fn(&m.state)
	state := m.state
	listeners := make([]func(State), 0, len(m.listeners))
	for id := 0; id < m.nextListener; id++ {
		if l, ok := m.listeners[id]; ok {
			listeners = append(listeners, l)
		}
	}
	m.mu.Unlock()

	for _, l := range listeners {
		l(state)
	}
	return state
}
