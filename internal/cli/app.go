package cli

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/jrsteele09/go-social-client/api"
	"github.com/jrsteele09/go-social-client/auth"
	"github.com/jrsteele09/go-social-client/friendship"
	"github.com/jrsteele09/go-social-client/internal/config"
	interrors "github.com/jrsteele09/go-social-client/internal/errors"
	"github.com/jrsteele09/go-social-client/kvstore"
	"github.com/jrsteele09/go-social-client/kvstore/sqlitestore"
	"github.com/jrsteele09/go-social-client/preferences"
	"github.com/jrsteele09/go-social-client/presence"
	"github.com/jrsteele09/go-social-client/realtime"
	"github.com/jrsteele09/go-social-client/sessions"
	"github.com/jrsteele09/go-social-client/token/refresh"
	"github.com/rs/zerolog/log"
)

// App wires the client components together for one command invocation.
type App struct {
	Config      config.Config
	Sessions    sessions.Store
	Client      *api.Client
	AuthAPI     *api.AuthAPI
	Coordinator *refresh.Coordinator
	Auth        *auth.Manager
	Friends     *friendship.Service
	Presence    *presence.Pinger
	Realtime    *realtime.Manager
	Preferences *preferences.Store
}

// NewApp builds the component graph over kv.
func NewApp(cfg config.Config, kv kvstore.Store, options ...AppOption) (*App, error) {
	o := appOptions{dialer: realtime.WebsocketDialer{}}
	for _, opt := range options {
		opt(&o)
	}

	store := sessions.NewStore(kv)
	client := api.New(cfg.GetAPIBaseURL(), cfg.GetHTTPTimeout())
	authAPI := api.NewAuthAPI(client)
	coordinator := refresh.NewCoordinator(store, authAPI, cfg.GetRefreshSkew())
	client.SetCredentials(coordinator)

	a := &App{
		Config:      cfg,
		Sessions:    store,
		Client:      client,
		AuthAPI:     authAPI,
		Coordinator: coordinator,
		Friends:     friendship.NewService(client, friendship.WithStore(kv)),
		Presence:    presence.NewPinger(client, presence.WithInterval(cfg.GetPingInterval())),
		Realtime: realtime.NewManager(cfg.GetWSBaseURL(), o.dialer,
			realtime.WithRetry(cfg.GetReconnectAttempts(), cfg.GetReconnectDelay()),
			realtime.WithStatusFunc(logStatus),
		),
		Preferences: preferences.New(kv),
	}

	manager, err := a.newAuthManager()
	if err != nil {
		return nil, err
	}
	a.Auth = manager
	return a, nil
}

// AppOption defines a function type to modify how the App is built.
type AppOption func(*appOptions)

type appOptions struct {
	dialer realtime.Dialer
}

// WithDialer replaces the websocket dialer.
func WithDialer(d realtime.Dialer) AppOption {
	return func(o *appOptions) {
		o.dialer = d
	}
}

func (a *App) newAuthManager(options ...auth.ManagerOption) (*auth.Manager, error) {
	options = append([]auth.ManagerOption{auth.WithRevokeTimeout(a.Config.GetRevokeTimeout())}, options...)
	return auth.NewManager(a.Sessions, a.AuthAPI, a.Coordinator, options...)
}

// oauthManager returns a session manager that verifies id_tokens against the
// configured issuer. Without an issuer it is the regular manager.
func (a *App) oauthManager(ctx context.Context) (*auth.Manager, error) {
	issuer := a.Config.GetOIDCIssuer()
	if issuer == "" {
		return a.Auth, nil
	}
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc provider %s: %w", issuer, err)
	}
	verifier := provider.Verifier(&oidc.Config{ClientID: a.Config.GetOIDCClientID()})
	return a.newAuthManager(auth.WithIDTokenVerifier(verifier))
}

// requireSession checks the stored session and fails when there is none.
func (a *App) requireSession(ctx context.Context) (auth.State, error) {
	state, err := a.Auth.CheckSession(ctx)
	if err != nil {
		return state, err
	}
	if !state.IsAuthenticated {
		return state, fmt.Errorf("%w: run login first", interrors.ErrNotAuthenticated)
	}
	return state, nil
}

// currentUserID prefers the profile snapshot and falls back to the stored id.
func (a *App) currentUserID(state auth.State) (string, error) {
	if state.User != nil && state.User.ID != "" {
		return state.User.ID, nil
	}
	sess, err := a.Sessions.Get()
	if err != nil {
		return "", err
	}
	if sess.UserID == "" {
		return "", fmt.Errorf("%w: no user id in session", interrors.ErrNotAuthenticated)
	}
	return sess.UserID, nil
}

// connect opens a realtime connection authenticated as the current session.
func (a *App) connect(ctx context.Context, topics []string, onMessage realtime.Handler) (*realtime.Connection, error) {
	accessToken, err := a.Coordinator.CurrentToken(ctx)
	if err != nil {
		return nil, err
	}
	return a.Realtime.Connect(ctx, accessToken, topics, onMessage)
}

func logStatus(s realtime.Status) {
	ev := log.Debug()
	if s.Phase == realtime.PhaseFailed {
		ev = log.Error()
	}
	ev.Err(s.Err).Str("phase", s.Phase.String()).Int("attempts", s.Attempts).Msg("realtime status")
}

// OpenStore opens the durable store in the configured data folder, sealed
// with the configured passphrase when one is set.
func OpenStore(cfg config.StoreConfig) (kvstore.Store, func() error, error) {
	db, err := sqlitestore.Open(cfg.GetDataFolder())
	if err != nil {
		return nil, nil, err
	}
	passphrase := cfg.GetStorePassphrase()
	if passphrase == "" {
		return db, db.Close, nil
	}
	sealed, err := kvstore.Sealed(db, passphrase)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return sealed, db.Close, nil
}
