package refresh

import (
	"context"
	"fmt"
	"time"

	"github.com/jrsteele09/go-social-client/flight"
	interrors "github.com/jrsteele09/go-social-client/internal/errors"
	"github.com/jrsteele09/go-social-client/sessions"
	"github.com/jrsteele09/go-social-client/token"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// Refresher exchanges a refresh token for a new credential pair.
type Refresher interface {
	RefreshToken(ctx context.Context, refreshToken string) (*token.Pair, error)
}

var _ oauth2.TokenSource = (*Coordinator)(nil)

// Coordinator guarantees a single outstanding refresh call. Every caller that
// needs a new access token while a refresh is running waits for that call and
// receives its outcome.
type Coordinator struct {
	store     sessions.Store
	refresher Refresher
	skew      time.Duration
	group     flight.Group[string]
}

// NewCoordinator creates a coordinator writing renewed tokens to store. skew
// is how close to expiry a token may be before CurrentToken refreshes it.
func NewCoordinator(store sessions.Store, refresher Refresher, skew time.Duration) *Coordinator {
	return &Coordinator{
		store:     store,
		refresher: refresher,
		skew:      skew,
	}
}

// EnsureFreshToken refreshes the access token, joining the in-flight refresh
// when there is one. All joined callers get the same token or error.
func (c *Coordinator) EnsureFreshToken(ctx context.Context) (string, error) {
	accessToken, shared, err := c.group.Do(ctx, c.refresh)
	if shared {
		log.Debug().Msg("joined in-flight token refresh")
	}
	return accessToken, err
}

func (c *Coordinator) refresh(ctx context.Context) (string, error) {
	sess, err := c.store.Get()
	if err != nil {
		return "", fmt.Errorf("read session: %w", err)
	}
	if sess.RefreshToken == "" {
		return "", fmt.Errorf("%w: %w", interrors.ErrRefreshFailed, interrors.ErrNoRefreshToken)
	}

	pair, err := c.refresher.RefreshToken(ctx, sess.RefreshToken)
	if err != nil {
		log.Warn().Err(err).Msg("token refresh failed")
		return "", fmt.Errorf("%w: %w", interrors.ErrRefreshFailed, err)
	}
	if pair == nil || pair.AccessToken == "" {
		return "", fmt.Errorf("%w: no access token returned", interrors.ErrRefreshFailed)
	}

	if err := c.store.SetTokens(pair.AccessToken, pair.RefreshToken); err != nil {
		return "", fmt.Errorf("store refreshed tokens: %w", err)
	}
	if pair.Profile != nil {
		if err := c.store.SetProfile(pair.Profile); err != nil {
			return "", fmt.Errorf("store refreshed profile: %w", err)
		}
	}
	log.Info().Msg("access token refreshed")
	return pair.AccessToken, nil
}

// CurrentToken returns the stored access token, refreshing it first when it
// is about to expire. A failed early refresh falls back to the stored token;
// the request it is used for will then take the normal 401 path.
func (c *Coordinator) CurrentToken(ctx context.Context) (string, error) {
	sess, err := c.store.Get()
	if err != nil {
		return "", fmt.Errorf("read session: %w", err)
	}
	if sess.AccessToken == "" {
		return "", interrors.ErrNoAccessToken
	}
	if c.skew <= 0 || sess.RefreshToken == "" || !token.ExpiresWithin(sess.AccessToken, c.skew) {
		return sess.AccessToken, nil
	}

	fresh, err := c.EnsureFreshToken(ctx)
	if err != nil {
		log.Debug().Err(err).Msg("early refresh failed, using stored token")
		return sess.AccessToken, nil
	}
	return fresh, nil
}

// Token implements oauth2.TokenSource.
func (c *Coordinator) Token() (*oauth2.Token, error) {
	accessToken, err := c.CurrentToken(context.Background())
	if err != nil {
		return nil, err
	}
	sess, err := c.store.Get()
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	return &oauth2.Token{
		AccessToken:  accessToken,
		TokenType:    "Bearer",
		RefreshToken: sess.RefreshToken,
		Expiry:       token.Expiry(accessToken),
	}, nil
}

// InFlight reports whether a refresh call is outstanding.
func (c *Coordinator) InFlight() bool {
	return c.group.InFlight()
}

// Waiting returns the number of callers waiting on the current refresh.
func (c *Coordinator) Waiting() int {
	return c.group.Waiting()
}

// Refreshes returns how many refresh calls have been issued.
func (c *Coordinator) Refreshes() int {
	return c.group.Calls()
}
