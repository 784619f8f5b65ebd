package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jrsteele09/go-social-client/auth"
	"github.com/rs/zerolog/log"
)

const callbackPath = "/callback"

// callbackServer captures the OAuth redirect on a loopback address.
type callbackServer struct {
	listener net.Listener
	server   *http.Server
	results  chan callbackResult
}

type callbackResult struct {
	result auth.OAuthResult
	err    error
}

func startCallbackServer(addr string) (*callbackServer, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	cs := &callbackServer{
		listener: listener,
		results:  make(chan callbackResult, 1),
	}
	cs.server = &http.Server{Handler: cs.router(), ReadHeaderTimeout: 10 * time.Second}

	go func() {
		if err := cs.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("oauth callback server stopped")
		}
	}()
	return cs, nil
}

func (cs *callbackServer) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get(callbackPath, cs.handleCallback)
	return r
}

// RedirectURI is the URL the provider must redirect to.
func (cs *callbackServer) RedirectURI() string {
	return "http://" + cs.listener.Addr().String() + callbackPath
}

func (cs *callbackServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if msg := q.Get("error"); msg != "" {
		cs.deliver(callbackResult{err: fmt.Errorf("oauth provider: %s", msg)})
		http.Error(w, "Login failed: "+msg, http.StatusBadRequest)
		return
	}

	result := auth.OAuthResult{
		AccessToken:  first(q.Get("accessToken"), q.Get("token"), q.Get("access_token")),
		RefreshToken: first(q.Get("refreshToken"), q.Get("refresh_token")),
		IDToken:      first(q.Get("idToken"), q.Get("id_token")),
	}
	if result.AccessToken == "" {
		cs.deliver(callbackResult{err: errors.New("oauth callback carried no access token")})
		http.Error(w, "Login failed: no token received", http.StatusBadRequest)
		return
	}

	cs.deliver(callbackResult{result: result})
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("Login complete. You can close this window."))
}

// deliver keeps the first outcome; later redirects are ignored.
func (cs *callbackServer) deliver(r callbackResult) {
	select {
	case cs.results <- r:
	default:
	}
}

// Wait blocks until the redirect arrives, ctx ends or timeout passes.
func (cs *callbackServer) Wait(ctx context.Context, timeout time.Duration) (auth.OAuthResult, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	select {
	case r := <-cs.results:
		return r.result, r.err
	case <-ctx.Done():
		return auth.OAuthResult{}, fmt.Errorf("waiting for oauth callback: %w", ctx.Err())
	}
}

func (cs *callbackServer) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return cs.server.Shutdown(ctx)
}

func first(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
