package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/go-social-client/api"
	interrors "github.com/jrsteele09/go-social-client/internal/errors"
	"github.com/jrsteele09/go-social-client/kvstore/memstore"
	"github.com/jrsteele09/go-social-client/sessions"
	"github.com/jrsteele09/go-social-client/token/refresh"
	"github.com/stretchr/testify/require"
)

type post struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

// backend is a scripted REST server. Requests to /posts succeed only with
// the bearer token in validToken; /auth/refresh-token hands out newToken.
type backend struct {
	validToken   atomic.Value
	newToken     string
	refreshCalls int32
	postCalls    int32
	release      chan struct{}
	refreshFails bool
	seenTokens   []string
	mu           sync.Mutex
}

func newBackend(valid, next string) *backend {
	b := &backend{newToken: next}
	b.validToken.Store(valid)
	return b
}

func (b *backend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /posts", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&b.postCalls, 1)
		bearer := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		b.mu.Lock()
		b.seenTokens = append(b.seenTokens, bearer)
		b.mu.Unlock()
		if bearer != b.validToken.Load().(string) {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]any{"status": 401, "message": "token expired"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": 200,
			"data":   []post{{ID: "p1", Content: "hello"}},
		})
	})
	mux.HandleFunc("POST /auth/refresh-token", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&b.refreshCalls, 1)
		if b.release != nil {
			<-b.release
		}
		if b.refreshFails {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]any{"status": 401, "message": "refresh token expired"})
			return
		}
		b.validToken.Store(b.newToken)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": 200,
			"data":   map[string]string{"accessToken": b.newToken},
		})
	})
	mux.HandleFunc("GET /broken", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("database down"))
	})
	return mux
}

type fixture struct {
	server      *httptest.Server
	client      *api.Client
	store       sessions.Store
	coordinator *refresh.Coordinator
}

func setupFixture(t *testing.T, b *backend, sess sessions.Session) *fixture {
	t.Helper()
	return setupFixtureWithHandler(t, b.handler(), sess)
}

func setupFixtureWithHandler(t *testing.T, handler http.Handler, sess sessions.Session) *fixture {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	store := sessions.NewStore(memstore.New())
	require.NoError(t, store.Set(sess))

	client := api.New(server.URL, 5*time.Second)
	coordinator := refresh.NewCoordinator(store, api.NewAuthAPI(client), 0)
	client.SetCredentials(coordinator)

	return &fixture{server: server, client: client, store: store, coordinator: coordinator}
}

func TestDoDecodesEnvelopeData(t *testing.T) {
	b := newBackend("good", "unused")
	f := setupFixture(t, b, sessions.Session{AccessToken: "good", RefreshToken: "r"})

	var posts []post
	require.NoError(t, f.client.Get(context.Background(), "/posts", &posts))
	require.Equal(t, []post{{ID: "p1", Content: "hello"}}, posts)
	require.Equal(t, int32(0), atomic.LoadInt32(&b.refreshCalls))
}

func TestDoRefreshesAndRetriesOnce(t *testing.T) {
	b := newBackend("not-yet", "new")
	f := setupFixture(t, b, sessions.Session{AccessToken: "old", RefreshToken: "r"})

	var posts []post
	require.NoError(t, f.client.Get(context.Background(), "/posts", &posts))
	require.Len(t, posts, 1)
	require.Equal(t, int32(1), atomic.LoadInt32(&b.refreshCalls))
	require.Equal(t, []string{"old", "new"}, b.seenTokens)

	sess, err := f.store.Get()
	require.NoError(t, err)
	require.Equal(t, "new", sess.AccessToken)
}

func TestConcurrentExpiredRequestsShareOneRefresh(t *testing.T) {
	const n = 10
	b := newBackend("old-is-invalid", "renewed")
	b.release = make(chan struct{})
	f := setupFixture(t, b, sessions.Session{AccessToken: "old", RefreshToken: "r"})

	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var posts []post
			errs[i] = f.client.Get(context.Background(), "/posts", &posts)
		}(i)
	}

	require.Eventually(t, func() bool { return f.coordinator.Waiting() == n }, 2*time.Second, time.Millisecond)
	close(b.release)
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	require.Equal(t, int32(1), atomic.LoadInt32(&b.refreshCalls))
	require.Equal(t, int32(2*n), atomic.LoadInt32(&b.postCalls))

	renewed := 0
	for _, tok := range b.seenTokens {
		if tok == "renewed" {
			renewed++
		}
	}
	require.Equal(t, n, renewed)
}

func TestConcurrentExpiredRequestsAllFailWhenRefreshFails(t *testing.T) {
	const n = 5
	b := newBackend("never", "unused")
	b.release = make(chan struct{})
	b.refreshFails = true
	f := setupFixture(t, b, sessions.Session{AccessToken: "old", RefreshToken: "r"})

	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = f.client.Get(context.Background(), "/posts", nil)
		}(i)
	}
	require.Eventually(t, func() bool { return f.coordinator.Waiting() == n }, 2*time.Second, time.Millisecond)
	close(b.release)
	wg.Wait()

	require.Equal(t, int32(1), atomic.LoadInt32(&b.refreshCalls))
	for _, err := range errs {
		require.ErrorIs(t, err, interrors.ErrRefreshFailed)
	}
}

func TestSecondUnauthorizedIsHardFailure(t *testing.T) {
	// The refresh succeeds but the backend still rejects the renewed token.
	b := newBackend("something-else", "renewed")
	mux := http.NewServeMux()
	mux.HandleFunc("GET /posts", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&b.postCalls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	})
	mux.Handle("/", b.handler())
	f := setupFixtureWithHandler(t, mux, sessions.Session{AccessToken: "old", RefreshToken: "r"})

	err := f.client.Get(context.Background(), "/posts", nil)
	require.Error(t, err)
	require.True(t, interrors.IsAuthExpired(err))

	var apiErr *interrors.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)

	require.Equal(t, int32(2), atomic.LoadInt32(&b.postCalls))
	require.Equal(t, int32(1), atomic.LoadInt32(&b.refreshCalls))
}

func TestOtherErrorsAreNotRetried(t *testing.T) {
	b := newBackend("good", "unused")
	f := setupFixture(t, b, sessions.Session{AccessToken: "good", RefreshToken: "r"})

	err := f.client.Get(context.Background(), "/broken", nil)
	var apiErr *interrors.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	require.Equal(t, "database down", apiErr.Message)
	require.Equal(t, int32(0), atomic.LoadInt32(&b.refreshCalls))
}

func TestDoWithoutCredentials(t *testing.T) {
	client := api.New("http://127.0.0.1:1", time.Second)
	err := client.Get(context.Background(), "/posts", nil)
	require.ErrorIs(t, err, interrors.ErrNotAuthenticated)
}
