package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jrsteele09/go-social-client/api"
	interrors "github.com/jrsteele09/go-social-client/internal/errors"
	"github.com/jrsteele09/go-social-client/users"
	"github.com/stretchr/testify/require"
)

func writeEnvelope(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"status": status, "data": data})
}

func newAuthAPI(t *testing.T, mux *http.ServeMux) *api.AuthAPI {
	t.Helper()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return api.NewAuthAPI(api.New(server.URL, 5*time.Second))
}

func TestLogin(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req api.LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Password != "Secret123" {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]any{"status": 401, "message": "bad credentials"})
			return
		}
		require.Empty(t, r.Header.Get("Authorization"))
		writeEnvelope(w, http.StatusOK, map[string]any{
			"accessToken":  "a1",
			"refreshToken": "r1",
			"user":         map[string]string{"id": "u1", "email": req.Email},
		})
	})
	authAPI := newAuthAPI(t, mux)

	resp, err := authAPI.Login(context.Background(), "jo@example.com", "Secret123")
	require.NoError(t, err)
	require.Equal(t, "a1", resp.AccessToken)
	require.Equal(t, "r1", resp.RefreshToken)
	require.Equal(t, &users.Profile{ID: "u1", Email: "jo@example.com"}, resp.User)

	pair := resp.Pair()
	require.Equal(t, "a1", pair.AccessToken)
	require.Equal(t, resp.User, pair.Profile)

	_, err = authAPI.Login(context.Background(), "jo@example.com", "wrong")
	require.ErrorIs(t, err, interrors.ErrUnauthorized)
	require.ErrorContains(t, err, "bad credentials")
}

func TestVerify(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /auth/verify", func(w http.ResponseWriter, r *http.Request) {
		switch r.Header.Get("Authorization") {
		case "Bearer with-profile":
			writeEnvelope(w, http.StatusOK, map[string]string{"id": "u1", "username": "jo"})
		case "Bearer bare":
			writeEnvelope(w, http.StatusOK, nil)
		case "Bearer flag":
			writeEnvelope(w, http.StatusOK, true)
		case "Bearer text":
			writeEnvelope(w, http.StatusOK, "Token is valid")
		case "Bearer plain":
			_, _ = w.Write([]byte("OK"))
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	})
	authAPI := newAuthAPI(t, mux)

	profile, err := authAPI.Verify(context.Background(), "with-profile")
	require.NoError(t, err)
	require.Equal(t, &users.Profile{ID: "u1", Username: "jo"}, profile)

	profile, err = authAPI.Verify(context.Background(), "bare")
	require.NoError(t, err)
	require.Nil(t, profile)

	for _, tok := range []string{"flag", "text", "plain"} {
		profile, err = authAPI.Verify(context.Background(), tok)
		require.NoError(t, err, tok)
		require.Nil(t, profile, tok)
	}

	_, err = authAPI.Verify(context.Background(), "expired")
	require.ErrorIs(t, err, interrors.ErrUnauthorized)
}

func TestRefreshTokenAndRevoke(t *testing.T) {
	var revoked map[string]string
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/refresh-token", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "r1", body["refreshToken"])
		writeEnvelope(w, http.StatusOK, map[string]string{"accessToken": "a2", "refreshToken": "r2"})
	})
	mux.HandleFunc("POST /auth/revoke-token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&revoked))
		require.Equal(t, "Bearer a2", r.Header.Get("Authorization"))
		writeEnvelope(w, http.StatusOK, nil)
	})
	authAPI := newAuthAPI(t, mux)

	pair, err := authAPI.RefreshToken(context.Background(), "r1")
	require.NoError(t, err)
	require.Equal(t, "a2", pair.AccessToken)
	require.Equal(t, "r2", pair.RefreshToken)

	require.NoError(t, authAPI.RevokeToken(context.Background(), "a2", "r2"))
	require.Equal(t, map[string]string{"token": "a2", "refreshToken": "r2"}, revoked)
}

func TestRefreshTokenEmptyResponse(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/refresh-token", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, map[string]string{})
	})
	authAPI := newAuthAPI(t, mux)

	_, err := authAPI.RefreshToken(context.Background(), "r1")
	require.ErrorIs(t, err, interrors.ErrEmptyResponse)
}

func TestRegisterAndVerifyOTP(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/register", func(w http.ResponseWriter, r *http.Request) {
		var req api.RegisterRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Email == "taken@example.com" {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]any{"status": 400, "message": "email already registered"})
			return
		}
		writeEnvelope(w, http.StatusOK, "otp sent")
	})
	mux.HandleFunc("POST /auth/verify-otp", func(w http.ResponseWriter, r *http.Request) {
		var req api.VerifyOTPRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "123456", req.OTP)
		writeEnvelope(w, http.StatusOK, map[string]any{"accessToken": "a1", "refreshToken": "r1"})
	})
	authAPI := newAuthAPI(t, mux)

	require.NoError(t, authAPI.Register(context.Background(), api.RegisterRequest{Email: "new@example.com", Password: "Secret123"}))

	err := authAPI.Register(context.Background(), api.RegisterRequest{Email: "taken@example.com", Password: "Secret123"})
	require.ErrorIs(t, err, interrors.ErrInvalidRequest)

	resp, err := authAPI.VerifyOTP(context.Background(), "new@example.com", "123456")
	require.NoError(t, err)
	require.Equal(t, "a1", resp.AccessToken)
}

func TestOAuth2LoginURL(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /auth/oauth2-login", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("redirect_uri") == "" {
			writeEnvelope(w, http.StatusOK, "https://idp.example.com/authorize?x=1")
			return
		}
		writeEnvelope(w, http.StatusOK, map[string]string{"url": "https://idp.example.com/authorize?redirect=" + r.URL.Query().Get("redirect_uri")})
	})
	authAPI := newAuthAPI(t, mux)

	u, err := authAPI.OAuth2LoginURL(context.Background(), "")
	require.NoError(t, err)
	require.Equal(t, "https://idp.example.com/authorize?x=1", u)

	u, err = authAPI.OAuth2LoginURL(context.Background(), "http://127.0.0.1:3000/callback")
	require.NoError(t, err)
	require.Equal(t, "https://idp.example.com/authorize?redirect=http://127.0.0.1:3000/callback", u)
}
