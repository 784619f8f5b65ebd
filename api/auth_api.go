package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	interrors "github.com/jrsteele09/go-social-client/internal/errors"
	"github.com/jrsteele09/go-social-client/token"
	"github.com/jrsteele09/go-social-client/users"
)

const (
	RouteLogin        = "/auth/login"
	RouteRegister     = "/auth/register"
	RouteVerifyOTP    = "/auth/verify-otp"
	RouteVerify       = "/auth/verify"
	RouteRefreshToken = "/auth/refresh-token"
	RouteRevokeToken  = "/auth/revoke-token"
	RouteOAuth2Login  = "/auth/oauth2-login"
)

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest is the body of POST /auth/register. The backend answers by
// emailing a one-time code that completes the signup through VerifyOTP.
type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

// VerifyOTPRequest is the body of POST /auth/verify-otp.
type VerifyOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

// TokenResponse is returned by login, OTP verification and refresh.
type TokenResponse struct {
	AccessToken  string         `json:"accessToken"`
	RefreshToken string         `json:"refreshToken,omitempty"`
	User         *users.Profile `json:"user,omitempty"`
}

// Pair converts the response to the credential set persisted by the session.
func (r *TokenResponse) Pair() *token.Pair {
	return &token.Pair{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		Profile:      r.User,
	}
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type revokeRequest struct {
	Token        string `json:"token,omitempty"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// AuthAPI covers the /auth endpoints. None of them go through the 401 retry
// path: they either run before a session exists or are part of its renewal.
type AuthAPI struct {
	client *Client
}

func NewAuthAPI(client *Client) *AuthAPI {
	return &AuthAPI{client: client}
}

func (a *AuthAPI) Login(ctx context.Context, email, password string) (*TokenResponse, error) {
	var resp TokenResponse
	if err := a.client.DoAnonymous(ctx, http.MethodPost, RouteLogin, LoginRequest{Email: email, Password: password}, &resp); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if resp.AccessToken == "" {
		return nil, fmt.Errorf("login: %w", interrors.ErrEmptyResponse)
	}
	return &resp, nil
}

func (a *AuthAPI) Register(ctx context.Context, req RegisterRequest) error {
	if err := a.client.DoAnonymous(ctx, http.MethodPost, RouteRegister, req, nil); err != nil {
		return fmt.Errorf("register: %w", err)
	}
	return nil
}

func (a *AuthAPI) VerifyOTP(ctx context.Context, email, otp string) (*TokenResponse, error) {
	var resp TokenResponse
	if err := a.client.DoAnonymous(ctx, http.MethodPost, RouteVerifyOTP, VerifyOTPRequest{Email: email, OTP: otp}, &resp); err != nil {
		return nil, fmt.Errorf("verify otp: %w", err)
	}
	if resp.AccessToken == "" {
		return nil, fmt.Errorf("verify otp: %w", interrors.ErrEmptyResponse)
	}
	return &resp, nil
}

// Verify checks accessToken with the backend. Any 2xx means the token is
// valid; the profile is returned only when the payload carries one.
func (a *AuthAPI) Verify(ctx context.Context, accessToken string) (*users.Profile, error) {
	var raw json.RawMessage
	if err := a.client.DoWithToken(ctx, http.MethodGet, RouteVerify, accessToken, nil, &raw); err != nil {
		return nil, fmt.Errorf("verify: %w", err)
	}
	var profile users.Profile
	if err := json.Unmarshal(raw, &profile); err != nil || profile == (users.Profile{}) {
		return nil, nil
	}
	return &profile, nil
}

// RefreshToken implements refresh.Refresher.
func (a *AuthAPI) RefreshToken(ctx context.Context, refreshToken string) (*token.Pair, error) {
	var resp TokenResponse
	if err := a.client.DoAnonymous(ctx, http.MethodPost, RouteRefreshToken, refreshRequest{RefreshToken: refreshToken}, &resp); err != nil {
		return nil, fmt.Errorf("refresh token: %w", err)
	}
	if resp.AccessToken == "" {
		return nil, fmt.Errorf("refresh token: %w", interrors.ErrEmptyResponse)
	}
	return resp.Pair(), nil
}

// RevokeToken asks the backend to invalidate the session's tokens.
func (a *AuthAPI) RevokeToken(ctx context.Context, accessToken, refreshToken string) error {
	body := revokeRequest{Token: accessToken, RefreshToken: refreshToken}
	if err := a.client.DoWithToken(ctx, http.MethodPost, RouteRevokeToken, accessToken, body, nil); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// OAuth2LoginURL returns the identity provider URL that starts the OAuth
// login. The backend answers with either a bare string or {"url": "..."}.
func (a *AuthAPI) OAuth2LoginURL(ctx context.Context, redirectURI string) (string, error) {
	path := RouteOAuth2Login
	if redirectURI != "" {
		path += "?redirect_uri=" + url.QueryEscape(redirectURI)
	}
	var raw json.RawMessage
	if err := a.client.DoAnonymous(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return "", fmt.Errorf("oauth2 login: %w", err)
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil && asString != "" {
		return asString, nil
	}
	var asObject struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(raw, &asObject); err == nil && asObject.URL != "" {
		return asObject.URL, nil
	}
	if text := strings.TrimSpace(string(raw)); strings.HasPrefix(text, "http") {
		return text, nil
	}
	return "", fmt.Errorf("oauth2 login: %w", interrors.ErrEmptyResponse)
}
