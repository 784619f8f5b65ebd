package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	interrors "github.com/jrsteele09/go-social-client/internal/errors"
	"github.com/rs/zerolog/log"
)

const contentTypeJSON = "application/json; charset=utf-8"

// Credentials supplies bearer tokens to the client. The refresh coordinator
// implements it.
type Credentials interface {
	// CurrentToken returns the access token to attach to the next request.
	CurrentToken(ctx context.Context) (string, error)

	// EnsureFreshToken obtains a renewed access token after a 401.
	EnsureFreshToken(ctx context.Context) (string, error)
}

// Envelope is the {status, data, message} wrapper every endpoint responds with.
type Envelope struct {
	Status  any             `json:"status,omitempty"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Client is the REST gateway. Authenticated calls attach the bearer token and
// are retried exactly once after a refresh when the backend answers 401.
type Client struct {
	baseURL    string
	httpClient *http.Client
	creds      Credentials
}

// New creates a client for baseURL (e.g., "http://localhost:8080").
func New(baseURL string, timeout time.Duration) *Client {
	return NewWithHTTPClient(baseURL, &http.Client{Timeout: timeout})
}

func NewWithHTTPClient(baseURL string, httpClient *http.Client) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// SetCredentials wires the token source used by authenticated calls.
func (c *Client) SetCredentials(creds Credentials) {
	c.creds = creds
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, body, out)
}

func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPut, path, body, out)
}

func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodDelete, path, nil, out)
}

// Do performs an authenticated request and decodes the envelope's data into out.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	if c.creds == nil {
		return interrors.ErrNotAuthenticated
	}
	payload, err := encodeBody(body)
	if err != nil {
		return err
	}

	accessToken, err := c.creds.CurrentToken(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", interrors.ErrNotAuthenticated, err)
	}

	err = c.send(ctx, method, path, payload, accessToken, out)
	if !interrors.IsAuthExpired(err) {
		return err
	}

	// Another request may already have renewed the token while this one was
	// in flight; reuse it instead of starting a second refresh.
	retryToken, tokenErr := c.creds.CurrentToken(ctx)
	if tokenErr != nil || retryToken == accessToken {
		log.Debug().Str("path", path).Msg("access token expired, refreshing")
		retryToken, err = c.creds.EnsureFreshToken(ctx)
		if err != nil {
			return err
		}
	}

	err = c.send(ctx, method, path, payload, retryToken, out)
	if interrors.IsAuthExpired(err) {
		log.Warn().Str("path", path).Msg("request rejected after token refresh")
	}
	return err
}

// DoAnonymous performs a request without credentials and without the refresh
// retry. Used for login, registration and the refresh call itself.
func (c *Client) DoAnonymous(ctx context.Context, method, path string, body, out any) error {
	payload, err := encodeBody(body)
	if err != nil {
		return err
	}
	return c.send(ctx, method, path, payload, "", out)
}

// DoWithToken performs a request with an explicit bearer token and no retry.
func (c *Client) DoWithToken(ctx context.Context, method, path, accessToken string, body, out any) error {
	payload, err := encodeBody(body)
	if err != nil {
		return err
	}
	return c.send(ctx, method, path, payload, accessToken, out)
}

func encodeBody(body any) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	return data, nil
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte, accessToken string, out any) error {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", contentTypeJSON)
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	return parseResponse(resp, path, out)
}

func parseResponse(resp *http.Response, path string, out any) error {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: read response: %w", path, err)
	}

	var env Envelope
	enveloped := len(bytes.TrimSpace(raw)) > 0 && json.Unmarshal(raw, &env) == nil

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &interrors.APIError{StatusCode: resp.StatusCode, Path: path}
		if enveloped {
			apiErr.Message = env.Message
		} else {
			apiErr.Message = strings.TrimSpace(string(raw))
		}
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	data := raw
	if enveloped && len(env.Data) > 0 {
		data = env.Data
	}
	// Raw output takes the payload as sent, even when it is not JSON.
	if rawOut, ok := out.(*json.RawMessage); ok {
		*rawOut = append((*rawOut)[:0], data...)
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: failed to decode response: %w", path, err)
	}
	return nil
}
