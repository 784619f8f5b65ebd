package config

import "time"

type OAuthConfig interface {
	GetOIDCIssuer() string
	GetOIDCClientID() string
	GetCallbackAddr() string
	GetCallbackTimeout() time.Duration
}

type OAuth struct {
	src source
}

var _ OAuthConfig = OAuth{}

// GetOIDCIssuer is the identity provider used to verify id_tokens handed back
// by the OAuth callback. Empty disables id_token verification.
func (o OAuth) GetOIDCIssuer() string {
	return o.src.get("OIDC_ISSUER", "")
}

func (o OAuth) GetOIDCClientID() string {
	return o.src.get("OIDC_CLIENT_ID", "")
}

// GetCallbackAddr is the loopback address the CLI listens on for the OAuth redirect.
func (o OAuth) GetCallbackAddr() string {
	return o.src.get("OAUTH_CALLBACK_ADDR", "127.0.0.1:3000")
}

func (o OAuth) GetCallbackTimeout() time.Duration {
	return o.src.duration("OAUTH_CALLBACK_TIMEOUT", 2*time.Minute)
}
