package auth_test

import (
	"testing"

	"github.com/jrsteele09/go-social-client/auth"
	interrors "github.com/jrsteele09/go-social-client/internal/errors"
	"github.com/stretchr/testify/require"
)

func TestValidateCredentials(t *testing.T) {
	t.Run("valid credentials", func(t *testing.T) {
		require.NoError(t, auth.ValidateCredentials("user@example.com", "password123"))
	})

	t.Run("empty email", func(t *testing.T) {
		err := auth.ValidateCredentials("  ", "password123")
		require.ErrorIs(t, err, interrors.ErrInvalidRequest)
		require.Contains(t, err.Error(), "email is required")
	})

	t.Run("invalid email format", func(t *testing.T) {
		err := auth.ValidateCredentials("userexample.com", "password123")
		require.ErrorIs(t, err, interrors.ErrInvalidRequest)
		require.Contains(t, err.Error(), "invalid email format")
	})

	t.Run("empty password", func(t *testing.T) {
		err := auth.ValidateCredentials("user@example.com", "")
		require.ErrorIs(t, err, interrors.ErrInvalidRequest)
		require.Contains(t, err.Error(), "password is required")
	})
}

func TestValidateOTP(t *testing.T) {
	require.NoError(t, auth.ValidateOTP("123456"))
	require.NoError(t, auth.ValidateOTP(" 0042 "))

	err := auth.ValidateOTP("")
	require.ErrorIs(t, err, interrors.ErrInvalidRequest)

	err = auth.ValidateOTP("12a456")
	require.ErrorIs(t, err, interrors.ErrInvalidRequest)
	require.Contains(t, err.Error(), "must be numeric")
}

func TestValidateAccessToken(t *testing.T) {
	require.NoError(t, auth.ValidateAccessToken("aaa.bbb.ccc"))

	err := auth.ValidateAccessToken("")
	require.Contains(t, err.Error(), "access token is required")

	err = auth.ValidateAccessToken("not-a-jwt")
	require.Contains(t, err.Error(), "must be a valid JWT")

	err = auth.ValidateAccessToken("aaa..ccc")
	require.Contains(t, err.Error(), "part 2 is empty")
}

func TestValidateRedirectURI(t *testing.T) {
	t.Run("valid https URI", func(t *testing.T) {
		require.NoError(t, auth.ValidateRedirectURI("https://example.com/callback"))
	})

	t.Run("valid loopback URI", func(t *testing.T) {
		require.NoError(t, auth.ValidateRedirectURI("http://127.0.0.1:3000/callback"))
	})

	t.Run("empty URI", func(t *testing.T) {
		err := auth.ValidateRedirectURI("")
		require.Contains(t, err.Error(), "redirect_uri is required")
	})

	t.Run("invalid scheme", func(t *testing.T) {
		err := auth.ValidateRedirectURI("ftp://example.com/callback")
		require.Contains(t, err.Error(), "must use http or https")
	})

	t.Run("URI with fragment", func(t *testing.T) {
		err := auth.ValidateRedirectURI("https://example.com/callback#fragment")
		require.Contains(t, err.Error(), "must not contain fragments")
	})
}
