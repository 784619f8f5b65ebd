package auth

import (
	"fmt"
	"strings"
	"unicode"

	interrors "github.com/jrsteele09/go-social-client/internal/errors"
)

// Input checks run before any request is sent so obviously bad input never
// costs a round trip. Every failure wraps errors.ErrInvalidRequest.

// ValidateCredentials validates login credentials
func ValidateCredentials(email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("%w: email is required", interrors.ErrInvalidRequest)
	}

	// Basic email format validation
	if !strings.Contains(email, "@") || !strings.Contains(email, ".") {
		return fmt.Errorf("%w: invalid email format", interrors.ErrInvalidRequest)
	}

	if password == "" {
		return fmt.Errorf("%w: password is required", interrors.ErrInvalidRequest)
	}
	return nil
}

// ValidateOTP validates the one-time code sent on registration
func ValidateOTP(otp string) error {
	otp = strings.TrimSpace(otp)
	if otp == "" {
		return fmt.Errorf("%w: otp is required", interrors.ErrInvalidRequest)
	}
	for _, r := range otp {
		if !unicode.IsDigit(r) {
			return fmt.Errorf("%w: otp must be numeric", interrors.ErrInvalidRequest)
		}
	}
	return nil
}

// ValidateAccessToken validates access token format and presence
func ValidateAccessToken(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("%w: access token is required", interrors.ErrInvalidRequest)
	}

	// Basic format check - should be a JWT (3 parts separated by dots)
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return fmt.Errorf("%w: invalid token format: must be a valid JWT", interrors.ErrInvalidRequest)
	}

	for i, part := range parts {
		if len(part) == 0 {
			return fmt.Errorf("%w: invalid token format: part %d is empty", interrors.ErrInvalidRequest, i+1)
		}
	}
	return nil
}

// ValidateRedirectURI validates redirect URI format
func ValidateRedirectURI(uri string) error {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return fmt.Errorf("%w: redirect_uri is required", interrors.ErrInvalidRequest)
	}

	// Must start with http:// or https://
	if !strings.HasPrefix(uri, "http://") && !strings.HasPrefix(uri, "https://") {
		return fmt.Errorf("%w: redirect_uri must use http or https scheme", interrors.ErrInvalidRequest)
	}

	// Should not contain fragments
	if strings.Contains(uri, "#") {
		return fmt.Errorf("%w: redirect_uri must not contain fragments", interrors.ErrInvalidRequest)
	}
	return nil
}
