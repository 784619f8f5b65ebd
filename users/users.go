package users

import (
	"fmt"
	"strings"
	"unicode"
)

// Profile is the user snapshot cached alongside the session tokens.
type Profile struct {
	ID        string `json:"id,omitempty"`        // Unique identifier for the user
	Email     string `json:"email,omitempty"`     // User's email address
	Username  string `json:"username,omitempty"`  // Unique username
	FirstName string `json:"firstName,omitempty"` // First name of the user
	LastName  string `json:"lastName,omitempty"`  // Last name of the user
	AvatarURL string `json:"avatar,omitempty"`    // Uploaded avatar location
	Bio       string `json:"bio,omitempty"`
}

// DisplayName prefers the full name, then the username, then the email.
func (p *Profile) DisplayName() string {
	if p == nil {
		return ""
	}
	if full := strings.TrimSpace(p.FirstName + " " + p.LastName); full != "" {
		return full
	}
	if p.Username != "" {
		return p.Username
	}
	return p.Email
}

// ValidatePasswordStrength checks if password meets the registration rules:
// - At least 8 characters long
// - Contains uppercase and lowercase letters
// - Contains at least one number
func ValidatePasswordStrength(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters long")
	}

	var (
		hasUpper  bool
		hasLower  bool
		hasNumber bool
	)

	for _, char := range password {
		if unicode.IsUpper(char) {
			hasUpper = true
		} else if unicode.IsLower(char) {
			hasLower = true
		} else if unicode.IsDigit(char) {
			hasNumber = true
		}
	}

	if !hasUpper {
		return fmt.Errorf("password must contain at least one uppercase letter")
	}
	if !hasLower {
		return fmt.Errorf("password must contain at least one lowercase letter")
	}
	if !hasNumber {
		return fmt.Errorf("password must contain at least one number")
	}

	return nil
}
