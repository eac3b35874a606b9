// internal/pkg/jwt/claims.go
package jwt

import (
	"strconv"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the part of a marketplace access token this service reads.
type Claims struct {
	UserID int64  `json:"user_id,omitempty"`
	Email  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Identity returns a stable identifier for the token holder. It prefers the
// subject and falls back to the numeric user id.
func (c *Claims) Identity() string {
	if c.Subject != "" {
		return c.Subject
	}
	if c.UserID > 0 {
		return strconv.FormatInt(c.UserID, 10)
	}
	return ""
}

// VerifyAudience checks if the expected audience is listed in the claims.
func (c *Claims) VerifyAudience(audience string, required bool) bool {
	if len(c.Audience) == 0 {
		return !required
	}

	for _, aud := range c.Audience {
		if aud == audience {
			return true
		}
	}

	return false
}
