// internal/middleware/helpers.go
package middleware

import (
	"listing-service/internal/pkg/session"

	"github.com/gin-gonic/gin"
)

// GetCredential returns the credential set by Auth or OptionalAuth. It is
// anonymous when neither ran or no token was supplied.
func GetCredential(c *gin.Context) session.Credential {
	v, exists := c.Get(credentialKey)
	if !exists {
		return session.Credential{}
	}

	cred, ok := v.(session.Credential)
	if !ok {
		return session.Credential{}
	}
	return cred
}

// MustGetCredential gets the credential from context or panics
func MustGetCredential(c *gin.Context) session.Credential {
	cred := GetCredential(c)
	if !cred.Authenticated() {
		panic("credential not found in context")
	}
	return cred
}

// IsAuthenticated checks if request is authenticated
func IsAuthenticated(c *gin.Context) bool {
	return GetCredential(c).Authenticated()
}
