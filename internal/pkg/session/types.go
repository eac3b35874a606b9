// internal/pkg/session/types.go
package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Credential is the bearer token a request or websocket connection acts
// with. The zero value is an anonymous visitor.
type Credential struct {
	Token      string    `json:"-"`
	IdentityID string    `json:"identity_id"`
	Email      string    `json:"email,omitempty"`
	ExpiresAt  time.Time `json:"expires_at"`
	// Verified is set when the token signature was checked. Otherwise the
	// identity is only what the token claims.
	Verified bool `json:"-"`
}

func (c Credential) Authenticated() bool {
	return c.Token != ""
}

// Key identifies the session behind the credential. Two connections with
// the same token share favorites and are invalidated together.
func (c Credential) Key() string {
	if c.Token == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(c.Token))
	return hex.EncodeToString(sum[:16])
}

// Expired reports whether the credential carries an expiry that has passed.
func (c Credential) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

type credentialKey struct{}

func WithCredential(ctx context.Context, c Credential) context.Context {
	return context.WithValue(ctx, credentialKey{}, c)
}

// FromContext returns the credential stored in ctx, or an anonymous one.
func FromContext(ctx context.Context) Credential {
	c, _ := ctx.Value(credentialKey{}).(Credential)
	return c
}
