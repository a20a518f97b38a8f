// internal/auth/auth.go
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
)

// Authenticator resolves the opaque owner id of a request. Everything below
// the HTTP layer treats that id as a plain string.
type Authenticator interface {
	UserID(r *http.Request) (string, bool)
}

// DevAuth accepts every request as a fixed demo user. Dev mode only.
type DevAuth struct {
	DemoUser string
}

func (a *DevAuth) UserID(_ *http.Request) (string, bool) {
	return a.DemoUser, true
}

// TokenAuth verifies a bearer token of the form "userID:signature" where the
// signature is an HMAC-SHA256 of the user id under the shared secret.
type TokenAuth struct {
	Secret string
}

func NewTokenAuth(secret string) *TokenAuth {
	return &TokenAuth{Secret: secret}
}

func (a *TokenAuth) sign(userID string) string {
	mac := hmac.New(sha256.New, []byte(a.Secret))
	mac.Write([]byte(userID))
	return hex.EncodeToString(mac.Sum(nil))
}

// Token builds a valid token for userID. Used by tests and tooling.
func (a *TokenAuth) Token(userID string) string {
	return fmt.Sprintf("%s:%s", userID, a.sign(userID))
}

func (a *TokenAuth) UserID(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return "", false
	}

	parts := strings.SplitN(token, ":", 2)
	if len(parts) != 2 || parts[0] == "" {
		return "", false
	}
	if !hmac.Equal([]byte(a.sign(parts[0])), []byte(parts[1])) {
		return "", false
	}
	return parts[0], true
}

var (
	_ Authenticator = (*DevAuth)(nil)
	_ Authenticator = (*TokenAuth)(nil)
)
