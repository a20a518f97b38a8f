package auth_test

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kplanner/kplanner-backend/internal/auth"
)

func TestTokenAuthRoundTrip(t *testing.T) {
	a := auth.NewTokenAuth("secret")

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+a.Token("user-42"))

	userID, ok := a.UserID(req)
	assert.True(t, ok)
	assert.Equal(t, "user-42", userID)
}

func TestTokenAuthRejectsBadSignature(t *testing.T) {
	a := auth.NewTokenAuth("secret")
	other := auth.NewTokenAuth("different-secret")

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+other.Token("user-42"))

	_, ok := a.UserID(req)
	assert.False(t, ok)
}

func TestTokenAuthRejectsMalformedHeaders(t *testing.T) {
	a := auth.NewTokenAuth("secret")

	for _, header := range []string{
		"",
		"Bearer ",
		"Bearer no-separator",
		"Basic dXNlcjpwYXNz",
		a.Token("user-42"), // missing Bearer prefix
	} {
		req := httptest.NewRequest("GET", "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		_, ok := a.UserID(req)
		assert.False(t, ok, "header %q should not authenticate", header)
	}
}

func TestDevAuthAlwaysResolves(t *testing.T) {
	a := &auth.DevAuth{DemoUser: "demo"}

	userID, ok := a.UserID(httptest.NewRequest("GET", "/", nil))
	assert.True(t, ok)
	assert.Equal(t, "demo", userID)
}
