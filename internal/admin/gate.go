package admin

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2/negotiation"
)

// CookieName is the session cookie that carries the admin secret.
const CookieName = "admin_token"

// ErrUnauthorized is returned when a caller does not present the admin secret.
var ErrUnauthorized = errors.New("admin credentials required")

// Credentials are the admin credentials presented with a single request.
// Either may be empty.
type Credentials struct {
	// Authorization is the raw Authorization header value.
	Authorization string
	// Session is the value of the admin_token cookie.
	Session string
}

// Gate checks credentials against one configured secret.
type Gate struct {
	secret []byte
	maxAge time.Duration
}

// NewGate creates a Gate for secret. Issued session cookies live for maxAge.
func NewGate(secret string, maxAge time.Duration) *Gate {
	return &Gate{secret: []byte(secret), maxAge: maxAge}
}

// IsAdmin reports whether either the bearer token or the session cookie
// equals the secret exactly.
func (g *Gate) IsAdmin(c Credentials) bool {
	if token, ok := strings.CutPrefix(c.Authorization, "Bearer "); ok && g.matches(token) {
		return true
	}
	return g.matches(c.Session)
}

// Require returns ErrUnauthorized unless c is an admin.
func (g *Gate) Require(c Credentials) error {
	if !g.IsAdmin(c) {
		return ErrUnauthorized
	}
	return nil
}

func (g *Gate) matches(token string) bool {
	if token == "" || len(g.secret) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), g.secret) == 1
}

// Login checks a submitted token and, on a match, returns the session cookie
// to set.
func (g *Gate) Login(token string) (*http.Cookie, bool) {
	if !g.matches(token) {
		return nil, false
	}
	return g.sessionCookie(token, int(g.maxAge.Seconds())), true
}

// Logout returns a cookie that clears the admin session.
func (g *Gate) Logout() *http.Cookie {
	return g.sessionCookie("", -1)
}

func (g *Gate) sessionCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	}
}

// PrefersHTML reports whether an Accept header ranks text/html above JSON.
// Callers that send no Accept header are treated as API clients.
func PrefersHTML(accept string) bool {
	if accept == "" {
		return false
	}
	return negotiation.SelectQValue(accept, []string{"application/json", "text/html"}) == "text/html"
}
