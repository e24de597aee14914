package adminweb

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// Authorizer decides whether a request may manage imports.
type Authorizer interface {
	Authorize(r *http.Request) error
}

// AuthorizerFunc adapts a function to Authorizer.
type AuthorizerFunc func(r *http.Request) error

// Authorize calls f(r).
func (f AuthorizerFunc) Authorize(r *http.Request) error {
	return f(r)
}

// TokenAuthorizer grants access to requests presenting Token either as
// "Authorization: Bearer <token>" or as the HTTP basic auth password.
// An empty Token disables the check; serve refuses that combination on
// anything but a loopback address.
type TokenAuthorizer struct {
	Token string
}

// Authorize implements Authorizer.
func (a TokenAuthorizer) Authorize(r *http.Request) error {
	if a.Token == "" {
		return nil
	}
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		if tokensEqual(strings.TrimPrefix(auth, "Bearer "), a.Token) {
			return nil
		}
		return ErrUnauthorized
	}
	if _, password, ok := r.BasicAuth(); ok && tokensEqual(password, a.Token) {
		return nil
	}
	return ErrUnauthorized
}

func tokensEqual(got, want string) bool {
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
