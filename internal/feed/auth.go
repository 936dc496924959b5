package feed

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// AuthResult is the outcome of an authentication attempt.
type AuthResult struct {
	OK     bool
	Reason string // failure reason, empty on success
}

// Authenticate checks a bearer Authorization header against token.
func Authenticate(token string, r *http.Request) AuthResult {
	if token == "" {
		return AuthResult{Reason: "feed_disabled"}
	}
	scheme, provided, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || provided == "" {
		return AuthResult{Reason: "token_missing"}
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(provided)) != 1 {
		return AuthResult{Reason: "token_mismatch"}
	}
	return AuthResult{OK: true}
}
