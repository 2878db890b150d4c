// Package security guards the API with a single bearer token, verified
// against a bcrypt hash when one is configured.
package security

import (
	"crypto/subtle"
	"net/http"
	"strings"

	logger "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// TokenVerifier checks presented bearer tokens.
type TokenVerifier struct {
	hash  string
	token string
}

// NewTokenVerifier reads the token configuration from the environment.
// With neither hash nor token set, verification is disabled and every
// request passes; this is logged loudly once.
func NewTokenVerifier() *TokenVerifier {
	config := GetConfig()
	v := &TokenVerifier{hash: config.APITokenHash, token: config.APIToken}
	if !v.Enabled() {
		logger.Warn("API token not configured, authentication disabled")
	}
	return v
}

// NewStaticTokenVerifier builds a verifier around a fixed clear token.
func NewStaticTokenVerifier(token string) *TokenVerifier {
	return &TokenVerifier{token: token}
}

func (v *TokenVerifier) Enabled() bool {
	return v.hash != "" || v.token != ""
}

// Verify reports whether the presented token is acceptable.
func (v *TokenVerifier) Verify(presented string) bool {
	if !v.Enabled() {
		return true
	}
	if presented == "" {
		return false
	}
	if v.hash != "" {
		return bcrypt.CompareHashAndPassword([]byte(v.hash), []byte(presented)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(v.token), []byte(presented)) == 1
}

// HashToken produces a bcrypt hash suitable for API_TOKEN_HASH.
func HashToken(token string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Middleware rejects requests without a valid "Authorization: Bearer" token.
func (v *TokenVerifier) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token := ""
		if strings.HasPrefix(header, "Bearer ") {
			token = strings.TrimPrefix(header, "Bearer ")
		}
		if !v.Verify(token) {
			logger.WithField("path", r.URL.Path).Warn("rejected request with invalid token")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
