package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/kiranshivaraju/artscan/internal/api/response"
	"golang.org/x/crypto/bcrypt"
)

const keyPrefixLen = 8

// Auth checks API keys against bcrypt hashes from configuration.
type Auth struct {
	hashes [][]byte
}

// NewAuth creates the auth middleware. With no hashes every request is let
// through and rate limited by client address instead of key.
func NewAuth(hashes []string) *Auth {
	a := &Auth{}
	for _, h := range hashes {
		a.hashes = append(a.hashes, []byte(h))
	}
	return a
}

// Enabled reports whether any key is configured.
func (a *Auth) Enabled() bool { return len(a.hashes) > 0 }

// Authenticate validates a Bearer token or X-API-Key header and records the
// caller's identity in the request context.
func (a *Auth) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.Enabled() {
			r = r.WithContext(setClientID(r.Context(), "ip:"+remoteHost(r)))
			next.ServeHTTP(w, r)
			return
		}

		rawKey := extractKey(r)
		if rawKey == "" {
			response.Error(w, http.StatusUnauthorized,
				"INVALID_TOKEN", "Missing or invalid Authorization header", nil)
			return
		}

		if len(rawKey) < keyPrefixLen {
			response.Error(w, http.StatusUnauthorized,
				"INVALID_TOKEN", "Invalid API key format", nil)
			return
		}

		for _, hash := range a.hashes {
			if bcrypt.CompareHashAndPassword(hash, []byte(rawKey)) == nil {
				r = r.WithContext(setClientID(r.Context(), "key:"+rawKey[:keyPrefixLen]))
				next.ServeHTTP(w, r)
				return
			}
		}

		response.Error(w, http.StatusUnauthorized,
			"INVALID_TOKEN", "Invalid API key", nil)
	})
}

func extractKey(r *http.Request) string {
	if k := strings.TrimSpace(r.Header.Get("X-API-Key")); k != "" {
		return k
	}
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
