package middleware

import (
	"crypto/sha256"
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// publicPaths are exempt from API key authentication and rate limiting.
var publicPaths = map[string]bool{
	"/health":       true,
	"/health/ready": true,
}

func isPublicPath(path string) bool { return publicPaths[path] }

// APIKey returns middleware that requires a key matching the bcrypt hash.
// The key is read from X-API-Key, from "Authorization: Bearer", or, for
// WebSocket upgrades on /ws, from the api_key query parameter.
// An empty hash disables authentication.
func APIKey(hash string) func(http.Handler) http.Handler {
	v := &keyVerifier{hash: []byte(hash)}
	return func(next http.Handler) http.Handler {
		if hash == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPublicPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
			key := extractKey(r)
			if key == "" {
				writeJSONError(w, http.StatusUnauthorized, "authorization required")
				return
			}
			if !v.verify(key) {
				writeJSONError(w, http.StatusUnauthorized, "invalid api key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func extractKey(r *http.Request) string {
	if k := r.Header.Get("X-API-Key"); k != "" {
		return k
	}
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	if r.URL.Path == "/ws" {
		return r.URL.Query().Get("api_key")
	}
	return ""
}

// keyVerifier remembers the digest of the last accepted key so that bcrypt
// runs once per distinct key rather than once per request.
type keyVerifier struct {
	hash     []byte
	mu       sync.RWMutex
	accepted [sha256.Size]byte
	known    bool
}

func (v *keyVerifier) verify(key string) bool {
	sum := sha256.Sum256([]byte(key))

	v.mu.RLock()
	hit := v.known && v.accepted == sum
	v.mu.RUnlock()
	if hit {
		return true
	}

	if bcrypt.CompareHashAndPassword(v.hash, []byte(key)) != nil {
		return false
	}
	v.mu.Lock()
	v.accepted, v.known = sum, true
	v.mu.Unlock()
	return true
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
