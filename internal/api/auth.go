package api

import (
	"net/http"
	"strings"
)

// APIKeyAuth guards device endpoints. The key arrives in the X-API-Key
// header and must be one of the configured keys.
func APIKeyAuth(validKeys []string) func(next http.Handler) http.Handler {
	keys := make(map[string]struct{}, len(validKeys))
	for _, k := range validKeys {
		keys[k] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")
			if key == "" {
				writeError(w, http.StatusUnauthorized, "Missing API key. Please include X-API-Key header.")
				return
			}
			if _, ok := keys[key]; !ok {
				writeError(w, http.StatusUnauthorized, "Invalid API key. Please check your X-API-Key header.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// BearerAuth guards user endpoints. The token must be present, use the
// Bearer scheme, and meet the minimum length; full verification is handled
// by the identity provider upstream.
func BearerAuth(minTokenLength int) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				writeError(w, http.StatusUnauthorized, "Missing authorization token. Please include Authorization: Bearer <token> header.")
				return
			}
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				writeError(w, http.StatusUnauthorized, "Invalid authorization token format. Please use 'Bearer <token>' format.")
				return
			}
			if len(token) < minTokenLength {
				writeError(w, http.StatusUnauthorized, "Invalid token format. Token too short.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// callerIdentity returns the credential identifying the caller for
// request-level rate limiting: the API key when present, otherwise the
// bearer token.
func callerIdentity(r *http.Request) string {
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}
	return r.Header.Get("Authorization")
}
