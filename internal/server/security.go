// security.go - Response hardening for serving untrusted uploads.
package server

import "net/http"

// securityHeadersMiddleware adds defensive headers to every response. Stored
// content is attacker-supplied, so downloads must never be sniffed or
// rendered in a frame.
func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; sandbox")

		next.ServeHTTP(w, r)
	})
}
