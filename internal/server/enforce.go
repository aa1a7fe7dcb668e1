// enforce.go - Activity stamping and daily quota enforcement.
//
// Both middlewares sit in front of the file-transfer routes. Activity is
// stamped first, then the quota decision is made, and only then does the
// request reach its handler. Transfers are charged at decision time, before
// any bytes move; a download that later fails to stream stays charged.
//
// The check-then-increment cycle is not atomic across requests: two
// concurrent requests from one client can both pass the check before either
// increments, overshooting the limit by up to one request. Accepted bound
// for a single-process deployment.
package server

import (
	"fmt"
	"net/http"
	"strings"
)

const filesRoute = "/files"

const bytesPerMB = 1 << 20

// isFilesRoute reports whether the path targets the file-transfer routes.
func isFilesRoute(path string) bool {
	return path == filesRoute || strings.HasPrefix(path, filesRoute+"/")
}

// activityMiddleware stamps the last-activity clock whenever a
// file-transfer route is hit, before the quota check runs.
func activityMiddleware(activity *ActivityTracker, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isFilesRoute(r.URL.Path) {
			activity.Touch()
		}
		next.ServeHTTP(w, r)
	})
}

// quotaEnforcer accepts or rejects transfers against the daily per-client
// allowance.
type quotaEnforcer struct {
	store      *QuotaStore
	index      *FileIndex
	limitBytes int64
}

func (e *quotaEnforcer) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Deletes and non-transfer routes carry no accounting.
		if !isFilesRoute(r.URL.Path) || r.Method == http.MethodDelete {
			next.ServeHTTP(w, r)
			return
		}

		client := clientIP(r)
		remaining := e.limitBytes - e.store.UsedBytes(client)

		switch r.Method {
		case http.MethodPost:
			declared := r.ContentLength
			if declared < 0 {
				// Unknown length cannot be charged up front.
				declared = 0
			}
			if declared > remaining {
				e.reject(w, r, client, declared, remaining)
				return
			}
			e.store.AddUsage(client, declared)

		case http.MethodGet:
			publicKey := strings.TrimPrefix(r.URL.Path, filesRoute+"/")
			if !isHexKey(publicKey) {
				break // downstream handler returns not-found
			}
			entry, found, err := e.index.FindByPublicKey(r.Context(), publicKey)
			if err != nil || !found {
				break // downstream handler reports the outcome
			}
			size, err := e.index.SizeOf(r.Context(), entry)
			if err != nil {
				break
			}
			if size > remaining {
				e.reject(w, r, client, size, remaining)
				return
			}
			e.store.AddUsage(client, size)
		}

		next.ServeHTTP(w, r)
	})
}

// reject sends the quota-exceeded signal: 403 with a human-readable message
// carrying attempted and remaining size in MB.
func (e *quotaEnforcer) reject(w http.ResponseWriter, r *http.Request, client string, attempted, remaining int64) {
	if remaining < 0 {
		remaining = 0
	}
	GetMetrics().RecordQuotaRejection()
	Info("quota exceeded", map[string]any{
		"rid":       RequestIDFromContext(r.Context()),
		"client":    client,
		"attempted": attempted,
		"remaining": remaining,
	})
	writeJSON(w, http.StatusForbidden, map[string]string{
		"details": fmt.Sprintf("Reached daily limit: attempted %.2f MB with %.2f MB remaining",
			float64(attempted)/bytesPerMB, float64(remaining)/bytesPerMB),
	})
}
