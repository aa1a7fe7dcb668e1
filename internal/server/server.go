package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"
)

type Server struct {
	httpServer *http.Server
}

// New wires the routes and middleware. The chain in front of the mux is
// requestID -> logging -> security headers -> activity -> quota -> handlers;
// activity is stamped before the quota decision for every file-transfer
// request.
func New(cfg Config, quota *QuotaStore, index *FileIndex, activity *ActivityTracker) *Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "ok",
		})
	})
	mux.Handle("GET /metrics", metricsHandler())

	mux.Handle("POST /files/{$}", uploadHandler(index, cfg.SecretKey, cfg.MaxUploadBytes))
	mux.Handle("GET /files/{publicKey}", downloadHandler(index))
	mux.Handle("DELETE /files/{privateKey}", deleteHandler(index))

	enforcer := &quotaEnforcer{store: quota, index: index, limitBytes: cfg.DailyLimitBytes()}

	var handler http.Handler = mux
	handler = enforcer.middleware(handler)
	handler = activityMiddleware(activity, handler)
	handler = securityHeadersMiddleware(handler)
	handler = loggingMiddleware(handler)
	handler = requestIDMiddleware(handler)

	s := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return &Server{httpServer: s}
}

// Handler exposes the full middleware chain, used by the tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	return s.httpServer.Serve(ln)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
