// Package http exposes the ledger and settlement engine to collaborators
// as a JSON API. Handlers validate nothing beyond shape; all invariants
// are enforced by the ledger store at the write boundary.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"hisab/internal/ledger"
	"hisab/internal/metrics"
)

// Server wires the ledger store into HTTP handlers.
type Server struct {
	store *ledger.Store
	rec   metrics.Recorder
	start time.Time
}

// NewServer builds the API server. metricsHandler serves /metrics and may
// be nil when metrics are disabled.
func NewServer(addr string, store *ledger.Store, rec metrics.Recorder, metricsHandler http.Handler) *http.Server {
	if rec == nil {
		rec = metrics.Nop{}
	}
	s := &Server{store: store, rec: rec, start: time.Now()}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	if metricsHandler != nil {
		mux.Handle("GET /metrics", metricsHandler)
	}

	mux.HandleFunc("GET /api/members", s.handleListMembers)
	mux.HandleFunc("POST /api/members", s.handleAddMember)
	mux.HandleFunc("PUT /api/members/{id}", s.handleRenameMember)
	mux.HandleFunc("DELETE /api/members/{id}", s.handleRemoveMember)

	mux.HandleFunc("GET /api/expenses", s.handleListExpenses)
	mux.HandleFunc("POST /api/expenses", s.handleAddExpense)
	mux.HandleFunc("PUT /api/expenses/{id}", s.handleUpdateExpense)
	mux.HandleFunc("DELETE /api/expenses/{id}", s.handleRemoveExpense)

	mux.HandleFunc("GET /api/settlement", s.handleSettlement)
	mux.HandleFunc("GET /api/settlement/plan", s.handleSettlementPlan)
	mux.HandleFunc("GET /api/settlement/notice/{memberID}", s.handleSettlementNotice)

	mux.HandleFunc("GET /api/settings", s.handleGetSettings)
	mux.HandleFunc("PUT /api/settings", s.handleUpdateSettings)

	return &http.Server{
		Addr:    addr,
		Handler: requestLogging(mux),
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.start).String(),
	})
}

// requestLogging logs every request with its duration.
func requestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("Request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// Handler exposes the configured mux for tests.
func Handler(store *ledger.Store, rec metrics.Recorder) http.Handler {
	return NewServer(":0", store, rec, nil).Handler
}
