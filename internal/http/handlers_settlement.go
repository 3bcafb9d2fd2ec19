package http

import (
	"fmt"
	"net/http"
	"time"

	"hisab/internal/core"
	"hisab/internal/notify"
	"hisab/internal/settlement"
)

func (s *Server) handleSettlement(w http.ResponseWriter, r *http.Request) {
	rng, err := parseRange(r)
	if err != nil {
		writeError(w, err)
		return
	}

	snap := s.store.Snapshot()
	start := time.Now()
	summary := settlement.Summarize(snap.Members, snap.Expenses, rng)
	s.rec.RecordSettlement(0, time.Since(start))

	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleSettlementPlan(w http.ResponseWriter, r *http.Request) {
	rng, err := parseRange(r)
	if err != nil {
		writeError(w, err)
		return
	}

	snap := s.store.Snapshot()
	start := time.Now()
	summary := settlement.Summarize(snap.Members, snap.Expenses, rng)
	plan, err := settlement.Plan(summary)
	if err != nil {
		writeError(w, err)
		return
	}
	s.rec.RecordSettlement(len(plan), time.Since(start))

	writeJSON(w, http.StatusOK, map[string]any{
		"total_expense":    summary.TotalExpense,
		"per_person_share": summary.PerPersonShare,
		"transactions":     plan,
	})
}

func (s *Server) handleSettlementNotice(w http.ResponseWriter, r *http.Request) {
	memberID := r.PathValue("memberID")

	snap := s.store.Snapshot()
	summary := settlement.Summarize(snap.Members, snap.Expenses, nil)

	for _, mb := range summary.Balances {
		if mb.MemberID != memberID {
			continue
		}
		n := notify.Render(mb, summary, snap.Settings, time.Now())
		s.rec.RecordNoticeRendered()
		writeJSON(w, http.StatusOK, map[string]string{
			"member_id": n.MemberID,
			"name":      n.Name,
			"contact":   n.Contact,
			"body":      n.Body,
		})
		return
	}

	writeError(w, fmt.Errorf("%w: member %s", core.ErrNotFound, memberID))
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Snapshot().Settings)
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req core.Settings
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := s.store.UpdateSettings(r.Context(), req); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}
