package http

import (
	"net/http"
	"sort"

	"hisab/internal/core"
	"hisab/internal/ledger"
)

type expenseRequest struct {
	Date          core.Date          `json:"date"`
	Details       string             `json:"details"`
	Cost          float64            `json:"cost"`
	Contributions core.Contributions `json:"contributions"`
}

// expenseResponse annotates the record with display names for its
// contributors. A contribution from a member no longer on the roster is
// shown as Unknown but still counts toward every total.
type expenseResponse struct {
	core.Expense
	Contributors []string `json:"contributors"`
}

// parseRange reads the optional inclusive from/to query parameters.
func parseRange(r *http.Request) (*core.DateRange, error) {
	fromStr := r.URL.Query().Get("from")
	toStr := r.URL.Query().Get("to")
	if fromStr == "" && toStr == "" {
		return nil, nil
	}

	var rng core.DateRange
	if fromStr != "" {
		from, err := core.ParseDate(fromStr)
		if err != nil {
			return nil, err
		}
		rng.From = from
	}
	if toStr != "" {
		to, err := core.ParseDate(toStr)
		if err != nil {
			return nil, err
		}
		rng.To = to
	}
	return &rng, nil
}

func contributorNames(e core.Expense, snap ledger.Snapshot) []string {
	byID := make(map[string]string, len(snap.Members))
	for _, m := range snap.Members {
		byID[m.ID] = m.Name
	}

	ids := make([]string, 0, len(e.Contributions))
	for id := range e.Contributions {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if name, ok := byID[id]; ok {
			names = append(names, name)
		} else {
			names = append(names, "Unknown")
		}
	}
	return names
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	rng, err := parseRange(r)
	if err != nil {
		writeError(w, err)
		return
	}

	snap := s.store.Snapshot()
	out := make([]expenseResponse, 0, len(snap.Expenses))
	for _, e := range snap.Expenses {
		if rng != nil && !e.Date.In(*rng) {
			continue
		}
		out = append(out, expenseResponse{Expense: e, Contributors: contributorNames(e, snap)})
	}

	// Storage keeps insertion order; readers see newest first.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.After(out[j].Date.Time)
	})

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAddExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	e, err := s.store.AddExpense(r.Context(), req.Date, req.Details, req.Cost, req.Contributions)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	err := s.store.UpdateExpense(r.Context(), r.PathValue("id"), req.Date, req.Details, req.Cost, req.Contributions)
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRemoveExpense(w http.ResponseWriter, r *http.Request) {
	if err := s.store.RemoveExpense(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
