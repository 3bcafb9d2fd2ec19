// Package settlement computes derived balances from a ledger snapshot and
// turns them into a minimal payment plan. Everything here is a pure function
// of its inputs; nothing is cached or persisted, so every read recomputes
// from the current snapshot.
package settlement

import (
	"sort"

	"hisab/internal/core"
)

// Epsilon is the noise floor below which a balance is treated as settled.
const Epsilon = 0.01

// Party is one side of the payer/receiver partition with its remaining
// balance magnitude.
type Party struct {
	MemberID string
	Name     string
	Balance  float64
}

// Summary is the full derived settlement state for one snapshot.
type Summary struct {
	TotalExpense   float64              `json:"total_expense"`
	PerPersonShare float64              `json:"per_person_share"`
	MemberCount    int                  `json:"member_count"`
	ExpenseCount   int                  `json:"expense_count"`
	Balances       []core.MemberBalance `json:"balances"`

	// Receivers holds members owed money, sorted descending by balance.
	// Payers holds members owing money, sorted ascending (most negative
	// first). Balances preserves the roster's natural order instead.
	Receivers []Party `json:"-"`
	Payers    []Party `json:"-"`
}

// Summarize derives totals and per-member balances from the given members
// and expenses, optionally restricted to an inclusive date range. Expenses
// keep counting contributions from deleted members, so a member missing
// from the roster still affects TotalExpense but gets no balance row.
func Summarize(members []core.Member, expenses []core.Expense, filter *core.DateRange) Summary {
	var (
		total    float64
		inScope  int
		paidByID = make(map[string]float64, len(members))
	)
	for _, e := range expenses {
		if filter != nil && !e.Date.In(*filter) {
			continue
		}
		inScope++
		total += e.Cost
		for id, amount := range e.Contributions {
			paidByID[id] += amount
		}
	}

	// Equal split across the current roster. An empty roster is a defined
	// edge case: share stays 0 and there are no balances to compute.
	var share float64
	if len(members) > 0 {
		share = total / float64(len(members))
	}

	s := Summary{
		TotalExpense:   total,
		PerPersonShare: share,
		MemberCount:    len(members),
		ExpenseCount:   inScope,
		Balances:       make([]core.MemberBalance, 0, len(members)),
	}

	for _, m := range members {
		paid := paidByID[m.ID]
		mb := core.MemberBalance{
			MemberID: m.ID,
			Name:     m.Name,
			Contact:  m.Contact,
			Paid:     paid,
			Share:    share,
			Balance:  paid - share,
		}
		s.Balances = append(s.Balances, mb)

		switch {
		case mb.Balance > Epsilon:
			s.Receivers = append(s.Receivers, Party{MemberID: m.ID, Name: m.Name, Balance: mb.Balance})
		case mb.Balance < -Epsilon:
			s.Payers = append(s.Payers, Party{MemberID: m.ID, Name: m.Name, Balance: mb.Balance})
		}
	}

	// Stable sorts keep roster order as the tie-break so the plan is
	// reproducible run to run.
	sort.SliceStable(s.Receivers, func(i, j int) bool {
		return s.Receivers[i].Balance > s.Receivers[j].Balance
	})
	sort.SliceStable(s.Payers, func(i, j int) bool {
		return s.Payers[i].Balance < s.Payers[j].Balance
	})

	return s
}
