package settlement

import (
	"fmt"
	"math"

	"hisab/internal/core"
)

// Plan converts the summary's payer/receiver partitions into an ordered
// list of point-to-point transactions that zeroes every balance.
//
// Greedy two-pointer matching: the most-negative payer is matched against
// the most-positive receiver, paying min(|payer|, receiver) each step. The
// loop runs on mutable remaining-balance copies, never on the summary
// itself, and emits at most len(payers)+len(receivers)-1 transactions.
func Plan(s Summary) ([]core.Transaction, error) {
	owed := make([]float64, len(s.Payers))
	for i, p := range s.Payers {
		owed[i] = -p.Balance
	}
	due := make([]float64, len(s.Receivers))
	for i, r := range s.Receivers {
		due[i] = r.Balance
	}

	var plan []core.Transaction
	i, j := 0, 0
	for i < len(owed) && j < len(due) {
		amount := math.Min(owed[i], due[j])
		if amount > Epsilon {
			plan = append(plan, core.Transaction{
				FromMemberID: s.Payers[i].MemberID,
				ToMemberID:   s.Receivers[j].MemberID,
				Amount:       amount,
			})
		}

		owed[i] -= amount
		due[j] -= amount
		if owed[i] <= Epsilon {
			i++
		}
		if due[j] <= Epsilon {
			j++
		}
	}

	// Both sides must run out together: total payer deficit equals total
	// receiver surplus when the upstream balances sum to zero. A residual
	// here means the zero-sum invariant was violated before we got the
	// snapshot, and a wrong plan must not be emitted.
	if residual := remaining(owed, i) + remaining(due, j); residual > Epsilon {
		return nil, fmt.Errorf("%w: unmatched settlement residual %.2f", core.ErrInconsistent, residual)
	}

	return plan, nil
}

func remaining(amounts []float64, from int) float64 {
	var total float64
	for _, a := range amounts[from:] {
		total += a
	}
	return total
}
