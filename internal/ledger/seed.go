package ledger

import (
	"time"

	"hisab/internal/core"
)

// Built-in seed dataset used when a persisted namespace is absent or
// unparseable: a small fixed roster and two sample expenses dated in the
// current month.

// SeedMembers returns the default five-member roster.
func SeedMembers() []core.Member {
	return []core.Member{
		{ID: "1", Name: "Member 1"},
		{ID: "2", Name: "Member 2"},
		{ID: "3", Name: "Member 3"},
		{ID: "4", Name: "Member 4"},
		{ID: "5", Name: "Member 5"},
	}
}

// SeedExpenses returns two sample expenses on the first days of the
// current month.
func SeedExpenses() []core.Expense {
	now := time.Now()
	return []core.Expense{
		{
			ID:            "1",
			Date:          core.NewDate(now.Year(), int(now.Month()), 1),
			Details:       "Rice, Oil, Onion",
			Cost:          1500,
			Contributions: core.Contributions{"1": 1500},
		},
		{
			ID:            "2",
			Date:          core.NewDate(now.Year(), int(now.Month()), 2),
			Details:       "Chicken, Potato",
			Cost:          800,
			Contributions: core.Contributions{"2": 400, "3": 400},
		},
	}
}

// SeedSettings returns the default preferences blob.
func SeedSettings() core.Settings {
	return core.Settings{
		Currency: "₹",
		Timezone: "Asia/Kolkata",
		Theme:    "light",
	}
}
