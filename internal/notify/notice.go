// Package notify renders computed member balances into human-readable
// settlement notices. It is the text-generation half of the notification
// contract; actually dispatching the message over an external channel is
// the collaborator's job.
package notify

import (
	"fmt"
	"math"
	"strings"
	"time"

	"hisab/internal/core"
	"hisab/internal/settlement"
)

// Statuses shown on a notice. A balance inside the settled noise floor
// counts as receivable with a zero amount, mirroring the sign convention
// of the balance itself.
const (
	StatusReceivable = "Receivable (Extra Paid)"
	StatusPayable    = "Payable (Due Amount)"
)

// Notice is one rendered settlement message plus the routing detail the
// dispatching collaborator needs.
type Notice struct {
	MemberID string
	Name     string
	Contact  string
	Body     string
}

// Render builds the settlement notice for one member balance. The month
// header comes from now interpreted in the configured timezone; an
// unknown timezone falls back to UTC.
func Render(mb core.MemberBalance, s settlement.Summary, settings core.Settings, now time.Time) Notice {
	loc, err := time.LoadLocation(settings.Timezone)
	if err != nil {
		loc = time.UTC
	}
	month := now.In(loc).Format("January, 2006")

	status := StatusReceivable
	if mb.Balance < 0 {
		status = StatusPayable
	}
	cur := settings.Currency
	amount := fmt.Sprintf("%s%.2f", cur, math.Abs(mb.Balance))

	var b strings.Builder
	fmt.Fprintf(&b, "*SETTLEMENT NOTICE: %s*\n\n", strings.ToUpper(month))
	fmt.Fprintf(&b, "Hello *%s*,\n", mb.Name)
	b.WriteString("Here is your summary for the current month:\n\n")
	fmt.Fprintf(&b, "- Total Group Expense: %s%.2f\n", cur, s.TotalExpense)
	fmt.Fprintf(&b, "- Per Person Share: %s%.2f\n", cur, s.PerPersonShare)
	fmt.Fprintf(&b, "- You have Paid: %s%.2f\n", cur, mb.Paid)
	b.WriteString("----------------------------\n")
	fmt.Fprintf(&b, "*STATUS: %s*\n", status)
	fmt.Fprintf(&b, "*AMOUNT: %s*\n", amount)
	b.WriteString("----------------------------\n\n")

	switch {
	case mb.Balance < -settlement.Epsilon:
		b.WriteString("_Please settle your dues at your earliest convenience._\n\n")
	case mb.Balance > settlement.Epsilon:
		b.WriteString("_Thank you for your extra contribution! You will receive this amount during settlement._\n\n")
	}

	b.WriteString("Best Regards,\n*Group Ledger*")

	return Notice{
		MemberID: mb.MemberID,
		Name:     mb.Name,
		Contact:  mb.Contact,
		Body:     b.String(),
	}
}

// RenderAll renders one notice per balance row, in roster order.
func RenderAll(s settlement.Summary, settings core.Settings, now time.Time) []Notice {
	notices := make([]Notice, 0, len(s.Balances))
	for _, mb := range s.Balances {
		notices = append(notices, Render(mb, s, settings, now))
	}
	return notices
}
