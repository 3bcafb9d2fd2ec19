// Package worker runs the settlement notifier: it watches the ledger for
// changes and re-renders every member's settlement notice once the ledger
// goes quiet. Handing the rendered text to an external channel is left to
// the dispatching collaborator; this worker logs what it would send.
package worker

import (
	"context"
	"log/slog"
	"time"

	"hisab/internal/ledger"
	"hisab/internal/metrics"
	"hisab/internal/notify"
	"hisab/internal/settlement"
)

type Notifier struct {
	store    *ledger.Store
	rec      metrics.Recorder
	debounce time.Duration
}

func NewNotifier(store *ledger.Store, rec metrics.Recorder, debounce time.Duration) *Notifier {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &Notifier{store: store, rec: rec, debounce: debounce}
}

// Run blocks until the context is cancelled. A burst of mutations renders
// notices once, after the debounce window closes.
func (n *Notifier) Run(ctx context.Context) error {
	changes, cancel := n.store.Subscribe()
	defer cancel()

	timer := time.NewTimer(n.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	pending := false

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping notifier", "reason", ctx.Err())
			return ctx.Err()

		case c, ok := <-changes:
			if !ok {
				return nil
			}
			slog.DebugContext(ctx, "Ledger changed", "namespace", c.Namespace, "op", c.Op)
			if pending && !timer.Stop() {
				<-timer.C
			}
			timer.Reset(n.debounce)
			pending = true

		case <-timer.C:
			pending = false
			n.renderNotices(ctx)
		}
	}
}

func (n *Notifier) renderNotices(ctx context.Context) {
	snap := n.store.Snapshot()
	summary := settlement.Summarize(snap.Members, snap.Expenses, nil)

	plan, err := settlement.Plan(summary)
	if err != nil {
		// A broken zero-sum means the balances are wrong; do not notify
		// anyone off them.
		slog.ErrorContext(ctx, "Settlement plan failed, skipping notices", "error", err)
		return
	}

	slog.InfoContext(ctx, "Rendering settlement notices",
		"members", summary.MemberCount,
		"total_expense", summary.TotalExpense,
		"transactions", len(plan))

	for _, notice := range notify.RenderAll(summary, snap.Settings, time.Now()) {
		n.rec.RecordNoticeRendered()
		if notice.Contact == "" {
			slog.WarnContext(ctx, "Member has no contact, notice not dispatchable",
				"member_id", notice.MemberID, "name", notice.Name)
			continue
		}
		slog.InfoContext(ctx, "Notice ready",
			"member_id", notice.MemberID,
			"name", notice.Name,
			"contact", notice.Contact,
			"body", notice.Body)
	}
}
