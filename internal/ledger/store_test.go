package ledger

import (
	"context"
	"errors"
	"testing"

	"hisab/internal/core"
	"hisab/internal/storage"
)

func openEmpty(t *testing.T) (*Store, *storage.MemoryKV) {
	t.Helper()
	kv := storage.NewMemoryKV()
	s, err := Open(context.Background(), kv, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s, kv
}

// openBlank opens a store with seed data stripped, for tests that need a
// clean roster.
func openBlank(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	kv := storage.NewMemoryKV()
	putDoc(t, kv, storage.NamespaceMembers, encodeMembers(t, nil))
	putDoc(t, kv, storage.NamespaceExpenses, encodeExpenses(t, nil))
	s, err := Open(ctx, kv, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s
}

func encodeMembers(t *testing.T, members []core.Member) []byte {
	t.Helper()
	payload, err := storage.EncodeMembers(members)
	if err != nil {
		t.Fatalf("encode members: %v", err)
	}
	return payload
}

func encodeExpenses(t *testing.T, expenses []core.Expense) []byte {
	t.Helper()
	payload, err := storage.EncodeExpenses(expenses)
	if err != nil {
		t.Fatalf("encode expenses: %v", err)
	}
	return payload
}

func putDoc(t *testing.T, kv storage.KV, namespace string, payload []byte) {
	t.Helper()
	if err := kv.Put(context.Background(), namespace, payload); err != nil {
		t.Fatalf("put %s: %v", namespace, err)
	}
}

func TestOpenFallsBackToSeed(t *testing.T) {
	s, _ := openEmpty(t)
	snap := s.Snapshot()

	if len(snap.Members) != 5 {
		t.Fatalf("seed roster has %d members, want 5", len(snap.Members))
	}
	if len(snap.Expenses) != 2 {
		t.Fatalf("seed has %d expenses, want 2", len(snap.Expenses))
	}
	if snap.Settings.Currency != "₹" {
		t.Errorf("seed currency = %q", snap.Settings.Currency)
	}
	if snap.Expenses[0].Cost != 1500 || snap.Expenses[1].Cost != 800 {
		t.Errorf("seed expense costs = %v, %v", snap.Expenses[0].Cost, snap.Expenses[1].Cost)
	}
}

func TestOpenSurvivesCorruptNamespace(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()
	putDoc(t, kv, storage.NamespaceMembers, []byte("{{{ not json"))
	putDoc(t, kv, storage.NamespaceExpenses, []byte(`{"version":42}`))

	s, err := Open(ctx, kv, nil)
	if err != nil {
		t.Fatalf("Open should recover from corrupt blobs, got %v", err)
	}

	snap := s.Snapshot()
	if len(snap.Members) != 5 || len(snap.Expenses) != 2 {
		t.Fatalf("expected seed fallback, got %d members / %d expenses", len(snap.Members), len(snap.Expenses))
	}

	// The fallback must be persisted so the corrupt blob is gone.
	payload, err := kv.Get(ctx, storage.NamespaceMembers)
	if err != nil {
		t.Fatalf("get members after open: %v", err)
	}
	if _, err := storage.DecodeMembers(payload); err != nil {
		t.Errorf("persisted members still unparseable: %v", err)
	}
}

func TestOpenKeepsPersistedState(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()
	members := []core.Member{{ID: "x", Name: "Asha", Contact: "+91999"}}
	putDoc(t, kv, storage.NamespaceMembers, encodeMembers(t, members))

	s, err := Open(ctx, kv, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	snap := s.Snapshot()
	if len(snap.Members) != 1 || snap.Members[0].Name != "Asha" {
		t.Fatalf("persisted roster not loaded: %+v", snap.Members)
	}
}

func TestAddMember(t *testing.T) {
	ctx := context.Background()
	s := openBlank(t)

	m, err := s.AddMember(ctx, "Rahim", "+8801812345678")
	if err != nil {
		t.Fatalf("AddMember: %v", err)
	}
	if m.ID == "" {
		t.Error("expected assigned id")
	}

	m2, err := s.AddMember(ctx, "Karim", "")
	if err != nil {
		t.Fatalf("AddMember: %v", err)
	}
	if m2.ID == m.ID {
		t.Error("ids must be unique")
	}

	if _, err := s.AddMember(ctx, "   ", ""); !errors.Is(err, core.ErrValidation) {
		t.Errorf("whitespace name: expected ErrValidation, got %v", err)
	}

	snap := s.Snapshot()
	if len(snap.Members) != 2 {
		t.Fatalf("roster has %d members, want 2", len(snap.Members))
	}
}

func TestRenameMember(t *testing.T) {
	ctx := context.Background()
	s := openBlank(t)
	m, _ := s.AddMember(ctx, "Rahim", "")

	if err := s.RenameMember(ctx, m.ID, "Rahim Uddin"); err != nil {
		t.Fatalf("RenameMember: %v", err)
	}
	// Renaming to the same value is a valid no-op.
	if err := s.RenameMember(ctx, m.ID, "Rahim Uddin"); err != nil {
		t.Fatalf("no-op rename: %v", err)
	}
	if err := s.RenameMember(ctx, m.ID, ""); !errors.Is(err, core.ErrValidation) {
		t.Errorf("empty name: expected ErrValidation, got %v", err)
	}
	if err := s.RenameMember(ctx, "missing", "X"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("unknown id: expected ErrNotFound, got %v", err)
	}

	if got := s.Snapshot().Members[0].Name; got != "Rahim Uddin" {
		t.Errorf("name = %q", got)
	}
}

func TestRemoveMemberKeepsContributions(t *testing.T) {
	ctx := context.Background()
	s := openBlank(t)
	a, _ := s.AddMember(ctx, "A", "")
	b, _ := s.AddMember(ctx, "B", "")

	if _, err := s.AddExpense(ctx, core.NewDate(2026, 8, 10), "Dinner", 500, core.Contributions{a.ID: 500}); err != nil {
		t.Fatalf("AddExpense: %v", err)
	}

	if err := s.RemoveMember(ctx, a.ID); err != nil {
		t.Fatalf("RemoveMember: %v", err)
	}
	if err := s.RemoveMember(ctx, a.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("double remove: expected ErrNotFound, got %v", err)
	}

	snap := s.Snapshot()
	if len(snap.Members) != 1 || snap.Members[0].ID != b.ID {
		t.Fatalf("roster after remove: %+v", snap.Members)
	}
	// The removed member's contribution stays on the record.
	if got := snap.Expenses[0].Contributions[a.ID]; got != 500 {
		t.Errorf("dangling contribution = %v, want 500", got)
	}
}

func TestAddExpenseValidation(t *testing.T) {
	ctx := context.Background()
	s := openBlank(t)
	a, _ := s.AddMember(ctx, "A", "")
	b, _ := s.AddMember(ctx, "B", "")

	tests := []struct {
		name     string
		details  string
		cost     float64
		contribs core.Contributions
		wantErr  bool
	}{
		{"single contributor", "Rent", 1200, core.Contributions{a.ID: 1200}, false},
		{"split contributors", "Food", 800, core.Contributions{a.ID: 400, b.ID: 400}, false},
		{"zero entry dropped", "Gas", 300, core.Contributions{a.ID: 300, b.ID: 0}, false},
		{"sum mismatch", "Net", 600, core.Contributions{a.ID: 500}, true},
		{"empty details", "  ", 100, core.Contributions{a.ID: 100}, true},
		{"zero cost", "Nothing", 0, core.Contributions{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := len(s.Snapshot().Expenses)
			_, err := s.AddExpense(ctx, core.NewDate(2026, 8, 12), tt.details, tt.cost, tt.contribs)
			after := len(s.Snapshot().Expenses)

			if tt.wantErr {
				if !errors.Is(err, core.ErrValidation) {
					t.Fatalf("expected ErrValidation, got %v", err)
				}
				if after != before {
					t.Error("rejected write must leave state unchanged")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if after != before+1 {
				t.Error("accepted write must append exactly one record")
			}
		})
	}
}

func TestAddExpenseDropsZeroEntries(t *testing.T) {
	ctx := context.Background()
	s := openBlank(t)
	a, _ := s.AddMember(ctx, "A", "")
	b, _ := s.AddMember(ctx, "B", "")

	e, err := s.AddExpense(ctx, core.NewDate(2026, 8, 12), "Gas", 300, core.Contributions{a.ID: 300, b.ID: 0})
	if err != nil {
		t.Fatalf("AddExpense: %v", err)
	}
	if _, ok := e.Contributions[b.ID]; ok {
		t.Error("zero contribution entry must be omitted, not stored")
	}
	if len(e.Contributions) != 1 {
		t.Errorf("contributions = %+v", e.Contributions)
	}
}

func TestUpdateExpenseFullReplacement(t *testing.T) {
	ctx := context.Background()
	s := openBlank(t)
	a, _ := s.AddMember(ctx, "A", "")
	b, _ := s.AddMember(ctx, "B", "")
	e, _ := s.AddExpense(ctx, core.NewDate(2026, 8, 1), "Rent", 1200, core.Contributions{a.ID: 1200})

	err := s.UpdateExpense(ctx, e.ID, core.NewDate(2026, 8, 2), "Rent + bills", 1400, core.Contributions{a.ID: 700, b.ID: 700})
	if err != nil {
		t.Fatalf("UpdateExpense: %v", err)
	}

	got := s.Snapshot().Expenses[0]
	if got.Cost != 1400 || got.Details != "Rent + bills" || len(got.Contributions) != 2 {
		t.Errorf("record not fully replaced: %+v", got)
	}

	// Invalid replacement leaves the record alone.
	err = s.UpdateExpense(ctx, e.ID, core.NewDate(2026, 8, 2), "Broken", 1000, core.Contributions{a.ID: 1})
	if !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if got := s.Snapshot().Expenses[0]; got.Cost != 1400 {
		t.Errorf("rejected update mutated the record: %+v", got)
	}

	err = s.UpdateExpense(ctx, "missing", core.NewDate(2026, 8, 2), "X", 10, core.Contributions{a.ID: 10})
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRemoveExpense(t *testing.T) {
	ctx := context.Background()
	s := openBlank(t)
	a, _ := s.AddMember(ctx, "A", "")
	e, _ := s.AddExpense(ctx, core.NewDate(2026, 8, 1), "Rent", 1200, core.Contributions{a.ID: 1200})

	if err := s.RemoveExpense(ctx, e.ID); err != nil {
		t.Fatalf("RemoveExpense: %v", err)
	}
	if err := s.RemoveExpense(ctx, e.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if n := len(s.Snapshot().Expenses); n != 0 {
		t.Errorf("expenses after remove = %d", n)
	}
}

func TestSnapshotIsolation(t *testing.T) {
	ctx := context.Background()
	s := openBlank(t)
	a, _ := s.AddMember(ctx, "A", "")
	s.AddExpense(ctx, core.NewDate(2026, 8, 1), "Rent", 1200, core.Contributions{a.ID: 1200})

	snap := s.Snapshot()
	snap.Members[0].Name = "tampered"
	snap.Expenses[0].Contributions[a.ID] = 9999

	fresh := s.Snapshot()
	if fresh.Members[0].Name == "tampered" {
		t.Error("snapshot shares member backing array with store")
	}
	if fresh.Expenses[0].Contributions[a.ID] != 1200 {
		t.Error("snapshot shares contribution map with store")
	}
}

func TestSubscribeReceivesChanges(t *testing.T) {
	ctx := context.Background()
	s := openBlank(t)

	ch, cancel := s.Subscribe()
	defer cancel()

	m, err := s.AddMember(ctx, "A", "")
	if err != nil {
		t.Fatalf("AddMember: %v", err)
	}

	c := <-ch
	if c.Namespace != storage.NamespaceMembers || c.Op != "add" || c.EntityID != m.ID {
		t.Errorf("change = %+v", c)
	}

	s.Reload(ctx)
	c = <-ch
	if c.Op != "reload" {
		t.Errorf("expected reload change, got %+v", c)
	}
}

func TestFailedMutatorDoesNotNotify(t *testing.T) {
	ctx := context.Background()
	s := openBlank(t)

	ch, cancel := s.Subscribe()
	defer cancel()

	if _, err := s.AddMember(ctx, "", ""); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}

	select {
	case c := <-ch:
		t.Fatalf("rejected mutation emitted change %+v", c)
	default:
	}
}

func TestReloadPicksUpExternalWrite(t *testing.T) {
	ctx := context.Background()
	s, kv := openEmpty(t)

	// Another process writes the members namespace behind our back.
	members := []core.Member{{ID: "ext", Name: "External"}}
	putDoc(t, kv, storage.NamespaceMembers, encodeMembers(t, members))

	s.Reload(ctx)

	snap := s.Snapshot()
	if len(snap.Members) != 1 || snap.Members[0].ID != "ext" {
		t.Fatalf("reload did not pick up external state: %+v", snap.Members)
	}
}

func TestUpdateSettings(t *testing.T) {
	ctx := context.Background()
	s, _ := openEmpty(t)

	if err := s.UpdateSettings(ctx, core.Settings{Currency: "৳", Timezone: "Asia/Dhaka", Theme: "dark"}); err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}
	if got := s.Snapshot().Settings.Currency; got != "৳" {
		t.Errorf("currency = %q", got)
	}
	if err := s.UpdateSettings(ctx, core.Settings{}); !errors.Is(err, core.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}
