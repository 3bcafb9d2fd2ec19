// Package ledger owns the authoritative collections of members and
// expenses. It enforces the structural invariants on every write, persists
// each successful mutation to the key-value medium, and notifies
// subscribers so held settlement views can recompute.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"hisab/internal/core"
	"hisab/internal/metrics"
	"hisab/internal/storage"
)

// Change describes one committed mutation, delivered to subscribers.
type Change struct {
	Namespace string `json:"namespace"` // members, expenses, settings, or ledger for reloads
	Op        string `json:"op"`        // add, rename, remove, update, reload
	EntityID  string `json:"entity_id,omitempty"`
}

// Snapshot is a read-only, point-in-time copy of the ledger. All settlement
// reads must derive from a single Snapshot call so a member list from one
// instant is never mixed with expenses from another.
type Snapshot struct {
	Members  []core.Member
	Expenses []core.Expense
	Settings core.Settings
}

// Store is the ledger store. Mutators are serialized under one mutex; each
// one persists before committing in memory, so a failed write leaves the
// ledger untouched.
type Store struct {
	mu       sync.Mutex
	kv       storage.KV
	rec      metrics.Recorder
	members  []core.Member
	expenses []core.Expense
	settings core.Settings

	subMu   sync.Mutex
	subs    map[int]chan Change
	nextSub int
}

// Open loads the ledger from the persistence medium. A namespace that is
// absent or fails to parse is replaced by the built-in seed dataset; the
// corrupt payload is logged and discarded, never surfaced to the caller.
func Open(ctx context.Context, kv storage.KV, rec metrics.Recorder) (*Store, error) {
	if rec == nil {
		rec = metrics.Nop{}
	}
	s := &Store{
		kv:   kv,
		rec:  rec,
		subs: make(map[int]chan Change),
	}
	s.load(ctx)
	if err := s.persistAll(ctx); err != nil {
		return nil, fmt.Errorf("persist initial ledger state: %w", err)
	}
	return s, nil
}

func (s *Store) load(ctx context.Context) {
	s.members = loadNamespace(ctx, s.kv, storage.NamespaceMembers, storage.DecodeMembers, SeedMembers)
	s.expenses = loadNamespace(ctx, s.kv, storage.NamespaceExpenses, storage.DecodeExpenses, SeedExpenses)
	s.settings = loadNamespace(ctx, s.kv, storage.NamespaceSettings, storage.DecodeSettings, SeedSettings)
}

func loadNamespace[T any](ctx context.Context, kv storage.KV, namespace string, decode func([]byte) (T, error), seed func() T) T {
	payload, err := kv.Get(ctx, namespace)
	if err != nil {
		slog.InfoContext(ctx, "Namespace absent, using seed data", "namespace", namespace, "reason", err)
		return seed()
	}
	value, err := decode(payload)
	if err != nil {
		slog.WarnContext(ctx, "Discarding unparseable namespace, using seed data", "namespace", namespace, "error", err)
		return seed()
	}
	return value
}

func (s *Store) persistAll(ctx context.Context) error {
	if err := s.persistMembers(ctx); err != nil {
		return err
	}
	if err := s.persistExpenses(ctx); err != nil {
		return err
	}
	return s.persistSettings(ctx)
}

func (s *Store) persistMembers(ctx context.Context) error {
	payload, err := storage.EncodeMembers(s.members)
	if err != nil {
		return fmt.Errorf("encode members: %w", err)
	}
	return s.kv.Put(ctx, storage.NamespaceMembers, payload)
}

func (s *Store) persistExpenses(ctx context.Context) error {
	payload, err := storage.EncodeExpenses(s.expenses)
	if err != nil {
		return fmt.Errorf("encode expenses: %w", err)
	}
	return s.kv.Put(ctx, storage.NamespaceExpenses, payload)
}

func (s *Store) persistSettings(ctx context.Context) error {
	payload, err := storage.EncodeSettings(s.settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	return s.kv.Put(ctx, storage.NamespaceSettings, payload)
}

// Subscribe registers a change listener. The returned cancel function must
// be called when the listener goes away. Slow listeners lose events rather
// than blocking mutators.
func (s *Store) Subscribe() (<-chan Change, func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan Change, 16)
	s.subs[id] = ch

	cancel := func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		if _, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(ch)
		}
	}
	return ch, cancel
}

func (s *Store) notify(c Change) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- c:
		default:
		}
	}
}

// Snapshot returns a deep copy of the current ledger state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Members:  make([]core.Member, len(s.members)),
		Expenses: make([]core.Expense, len(s.expenses)),
		Settings: s.settings,
	}
	copy(snap.Members, s.members)
	for i, e := range s.expenses {
		contribs := make(core.Contributions, len(e.Contributions))
		for id, amount := range e.Contributions {
			contribs[id] = amount
		}
		e.Contributions = contribs
		snap.Expenses[i] = e
	}
	return snap
}

// AddMember creates a member with a fresh collision-free id.
func (s *Store) AddMember(ctx context.Context, name, contact string) (core.Member, error) {
	if err := core.ValidateMemberName(name); err != nil {
		s.rec.RecordMutationFailure("add_member", "validation")
		return core.Member{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	m := core.Member{ID: uuid.NewString(), Name: name, Contact: contact}
	s.members = append(s.members, m)
	if err := s.persistMembers(ctx); err != nil {
		s.members = s.members[:len(s.members)-1]
		s.rec.RecordMutationFailure("add_member", "persistence")
		return core.Member{}, err
	}

	s.rec.RecordMutation("add_member")
	s.notify(Change{Namespace: storage.NamespaceMembers, Op: "add", EntityID: m.ID})
	return m, nil
}

// RenameMember changes a member's display name in place. Renaming to the
// current value is a valid no-op.
func (s *Store) RenameMember(ctx context.Context, id, name string) error {
	if err := core.ValidateMemberName(name); err != nil {
		s.rec.RecordMutationFailure("rename_member", "validation")
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.memberIndex(id)
	if idx < 0 {
		s.rec.RecordMutationFailure("rename_member", "not_found")
		return fmt.Errorf("%w: member %s", core.ErrNotFound, id)
	}

	prev := s.members[idx].Name
	s.members[idx].Name = name
	if err := s.persistMembers(ctx); err != nil {
		s.members[idx].Name = prev
		s.rec.RecordMutationFailure("rename_member", "persistence")
		return err
	}

	s.rec.RecordMutation("rename_member")
	s.notify(Change{Namespace: storage.NamespaceMembers, Op: "rename", EntityID: id})
	return nil
}

// RemoveMember deletes a member from the roster. Historical contributions
// recorded under the removed id stay on their expenses and keep counting
// toward totals; renderers show them as unknown contributors.
func (s *Store) RemoveMember(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.memberIndex(id)
	if idx < 0 {
		s.rec.RecordMutationFailure("remove_member", "not_found")
		return fmt.Errorf("%w: member %s", core.ErrNotFound, id)
	}

	removed := s.members[idx]
	s.members = append(s.members[:idx], s.members[idx+1:]...)
	if err := s.persistMembers(ctx); err != nil {
		s.members = append(s.members[:idx], append([]core.Member{removed}, s.members[idx:]...)...)
		s.rec.RecordMutationFailure("remove_member", "persistence")
		return err
	}

	s.rec.RecordMutation("remove_member")
	s.notify(Change{Namespace: storage.NamespaceMembers, Op: "remove", EntityID: id})
	return nil
}

// AddExpense validates and records a new expense. Zero-amount contribution
// entries are dropped before validation, so a map with explicit zeroes is
// accepted as long as the remaining amounts sum to the cost. Expenses are
// stored in insertion order; newest-first is a presentation concern.
func (s *Store) AddExpense(ctx context.Context, date core.Date, details string, cost float64, contributions core.Contributions) (core.Expense, error) {
	e := core.Expense{
		ID:            uuid.NewString(),
		Date:          date,
		Details:       details,
		Cost:          cost,
		Contributions: contributions.Normalize(),
	}
	if err := e.Validate(); err != nil {
		s.rec.RecordMutationFailure("add_expense", "validation")
		return core.Expense{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.expenses = append(s.expenses, e)
	if err := s.persistExpenses(ctx); err != nil {
		s.expenses = s.expenses[:len(s.expenses)-1]
		s.rec.RecordMutationFailure("add_expense", "persistence")
		return core.Expense{}, err
	}

	s.rec.RecordMutation("add_expense")
	s.notify(Change{Namespace: storage.NamespaceExpenses, Op: "add", EntityID: e.ID})
	return e, nil
}

// UpdateExpense replaces the whole record, including the contribution map.
// There are no partial-field patches; the replacement is revalidated as a
// unit.
func (s *Store) UpdateExpense(ctx context.Context, id string, date core.Date, details string, cost float64, contributions core.Contributions) error {
	replacement := core.Expense{
		ID:            id,
		Date:          date,
		Details:       details,
		Cost:          cost,
		Contributions: contributions.Normalize(),
	}
	if err := replacement.Validate(); err != nil {
		s.rec.RecordMutationFailure("update_expense", "validation")
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.expenseIndex(id)
	if idx < 0 {
		s.rec.RecordMutationFailure("update_expense", "not_found")
		return fmt.Errorf("%w: expense %s", core.ErrNotFound, id)
	}

	prev := s.expenses[idx]
	s.expenses[idx] = replacement
	if err := s.persistExpenses(ctx); err != nil {
		s.expenses[idx] = prev
		s.rec.RecordMutationFailure("update_expense", "persistence")
		return err
	}

	s.rec.RecordMutation("update_expense")
	s.notify(Change{Namespace: storage.NamespaceExpenses, Op: "update", EntityID: id})
	return nil
}

// RemoveExpense deletes an expense record.
func (s *Store) RemoveExpense(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.expenseIndex(id)
	if idx < 0 {
		s.rec.RecordMutationFailure("remove_expense", "not_found")
		return fmt.Errorf("%w: expense %s", core.ErrNotFound, id)
	}

	removed := s.expenses[idx]
	s.expenses = append(s.expenses[:idx], s.expenses[idx+1:]...)
	if err := s.persistExpenses(ctx); err != nil {
		s.expenses = append(s.expenses[:idx], append([]core.Expense{removed}, s.expenses[idx:]...)...)
		s.rec.RecordMutationFailure("remove_expense", "persistence")
		return err
	}

	s.rec.RecordMutation("remove_expense")
	s.notify(Change{Namespace: storage.NamespaceExpenses, Op: "remove", EntityID: id})
	return nil
}

// UpdateSettings replaces the settings blob.
func (s *Store) UpdateSettings(ctx context.Context, settings core.Settings) error {
	if err := settings.Validate(); err != nil {
		s.rec.RecordMutationFailure("update_settings", "validation")
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.settings
	s.settings = settings
	if err := s.persistSettings(ctx); err != nil {
		s.settings = prev
		s.rec.RecordMutationFailure("update_settings", "persistence")
		return err
	}

	s.rec.RecordMutation("update_settings")
	s.notify(Change{Namespace: storage.NamespaceSettings, Op: "update"})
	return nil
}

// Reload re-reads all namespaces from the persistence medium. Another
// process sharing the same store mutates it out-of-band; its change events
// arrive over the message bus and land here, after which subscribers are
// told to drop any held settlement view.
func (s *Store) Reload(ctx context.Context) {
	s.mu.Lock()
	s.load(ctx)
	s.mu.Unlock()

	s.rec.RecordReload()
	s.notify(Change{Namespace: "ledger", Op: "reload"})
}

func (s *Store) memberIndex(id string) int {
	for i, m := range s.members {
		if m.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) expenseIndex(id string) int {
	for i, e := range s.expenses {
		if e.ID == id {
			return i
		}
	}
	return -1
}
