// Package storage provides the key-value persistence medium behind the
// ledger store. Each entity collection lives in its own namespace and is
// serialized through a versioned JSON envelope, keeping the on-disk schema
// decoupled from the in-memory domain types.
package storage

import (
	"context"
	"errors"
)

// Namespaces for the three independent persisted blobs.
const (
	NamespaceMembers  = "members"
	NamespaceExpenses = "expenses"
	NamespaceSettings = "settings"
)

// ErrNoRecord is returned by Get when a namespace has never been written.
var ErrNoRecord = errors.New("no record for namespace")

// KV abstracts the persistence medium so the ledger store can run against
// SQLite in production and an in-memory map in tests.
type KV interface {
	// Get returns the raw payload for a namespace, or ErrNoRecord.
	Get(ctx context.Context, namespace string) ([]byte, error)

	// Put replaces the payload for a namespace.
	Put(ctx context.Context, namespace string, payload []byte) error

	// Close releases any resources held by the medium.
	Close() error
}
