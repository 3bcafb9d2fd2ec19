package core

import "errors"

// Error taxonomy for the ledger and settlement engine. Callers branch with
// errors.Is; the concrete message carries the violated rule.
var (
	// ErrValidation marks malformed input rejected at the write boundary.
	// The store is left unchanged and the caller must correct and retry.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks an operation referencing an unknown id.
	ErrNotFound = errors.New("not found")

	// ErrInconsistent marks a zero-sum violation detected during settlement
	// planning. It signals a defect upstream and halts the computation
	// rather than emitting a plausible-looking but wrong plan.
	ErrInconsistent = errors.New("internal consistency violation")
)
