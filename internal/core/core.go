// Package core defines the domain model for the group expense ledger:
// members, expenses with per-member contributions, the settings blob, and
// the derived balance and transaction types produced by the settlement
// engine.
package core

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// SumEpsilon is the write-boundary tolerance for the contributions-sum
// invariant: an expense is accepted when |sum(contributions) - cost| stays
// within a tenth of a currency minor unit.
const SumEpsilon = 0.001

const dateLayout = "2006-01-02"

type (
	// Date is a calendar date with no time-of-day semantics. The zero
	// value is invalid.
	Date struct {
		time.Time
	}

	// Member is a person in the group. Contact is an optional external
	// channel address (phone) used only by the notice renderer.
	Member struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Contact string `json:"contact,omitempty"`
	}

	// Contributions maps member id to the positive amount that member
	// paid toward an expense. Zero or absent amounts are omitted, never
	// stored as zero.
	Contributions map[string]float64

	// Expense is a single recorded group expense. Cost is the total
	// amount; Contributions records who actually paid it.
	Expense struct {
		ID            string        `json:"id"`
		Date          Date          `json:"date"`
		Details       string        `json:"details"`
		Cost          float64       `json:"cost"`
		Contributions Contributions `json:"contributions"`
	}

	// Settings is the free-form preferences blob persisted alongside the
	// ledger collections.
	Settings struct {
		Currency string `json:"currency"`
		Timezone string `json:"timezone"`
		Theme    string `json:"theme"`
	}

	// MemberBalance is the derived position of one member against the
	// current roster: Balance = Paid - Share.
	MemberBalance struct {
		MemberID string  `json:"member_id"`
		Name     string  `json:"name"`
		Contact  string  `json:"contact,omitempty"`
		Paid     float64 `json:"paid"`
		Share    float64 `json:"share"`
		Balance  float64 `json:"balance"`
	}

	// Transaction directs the From member (negative balance) to pay the
	// To member (positive balance). Transient, recomputed on every read.
	Transaction struct {
		FromMemberID string  `json:"from_member_id"`
		ToMemberID   string  `json:"to_member_id"`
		Amount       float64 `json:"amount"`
	}

	// DateRange is an inclusive calendar interval. A zero From or To
	// leaves that end open.
	DateRange struct {
		From Date
		To   Date
	}
)

// NewDate builds a Date at midnight UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: invalid date %q, want YYYY-MM-DD", ErrValidation, s)
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

// MarshalJSON encodes the date as "YYYY-MM-DD".
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(dateLayout) + `"`), nil
}

// UnmarshalJSON decodes a "YYYY-MM-DD" string.
func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return fmt.Errorf("parse date %q: %w", s, err)
	}
	d.Time = t
	return nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return fmt.Errorf("%w: date cannot be zero", ErrValidation)
	}
	return nil
}

// In reports whether the date falls inside the inclusive range.
func (d Date) In(r DateRange) bool {
	if !r.From.IsZero() && d.Before(r.From.Time) {
		return false
	}
	if !r.To.IsZero() && d.After(r.To.Time) {
		return false
	}
	return true
}

// ValidateMemberName rejects empty or whitespace-only display names.
func ValidateMemberName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: member name cannot be empty", ErrValidation)
	}
	return nil
}

// Normalize drops zero and negative entries so a caller-supplied map with
// explicit zeroes is treated as if those entries were absent.
func (c Contributions) Normalize() Contributions {
	out := make(Contributions, len(c))
	for id, amount := range c {
		if amount > 0 {
			out[id] = amount
		}
	}
	return out
}

// Sum returns the total of all contribution amounts.
func (c Contributions) Sum() float64 {
	var total float64
	for _, amount := range c {
		total += amount
	}
	return total
}

// Validate enforces the expense invariants at the write boundary: non-empty
// details, positive cost, and contributions summing to cost within
// SumEpsilon. Contributions are expected to be normalized already.
func (e Expense) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.Details) == "" {
		return fmt.Errorf("%w: expense details cannot be empty", ErrValidation)
	}
	if e.Cost <= 0 {
		return fmt.Errorf("%w: expense cost must be positive, got %.2f", ErrValidation, e.Cost)
	}
	for id, amount := range e.Contributions {
		if id == "" {
			return fmt.Errorf("%w: contribution with empty member id", ErrValidation)
		}
		if amount <= 0 {
			return fmt.Errorf("%w: contribution for member %s must be positive, got %.2f", ErrValidation, id, amount)
		}
	}
	if diff := math.Abs(e.Contributions.Sum() - e.Cost); diff > SumEpsilon {
		return fmt.Errorf("%w: contributions sum %.2f does not match cost %.2f", ErrValidation, e.Contributions.Sum(), e.Cost)
	}
	return nil
}

// Validate checks the settings blob.
func (s Settings) Validate() error {
	if strings.TrimSpace(s.Currency) == "" {
		return fmt.Errorf("%w: currency symbol cannot be empty", ErrValidation)
	}
	return nil
}
