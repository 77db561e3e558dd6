package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Error kinds surfaced by the ledger. Layers above match them with
// errors.Is and map them to transport status codes. Ownership violations
// are reported as ErrNotFound so that a non-owner can never learn whether
// a record exists.
var (
	ErrDuplicateIdentity = errors.New("email already registered")
	ErrNotFound          = errors.New("not found")
	ErrInvalidCredential = errors.New("invalid credentials")
	ErrUnauthenticated   = errors.New("unauthenticated")
	ErrInvalidInput      = errors.New("invalid input")
)

// User is an identity record created at signup and immutable afterwards.
// The password hash never appears in any response payload.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"-"`
}

// Public returns the projection of the user that is safe to hand to clients.
func (u User) Public() User {
	u.PasswordHash = ""
	return u
}

// Expense is a spending record owned by exactly one user. OwnerID is set at
// creation and never reassigned; IsStarred is the only field that mutates
// after creation.
type Expense struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Amount      float64   `json:"amount"`
	Category    string    `json:"category"`
	Description string    `json:"description,omitempty"`
	Date        time.Time `json:"date"`
	IsStarred   bool      `json:"isStarred"`
	OwnerID     string    `json:"-"`
}

// ExpenseDraft carries caller-supplied fields for a new expense. Amount is a
// pointer so that an absent amount is distinguishable from zero. A zero Date
// means "now".
type ExpenseDraft struct {
	Title       string
	Amount      *float64
	Category    string
	Description string
	Date        time.Time
}

// Validate enforces the creation-time invariants: category and amount are
// required, and amount must not be negative. Absence is a rejection, not a
// default.
func (d ExpenseDraft) Validate() error {
	if strings.TrimSpace(d.Category) == "" {
		return fmt.Errorf("%w: category is required", ErrInvalidInput)
	}
	if d.Amount == nil {
		return fmt.Errorf("%w: amount is required", ErrInvalidInput)
	}
	if *d.Amount < 0 {
		return fmt.Errorf("%w: amount must not be negative", ErrInvalidInput)
	}
	return nil
}
