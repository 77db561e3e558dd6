package core

import "time"

// Ledger event actions.
const (
	ActionCreated     = "created"
	ActionDeleted     = "deleted"
	ActionStarToggled = "star_toggled"
)

// LedgerEvent describes a single mutation of the expense ledger. Events are
// published after the write commits and consumed by the audit worker.
type LedgerEvent struct {
	Action    string    `json:"action"`
	ExpenseID string    `json:"expense_id"`
	OwnerID   string    `json:"owner_id"`
	Category  string    `json:"category"`
	Amount    float64   `json:"amount"`
	Starred   bool      `json:"starred"`
	Timestamp time.Time `json:"timestamp"`
}
