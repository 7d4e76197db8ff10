package models

import "github.com/shopspring/decimal"

// ExpenseShare is the portion of an expense attributed to one participant.
// Shares for an expense sum to the expense amount up to rounding of the
// currency's minor unit.
type ExpenseShare struct {
	ID        int             `json:"id,omitempty" db:"id,omitempty"`
	ExpenseID int             `json:"expense_id,omitempty" db:"expense_id,omitempty"`
	UserID    int             `json:"user_id,omitempty" db:"user_id,omitempty"`
	Share     decimal.Decimal `json:"share,omitempty" db:"share,omitempty"`
}
