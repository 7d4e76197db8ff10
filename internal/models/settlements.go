package models

import (
	"database/sql"

	"github.com/shopspring/decimal"
)

// Settlement is the audit record of a payoff between two users. The ledger
// effect (reducing the matching balance row) is applied in the same
// transaction that inserts this record.
type Settlement struct {
	ID         int             `json:"id,omitempty" db:"id,omitempty"`
	GroupID    int             `json:"group_id,omitempty" db:"group_id,omitempty"`
	FromUserID int             `json:"from_user_id,omitempty" db:"from_user_id,omitempty"`
	ToUserID   int             `json:"to_user_id,omitempty" db:"to_user_id,omitempty"`
	Amount     decimal.Decimal `json:"amount,omitempty" db:"amount,omitempty"`
	Note       string          `json:"note,omitempty" db:"note,omitempty"`
	CreatedAt  sql.NullString  `json:"created_at,omitempty" db:"created_at,omitempty"`
}
