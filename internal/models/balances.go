package models

import (
	"database/sql"

	"github.com/shopspring/decimal"
)

// Balance is one directed debt row: FromUserID owes ToUserID Amount within
// a group. For any pair of users at most one direction exists at a time,
// and Amount is always greater than zero — a balance that reaches zero is
// deleted, never stored.
type Balance struct {
	ID         int             `json:"id,omitempty" db:"id,omitempty"`
	GroupID    int             `json:"group_id,omitempty" db:"group_id,omitempty"`
	FromUserID int             `json:"from_user_id,omitempty" db:"from_user_id,omitempty"`
	ToUserID   int             `json:"to_user_id,omitempty" db:"to_user_id,omitempty"`
	Amount     decimal.Decimal `json:"amount,omitempty" db:"amount,omitempty"`
	CreatedAt  sql.NullString  `json:"created_at,omitempty" db:"created_at,omitempty"`
	UpdatedAt  sql.NullString  `json:"updated_at,omitempty" db:"updated_at,omitempty"`
}
