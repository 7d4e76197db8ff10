package models

import "database/sql"

const (
	NotificationNewExpense      = "new_expense"
	NotificationExpenseUpdated  = "expense_updated"
	NotificationExpenseDeleted  = "expense_deleted"
	NotificationPaymentReceived = "payment_received"
)

type Notification struct {
	ID        int            `json:"id,omitempty" db:"id,omitempty"`
	UserID    int            `json:"user_id,omitempty" db:"user_id,omitempty"`
	GroupID   int            `json:"group_id,omitempty" db:"group_id,omitempty"`
	Type      string         `json:"type,omitempty" db:"type,omitempty"`
	Message   string         `json:"message,omitempty" db:"message,omitempty"`
	IsRead    bool           `json:"is_read" db:"is_read"`
	CreatedAt sql.NullString `json:"created_at,omitempty" db:"created_at,omitempty"`
}
