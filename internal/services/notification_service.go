package services

import (
	"context"
	"database/sql"
	"fmt"
	"splitledger/internal/models"
	"splitledger/pkg/utils"
	"time"
)

// Notifications are fire-and-forget: handlers invoke these in a goroutine
// after the ledger transaction has committed, and failures are logged and
// dropped. They are never part of the transaction's atomicity guarantee.

// NotifySettlementReceived tells the creditor they were paid: an in-app
// notification row plus an email.
func NotifySettlementReceived(db *sql.DB, s *models.Settlement) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var payerName, creditorName, creditorEmail, groupName, currency string
	db.QueryRowContext(ctx, "SELECT username FROM users WHERE id = ?", s.FromUserID).Scan(&payerName)
	db.QueryRowContext(ctx, "SELECT username, email FROM users WHERE id = ?", s.ToUserID).Scan(&creditorName, &creditorEmail)
	db.QueryRowContext(ctx, "SELECT name, currency FROM `groups` WHERE id = ?", s.GroupID).Scan(&groupName, &currency)

	message := fmt.Sprintf("%s paid you %s %s in %s", payerName, currency, s.Amount.StringFixed(2), groupName)
	insertNotification(ctx, db, s.ToUserID, s.GroupID, models.NotificationPaymentReceived, message)

	if creditorEmail == "" {
		return
	}
	if err := utils.SendSettlementReceivedEmail(creditorEmail, payerName, s.Amount.StringFixed(2), currency, groupName, time.Now()); err != nil {
		utils.Logger.Errorf("failed to send settlement email to %s: %v", creditorEmail, err)
	}
}

// NotifyExpenseChange writes an in-app notification to every participant
// of an expense except the actor.
func NotifyExpenseChange(db *sql.DB, expense *models.Expense, actorID int, notificationType string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var groupName, currency string
	db.QueryRowContext(ctx, "SELECT name, currency FROM `groups` WHERE id = ?", expense.GroupID).Scan(&groupName, &currency)

	var verb string
	switch notificationType {
	case models.NotificationExpenseUpdated:
		verb = "updated"
	case models.NotificationExpenseDeleted:
		verb = "deleted"
	default:
		verb = "added"
	}
	message := fmt.Sprintf("Expense %s in %s: %s — %s %s",
		verb, groupName, expense.Description, currency, expense.Amount.StringFixed(2))

	// Deleted expenses have no share rows left, so fall back to the whole
	// group for those.
	query := "SELECT user_id FROM expense_shares WHERE expense_id = ? AND user_id != ?"
	args := []interface{}{expense.ID, actorID}
	if notificationType == models.NotificationExpenseDeleted {
		query = "SELECT user_id FROM group_members WHERE group_id = ? AND user_id != ?"
		args = []interface{}{expense.GroupID, actorID}
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		utils.Logger.Errorf("failed to load notification recipients: %v", err)
		return
	}
	defer rows.Close()

	for rows.Next() {
		var userID int
		if err := rows.Scan(&userID); err == nil {
			insertNotification(ctx, db, userID, expense.GroupID, notificationType, message)
		}
	}
}

func insertNotification(ctx context.Context, db *sql.DB, userID, groupID int, notificationType, message string) {
	_, err := db.ExecContext(ctx,
		"INSERT INTO notifications (user_id, group_id, type, message) VALUES (?, ?, ?, ?)",
		userID, groupID, notificationType, message)
	if err != nil {
		utils.Logger.Errorf("failed to insert notification for user %d: %v", userID, err)
	}
}
