package cron

import (
	"context"
	"database/sql"
	"fmt"
	"splitledger/pkg/utils"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
)

func StartCronJob(db *sql.DB) *cron.Cron {
	c := cron.New()

	// Runs daily at midnight — remind debtors of what they still owe
	_, err := c.AddFunc("0 0 * * *", func() {
		err := SendReminderEmailsToDebtors(db)
		if err != nil {
			utils.Logger.Errorf("Cron job failed to send reminder emails: %v", err)
		}
	})
	if err != nil {
		utils.Logger.Errorf("Failed to schedule debtor reminder job: %v", err)
	}

	// Runs weekly on Sunday — prune read notifications older than 30 days
	_, err = c.AddFunc("0 3 * * 0", func() {
		err := PruneOldNotifications(db)
		if err != nil {
			utils.Logger.Errorf("Cron job failed to prune notifications: %v", err)
		}
	})
	if err != nil {
		utils.Logger.Errorf("Failed to schedule notification pruning job: %v", err)
	}

	c.Start()
	utils.Logger.Info("Cron jobs started (debtor reminders daily at midnight, notification pruning weekly)")
	return c
}

// -------------------------------------------------------------
// Prune read notifications older than 30 days
// -------------------------------------------------------------
func PruneOldNotifications(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result, err := db.ExecContext(ctx, `
		DELETE FROM notifications
		WHERE is_read = TRUE AND created_at < DATE_SUB(NOW(), INTERVAL 30 DAY)
	`)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected > 0 {
		utils.Logger.Infof("Pruned %d old read notifications", rowsAffected)
	}
	return nil
}

// debtorBalancesQuery feeds the daily reminders: one row per outstanding
// directed debt, with both usernames and the group's currency attached.
const debtorBalancesQuery = `
	SELECT
		debtor.email,
		debtor.username,
		creditor.username AS creditor_name,
		g.name AS group_name,
		g.currency,
		b.amount
	FROM balances b
	JOIN users debtor ON b.from_user_id = debtor.id
	JOIN users creditor ON b.to_user_id = creditor.id
	JOIN ` + "`groups`" + ` g ON b.group_id = g.id
	WHERE b.amount > 0
`

// -------------------------------------------------------------
// Send daily reminders to debtors (email sends run concurrently)
// -------------------------------------------------------------
func SendReminderEmailsToDebtors(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 45*time.Second)
	defer cancel()

	rows, err := db.QueryContext(ctx, debtorBalancesQuery)
	if err != nil {
		return err
	}
	defer rows.Close()

	var wg sync.WaitGroup
	errChan := make(chan error, 10)

	for rows.Next() {
		var (
			email, debtorName, creditorName, groupName, currency string
			amount                                               decimal.Decimal
		)

		if err := rows.Scan(
			&email,
			&debtorName,
			&creditorName,
			&groupName,
			&currency,
			&amount,
		); err != nil {
			utils.Logger.Errorf("Failed to scan debtor row: %v", err)
			continue
		}

		wg.Add(1)
		go func(email, debtorName, creditorName, groupName, currency string, amount decimal.Decimal) {
			defer wg.Done()

			if err := utils.SendDebtorReminderEmail(
				email,
				debtorName,
				amount.StringFixed(2),
				currency,
				creditorName,
				groupName,
			); err != nil {
				errChan <- fmt.Errorf("failed to send reminder email to %s: %v", email, err)
				return
			}

			utils.Logger.Infof("Sent reminder to %s (%s) — %s %s owed to %s in '%s'",
				debtorName, email, currency, amount.StringFixed(2), creditorName, groupName)
		}(email, debtorName, creditorName, groupName, currency, amount)
	}

	wg.Wait()
	close(errChan)

	for e := range errChan {
		utils.Logger.Error(e)
	}

	if err := rows.Err(); err != nil {
		utils.Logger.Errorf("Error iterating debtor rows: %v", err)
		return err
	}

	utils.Logger.Info("Finished sending all debtor reminder emails.")
	return nil
}
