package services

import (
	"context"
	"database/sql"
	"fmt"
	"splitledger/internal/models"

	"github.com/shopspring/decimal"
)

// ShareInput is one participant's explicit portion of an expense.
type ShareInput struct {
	UserID int             `json:"user_id"`
	Share  decimal.Decimal `json:"share"`
}

// CreateExpenseInput carries a new expense. Participants defaults to all
// group members; Shares defaults to an equal split among the participants.
type CreateExpenseInput struct {
	GroupID      int
	PayerID      int
	Description  string
	Amount       decimal.Decimal
	SpentOn      string // YYYY-MM-DD, optional
	Participants []int
	Shares       []ShareInput
}

// UpdateExpenseInput carries a partial edit; nil fields stay untouched.
// Changing the amount or the participant set rebuilds the shares.
type UpdateExpenseInput struct {
	Description  *string
	Amount       *decimal.Decimal
	SpentOn      *string
	Participants []int
	Shares       []ShareInput
}

// sharesTolerance is one minor unit per participant, covering equal-split
// rounding.
func sharesTolerance(n int) decimal.Decimal {
	return decimal.New(int64(n), -2)
}

// EqualShares splits amount evenly across the participants, each share
// rounded to the currency's minor unit.
func EqualShares(amount decimal.Decimal, participants []int) []ShareInput {
	if len(participants) == 0 {
		return nil
	}
	share := amount.Div(decimal.NewFromInt(int64(len(participants)))).Round(2)
	shares := make([]ShareInput, 0, len(participants))
	for _, userID := range participants {
		shares = append(shares, ShareInput{UserID: userID, Share: share})
	}
	return shares
}

// ValidateShares checks that explicit shares are non-negative, belong to
// distinct users, and sum to the expense amount within rounding tolerance.
func ValidateShares(amount decimal.Decimal, shares []ShareInput) error {
	if len(shares) == 0 {
		return ErrNoParticipants
	}

	seen := make(map[int]bool, len(shares))
	sum := decimal.Zero
	for _, s := range shares {
		if seen[s.UserID] {
			return fmt.Errorf("%w: duplicate participant %d", ErrSharesMismatch, s.UserID)
		}
		seen[s.UserID] = true
		if s.Share.IsNegative() {
			return fmt.Errorf("%w: negative share for user %d", ErrSharesMismatch, s.UserID)
		}
		sum = sum.Add(s.Share)
	}

	if sum.Sub(amount).Abs().GreaterThan(sharesTolerance(len(shares))) {
		return fmt.Errorf("%w: shares sum to %s, expense amount is %s", ErrSharesMismatch, sum, amount)
	}
	return nil
}

// CreateExpense persists an expense with its participant shares and
// recomputes the group ledger, all in one transaction.
func CreateExpense(ctx context.Context, db *sql.DB, in CreateExpenseInput) (*models.Expense, error) {
	if in.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidAmount
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	members, err := lockGroupMembers(ctx, tx, in.GroupID)
	if err != nil {
		return nil, err
	}
	if !members[in.PayerID] {
		return nil, ErrNotGroupMember
	}

	shares, err := resolveShares(in.Amount, in.Participants, in.Shares, members)
	if err != nil {
		return nil, err
	}

	var spentOn interface{}
	if in.SpentOn != "" {
		spentOn = in.SpentOn
	}
	res, err := tx.ExecContext(ctx, `
		INSERT INTO expenses (group_id, payer_id, description, amount, spent_on)
		VALUES (?, ?, ?, ?, ?)
	`, in.GroupID, in.PayerID, in.Description, in.Amount, spentOn)
	if err != nil {
		return nil, fmt.Errorf("failed to insert expense: %w", err)
	}
	expenseID, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get expense id: %w", err)
	}

	if err := insertShares(ctx, tx, int(expenseID), shares); err != nil {
		return nil, err
	}

	if err := recalculateGroupBalancesTx(ctx, tx, in.GroupID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &models.Expense{
		ID:          int(expenseID),
		GroupID:     in.GroupID,
		PayerID:     in.PayerID,
		Description: in.Description,
		Amount:      in.Amount,
	}, nil
}

// UpdateExpense applies a partial edit, rebuilds the shares when the
// amount or participant set changed, and recomputes the ledger in the same
// transaction.
func UpdateExpense(ctx context.Context, db *sql.DB, expenseID int, in UpdateExpenseInput) (*models.Expense, error) {
	if in.Amount != nil && in.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidAmount
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	expense := &models.Expense{ID: expenseID}
	err = tx.QueryRowContext(ctx,
		"SELECT group_id, payer_id, description, amount FROM expenses WHERE id = ?",
		expenseID).Scan(&expense.GroupID, &expense.PayerID, &expense.Description, &expense.Amount)
	if err == sql.ErrNoRows {
		return nil, ErrExpenseNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load expense %d: %w", expenseID, err)
	}

	members, err := lockGroupMembers(ctx, tx, expense.GroupID)
	if err != nil {
		return nil, err
	}

	if in.Description != nil {
		expense.Description = *in.Description
	}
	if in.Amount != nil {
		expense.Amount = *in.Amount
	}

	var spentOn interface{}
	if in.SpentOn != nil {
		spentOn = *in.SpentOn
		_, err = tx.ExecContext(ctx,
			"UPDATE expenses SET description = ?, amount = ?, spent_on = ? WHERE id = ?",
			expense.Description, expense.Amount, spentOn, expenseID)
	} else {
		_, err = tx.ExecContext(ctx,
			"UPDATE expenses SET description = ?, amount = ? WHERE id = ?",
			expense.Description, expense.Amount, expenseID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update expense %d: %w", expenseID, err)
	}

	if in.Amount != nil || in.Participants != nil || in.Shares != nil {
		participants := in.Participants
		if participants == nil && in.Shares == nil {
			// Amount changed but the participant set did not: rebuild the
			// equal split over the existing participants.
			participants, err = loadParticipants(ctx, tx, expenseID)
			if err != nil {
				return nil, err
			}
		}

		shares, err := resolveShares(expense.Amount, participants, in.Shares, members)
		if err != nil {
			return nil, err
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM expense_shares WHERE expense_id = ?", expenseID); err != nil {
			return nil, fmt.Errorf("failed to reset shares: %w", err)
		}
		if err := insertShares(ctx, tx, expenseID, shares); err != nil {
			return nil, err
		}
	}

	if err := recalculateGroupBalancesTx(ctx, tx, expense.GroupID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return expense, nil
}

// DeleteExpense removes an expense (shares cascade) and recomputes the
// group ledger in the same transaction. It returns the deleted expense so
// the caller can notify participants.
func DeleteExpense(ctx context.Context, db *sql.DB, expenseID int) (*models.Expense, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	expense := &models.Expense{ID: expenseID}
	err = tx.QueryRowContext(ctx,
		"SELECT group_id, payer_id, description, amount FROM expenses WHERE id = ?",
		expenseID).Scan(&expense.GroupID, &expense.PayerID, &expense.Description, &expense.Amount)
	if err == sql.ErrNoRows {
		return nil, ErrExpenseNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load expense %d: %w", expenseID, err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM expenses WHERE id = ?", expenseID); err != nil {
		return nil, fmt.Errorf("failed to delete expense %d: %w", expenseID, err)
	}

	if err := recalculateGroupBalancesTx(ctx, tx, expense.GroupID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return expense, nil
}

// lockGroupMembers locks the group row and returns the member set. The
// lock serializes expense writes with ledger recomputes of the same group.
func lockGroupMembers(ctx context.Context, tx *sql.Tx, groupID int) (map[int]bool, error) {
	var lockedID int
	err := tx.QueryRowContext(ctx, "SELECT id FROM `groups` WHERE id = ? FOR UPDATE", groupID).Scan(&lockedID)
	if err == sql.ErrNoRows {
		return nil, ErrGroupNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock group %d: %w", groupID, err)
	}

	rows, err := tx.QueryContext(ctx, "SELECT user_id FROM group_members WHERE group_id = ?", groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to load group members: %w", err)
	}
	defer rows.Close()

	members := make(map[int]bool)
	for rows.Next() {
		var userID int
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("failed to scan group member: %w", err)
		}
		members[userID] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate group members: %w", err)
	}
	return members, nil
}

func loadParticipants(ctx context.Context, tx *sql.Tx, expenseID int) ([]int, error) {
	rows, err := tx.QueryContext(ctx,
		"SELECT user_id FROM expense_shares WHERE expense_id = ? ORDER BY user_id", expenseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load participants: %w", err)
	}
	defer rows.Close()

	var participants []int
	for rows.Next() {
		var userID int
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		participants = append(participants, userID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate participants: %w", err)
	}
	return participants, nil
}

// resolveShares turns the optional participant/share inputs into the final
// share list: explicit shares win, otherwise an equal split over the given
// participants, otherwise an equal split over the whole group. Every
// participant must be a group member.
func resolveShares(amount decimal.Decimal, participants []int, explicit []ShareInput, members map[int]bool) ([]ShareInput, error) {
	shares := explicit
	if shares == nil {
		if participants == nil {
			for userID := range members {
				participants = append(participants, userID)
			}
		}
		if len(participants) == 0 {
			return nil, ErrNoParticipants
		}
		shares = EqualShares(amount, participants)
	}

	if err := ValidateShares(amount, shares); err != nil {
		return nil, err
	}
	for _, s := range shares {
		if !members[s.UserID] {
			return nil, fmt.Errorf("%w: user %d", ErrNotGroupMember, s.UserID)
		}
	}
	return shares, nil
}

func insertShares(ctx context.Context, tx *sql.Tx, expenseID int, shares []ShareInput) error {
	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO expense_shares (expense_id, user_id, share) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare share insert: %w", err)
	}
	defer stmt.Close()

	for _, s := range shares {
		if _, err := stmt.ExecContext(ctx, expenseID, s.UserID, s.Share); err != nil {
			return fmt.Errorf("failed to insert share for user %d: %w", s.UserID, err)
		}
	}
	return nil
}
