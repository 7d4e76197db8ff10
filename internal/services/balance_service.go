package services

import (
	"context"
	"database/sql"
	"fmt"
	"splitledger/internal/models"
	"splitledger/pkg/utils"

	"github.com/shopspring/decimal"
)

// BalanceWithUsers is a balance row joined with both usernames, for
// presentation.
type BalanceWithUsers struct {
	FromUserID   int             `json:"from_user_id"`
	FromUsername string          `json:"from_username"`
	ToUserID     int             `json:"to_user_id"`
	ToUsername   string          `json:"to_username"`
	Amount       decimal.Decimal `json:"amount"`
}

// BalanceSummary is one user's position within a group.
type BalanceSummary struct {
	TotalOwed      decimal.Decimal    `json:"total_owed"`
	TotalOwedToYou decimal.Decimal    `json:"total_owed_to_you"`
	NetBalance     decimal.Decimal    `json:"net_balance"`
	Debts          []BalanceWithUsers `json:"debts"`
	Credits        []BalanceWithUsers `json:"credits"`
}

// RecalculateGroupBalances rebuilds the whole ledger of a group from its
// expenses in one transaction: lock the group row, net every stored share
// against the payer, then replace the balances rows with the result.
// Partial state is never visible; any failure rolls everything back.
func RecalculateGroupBalances(ctx context.Context, db *sql.DB, groupID int) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	if err := recalculateGroupBalancesTx(ctx, tx, groupID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// recalculateGroupBalancesTx is the engine body, reused by the expense
// commands so an expense write and its recompute share one transaction.
// The caller owns commit/rollback.
func recalculateGroupBalancesTx(ctx context.Context, tx *sql.Tx, groupID int) error {
	// Row lock on the group serializes concurrent recomputes of the same
	// group; different groups proceed in parallel.
	var lockedID int
	err := tx.QueryRowContext(ctx, "SELECT id FROM `groups` WHERE id = ? FOR UPDATE", groupID).Scan(&lockedID)
	if err == sql.ErrNoRows {
		return ErrGroupNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to lock group %d: %w", groupID, err)
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT e.id, e.payer_id, s.user_id, s.share
		FROM expenses e
		LEFT JOIN expense_shares s ON s.expense_id = e.id
		WHERE e.group_id = ?
	`, groupID)
	if err != nil {
		return fmt.Errorf("failed to load expenses for group %d: %w", groupID, err)
	}
	defer rows.Close()

	ledger := NewLedger()
	for rows.Next() {
		var (
			expenseID, payerID int
			userID             sql.NullInt64
			share              decimal.NullDecimal
		)
		if err := rows.Scan(&expenseID, &payerID, &userID, &share); err != nil {
			return fmt.Errorf("failed to scan expense share: %w", err)
		}

		if !userID.Valid || !share.Valid {
			// Expense without participants. The write path rejects these,
			// so it can only be legacy data; skip it rather than failing
			// the whole recompute.
			utils.Logger.Warnf("expense %d in group %d has no participants, skipping", expenseID, groupID)
			continue
		}
		if share.Decimal.IsNegative() {
			utils.Logger.Warnf("expense %d has negative share for user %d, skipping", expenseID, userID.Int64)
			continue
		}
		if int(userID.Int64) == payerID {
			continue
		}

		ledger.PostDebt(int(userID.Int64), payerID, share.Decimal)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate expense shares: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM balances WHERE group_id = ?", groupID); err != nil {
		return fmt.Errorf("failed to clear balances for group %d: %w", groupID, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO balances (group_id, from_user_id, to_user_id, amount) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare balance insert: %w", err)
	}
	defer stmt.Close()

	for _, d := range ledger.Debts() {
		b := models.Balance{
			GroupID:    groupID,
			FromUserID: d.FromUserID,
			ToUserID:   d.ToUserID,
			Amount:     d.Amount.Round(2),
		}
		if _, err := stmt.ExecContext(ctx, b.GroupID, b.FromUserID, b.ToUserID, b.Amount); err != nil {
			return fmt.Errorf("failed to insert balance %d→%d: %w", b.FromUserID, b.ToUserID, err)
		}
	}

	return nil
}

// settleAction is the decision for one payoff against the outstanding row.
type settleAction int

const (
	settleDeleteRow settleAction = iota
	settleReduceRow
)

// resolveSettlement classifies a payoff against the outstanding debt:
// non-positive amounts are invalid, amounts above the outstanding debt are
// rejected outright with no clamping, an exact match clears the row and
// anything less reduces it.
func resolveSettlement(outstanding, requested decimal.Decimal) (settleAction, error) {
	if requested.LessThanOrEqual(decimal.Zero) {
		return 0, ErrInvalidAmount
	}
	if requested.GreaterThan(outstanding) {
		return 0, ErrExceedsOutstandingDebt
	}
	if requested.Equal(outstanding) {
		return settleDeleteRow, nil
	}
	return settleReduceRow, nil
}

// SettleDebt applies a payoff from one user to another: the matching
// balance row shrinks by the amount (or disappears when fully paid) and an
// audit record is written, all in one transaction. A settlement never
// creates a reverse balance and never exceeds the outstanding debt.
func SettleDebt(ctx context.Context, db *sql.DB, s *models.Settlement) error {
	if s.Amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	var (
		balanceID   int
		outstanding decimal.Decimal
	)
	err = tx.QueryRowContext(ctx, `
		SELECT id, amount FROM balances
		WHERE group_id = ? AND from_user_id = ? AND to_user_id = ?
		FOR UPDATE
	`, s.GroupID, s.FromUserID, s.ToUserID).Scan(&balanceID, &outstanding)
	if err == sql.ErrNoRows {
		return ErrExceedsOutstandingDebt
	}
	if err != nil {
		return fmt.Errorf("failed to load balance: %w", err)
	}

	action, err := resolveSettlement(outstanding, s.Amount)
	if err != nil {
		return err
	}

	if action == settleDeleteRow {
		_, err = tx.ExecContext(ctx, "DELETE FROM balances WHERE id = ?", balanceID)
	} else {
		_, err = tx.ExecContext(ctx, "UPDATE balances SET amount = amount - ? WHERE id = ?", s.Amount, balanceID)
	}
	if err != nil {
		return fmt.Errorf("failed to reduce balance: %w", err)
	}

	var note interface{}
	if s.Note != "" {
		note = s.Note
	}
	res, err := tx.ExecContext(ctx, `
		INSERT INTO settlements (group_id, from_user_id, to_user_id, amount, note)
		VALUES (?, ?, ?, ?, ?)
	`, s.GroupID, s.FromUserID, s.ToUserID, s.Amount, note)
	if err != nil {
		return fmt.Errorf("failed to record settlement: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		s.ID = int(id)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetGroupBalances returns every positive balance row for a group with
// usernames attached.
func GetGroupBalances(ctx context.Context, db *sql.DB, groupID int) ([]BalanceWithUsers, error) {
	return queryBalances(ctx, db, `
		SELECT b.from_user_id, fu.username, b.to_user_id, tu.username, b.amount
		FROM balances b
		JOIN users fu ON b.from_user_id = fu.id
		JOIN users tu ON b.to_user_id = tu.id
		WHERE b.group_id = ? AND b.amount > 0
		ORDER BY b.from_user_id, b.to_user_id
	`, groupID)
}

// GetUserBalancesInGroup returns the balance rows where the user is either
// the debtor or the creditor.
func GetUserBalancesInGroup(ctx context.Context, db *sql.DB, groupID, userID int) ([]BalanceWithUsers, error) {
	return queryBalances(ctx, db, `
		SELECT b.from_user_id, fu.username, b.to_user_id, tu.username, b.amount
		FROM balances b
		JOIN users fu ON b.from_user_id = fu.id
		JOIN users tu ON b.to_user_id = tu.id
		WHERE b.group_id = ? AND b.amount > 0 AND (b.from_user_id = ? OR b.to_user_id = ?)
		ORDER BY b.from_user_id, b.to_user_id
	`, groupID, userID, userID)
}

// GetBalanceSummary computes one user's totals in a group by splitting
// their rows into debts (user owes) and credits (owed to user).
func GetBalanceSummary(ctx context.Context, db *sql.DB, groupID, userID int) (*BalanceSummary, error) {
	balances, err := GetUserBalancesInGroup(ctx, db, groupID, userID)
	if err != nil {
		return nil, err
	}

	summary := &BalanceSummary{
		Debts:   []BalanceWithUsers{},
		Credits: []BalanceWithUsers{},
	}
	for _, b := range balances {
		if b.FromUserID == userID {
			summary.TotalOwed = summary.TotalOwed.Add(b.Amount)
			summary.Debts = append(summary.Debts, b)
		} else {
			summary.TotalOwedToYou = summary.TotalOwedToYou.Add(b.Amount)
			summary.Credits = append(summary.Credits, b)
		}
	}
	summary.NetBalance = summary.TotalOwedToYou.Sub(summary.TotalOwed)
	return summary, nil
}

// GetSimplifiedDebts collapses the group ledger into a minimal transfer
// list via greedy net-position matching. The stored rows are already
// netted pairwise; this additionally collapses chains across users.
func GetSimplifiedDebts(ctx context.Context, db *sql.DB, groupID int) ([]BalanceWithUsers, error) {
	balances, err := GetGroupBalances(ctx, db, groupID)
	if err != nil {
		return nil, err
	}

	usernames := make(map[int]string, len(balances)*2)
	debts := make([]Debt, 0, len(balances))
	for _, b := range balances {
		usernames[b.FromUserID] = b.FromUsername
		usernames[b.ToUserID] = b.ToUsername
		debts = append(debts, Debt{FromUserID: b.FromUserID, ToUserID: b.ToUserID, Amount: b.Amount})
	}

	simplified := SimplifyDebts(debts)
	result := make([]BalanceWithUsers, 0, len(simplified))
	for _, d := range simplified {
		result = append(result, BalanceWithUsers{
			FromUserID:   d.FromUserID,
			FromUsername: usernames[d.FromUserID],
			ToUserID:     d.ToUserID,
			ToUsername:   usernames[d.ToUserID],
			Amount:       d.Amount,
		})
	}
	return result, nil
}

func queryBalances(ctx context.Context, db *sql.DB, query string, args ...interface{}) ([]BalanceWithUsers, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query balances: %w", err)
	}
	defer rows.Close()

	var balances []BalanceWithUsers
	for rows.Next() {
		var b BalanceWithUsers
		if err := rows.Scan(&b.FromUserID, &b.FromUsername, &b.ToUserID, &b.ToUsername, &b.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan balance: %w", err)
		}
		balances = append(balances, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate balances: %w", err)
	}
	return balances, nil
}

// IsGroupMember reports whether the user belongs to the group. Handlers
// call this before any ledger operation; the engine itself trusts its
// callers.
func IsGroupMember(ctx context.Context, db *sql.DB, groupID, userID int) (bool, error) {
	var exists bool
	err := db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM group_members WHERE group_id = ? AND user_id = ?)",
		groupID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to verify group membership: %w", err)
	}
	return exists, nil
}
