package analytics

import (
	"context"
	"database/sql"
	"net/http"
	"splitledger/internal/api/handlers"
	"splitledger/internal/repositories/sqlconnect"
	"splitledger/internal/services"
	"splitledger/pkg/utils"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// FUNC TO BREAK DOWN GROUP SPENDING PER MEMBER
func GetMemberSpendingHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.WriteError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	db, groupID, ok := authorizeGroupRead(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	rows, err := db.QueryContext(ctx, `
		SELECT m.user_id, u.username,
		       COALESCE(p.total_paid, 0),
		       COALESCE(s.total_share, 0)
		FROM group_members m
		JOIN users u ON m.user_id = u.id
		LEFT JOIN (
			SELECT payer_id, SUM(amount) AS total_paid
			FROM expenses WHERE group_id = ? GROUP BY payer_id
		) p ON p.payer_id = m.user_id
		LEFT JOIN (
			SELECT es.user_id, SUM(es.share) AS total_share
			FROM expense_shares es
			JOIN expenses e ON es.expense_id = e.id
			WHERE e.group_id = ? GROUP BY es.user_id
		) s ON s.user_id = m.user_id
		WHERE m.group_id = ?
		ORDER BY u.username
	`, groupID, groupID, groupID)
	if err != nil {
		utils.Logger.Errorf("failed to compute member spending: %v", err)
		utils.WriteError(w, "failed to compute member spending", http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	type memberSpending struct {
		UserID     int             `json:"user_id"`
		Username   string          `json:"username"`
		TotalPaid  decimal.Decimal `json:"total_paid"`
		TotalShare decimal.Decimal `json:"total_share"`
	}

	groupTotal := decimal.Zero
	var members []memberSpending
	for rows.Next() {
		var m memberSpending
		if err := rows.Scan(&m.UserID, &m.Username, &m.TotalPaid, &m.TotalShare); err != nil {
			utils.Logger.Errorf("error scanning member spending: %v", err)
			utils.WriteError(w, "error reading member spending", http.StatusInternalServerError)
			return
		}
		groupTotal = groupTotal.Add(m.TotalPaid)
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		utils.WriteError(w, "error finalizing member spending read", http.StatusInternalServerError)
		return
	}

	utils.WriteJSON(w, map[string]interface{}{
		"status":      "success",
		"group_id":    groupID,
		"total_spent": groupTotal,
		"members":     members,
	})
}

// FUNC TO GET THE GROUP'S MONTHLY SPENDING TREND
func GetSpendingTrendHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.WriteError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	db, groupID, ok := authorizeGroupRead(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	rows, err := db.QueryContext(ctx, `
		SELECT DATE_FORMAT(COALESCE(e.spent_on, e.created_at), '%Y-%m') AS month,
		       SUM(e.amount), COUNT(*)
		FROM expenses e
		WHERE e.group_id = ?
		GROUP BY month
		ORDER BY month DESC
		LIMIT 12
	`, groupID)
	if err != nil {
		utils.Logger.Errorf("failed to compute spending trend: %v", err)
		utils.WriteError(w, "failed to compute spending trend", http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	type monthlySpending struct {
		Month        string          `json:"month"`
		TotalSpent   decimal.Decimal `json:"total_spent"`
		ExpenseCount int             `json:"expense_count"`
	}

	var trend []monthlySpending
	for rows.Next() {
		var m monthlySpending
		if err := rows.Scan(&m.Month, &m.TotalSpent, &m.ExpenseCount); err != nil {
			utils.Logger.Errorf("error scanning spending trend: %v", err)
			utils.WriteError(w, "error reading spending trend", http.StatusInternalServerError)
			return
		}
		trend = append(trend, m)
	}
	if err := rows.Err(); err != nil {
		utils.WriteError(w, "error finalizing spending trend read", http.StatusInternalServerError)
		return
	}

	utils.WriteJSON(w, map[string]interface{}{
		"status":   "success",
		"group_id": groupID,
		"trend":    trend,
	})
}

// authorizeGroupRead resolves the group and confirms membership, writing
// the error response itself when the caller may not read the group.
func authorizeGroupRead(w http.ResponseWriter, r *http.Request) (*sql.DB, int, bool) {
	db := sqlconnect.DB
	if db == nil {
		utils.Logger.Error("DB is not initialized")
		utils.WriteError(w, "internal server error", http.StatusInternalServerError)
		return nil, 0, false
	}

	groupID, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		utils.WriteError(w, "invalid group ID", http.StatusBadRequest)
		return nil, 0, false
	}

	userID, ok := handlers.UserIDFromRequest(r)
	if !ok {
		utils.WriteError(w, "unauthorized", http.StatusUnauthorized)
		return nil, 0, false
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	isMember, err := services.IsGroupMember(ctx, db, groupID, userID)
	if err != nil {
		utils.WriteError(w, "failed to verify group membership", http.StatusInternalServerError)
		return nil, 0, false
	}
	if !isMember {
		utils.WriteError(w, "you are not a member of this group", http.StatusForbidden)
		return nil, 0, false
	}

	return db, groupID, true
}
