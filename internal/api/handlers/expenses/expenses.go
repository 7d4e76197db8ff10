package expenses

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"splitledger/internal/api/handlers"
	"splitledger/internal/models"
	"splitledger/internal/repositories/sqlconnect"
	"splitledger/internal/services"
	"splitledger/pkg/utils"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// FUNC TO CREATE AN EXPENSE AND RECOMPUTE THE GROUP LEDGER
func CreateExpenseHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.WriteError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	db := sqlconnect.DB
	if db == nil {
		utils.Logger.Error("DB is not initialized")
		utils.WriteError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	userID, ok := handlers.UserIDFromRequest(r)
	if !ok {
		utils.WriteError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	type request struct {
		GroupID      int                   `json:"group_id"`
		Description  string                `json:"description"`
		Amount       decimal.Decimal       `json:"amount"`
		SpentOn      string                `json:"spent_on"`
		Participants []int                 `json:"participants"`
		Shares       []services.ShareInput `json:"shares"`
	}

	var req request
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		utils.WriteError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if req.Description == "" {
		utils.WriteError(w, "description is required", http.StatusBadRequest)
		return
	}
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		utils.WriteError(w, "amount must be greater than 0", http.StatusBadRequest)
		return
	}
	if req.SpentOn != "" {
		if _, err := time.Parse("2006-01-02", req.SpentOn); err != nil {
			utils.WriteError(w, "spent_on must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	isMember, err := services.IsGroupMember(ctx, db, req.GroupID, userID)
	if err != nil {
		utils.WriteError(w, "failed to verify group membership", http.StatusInternalServerError)
		return
	}
	if !isMember {
		utils.WriteError(w, "you are not a member of this group", http.StatusForbidden)
		return
	}

	expense, err := services.CreateExpense(ctx, db, services.CreateExpenseInput{
		GroupID:      req.GroupID,
		PayerID:      userID,
		Description:  req.Description,
		Amount:       req.Amount,
		SpentOn:      req.SpentOn,
		Participants: req.Participants,
		Shares:       req.Shares,
	})
	if err != nil {
		handlers.WriteServiceError(w, err)
		return
	}

	go services.NotifyExpenseChange(db, expense, userID, models.NotificationNewExpense)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "success",
		"message": "expense created and group balances updated",
		"data": map[string]interface{}{
			"expense_id": expense.ID,
			"amount":     expense.Amount,
		},
	})
}

// FUNC TO LIST A GROUP'S EXPENSES
func GetGroupExpensesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.WriteError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	db := sqlconnect.DB
	if db == nil {
		utils.Logger.Error("DB is not initialized")
		utils.WriteError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	groupID, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		utils.WriteError(w, "invalid group ID", http.StatusBadRequest)
		return
	}

	userID, ok := handlers.UserIDFromRequest(r)
	if !ok {
		utils.WriteError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	isMember, err := services.IsGroupMember(ctx, db, groupID, userID)
	if err != nil {
		utils.WriteError(w, "failed to verify group membership", http.StatusInternalServerError)
		return
	}
	if !isMember {
		utils.WriteError(w, "you are not a member of this group", http.StatusForbidden)
		return
	}

	rows, err := db.QueryContext(ctx, `
		SELECT e.id, e.description, e.amount, e.payer_id, u.username, e.spent_on, e.created_at
		FROM expenses e
		JOIN users u ON e.payer_id = u.id
		WHERE e.group_id = ?
		ORDER BY e.spent_on DESC, e.created_at DESC
	`, groupID)
	if err != nil {
		utils.WriteError(w, "failed to retrieve expenses", http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	type expenseRow struct {
		ID          int             `json:"id"`
		Description string          `json:"description"`
		Amount      decimal.Decimal `json:"amount"`
		PayerID     int             `json:"payer_id"`
		PaidBy      string          `json:"paid_by"`
		SpentOn     sql.NullString  `json:"spent_on"`
		CreatedAt   sql.NullString  `json:"created_at"`
	}

	var expenses []expenseRow
	for rows.Next() {
		var e expenseRow
		if err := rows.Scan(&e.ID, &e.Description, &e.Amount, &e.PayerID, &e.PaidBy, &e.SpentOn, &e.CreatedAt); err != nil {
			utils.Logger.Errorf("error reading expenses: %v", err)
			utils.WriteError(w, "error reading expenses", http.StatusInternalServerError)
			return
		}
		expenses = append(expenses, e)
	}
	if err = rows.Err(); err != nil {
		utils.WriteError(w, "error finalizing expenses read", http.StatusInternalServerError)
		return
	}

	utils.WriteJSON(w, map[string]interface{}{
		"status":   "success",
		"group_id": groupID,
		"count":    len(expenses),
		"expenses": expenses,
	})
}

// FUNC TO GET ONE EXPENSE WITH ITS SHARES
func GetExpenseByIdHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.WriteError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	db := sqlconnect.DB
	if db == nil {
		utils.Logger.Error("DB is not initialized")
		utils.WriteError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	expenseID, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		utils.WriteError(w, "invalid expense ID", http.StatusBadRequest)
		return
	}

	userID, ok := handlers.UserIDFromRequest(r)
	if !ok {
		utils.WriteError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var expense models.Expense
	err = db.QueryRowContext(ctx,
		"SELECT id, group_id, payer_id, description, amount, spent_on FROM expenses WHERE id = ?",
		expenseID).Scan(&expense.ID, &expense.GroupID, &expense.PayerID, &expense.Description, &expense.Amount, &expense.SpentOn)
	if err != nil {
		if err == sql.ErrNoRows {
			utils.WriteError(w, "expense not found", http.StatusNotFound)
			return
		}
		utils.WriteError(w, "failed to retrieve expense", http.StatusInternalServerError)
		return
	}

	isMember, err := services.IsGroupMember(ctx, db, expense.GroupID, userID)
	if err != nil {
		utils.WriteError(w, "failed to verify group membership", http.StatusInternalServerError)
		return
	}
	if !isMember {
		utils.WriteError(w, "you are not a member of this group", http.StatusForbidden)
		return
	}

	type shareRow struct {
		models.ExpenseShare
		Username string `json:"username"`
	}

	rows, err := db.QueryContext(ctx, `
		SELECT s.user_id, u.username, s.share
		FROM expense_shares s
		JOIN users u ON s.user_id = u.id
		WHERE s.expense_id = ?
		ORDER BY s.user_id
	`, expenseID)
	if err != nil {
		utils.Logger.Errorf("failed to retrieve expense shares: %v", err)
		utils.WriteError(w, "failed to retrieve expense shares", http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	var shares []shareRow
	for rows.Next() {
		var s shareRow
		if err := rows.Scan(&s.UserID, &s.Username, &s.Share); err != nil {
			utils.Logger.Errorf("error scanning share: %v", err)
			continue
		}
		shares = append(shares, s)
	}

	utils.WriteJSON(w, map[string]interface{}{
		"status": "success",
		"data": map[string]interface{}{
			"expense": expense,
			"shares":  shares,
		},
	})
}

// FUNC TO UPDATE AN EXPENSE AND RECOMPUTE THE GROUP LEDGER
func UpdateExpenseHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPatch {
		utils.WriteError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	db := sqlconnect.DB
	if db == nil {
		utils.Logger.Error("DB is not initialized")
		utils.WriteError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	expenseID, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		utils.WriteError(w, "invalid expense ID", http.StatusBadRequest)
		return
	}

	userID, ok := handlers.UserIDFromRequest(r)
	if !ok {
		utils.WriteError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	type request struct {
		Description  *string               `json:"description"`
		Amount       *decimal.Decimal      `json:"amount"`
		SpentOn      *string               `json:"spent_on"`
		Participants []int                 `json:"participants"`
		Shares       []services.ShareInput `json:"shares"`
	}

	var req request
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		utils.WriteError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if req.SpentOn != nil {
		if _, err := time.Parse("2006-01-02", *req.SpentOn); err != nil {
			utils.WriteError(w, "spent_on must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if !canEditExpense(ctx, w, db, expenseID, userID) {
		return
	}

	expense, err := services.UpdateExpense(ctx, db, expenseID, services.UpdateExpenseInput{
		Description:  req.Description,
		Amount:       req.Amount,
		SpentOn:      req.SpentOn,
		Participants: req.Participants,
		Shares:       req.Shares,
	})
	if err != nil {
		handlers.WriteServiceError(w, err)
		return
	}

	go services.NotifyExpenseChange(db, expense, userID, models.NotificationExpenseUpdated)

	utils.WriteJSON(w, map[string]interface{}{
		"status":  "success",
		"message": "expense updated and group balances recomputed",
		"data": map[string]interface{}{
			"expense_id": expense.ID,
			"new_amount": expense.Amount,
		},
	})
}

// FUNC TO DELETE AN EXPENSE AND RECOMPUTE THE GROUP LEDGER
func DeleteExpenseHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		utils.WriteError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	db := sqlconnect.DB
	if db == nil {
		utils.WriteError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	expenseID, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		utils.WriteError(w, "invalid expense ID", http.StatusBadRequest)
		return
	}

	userID, ok := handlers.UserIDFromRequest(r)
	if !ok {
		utils.WriteError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if !canEditExpense(ctx, w, db, expenseID, userID) {
		return
	}

	expense, err := services.DeleteExpense(ctx, db, expenseID)
	if err != nil {
		handlers.WriteServiceError(w, err)
		return
	}

	go services.NotifyExpenseChange(db, expense, userID, models.NotificationExpenseDeleted)

	utils.WriteJSON(w, map[string]interface{}{
		"status":  "success",
		"message": "expense deleted and group balances recomputed",
	})
}

// canEditExpense checks that the expense exists and the caller is its
// payer or a group owner/admin, writing the error response itself.
func canEditExpense(ctx context.Context, w http.ResponseWriter, db *sql.DB, expenseID, userID int) bool {
	var groupID, payerID int
	err := db.QueryRowContext(ctx,
		"SELECT group_id, payer_id FROM expenses WHERE id = ?", expenseID).Scan(&groupID, &payerID)
	if err != nil {
		if err == sql.ErrNoRows {
			utils.WriteError(w, "expense not found", http.StatusNotFound)
			return false
		}
		utils.WriteError(w, "failed to retrieve expense", http.StatusInternalServerError)
		return false
	}

	if payerID == userID {
		return true
	}

	var role string
	err = db.QueryRowContext(ctx,
		"SELECT role FROM group_members WHERE group_id = ? AND user_id = ?",
		groupID, userID).Scan(&role)
	if err == nil && (role == models.RoleOwner || role == models.RoleAdmin) {
		return true
	}
	if err != nil && err != sql.ErrNoRows {
		utils.WriteError(w, "failed to verify group membership", http.StatusInternalServerError)
		return false
	}

	utils.WriteError(w, "you are not authorized to modify this expense", http.StatusForbidden)
	return false
}
