package balances

import (
	"context"
	"net/http"
	"splitledger/internal/api/handlers"
	"splitledger/internal/repositories/sqlconnect"
	"splitledger/internal/services"
	"splitledger/pkg/utils"
	"strconv"
	"time"

	"database/sql"
)

// FUNC TO GET A GROUP'S FULL LEDGER
func GetGroupBalancesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.WriteError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	db, groupID, _, ok := authorizeGroupRead(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	balances, err := services.GetGroupBalances(ctx, db, groupID)
	if err != nil {
		handlers.WriteServiceError(w, err)
		return
	}
	if balances == nil {
		balances = []services.BalanceWithUsers{}
	}

	utils.WriteJSON(w, map[string]interface{}{
		"status":   "success",
		"group_id": groupID,
		"count":    len(balances),
		"balances": balances,
	})
}

// FUNC TO GET THE CALLER'S BALANCES IN A GROUP
func GetUserBalancesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.WriteError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	db, groupID, userID, ok := authorizeGroupRead(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	balances, err := services.GetUserBalancesInGroup(ctx, db, groupID, userID)
	if err != nil {
		handlers.WriteServiceError(w, err)
		return
	}
	if balances == nil {
		balances = []services.BalanceWithUsers{}
	}

	utils.WriteJSON(w, map[string]interface{}{
		"status":   "success",
		"group_id": groupID,
		"balances": balances,
	})
}

// FUNC TO GET THE CALLER'S BALANCE SUMMARY IN A GROUP
func GetBalanceSummaryHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.WriteError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	db, groupID, userID, ok := authorizeGroupRead(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	summary, err := services.GetBalanceSummary(ctx, db, groupID, userID)
	if err != nil {
		handlers.WriteServiceError(w, err)
		return
	}

	utils.WriteJSON(w, map[string]interface{}{
		"status":   "success",
		"group_id": groupID,
		"data":     summary,
	})
}

// FUNC TO GET THE MINIMAL TRANSFER LIST FOR A GROUP
func GetSimplifiedDebtsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.WriteError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	db, groupID, _, ok := authorizeGroupRead(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	transfers, err := services.GetSimplifiedDebts(ctx, db, groupID)
	if err != nil {
		handlers.WriteServiceError(w, err)
		return
	}
	if transfers == nil {
		transfers = []services.BalanceWithUsers{}
	}

	utils.WriteJSON(w, map[string]interface{}{
		"status":    "success",
		"group_id":  groupID,
		"count":     len(transfers),
		"transfers": transfers,
	})
}

// FUNC TO FORCE A FULL LEDGER RECOMPUTE
func RecalculateBalancesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.WriteError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	db, groupID, _, ok := authorizeGroupRead(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 20*time.Second)
	defer cancel()

	if err := services.RecalculateGroupBalances(ctx, db, groupID); err != nil {
		handlers.WriteServiceError(w, err)
		return
	}

	utils.WriteJSON(w, map[string]interface{}{
		"status":  "success",
		"message": "group balances recalculated",
	})
}

// authorizeGroupRead parses the group id, checks the caller is a member,
// and writes the error response on failure.
func authorizeGroupRead(w http.ResponseWriter, r *http.Request) (*sql.DB, int, int, bool) {
	db := sqlconnect.DB
	if db == nil {
		utils.Logger.Error("DB is not initialized")
		utils.WriteError(w, "internal server error", http.StatusInternalServerError)
		return nil, 0, 0, false
	}

	groupID, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		utils.WriteError(w, "invalid group ID", http.StatusBadRequest)
		return nil, 0, 0, false
	}

	userID, ok := handlers.UserIDFromRequest(r)
	if !ok {
		utils.WriteError(w, "unauthorized", http.StatusUnauthorized)
		return nil, 0, 0, false
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	isMember, err := services.IsGroupMember(ctx, db, groupID, userID)
	if err != nil {
		utils.WriteError(w, "failed to verify group membership", http.StatusInternalServerError)
		return nil, 0, 0, false
	}
	if !isMember {
		utils.WriteError(w, "you are not a member of this group", http.StatusForbidden)
		return nil, 0, 0, false
	}

	return db, groupID, userID, true
}
