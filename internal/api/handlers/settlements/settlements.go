package settlements

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

// FUNC TO SETTLE A DEBT (FULL OR PARTIAL)
func SettleDebtHandler(w http.ResponseWriter, r *http.Request) {
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

	type request struct {
		ToUserID int             `json:"to_user_id"`
		Amount   decimal.Decimal `json:"amount"`
		Note     string          `json:"note"`
	}

	var req request
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		utils.WriteError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if req.Amount.LessThanOrEqual(decimal.Zero) {
		utils.WriteError(w, "amount must be greater than 0", http.StatusBadRequest)
		return
	}
	if len(req.Note) > 255 {
		utils.WriteError(w, "note too long", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	for _, id := range []int{userID, req.ToUserID} {
		isMember, err := services.IsGroupMember(ctx, db, groupID, id)
		if err != nil {
			utils.WriteError(w, "failed to verify group membership", http.StatusInternalServerError)
			return
		}
		if !isMember {
			utils.WriteError(w, "both parties must be members of this group", http.StatusForbidden)
			return
		}
	}

	settlement := &models.Settlement{
		GroupID:    groupID,
		FromUserID: userID,
		ToUserID:   req.ToUserID,
		Amount:     req.Amount,
		Note:       req.Note,
	}
	if err := services.SettleDebt(ctx, db, settlement); err != nil {
		handlers.WriteServiceError(w, err)
		return
	}

	go services.NotifySettlementReceived(db, settlement)

	utils.WriteJSON(w, map[string]interface{}{
		"status":  "success",
		"message": "settlement recorded",
		"data": map[string]interface{}{
			"settlement_id": settlement.ID,
			"group_id":      groupID,
			"to_user_id":    req.ToUserID,
			"amount":        req.Amount,
		},
	})
}

// FUNC TO LIST A GROUP'S SETTLEMENT HISTORY
func GetGroupSettlementsHandler(w http.ResponseWriter, r *http.Request) {
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
		SELECT s.id, s.from_user_id, fu.username, s.to_user_id, tu.username, s.amount, s.note, s.created_at
		FROM settlements s
		JOIN users fu ON s.from_user_id = fu.id
		JOIN users tu ON s.to_user_id = tu.id
		WHERE s.group_id = ?
		ORDER BY s.created_at DESC
	`, groupID)
	if err != nil {
		utils.WriteError(w, "failed to retrieve settlements", http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	type settlementRow struct {
		ID           int             `json:"id"`
		FromUserID   int             `json:"from_user_id"`
		FromUsername string          `json:"from_username"`
		ToUserID     int             `json:"to_user_id"`
		ToUsername   string          `json:"to_username"`
		Amount       decimal.Decimal `json:"amount"`
		Note         string          `json:"note,omitempty"`
		CreatedAt    sql.NullString  `json:"created_at"`
	}

	var settlements []settlementRow
	for rows.Next() {
		var s settlementRow
		var note sql.NullString
		if err := rows.Scan(&s.ID, &s.FromUserID, &s.FromUsername, &s.ToUserID, &s.ToUsername, &s.Amount, &note, &s.CreatedAt); err != nil {
			utils.Logger.Errorf("error scanning settlement: %v", err)
			continue
		}
		if note.Valid {
			s.Note = note.String
		}
		settlements = append(settlements, s)
	}
	if err := rows.Err(); err != nil {
		utils.WriteError(w, "error finalizing settlements read", http.StatusInternalServerError)
		return
	}

	utils.WriteJSON(w, map[string]interface{}{
		"status":      "success",
		"group_id":    groupID,
		"count":       len(settlements),
		"settlements": settlements,
	})
}
