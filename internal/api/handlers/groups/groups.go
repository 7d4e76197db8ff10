package groups

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"splitledger/internal/api/handlers"
	"splitledger/internal/models"
	"splitledger/internal/repositories/sqlconnect"
	"splitledger/pkg/utils"
	"strconv"
	"strings"
	"time"
)

// FUNC TO CREATE A GROUP
func CreateGroupHandler(w http.ResponseWriter, r *http.Request) {
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

	var newGroup models.Group
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&newGroup); err != nil {
		utils.WriteError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	newGroup.Name = strings.TrimSpace(newGroup.Name)
	if newGroup.Name == "" || newGroup.Description == "" {
		utils.WriteError(w, "group name and description is required", http.StatusBadRequest)
		return
	}
	if len(newGroup.Name) > 100 || len(newGroup.Description) > 500 {
		utils.WriteError(w, "name or description too long", http.StatusBadRequest)
		return
	}
	if newGroup.Currency == "" {
		newGroup.Currency = "NGN"
	}
	if len(newGroup.Currency) != 3 {
		utils.WriteError(w, "currency must be a 3-letter code", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		utils.Logger.Errorf("failed to start transaction: %v", err)
		utils.WriteError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	res, err := tx.ExecContext(ctx,
		"INSERT INTO `groups` (name, description, currency, created_by) VALUES (?, ?, ?, ?)",
		newGroup.Name, newGroup.Description, strings.ToUpper(newGroup.Currency), userID)
	if err != nil {
		tx.Rollback()
		utils.Logger.Errorf("failed to create group: %v", err)
		utils.WriteError(w, "failed to create group, try again later!", http.StatusInternalServerError)
		return
	}

	id, err := res.LastInsertId()
	if err != nil {
		tx.Rollback()
		utils.Logger.Errorf("failed to get last inserted ID: %v", err)
		utils.WriteError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO group_members (group_id, user_id, role) VALUES (?, ?, ?)",
		id, userID, models.RoleOwner)
	if err != nil {
		tx.Rollback()
		utils.Logger.Errorf("failed to assign group owner: %v", err)
		utils.WriteError(w, "failed to assign group owner", http.StatusInternalServerError)
		return
	}

	if err = tx.Commit(); err != nil {
		utils.Logger.Errorf("failed to commit transaction: %v", err)
		utils.WriteError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "success",
		"message": "group created successfully",
		"data": map[string]interface{}{
			"group_id":   id,
			"group_name": newGroup.Name,
			"currency":   strings.ToUpper(newGroup.Currency),
			"role":       models.RoleOwner,
		},
	})
}

// FUNC TO LIST GROUPS THE USER BELONGS TO
func GetMyGroupsHandler(w http.ResponseWriter, r *http.Request) {
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

	userID, ok := handlers.UserIDFromRequest(r)
	if !ok {
		utils.WriteError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	rows, err := db.QueryContext(ctx, `
		SELECT g.id, g.name, g.description, g.currency, g.created_by, m.role, g.created_at
		FROM `+"`groups`"+` g
		JOIN group_members m ON m.group_id = g.id
		WHERE m.user_id = ?
		ORDER BY g.created_at DESC
	`, userID)
	if err != nil {
		utils.WriteError(w, "failed to retrieve groups", http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	type groupWithRole struct {
		models.Group
		Role string `json:"role"`
	}

	var groups []groupWithRole
	for rows.Next() {
		var g groupWithRole
		if err := rows.Scan(&g.ID, &g.Name, &g.Description, &g.Currency, &g.CreatedBy, &g.Role, &g.CreatedAt); err != nil {
			utils.Logger.Errorf("error scanning group: %v", err)
			utils.WriteError(w, "error reading groups", http.StatusInternalServerError)
			return
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		utils.WriteError(w, "error finalizing groups read", http.StatusInternalServerError)
		return
	}

	utils.WriteJSON(w, map[string]interface{}{
		"status": "success",
		"count":  len(groups),
		"groups": groups,
	})
}

// FUNC TO GET ONE GROUP WITH ITS MEMBERS
func GetGroupByIDHandler(w http.ResponseWriter, r *http.Request) {
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

	var group models.Group
	err = db.QueryRowContext(ctx,
		"SELECT id, name, description, currency, created_by, created_at FROM `groups` WHERE id = ?",
		groupID).Scan(&group.ID, &group.Name, &group.Description, &group.Currency, &group.CreatedBy, &group.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			utils.WriteError(w, "group not found", http.StatusNotFound)
			return
		}
		utils.WriteError(w, "failed to retrieve group", http.StatusInternalServerError)
		return
	}

	role, err := memberRole(ctx, db, groupID, userID)
	if err != nil {
		utils.WriteError(w, "failed to verify group membership", http.StatusInternalServerError)
		return
	}
	if role == "" {
		utils.WriteError(w, "you are not a member of this group", http.StatusForbidden)
		return
	}

	type memberInfo struct {
		models.GroupMember
		Username string `json:"username"`
	}

	rows, err := db.QueryContext(ctx, `
		SELECT m.user_id, u.username, m.role, m.joined_at
		FROM group_members m
		JOIN users u ON m.user_id = u.id
		WHERE m.group_id = ?
		ORDER BY m.joined_at
	`, groupID)
	if err != nil {
		utils.WriteError(w, "failed to retrieve group members", http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	var members []memberInfo
	for rows.Next() {
		var m memberInfo
		if err := rows.Scan(&m.UserID, &m.Username, &m.Role, &m.JoinedAt); err != nil {
			utils.Logger.Errorf("error scanning member: %v", err)
			continue
		}
		members = append(members, m)
	}

	utils.WriteJSON(w, map[string]interface{}{
		"status": "success",
		"data": map[string]interface{}{
			"group":   group,
			"members": members,
		},
	})
}

// FUNC TO UPDATE GROUP NAME/DESCRIPTION
func UpdateGroupHandler(w http.ResponseWriter, r *http.Request) {
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
		Name        string `json:"name"`
		Description string `json:"description"`
	}

	var req request
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err = decoder.Decode(&req); err != nil {
		utils.WriteError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if req.Name != "" && strings.TrimSpace(req.Name) == "" {
		utils.WriteError(w, "name cannot be empty or whitespace", http.StatusBadRequest)
		return
	}
	if len(req.Name) > 100 || len(req.Description) > 500 {
		utils.WriteError(w, "name or description too long", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	role, err := memberRole(ctx, db, groupID, userID)
	if err != nil {
		utils.WriteError(w, "failed to verify group membership", http.StatusInternalServerError)
		return
	}
	if role != models.RoleOwner && role != models.RoleAdmin {
		utils.WriteError(w, "only the group owner or an admin can update the group", http.StatusForbidden)
		return
	}

	res, err := db.ExecContext(ctx, `
		UPDATE `+"`groups`"+`
		SET name = COALESCE(NULLIF(?, ''), name),
		    description = COALESCE(NULLIF(?, ''), description)
		WHERE id = ?
	`, strings.TrimSpace(req.Name), req.Description, groupID)
	if err != nil {
		utils.Logger.Errorf("failed to update group: %v", err)
		utils.WriteError(w, "failed to update group", http.StatusInternalServerError)
		return
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		// No-op update of an existing group is fine; only a missing group is an error.
		var exists bool
		if err := db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM `groups` WHERE id = ?)", groupID).Scan(&exists); err == nil && !exists {
			utils.WriteError(w, "group not found", http.StatusNotFound)
			return
		}
	}

	utils.WriteJSON(w, map[string]interface{}{
		"status":  "success",
		"message": "group updated successfully",
	})
}

// FUNC TO DELETE A GROUP AND ITS LEDGER
func DeleteGroupHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		utils.WriteError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	db := sqlconnect.DB
	if db == nil {
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

	role, err := memberRole(ctx, db, groupID, userID)
	if err != nil {
		utils.WriteError(w, "failed to verify group membership", http.StatusInternalServerError)
		return
	}
	if role != models.RoleOwner {
		utils.WriteError(w, "only the group owner can delete the group", http.StatusForbidden)
		return
	}

	// Expenses, shares, balances, settlements and notifications cascade.
	res, err := db.ExecContext(ctx, "DELETE FROM `groups` WHERE id = ?", groupID)
	if err != nil {
		utils.Logger.Errorf("failed to delete group: %v", err)
		utils.WriteError(w, "error deleting group", http.StatusInternalServerError)
		return
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		utils.WriteError(w, "group not found or already deleted", http.StatusNotFound)
		return
	}

	utils.WriteJSON(w, map[string]interface{}{
		"status":  "success",
		"message": "group deleted successfully",
	})
}

// FUNC TO ADD A MEMBER BY EMAIL
func AddMemberHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.WriteError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	db := sqlconnect.DB
	if db == nil {
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
		Email string `json:"email"`
		Role  string `json:"role"`
	}

	var req request
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		utils.WriteError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if req.Role == "" {
		req.Role = models.RoleMember
	}
	if req.Role != models.RoleMember && req.Role != models.RoleAdmin {
		utils.WriteError(w, "role must be member or admin", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	role, err := memberRole(ctx, db, groupID, userID)
	if err != nil {
		utils.WriteError(w, "failed to verify group membership", http.StatusInternalServerError)
		return
	}
	if role != models.RoleOwner && role != models.RoleAdmin {
		utils.WriteError(w, "only the group owner or an admin can add members", http.StatusForbidden)
		return
	}

	var newMemberID int
	err = db.QueryRowContext(ctx, "SELECT id FROM users WHERE email = ?",
		strings.ToLower(strings.TrimSpace(req.Email))).Scan(&newMemberID)
	if err != nil {
		if err == sql.ErrNoRows {
			utils.WriteError(w, "no account found for that email", http.StatusNotFound)
			return
		}
		utils.WriteError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	_, err = db.ExecContext(ctx,
		"INSERT INTO group_members (group_id, user_id, role) VALUES (?, ?, ?)",
		groupID, newMemberID, req.Role)
	if err != nil {
		utils.Logger.Errorf("failed to add group member: %v", err)
		utils.WriteError(w, "user is already a member of this group", http.StatusConflict)
		return
	}

	utils.WriteJSON(w, map[string]interface{}{
		"status":  "success",
		"message": "member added successfully",
		"data": map[string]interface{}{
			"group_id": groupID,
			"user_id":  newMemberID,
			"role":     req.Role,
		},
	})
}

// FUNC TO REMOVE A MEMBER
func RemoveMemberHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		utils.WriteError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	removeMember(w, r, false)
}

// FUNC TO LEAVE A GROUP
func LeaveGroupHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.WriteError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	removeMember(w, r, true)
}

func removeMember(w http.ResponseWriter, r *http.Request, leaving bool) {
	db := sqlconnect.DB
	if db == nil {
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

	targetID := userID
	if !leaving {
		targetID, err = strconv.Atoi(r.PathValue("member_id"))
		if err != nil {
			utils.WriteError(w, "invalid member ID", http.StatusBadRequest)
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	role, err := memberRole(ctx, db, groupID, userID)
	if err != nil {
		utils.WriteError(w, "failed to verify group membership", http.StatusInternalServerError)
		return
	}
	if role == "" {
		utils.WriteError(w, "you are not a member of this group", http.StatusForbidden)
		return
	}
	if !leaving && role != models.RoleOwner && role != models.RoleAdmin {
		utils.WriteError(w, "only the group owner or an admin can remove members", http.StatusForbidden)
		return
	}

	targetRole, err := memberRole(ctx, db, groupID, targetID)
	if err != nil {
		utils.WriteError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if targetRole == "" {
		utils.WriteError(w, "member not found in this group", http.StatusNotFound)
		return
	}
	if targetRole == models.RoleOwner {
		utils.WriteError(w, "the group owner cannot be removed", http.StatusForbidden)
		return
	}

	// A member with unsettled debts stays until the ledger is clean.
	var outstanding bool
	err = db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM balances
			WHERE group_id = ? AND (from_user_id = ? OR to_user_id = ?)
		)
	`, groupID, targetID, targetID).Scan(&outstanding)
	if err != nil {
		utils.WriteError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if outstanding {
		utils.WriteError(w, "member has outstanding balances in this group", http.StatusConflict)
		return
	}

	_, err = db.ExecContext(ctx,
		"DELETE FROM group_members WHERE group_id = ? AND user_id = ?", groupID, targetID)
	if err != nil {
		utils.Logger.Errorf("failed to remove group member: %v", err)
		utils.WriteError(w, "failed to remove member", http.StatusInternalServerError)
		return
	}

	message := "member removed successfully"
	if leaving {
		message = "you have left the group"
	}
	utils.WriteJSON(w, map[string]interface{}{
		"status":  "success",
		"message": message,
	})
}

// memberRole returns the user's role in the group, or "" when the user is
// not a member.
func memberRole(ctx context.Context, db *sql.DB, groupID, userID int) (string, error) {
	var role string
	err := db.QueryRowContext(ctx,
		"SELECT role FROM group_members WHERE group_id = ? AND user_id = ?",
		groupID, userID).Scan(&role)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return role, nil
}
