package notifications

import (
	"context"
	"net/http"
	"splitledger/internal/api/handlers"
	"splitledger/internal/models"
	"splitledger/internal/repositories/sqlconnect"
	"splitledger/pkg/utils"
	"strconv"
	"time"
)

// FUNC TO LIST THE CALLER'S NOTIFICATIONS
func GetNotificationsHandler(w http.ResponseWriter, r *http.Request) {
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
		SELECT id, user_id, COALESCE(group_id, 0), type, message, is_read, created_at
		FROM notifications
		WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT 100
	`, userID)
	if err != nil {
		utils.WriteError(w, "failed to retrieve notifications", http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.GroupID, &n.Type, &n.Message, &n.IsRead, &n.CreatedAt); err != nil {
			utils.Logger.Errorf("error scanning notification: %v", err)
			continue
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		utils.WriteError(w, "error finalizing notifications read", http.StatusInternalServerError)
		return
	}

	utils.WriteJSON(w, map[string]interface{}{
		"status":        "success",
		"count":         len(notifications),
		"notifications": notifications,
	})
}

// FUNC TO MARK ONE NOTIFICATION AS READ
func MarkNotificationReadHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.WriteError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	db := sqlconnect.DB
	if db == nil {
		utils.WriteError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	notificationID, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		utils.WriteError(w, "invalid notification ID", http.StatusBadRequest)
		return
	}

	userID, ok := handlers.UserIDFromRequest(r)
	if !ok {
		utils.WriteError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	res, err := db.ExecContext(ctx,
		"UPDATE notifications SET is_read = TRUE WHERE id = ? AND user_id = ?",
		notificationID, userID)
	if err != nil {
		utils.Logger.Errorf("failed to mark notification read: %v", err)
		utils.WriteError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		var exists bool
		if err := db.QueryRowContext(ctx,
			"SELECT EXISTS(SELECT 1 FROM notifications WHERE id = ? AND user_id = ?)",
			notificationID, userID).Scan(&exists); err == nil && !exists {
			utils.WriteError(w, "notification not found", http.StatusNotFound)
			return
		}
	}

	utils.WriteJSON(w, map[string]interface{}{
		"status":  "success",
		"message": "notification marked as read",
	})
}
