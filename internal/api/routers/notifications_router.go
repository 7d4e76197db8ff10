package routers

import (
	"net/http"
	"splitledger/internal/api/handlers/notifications"
)

func notificationsRouter() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/notifications/", notifications.GetNotificationsHandler)

	mux.HandleFunc("/notifications/{id}/read", notifications.MarkNotificationReadHandler)

	return mux
}
