package routers

import (
	"net/http"
	"splitledger/internal/api/handlers/analytics"
)

func analyticsRouter() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/analytics/group/{id}/members", analytics.GetMemberSpendingHandler)

	mux.HandleFunc("/analytics/group/{id}/trend", analytics.GetSpendingTrendHandler)

	return mux
}
