package routers

import (
	"net/http"
	"splitledger/internal/api/handlers/settlements"
)

func settlementsRouter() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/settlements/group/{id}/settle", settlements.SettleDebtHandler)

	mux.HandleFunc("/settlements/group/{id}", settlements.GetGroupSettlementsHandler)

	return mux
}
