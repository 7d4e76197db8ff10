package routers

import (
	"net/http"
	"splitledger/internal/api/handlers/balances"
)

func balancesRouter() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/balances/group/{id}", balances.GetGroupBalancesHandler)

	mux.HandleFunc("/balances/group/{id}/me", balances.GetUserBalancesHandler)

	mux.HandleFunc("/balances/group/{id}/summary", balances.GetBalanceSummaryHandler)

	mux.HandleFunc("/balances/group/{id}/simplified", balances.GetSimplifiedDebtsHandler)

	mux.HandleFunc("/balances/group/{id}/recalculate", balances.RecalculateBalancesHandler)

	return mux
}
