package handlers

import (
	"errors"
	"net/http"
	"splitledger/internal/services"
	"splitledger/pkg/utils"
)

// UserIDFromRequest pulls the authenticated user id the JWT middleware put
// on the context. JWT numeric claims decode as float64.
func UserIDFromRequest(r *http.Request) (int, bool) {
	idFloat, ok := r.Context().Value(utils.ContextKey("userId")).(float64)
	if !ok {
		return 0, false
	}
	return int(idFloat), true
}

// WriteServiceError maps the service layer's sentinel errors to HTTP
// status codes. Anything unrecognized is logged and reported as a 500.
func WriteServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrGroupNotFound),
		errors.Is(err, services.ErrExpenseNotFound):
		utils.WriteError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, services.ErrNotGroupMember):
		utils.WriteError(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, services.ErrInvalidAmount),
		errors.Is(err, services.ErrNoParticipants),
		errors.Is(err, services.ErrSharesMismatch):
		utils.WriteError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, services.ErrExceedsOutstandingDebt):
		utils.WriteError(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		utils.Logger.Errorf("service error: %v", err)
		utils.WriteError(w, "internal server error", http.StatusInternalServerError)
	}
}
