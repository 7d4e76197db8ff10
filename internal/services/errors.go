package services

import "errors"

// Sentinel errors surfaced to the HTTP layer. Handlers map these to status
// codes; anything else is an internal error.
var (
	ErrGroupNotFound          = errors.New("group not found")
	ErrExpenseNotFound        = errors.New("expense not found")
	ErrNotGroupMember         = errors.New("user is not a member of this group")
	ErrInvalidAmount          = errors.New("amount must be greater than 0")
	ErrNoParticipants         = errors.New("expense has no participants")
	ErrSharesMismatch         = errors.New("shares do not sum to the expense amount")
	ErrExceedsOutstandingDebt = errors.New("settlement amount exceeds outstanding debt")
)
