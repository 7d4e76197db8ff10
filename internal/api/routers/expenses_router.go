package routers

import (
	"net/http"
	"splitledger/internal/api/handlers/expenses"
)

func expensesRouter() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/expenses/create", expenses.CreateExpenseHandler)

	mux.HandleFunc("/expenses/group/{id}", expenses.GetGroupExpensesHandler)

	mux.HandleFunc("/expenses/{id}", expenses.GetExpenseByIdHandler)

	mux.HandleFunc("/expenses/update/{id}", expenses.UpdateExpenseHandler)

	mux.HandleFunc("/expenses/delete/{id}", expenses.DeleteExpenseHandler)

	return mux
}
