package routers

import (
	"net/http"
)

func MainRouter() *http.ServeMux {

	mux := http.NewServeMux()

	uRouter := usersRouter()
	mux.Handle("/users/", uRouter)

	gRouter := groupsRouter()
	mux.Handle("/groups/", gRouter)

	eRouter := expensesRouter()
	mux.Handle("/expenses/", eRouter)

	bRouter := balancesRouter()
	mux.Handle("/balances/", bRouter)

	sRouter := settlementsRouter()
	mux.Handle("/settlements/", sRouter)

	nRouter := notificationsRouter()
	mux.Handle("/notifications/", nRouter)

	aRouter := analyticsRouter()
	mux.Handle("/analytics/", aRouter)

	return mux
}
