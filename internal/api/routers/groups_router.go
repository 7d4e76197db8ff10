package routers

import (
	"net/http"
	"splitledger/internal/api/handlers/groups"
)

func groupsRouter() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/groups/create", groups.CreateGroupHandler)

	mux.HandleFunc("/groups/", groups.GetMyGroupsHandler)

	mux.HandleFunc("/groups/{id}", groups.GetGroupByIDHandler)

	mux.HandleFunc("/groups/update/{id}", groups.UpdateGroupHandler)

	mux.HandleFunc("/groups/delete/{id}", groups.DeleteGroupHandler)

	mux.HandleFunc("/groups/member/{id}/add", groups.AddMemberHandler)

	mux.HandleFunc("/groups/member/{id}/remove/{member_id}", groups.RemoveMemberHandler)

	mux.HandleFunc("/groups/member/{id}/leave", groups.LeaveGroupHandler)

	return mux
}
