package apiserver

import (
	"net/http"

	"github.com/gorilla/mux"
)

// Handlers 汇总所有 API 处理器。
type Handlers struct {
	Auth         *AuthHandler
	User         *UserHandler
	Relationship *RelationshipHandler
	Group        *GroupHandler
	Message      *MessageHandler
	View         *ViewHandler
}

// NewRouter 注册所有路由。/api/v1 下的路由依次经过 authMW 和 rateLimit。
func NewRouter(h Handlers, authMW, rateLimit mux.MiddlewareFunc) *mux.Router {
	r := mux.NewRouter()

	// 认证路由
	authRouter := r.PathPrefix("/auth").Subrouter()
	authRouter.HandleFunc("/register", h.Auth.Register).Methods(http.MethodPost)
	authRouter.HandleFunc("/login", h.Auth.Login).Methods(http.MethodPost)

	// API 子路由 (需要认证)
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(authMW)
	if rateLimit != nil {
		api.Use(rateLimit)
	}

	api.HandleFunc("/auth/logout", h.Auth.LogoutHandler).Methods(http.MethodPost)

	// 视图
	api.HandleFunc("/view", h.View.GetViewHandler).Methods(http.MethodGet)
	api.HandleFunc("/view/refresh", h.View.RefreshViewHandler).Methods(http.MethodPost)

	// 用户与设置
	api.HandleFunc("/users", h.User.ListUsersHandler).Methods(http.MethodGet)
	api.HandleFunc("/users/me", h.User.GetMyProfileHandler).Methods(http.MethodGet)
	api.HandleFunc("/users/me", h.User.DeleteAccountHandler).Methods(http.MethodDelete)
	api.HandleFunc("/settings/email", h.User.UpdateEmailHandler).Methods(http.MethodPut)
	api.HandleFunc("/settings/password", h.User.UpdatePasswordHandler).Methods(http.MethodPut)

	// 好友
	api.HandleFunc("/friends/relations", h.Relationship.ListRelationsHandler).Methods(http.MethodGet)
	api.HandleFunc("/friends/requests", h.Relationship.SendFriendRequestHandler).Methods(http.MethodPost)
	api.HandleFunc("/friends/requests/{userID:[0-9]+}", h.Relationship.RetractFriendRequestHandler).Methods(http.MethodDelete)
	api.HandleFunc("/friends/requests/{userID:[0-9]+}/accept", h.Relationship.AcceptFriendRequestHandler).Methods(http.MethodPost)
	api.HandleFunc("/friends/requests/{userID:[0-9]+}/decline", h.Relationship.DeclineFriendRequestHandler).Methods(http.MethodPost)
	api.HandleFunc("/friends/{userID:[0-9]+}", h.Relationship.RemoveFriendHandler).Methods(http.MethodDelete)

	// 群组
	api.HandleFunc("/groups", h.Group.CreateGroupHandler).Methods(http.MethodPost)
	api.HandleFunc("/groups/{groupID:[0-9]+}", h.Group.GetGroupHandler).Methods(http.MethodGet)
	api.HandleFunc("/groups/{groupID:[0-9]+}/members", h.Group.GetGroupMembersHandler).Methods(http.MethodGet)
	api.HandleFunc("/groups/{groupID:[0-9]+}/invites", h.Group.InviteHandler).Methods(http.MethodPost)
	api.HandleFunc("/groups/{groupID:[0-9]+}/accept", h.Group.AcceptInviteHandler).Methods(http.MethodPost)
	api.HandleFunc("/groups/{groupID:[0-9]+}/decline", h.Group.DeclineInviteHandler).Methods(http.MethodPost)
	api.HandleFunc("/groups/{groupID:[0-9]+}/leave", h.Group.LeaveGroupHandler).Methods(http.MethodPost)

	// 消息
	api.HandleFunc("/messages/direct/{userID:[0-9]+}", h.Message.SendDirectHandler).Methods(http.MethodPost)
	api.HandleFunc("/messages/direct/{userID:[0-9]+}", h.Message.ListDirectHandler).Methods(http.MethodGet)
	api.HandleFunc("/messages/groups/{groupID:[0-9]+}", h.Message.SendGroupHandler).Methods(http.MethodPost)
	api.HandleFunc("/messages/groups/{groupID:[0-9]+}", h.Message.ListGroupHandler).Methods(http.MethodGet)

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSONResponse(w, http.StatusOK, MessageResponse{Message: "ok"})
	}).Methods(http.MethodGet)

	return r
}
