package apiserver

import (
	"net/http"

	"go.uber.org/zap"

	"im-social/internal/models"
	"im-social/internal/services"
	"im-social/internal/session"
)

// RelationshipHandler 处理好友请求相关的 HTTP 请求。
// 变更操作经由用户的会话派发，响应体是操作后的视图快照。
type RelationshipHandler struct {
	friendService services.FriendService
	sessions      *session.Manager
	log           *zap.Logger
}

// NewRelationshipHandler creates a new RelationshipHandler.
func NewRelationshipHandler(fs services.FriendService, sessions *session.Manager, log *zap.Logger) *RelationshipHandler {
	return &RelationshipHandler{friendService: fs, sessions: sessions, log: log}
}

// SendFriendRequestPayload defines the expected JSON body for sending a friend request.
type SendFriendRequestPayload struct {
	UserID uint `json:"userId" validate:"required"`
}

// RelationResponse 是从当前用户角度看到的一条好友关系。
type RelationResponse struct {
	UserID uint                  `json:"userId"`
	Status models.RelationStatus `json:"status"`
}

// SendFriendRequestHandler handles POST /api/v1/friends/requests
func (h *RelationshipHandler) SendFriendRequestHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	var payload SendFriendRequestPayload
	if !decodeAndValidate(w, r, &payload) {
		return
	}
	dispatch(w, r, h.sessions, h.log, userID, session.SendFriendRequest{Target: payload.UserID}, http.StatusCreated, "发送好友请求失败")
}

// AcceptFriendRequestHandler handles POST /api/v1/friends/requests/{userID}/accept
func (h *RelationshipHandler) AcceptFriendRequestHandler(w http.ResponseWriter, r *http.Request) {
	h.withCounterpart(w, r, func(self, other uint) {
		dispatch(w, r, h.sessions, h.log, self, session.AcceptFriendRequest{From: other}, http.StatusOK, "接受好友请求失败")
	})
}

// DeclineFriendRequestHandler handles POST /api/v1/friends/requests/{userID}/decline
func (h *RelationshipHandler) DeclineFriendRequestHandler(w http.ResponseWriter, r *http.Request) {
	h.withCounterpart(w, r, func(self, other uint) {
		dispatch(w, r, h.sessions, h.log, self, session.DeclineFriendRequest{From: other}, http.StatusOK, "拒绝好友请求失败")
	})
}

// RetractFriendRequestHandler handles DELETE /api/v1/friends/requests/{userID}
func (h *RelationshipHandler) RetractFriendRequestHandler(w http.ResponseWriter, r *http.Request) {
	h.withCounterpart(w, r, func(self, other uint) {
		dispatch(w, r, h.sessions, h.log, self, session.RetractFriendRequest{Target: other}, http.StatusOK, "撤回好友请求失败")
	})
}

// RemoveFriendHandler handles DELETE /api/v1/friends/{userID}
func (h *RelationshipHandler) RemoveFriendHandler(w http.ResponseWriter, r *http.Request) {
	h.withCounterpart(w, r, func(self, other uint) {
		dispatch(w, r, h.sessions, h.log, self, session.RemoveFriend{Friend: other}, http.StatusOK, "删除好友失败")
	})
}

// ListRelationsHandler handles GET /api/v1/friends/relations
// 直接读取存储，不经过会话视图。
func (h *RelationshipHandler) ListRelationsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	rels, err := h.friendService.ListRelations(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.log, err, "获取好友关系失败")
		return
	}

	resp := make([]RelationResponse, 0, len(rels))
	for i := range rels {
		p, err := rels[i].Perspective(userID)
		if err != nil {
			continue
		}
		status, err := p.Status()
		if err != nil {
			h.log.Warn("跳过无效的好友关系记录", zap.Uint("user", userID), zap.Error(err))
			continue
		}
		resp = append(resp, RelationResponse{UserID: p.Counterpart, Status: status})
	}
	writeJSONResponse(w, http.StatusOK, resp)
}

func (h *RelationshipHandler) withCounterpart(w http.ResponseWriter, r *http.Request, fn func(self, other uint)) {
	self, ok := currentUserID(w, r)
	if !ok {
		return
	}
	other, ok := pathID(w, r, "userID")
	if !ok {
		return
	}
	fn(self, other)
}

// dispatch 在用户会话上执行事件，成功时返回最新快照。
func dispatch(w http.ResponseWriter, r *http.Request, sessions *session.Manager, log *zap.Logger, userID uint, ev session.Event, okStatus int, fallback string) {
	sess := sessions.Open(r.Context(), userID)
	if err := sess.Dispatch(r.Context(), ev); err != nil {
		writeServiceError(w, log, err, fallback)
		return
	}
	writeJSONResponse(w, okStatus, sess.Snapshot())
}
