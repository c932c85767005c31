package apiserver

import (
	"net/http"

	"go.uber.org/zap"

	"im-social/internal/services"
	"im-social/internal/session"
)

// GroupHandler 封装了群组相关的 HTTP 处理器方法。
type GroupHandler struct {
	groupService services.GroupService
	sessions     *session.Manager
	log          *zap.Logger
}

// NewGroupHandler 创建一个新的 GroupHandler 实例。
func NewGroupHandler(groupService services.GroupService, sessions *session.Manager, log *zap.Logger) *GroupHandler {
	return &GroupHandler{groupService: groupService, sessions: sessions, log: log}
}

// CreateGroupRequest 是创建群组的请求体。名称为空白时由服务层拒绝。
type CreateGroupRequest struct {
	Name string `json:"name"`
}

// InviteRequest 是邀请用户入群的请求体。
type InviteRequest struct {
	UserID uint `json:"userId" validate:"required"`
}

// CreateGroupHandler 处理创建新群组的请求。
func (h *GroupHandler) CreateGroupHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	var req CreateGroupRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	dispatch(w, r, h.sessions, h.log, userID, session.CreateGroup{Name: req.Name}, http.StatusCreated, "创建群组失败")
}

// GetGroupHandler 获取群组详情，仅对成员 (含被邀请者) 可见。
func (h *GroupHandler) GetGroupHandler(w http.ResponseWriter, r *http.Request) {
	userID, groupID, ok := h.groupRequest(w, r)
	if !ok {
		return
	}
	memberships, err := h.groupService.ListMemberships(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.log, err, "获取群组失败")
		return
	}
	visible := false
	for _, m := range memberships {
		if m.GroupID == groupID {
			visible = true
			break
		}
	}
	if !visible {
		writeJSONError(w, "群组不存在", http.StatusNotFound)
		return
	}

	group, err := h.groupService.GetGroup(r.Context(), groupID)
	if err != nil {
		writeServiceError(w, h.log, err, "获取群组失败")
		return
	}
	writeJSONResponse(w, http.StatusOK, group)
}

// InviteHandler handles POST /api/v1/groups/{groupID}/invites
func (h *GroupHandler) InviteHandler(w http.ResponseWriter, r *http.Request) {
	userID, groupID, ok := h.groupRequest(w, r)
	if !ok {
		return
	}
	var req InviteRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	dispatch(w, r, h.sessions, h.log, userID, session.InviteToGroup{GroupID: groupID, Target: req.UserID}, http.StatusCreated, "邀请失败")
}

func (h *GroupHandler) AcceptInviteHandler(w http.ResponseWriter, r *http.Request) {
	if userID, groupID, ok := h.groupRequest(w, r); ok {
		dispatch(w, r, h.sessions, h.log, userID, session.AcceptGroupInvite{GroupID: groupID}, http.StatusOK, "接受邀请失败")
	}
}

func (h *GroupHandler) DeclineInviteHandler(w http.ResponseWriter, r *http.Request) {
	if userID, groupID, ok := h.groupRequest(w, r); ok {
		dispatch(w, r, h.sessions, h.log, userID, session.DeclineGroupInvite{GroupID: groupID}, http.StatusOK, "拒绝邀请失败")
	}
}

func (h *GroupHandler) LeaveGroupHandler(w http.ResponseWriter, r *http.Request) {
	if userID, groupID, ok := h.groupRequest(w, r); ok {
		dispatch(w, r, h.sessions, h.log, userID, session.LeaveGroup{GroupID: groupID}, http.StatusOK, "退出群组失败")
	}
}

// GetGroupMembersHandler 获取群组成员列表。
func (h *GroupHandler) GetGroupMembersHandler(w http.ResponseWriter, r *http.Request) {
	userID, groupID, ok := h.groupRequest(w, r)
	if !ok {
		return
	}
	members, err := h.groupService.ListMembers(r.Context(), userID, groupID)
	if err != nil {
		writeServiceError(w, h.log, err, "获取群组成员失败")
		return
	}
	writeJSONResponse(w, http.StatusOK, members)
}

func (h *GroupHandler) groupRequest(w http.ResponseWriter, r *http.Request) (userID, groupID uint, ok bool) {
	if userID, ok = currentUserID(w, r); !ok {
		return 0, 0, false
	}
	if groupID, ok = pathID(w, r, "groupID"); !ok {
		return 0, 0, false
	}
	return userID, groupID, true
}
