package apiserver

import (
	"net/http"

	"go.uber.org/zap"

	"im-social/internal/middleware"
	"im-social/internal/services"
	"im-social/internal/session"
)

// UserHandler 封装了用户资料和账户设置的 HTTP 处理器方法。
type UserHandler struct {
	userService services.UserService
	authService services.AuthService
	sessions    *session.Manager
	log         *zap.Logger
}

// NewUserHandler 创建一个新的 UserHandler 实例。
func NewUserHandler(userService services.UserService, authService services.AuthService, sessions *session.Manager, log *zap.Logger) *UserHandler {
	return &UserHandler{userService: userService, authService: authService, sessions: sessions, log: log}
}

// UpdateEmailRequest 是修改邮箱的请求体。
type UpdateEmailRequest struct {
	Email string `json:"email" validate:"required"`
}

// UpdatePasswordRequest 是修改密码的请求体。
type UpdatePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,nefield=OldPassword"`
}

// GetMyProfileHandler 处理获取当前登录用户信息的请求。
func (h *UserHandler) GetMyProfileHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	user, err := h.userService.GetUserProfile(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.log, err, "获取用户信息失败")
		return
	}
	writeJSONResponse(w, http.StatusOK, user)
}

// ListUsersHandler 返回全部用户的公开信息。
func (h *UserHandler) ListUsersHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentUserID(w, r); !ok {
		return
	}
	users, err := h.userService.ListDirectory(r.Context())
	if err != nil {
		writeServiceError(w, h.log, err, "获取用户列表失败")
		return
	}
	writeJSONResponse(w, http.StatusOK, users)
}

func (h *UserHandler) UpdateEmailHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	var req UpdateEmailRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	user, err := h.userService.UpdateEmail(r.Context(), userID, req.Email)
	if err != nil {
		writeServiceError(w, h.log, err, "修改邮箱失败")
		return
	}
	writeJSONResponse(w, http.StatusOK, user)
}

func (h *UserHandler) UpdatePasswordHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	var req UpdatePasswordRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if err := h.userService.UpdatePassword(r.Context(), userID, req.OldPassword, req.NewPassword); err != nil {
		writeServiceError(w, h.log, err, "修改密码失败")
		return
	}
	writeJSONResponse(w, http.StatusOK, MessageResponse{Message: "密码已更新"})
}

// DeleteAccountHandler 注销当前账户，并吊销当前令牌。
func (h *UserHandler) DeleteAccountHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	if err := h.userService.DeleteAccount(r.Context(), userID); err != nil {
		writeServiceError(w, h.log, err, "注销账户失败")
		return
	}
	h.sessions.Close(userID)
	if claims, ok := middleware.GetClaimsFromContext(r.Context()); ok {
		if err := h.authService.Logout(r.Context(), claims); err != nil {
			h.log.Warn("注销账户后吊销令牌失败", zap.Uint("user", userID), zap.Error(err))
		}
	}
	w.WriteHeader(http.StatusNoContent)
}
