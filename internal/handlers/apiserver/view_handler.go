package apiserver

import (
	"net/http"

	"go.uber.org/zap"

	"im-social/internal/session"
)

// ViewHandler 暴露当前用户的会话视图。
type ViewHandler struct {
	sessions *session.Manager
	log      *zap.Logger
}

func NewViewHandler(sessions *session.Manager, log *zap.Logger) *ViewHandler {
	return &ViewHandler{sessions: sessions, log: log}
}

// GetViewHandler 返回会话快照。会话不存在时创建并刷新一次。
func (h *ViewHandler) GetViewHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	writeJSONResponse(w, http.StatusOK, h.sessions.Open(r.Context(), userID).Snapshot())
}

// RefreshViewHandler 立即执行一次刷新。刷新失败时仍返回快照，错误写在 status 中。
func (h *ViewHandler) RefreshViewHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	sess := h.sessions.Open(r.Context(), userID)
	if err := sess.Refresh(r.Context()); err != nil {
		h.log.Warn("手动刷新视图失败", zap.Uint("user", userID), zap.Error(err))
	}
	writeJSONResponse(w, http.StatusOK, sess.Snapshot())
}
