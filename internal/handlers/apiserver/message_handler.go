package apiserver

import (
	"net/http"

	"go.uber.org/zap"

	"im-social/internal/services"
)

// MessageHandler 处理私聊和群聊消息。
type MessageHandler struct {
	messageService services.MessageService
	log            *zap.Logger
}

func NewMessageHandler(messageService services.MessageService, log *zap.Logger) *MessageHandler {
	return &MessageHandler{messageService: messageService, log: log}
}

// SendMessageRequest 是发送消息的请求体。
type SendMessageRequest struct {
	Content string `json:"content" validate:"required"`
}

// SendDirectHandler handles POST /api/v1/messages/direct/{userID}
func (h *MessageHandler) SendDirectHandler(w http.ResponseWriter, r *http.Request) {
	senderID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	receiverID, ok := pathID(w, r, "userID")
	if !ok {
		return
	}
	var req SendMessageRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	msg, err := h.messageService.SendDirect(r.Context(), senderID, receiverID, req.Content)
	if err != nil {
		writeServiceError(w, h.log, err, "发送消息失败")
		return
	}
	writeJSONResponse(w, http.StatusCreated, msg)
}

// ListDirectHandler handles GET /api/v1/messages/direct/{userID}?limit=N
func (h *MessageHandler) ListDirectHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	otherID, ok := pathID(w, r, "userID")
	if !ok {
		return
	}
	msgs, err := h.messageService.ListDirect(r.Context(), userID, otherID, queryLimit(r))
	if err != nil {
		writeServiceError(w, h.log, err, "获取消息失败")
		return
	}
	writeJSONResponse(w, http.StatusOK, msgs)
}

// SendGroupHandler handles POST /api/v1/messages/groups/{groupID}
func (h *MessageHandler) SendGroupHandler(w http.ResponseWriter, r *http.Request) {
	senderID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	groupID, ok := pathID(w, r, "groupID")
	if !ok {
		return
	}
	var req SendMessageRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	msg, err := h.messageService.SendGroup(r.Context(), senderID, groupID, req.Content)
	if err != nil {
		writeServiceError(w, h.log, err, "发送消息失败")
		return
	}
	writeJSONResponse(w, http.StatusCreated, msg)
}

// ListGroupHandler handles GET /api/v1/messages/groups/{groupID}?limit=N
func (h *MessageHandler) ListGroupHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	groupID, ok := pathID(w, r, "groupID")
	if !ok {
		return
	}
	msgs, err := h.messageService.ListGroup(r.Context(), userID, groupID, queryLimit(r))
	if err != nil {
		writeServiceError(w, h.log, err, "获取消息失败")
		return
	}
	writeJSONResponse(w, http.StatusOK, msgs)
}
