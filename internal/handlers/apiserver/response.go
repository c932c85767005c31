package apiserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"im-social/internal/apperrors"
	"im-social/internal/middleware"
	"im-social/internal/services"
	"im-social/internal/storage"
)

// ErrorResponse 是 API 错误响应的通用结构体。
type ErrorResponse struct {
	Error string `json:"error"`
}

// MessageResponse 用于没有数据返回的成功响应。
type MessageResponse struct {
	Message string `json:"message"`
}

var validate = validator.New()

// writeJSONResponse 是一个辅助函数，用于发送 JSON 响应。
func writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data != nil {
		// 头部已经发出，编码失败时无法再改状态码
		_ = json.NewEncoder(w).Encode(data)
	}
}

// writeJSONError 是一个辅助函数，用于发送 JSON 格式的错误响应。
func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	writeJSONResponse(w, statusCode, ErrorResponse{Error: message})
}

// writeServiceError 把服务层错误映射为 HTTP 状态码。存储错误不向客户端暴露细节。
func writeServiceError(w http.ResponseWriter, log *zap.Logger, err error, fallback string) {
	var status int
	switch {
	case errors.Is(err, apperrors.ErrValidation), errors.Is(err, apperrors.ErrInvalidRelation):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrInvalidCredentials), errors.Is(err, apperrors.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, apperrors.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, apperrors.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, apperrors.ErrAlreadyRelated),
		errors.Is(err, apperrors.ErrAlreadyMember),
		errors.Is(err, services.ErrEmailInUse):
		status = http.StatusConflict
	default:
		log.Error(fallback, zap.Error(err))
		writeJSONError(w, fallback, http.StatusInternalServerError)
		return
	}
	writeJSONError(w, err.Error(), status)
}

// decodeAndValidate 解码请求体并按 validate 标签校验。
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSONError(w, "请求体无效", http.StatusBadRequest)
		return false
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			writeJSONError(w, "字段 "+verrs[0].Field()+" 无效 ("+verrs[0].Tag()+")", http.StatusBadRequest)
			return false
		}
		writeJSONError(w, "请求体无效", http.StatusBadRequest)
		return false
	}
	return true
}

// currentUserID 读取认证中间件写入的用户 ID。
func currentUserID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "用户未认证", http.StatusUnauthorized)
	}
	return userID, ok
}

// pathID 读取路由中的数字 ID 参数。
func pathID(w http.ResponseWriter, r *http.Request, name string) (uint, bool) {
	id, err := storage.ParseID(mux.Vars(r)[name])
	if err != nil {
		writeJSONError(w, "无效的 "+name, http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// queryLimit 读取 ?limit=，缺省或无效时返回 0。
func queryLimit(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
