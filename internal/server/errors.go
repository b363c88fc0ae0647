package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"dormitory-forms/internal/navigator"
	"dormitory-forms/internal/prefs"
	"dormitory-forms/internal/session"
	"dormitory-forms/pkg/idgen"
)

// ErrorResponse 错误响应体
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: message})
}

// statusFor 领域错误到 HTTP 状态码
func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, idgen.ErrInvalidSnowflakeID),
		errors.Is(err, session.ErrUnknownField),
		errors.Is(err, navigator.ErrIndexOutOfRange),
		errors.Is(err, prefs.ErrEmptyKey),
		errors.Is(err, prefs.ErrKeyTooLong):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrFieldLocked),
		errors.Is(err, session.ErrStaleResponse),
		errors.Is(err, navigator.ErrNoErrors):
		return http.StatusConflict
	case errors.Is(err, session.ErrInvalidForm):
		return http.StatusUnprocessableEntity
	case errors.Is(err, session.ErrNoBackend),
		errors.Is(err, session.ErrTooManySessions):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// abortWithError 按错误类型写响应；5xx 不暴露内部错误文本
func abortWithError(c *gin.Context, err error) {
	status := statusFor(err)
	_ = c.Error(err)
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		writeError(c, status, "internal error")
		return
	}
	writeError(c, status, err.Error())
}
