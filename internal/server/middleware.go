package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"dormitory-forms/internal/backend"
	"dormitory-forms/pkg/idgen"
)

const ctxKeyRequestID = "requestID"

// RequestID 沿用调用方的 X-Request-ID，没有时用 ids 生成
func RequestID(ids *idgen.Snowflake) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(backend.HeaderRequestID)
		if id == "" && ids != nil {
			if next, err := ids.NextID(); err == nil {
				id = next.String()
			}
		}
		if id != "" {
			c.Set(ctxKeyRequestID, id)
			c.Header(backend.HeaderRequestID, id)
		}
		c.Next()
	}
}

// RequestLogger 每个请求一条访问日志，4xx 为 warn，5xx 为 error
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("request_id", c.GetString(ctxKeyRequestID)),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch {
		case status >= http.StatusInternalServerError:
			logger.Error("http request", fields...)
		case status >= http.StatusBadRequest:
			logger.Warn("http request", fields...)
		default:
			logger.Info("http request", fields...)
		}
	}
}

// Recovery panic 转为 500 并记录
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Error("panic recovered",
			zap.Any("panic", recovered),
			zap.String("path", c.Request.URL.Path),
			zap.Stack("stack"))
		writeError(c, http.StatusInternalServerError, "internal error")
	})
}
