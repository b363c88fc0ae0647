package backend

import (
	"errors"
	"fmt"
	"net/http"

	"dormitory-forms/pkg/validator"
)

// 服务端错误码
const (
	CodeDuplicateApplication = "DUPLICATE_APPLICATION"
	CodeProfileIncomplete    = "PROFILE_INCOMPLETE"
)

var (
	// ErrEmptyBaseURL 未配置后端地址
	ErrEmptyBaseURL = errors.New("backend: base url is required")
	// ErrDecode 响应体无法解析
	ErrDecode = errors.New("backend: cannot decode response")
)

// ErrorDetail 服务端返回的字段级错误
type ErrorDetail struct {
	Path    []string `json:"path"`
	Message string   `json:"message"`
}

// APIError 非 2xx 响应
// 载荷形如 {error, code?, details?[{path, message}]}
type APIError struct {
	Status  int           `json:"-"`
	Message string        `json:"error"`
	Code    string        `json:"code,omitempty"`
	Details []ErrorDetail `json:"details,omitempty"`
}

// Error 实现 error 接口
func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Code != "" {
		return fmt.Sprintf("backend: %d %s (%s)", e.Status, msg, e.Code)
	}
	return fmt.Sprintf("backend: %d %s", e.Status, msg)
}

// IsDuplicate 重复提交申请
func (e *APIError) IsDuplicate() bool {
	return e.Code == CodeDuplicateApplication
}

// IsIncompleteProfile 个人资料不完整，需要跳转补全
func (e *APIError) IsIncompleteProfile() bool {
	return e.Code == CodeProfileIncomplete
}

// Paths 把 details 转换为字段路径，空路径被跳过
func (e *APIError) Paths() []validator.PathError {
	out := make([]validator.PathError, 0, len(e.Details))
	for _, d := range e.Details {
		path, err := validator.PathFromSegments(d.Path)
		if err != nil {
			continue
		}
		out = append(out, validator.PathError{Path: path, Message: d.Message})
	}
	return out
}

// FieldErrors 以路径的第一段作为字段键，同一字段保留第一条消息
func (e *APIError) FieldErrors() map[string]string {
	out := make(map[string]string, len(e.Details))
	for _, p := range e.Paths() {
		if _, exists := out[p.Path.Name]; exists {
			continue
		}
		out[p.Path.Name] = p.Message
	}
	return out
}

// AsAPIError 从错误链中取出 *APIError
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
