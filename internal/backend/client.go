package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"dormitory-forms/pkg/idgen"
)

const (
	// DefaultTimeout 默认 HTTP 超时，业务层不再另设超时
	DefaultTimeout = 15 * time.Second
	// HeaderRequestID 请求追踪头
	HeaderRequestID = "X-Request-ID"

	maxErrorBody = 1 << 20
)

// API 会话依赖的后端能力，便于测试替换
type API interface {
	Faculties(ctx context.Context) ([]Faculty, error)
	Groups(ctx context.Context, facultyID int) ([]Group, error)
	Dormitories(ctx context.Context) ([]Dormitory, error)
	Preset(ctx context.Context, dormitoryID int, academicYear string) (*Preset, error)
	SubmitAccommodation(ctx context.Context, req AccommodationRequest) error
}

// Client 后端 REST 客户端
// 请求不重试；失败以 error 返回，由调用方决定降级方式
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     *zap.Logger
	ids        *idgen.Snowflake
}

var _ API = (*Client)(nil)

// Option 客户端选项
type Option func(*Client)

// WithHTTPClient 使用自定义 http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout 设置 HTTP 超时
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithLogger 设置日志
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithIDGenerator 设置请求 ID 生成器
func WithIDGenerator(ids *idgen.Snowflake) Option {
	return func(c *Client) {
		c.ids = ids
	}
}

// New 创建客户端
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, ErrEmptyBaseURL
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("backend: parse base url: %w", err)
	}

	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Faculties GET /faculties
func (c *Client) Faculties(ctx context.Context) ([]Faculty, error) {
	var out []Faculty
	if _, err := c.do(ctx, http.MethodGet, "/faculties", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Groups GET /faculties/{id}/groups
func (c *Client) Groups(ctx context.Context, facultyID int) ([]Group, error) {
	var out []Group
	path := "/faculties/" + strconv.Itoa(facultyID) + "/groups"
	if _, err := c.do(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Dormitories GET /dormitories
func (c *Client) Dormitories(ctx context.Context) ([]Dormitory, error) {
	var out []Dormitory
	if _, err := c.do(ctx, http.MethodGet, "/dormitories", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Preset GET /application-presets/dormitory/{id}?academic_year=YYYY-YYYY
// 没有预设（404 或空响应体）时返回 nil, nil
func (c *Client) Preset(ctx context.Context, dormitoryID int, academicYear string) (*Preset, error) {
	query := url.Values{}
	query.Set("academic_year", academicYear)
	path := "/application-presets/dormitory/" + strconv.Itoa(dormitoryID)

	var out *Preset
	found, err := c.do(ctx, http.MethodGet, path, query, nil, &out)
	if err != nil {
		if apiErr, ok := AsAPIError(err); ok && apiErr.Status == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return out, nil
}

// SubmitAccommodation POST /services/accommodation-application
func (c *Client) SubmitAccommodation(ctx context.Context, req AccommodationRequest) error {
	_, err := c.do(ctx, http.MethodPost, "/services/accommodation-application", nil, req, nil)
	return err
}

// do 执行请求；out 非 nil 时解析响应体，返回值表示响应体是否非空
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) (bool, error) {
	endpoint := c.baseURL.JoinPath(path)
	if len(query) > 0 {
		endpoint.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return false, fmt.Errorf("backend: encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return false, fmt.Errorf("backend: build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	requestID := c.requestID()
	if requestID != "" {
		req.Header.Set(HeaderRequestID, requestID)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("backend request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.String("request_id", requestID),
			zap.Error(err))
		return false, fmt.Errorf("backend: %s %s: %w", method, path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	c.logger.Debug("backend request",
		zap.String("method", method),
		zap.String("path", path),
		zap.String("request_id", requestID),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false, decodeAPIError(resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, fmt.Errorf("backend: read %s %s: %w", method, path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return false, nil
	}
	if out == nil {
		return true, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("%w: %s %s: %v", ErrDecode, method, path, err)
	}
	return true, nil
}

func (c *Client) requestID() string {
	if c.ids == nil {
		return ""
	}
	id, err := c.ids.NextID()
	if err != nil {
		c.logger.Warn("request id unavailable", zap.Error(err))
		return ""
	}
	return id.String()
}

// decodeAPIError 解析错误响应体，非 JSON 时只保留状态码
func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err == nil && len(bytes.TrimSpace(data)) > 0 {
		if jsonErr := json.Unmarshal(data, apiErr); jsonErr != nil {
			apiErr.Message = strings.TrimSpace(string(data))
		}
	}
	apiErr.Status = resp.StatusCode
	return apiErr
}
