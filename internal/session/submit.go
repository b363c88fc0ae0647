package session

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"dormitory-forms/internal/backend"
	"dormitory-forms/internal/forms"
	"dormitory-forms/internal/navigator"
	"dormitory-forms/pkg/validator"
)

// Outcome 一次提交尝试的结果
type Outcome struct {
	Submitted bool              `json:"submitted"`
	Redirect  string            `json:"redirect,omitempty"`
	Notice    string            `json:"notice,omitempty"`
	Result    *validator.Result `json:"result"`
}

// Validate 用当前上下文验证表单，并用结果重建错误游标（下标回到 0）
func (s *Session) Validate() *validator.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.validateLocked()
}

func (s *Session) validateLocked() *validator.Result {
	schema, err := forms.BuildAccommodationSchema(s.opts.Validator, forms.Context{
		Groups:        s.catalog,
		CenturyPrefix: s.opts.CenturyPrefix,
		Now:           s.opts.Now,
	})
	if err != nil {
		// 模式由代码静态声明，构建失败说明程序有误
		s.logger.Error("build accommodation schema", zap.Error(err))
		result := validator.NewResult(forms.AccommodationFields())
		result.Merge("form", err.Error())
		s.setResultLocked(result)
		return result
	}
	result := schema.Validate(s.values.Clone())
	s.setResultLocked(result)
	return result
}

func (s *Session) setResultLocked(result *validator.Result) {
	s.result = result
	s.cursor.Reset(navigator.BuildOrderedKeys(result.Messages(), forms.AccommodationFields()))
}

// Result 最近一次验证结果
func (s *Session) Result() *validator.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// JumpTo 跳到第 index 个错误
func (s *Session) JumpTo(index int) (string, error) {
	return s.cursor.JumpTo(index)
}

// NextError 跳到下一个错误
func (s *Session) NextError() (string, error) {
	return s.cursor.Next()
}

// PrevError 跳到上一个错误
func (s *Session) PrevError() (string, error) {
	return s.cursor.Prev()
}

// ErrorIndex 游标当前下标
func (s *Session) ErrorIndex() int {
	return s.cursor.Index()
}

// Submit 提交申请
//
// 客户端验证失败时返回 ErrInvalidForm 并跳到第一个错误。
// 服务端错误按 code 分类：重复申请给出提示，资料不完整给出跳转地址，
// details 合并进字段错误（客户端错误优先），其余给出通用提示。
// 这些情况都不返回 error，Outcome 描述界面应做的反馈。
func (s *Session) Submit(ctx context.Context) (*Outcome, error) {
	if s.opts.Backend == nil {
		return nil, ErrNoBackend
	}

	s.mu.Lock()
	result := s.validateLocked()
	if !result.IsValid() {
		s.mu.Unlock()
		s.notify(LevelWarning, NoticeFixErrors)
		s.jumpToFirst()
		return &Outcome{Result: result, Notice: NoticeFixErrors}, ErrInvalidForm
	}
	payload, err := forms.AccommodationPayload(s.values, s.opts.CenturyPrefix)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	submitErr := s.opts.Backend.SubmitAccommodation(ctx, payload)
	if submitErr == nil {
		s.mu.Lock()
		s.submitted = true
		s.mu.Unlock()
		s.notify(LevelInfo, NoticeSubmitted)
		return &Outcome{Submitted: true, Notice: NoticeSubmitted, Result: result}, nil
	}

	s.logger.Warn("submit accommodation", zap.Error(submitErr))
	apiErr, ok := backend.AsAPIError(submitErr)
	switch {
	case ok && apiErr.IsDuplicate():
		s.notify(LevelWarning, NoticeDuplicate)
		return &Outcome{Notice: NoticeDuplicate, Result: result}, nil
	case ok && apiErr.IsIncompleteProfile():
		s.notify(LevelWarning, NoticeProfile)
		return &Outcome{Notice: NoticeProfile, Redirect: s.opts.ProfileURL, Result: result}, nil
	case ok && len(apiErr.Details) > 0:
		merged := s.mergeServerErrors(apiErr)
		s.notify(LevelWarning, NoticeFixErrors)
		s.jumpToFirst()
		return &Outcome{Notice: NoticeFixErrors, Result: merged}, ErrInvalidForm
	default:
		notice := NoticeSubmitFailed
		if ok && apiErr.Message != "" {
			notice = apiErr.Message
		}
		s.notify(LevelError, notice)
		return &Outcome{Notice: notice, Result: result}, nil
	}
}

// mergeServerErrors 把服务端 details 合并进最近一次验证结果的副本并重建游标
// 已经交给调用方的结果不会被修改
func (s *Session) mergeServerErrors(apiErr *backend.APIError) *validator.Result {
	fieldErrors := forms.MapServerErrors(apiErr.FieldErrors())
	keys := make([]string, 0, len(fieldErrors))
	for key := range fieldErrors {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	s.mu.Lock()
	defer s.mu.Unlock()
	result := s.result.Clone()
	if result == nil {
		result = validator.NewResult(forms.AccommodationFields())
	}
	for _, key := range keys {
		result.Merge(key, fieldErrors[key])
	}
	s.setResultLocked(result)
	return result
}

// jumpToFirst 提交失败后聚焦第一个错误，聚焦失败只记录日志
func (s *Session) jumpToFirst() {
	if _, err := s.cursor.JumpTo(0); err != nil {
		s.logger.Debug("jump to first error", zap.Error(err))
	}
}

// Submitted 是否已成功提交
func (s *Session) Submitted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitted
}
