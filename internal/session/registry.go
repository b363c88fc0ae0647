package session

import (
	"fmt"

	"dormitory-forms/pkg/types"
	"dormitory-forms/pkg/validator"
)

// fieldRegistry 会话自身充当字段句柄的注册表：
// 聚焦记录在 focused，高亮记录在字段状态的 FieldHighlighted 位
type fieldRegistry struct {
	s *Session
}

// Focus 实现 navigator.FieldRegistry
func (r *fieldRegistry) Focus(key string) error {
	root := key
	if p, err := validator.ParseFieldPath(key); err == nil {
		root = p.Name
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.known[root]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownField, key)
	}
	r.s.focused = root
	return nil
}

// SetHighlight 实现 navigator.FieldRegistry
func (r *fieldRegistry) SetHighlight(key string, on bool) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	state := r.s.states[key]
	if on {
		state.Set(types.FieldHighlighted)
	} else {
		state.Unset(types.FieldHighlighted)
	}
	r.s.states[key] = state
}

// Focused 最近一次聚焦的字段
func (s *Session) Focused() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.focused
}
