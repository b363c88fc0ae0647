package types

import (
	"encoding/json"
	"fmt"
)

// FieldState 字段状态类型，使用位运算支持多状态叠加
type FieldState int64

// 预定义的字段状态位
const (
	FieldNone FieldState = 0 // 无状态

	FieldTouched     FieldState = 1 << iota // 用户编辑过
	FieldPrefilled                          // 由服务端预设填充
	FieldLocked                             // 只读，禁止用户修改
	FieldHighlighted                        // 正在高亮显示错误
)

// Set 设置指定的状态位
func (s *FieldState) Set(flag FieldState) {
	*s |= flag
}

// Unset 取消指定的状态位
func (s *FieldState) Unset(flag FieldState) {
	*s &^= flag
}

// Toggle 切换指定的状态位
func (s *FieldState) Toggle(flag FieldState) {
	*s ^= flag
}

// Contain 检查是否包含指定的状态位
func (s FieldState) Contain(flag FieldState) bool {
	return s&flag == flag
}

// HasAny 检查是否包含任意一个指定的状态位
func (s FieldState) HasAny(flags ...FieldState) bool {
	for _, flag := range flags {
		if s&flag != 0 {
			return true
		}
	}
	return false
}

// Clear 清除所有状态位
func (s *FieldState) Clear() {
	*s = FieldNone
}

// IsLocked 是否只读
func (s FieldState) IsLocked() bool {
	return s.Contain(FieldLocked)
}

// CanEdit 用户是否可以编辑
func (s FieldState) CanEdit() bool {
	return !s.IsLocked()
}

// String 返回便于日志阅读的状态描述
func (s FieldState) String() string {
	if s == FieldNone {
		return "none"
	}
	names := make([]byte, 0, 32)
	appendName := func(flag FieldState, name string) {
		if !s.Contain(flag) {
			return
		}
		if len(names) > 0 {
			names = append(names, '|')
		}
		names = append(names, name...)
	}
	appendName(FieldTouched, "touched")
	appendName(FieldPrefilled, "prefilled")
	appendName(FieldLocked, "locked")
	appendName(FieldHighlighted, "highlighted")
	return string(names)
}

// MarshalJSON 实现 json.Marshaler 接口
func (s FieldState) MarshalJSON() ([]byte, error) {
	return json.Marshal(int64(s))
}

// UnmarshalJSON 实现 json.Unmarshaler 接口
func (s *FieldState) UnmarshalJSON(data []byte) error {
	var num int64
	if err := json.Unmarshal(data, &num); err != nil {
		return fmt.Errorf("cannot unmarshal %s into FieldState: %w", string(data), err)
	}
	*s = FieldState(num)
	return nil
}
