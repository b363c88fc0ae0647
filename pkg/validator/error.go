package validator

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// errorMessageEstimateLen 单条错误消息的预估长度，用于预分配 Builder 容量
const errorMessageEstimateLen = 48

// FieldError 单个字段的验证错误
// 每个字段最多保留一条 FieldError：按声明顺序第一条失败的规则胜出
type FieldError struct {
	// Field 字段键（表单字段名，或 FieldPath.Key() 形式的路径）
	Field string `json:"field"`
	// Tag 失败的规则标签（如 required、date_day、date_order）
	Tag string `json:"tag"`
	// Param 规则参数（如范围 "1-6"、引用字段名）
	Param string `json:"param,omitempty"`
	// Value 字段的实际值
	Value any `json:"value,omitempty"`
	// Message 面向用户的错误消息
	Message string `json:"message"`
}

// NewFieldError 创建字段错误
func NewFieldError(field, tag, param string) *FieldError {
	return &FieldError{
		Field: field,
		Tag:   tag,
		Param: param,
	}
}

// WithMessage 设置错误消息（链式调用）
func (fe *FieldError) WithMessage(message string) *FieldError {
	fe.Message = message
	return fe
}

// WithValue 设置字段值（链式调用）
func (fe *FieldError) WithValue(value any) *FieldError {
	fe.Value = value
	return fe
}

// String 返回友好的错误信息
func (fe *FieldError) String() string {
	if fe.Message != "" {
		return fmt.Sprintf("field '%s': %s", fe.Field, fe.Message)
	}
	return fmt.Sprintf("field '%s' validation failed on tag '%s'", fe.Field, fe.Tag)
}

// Error 实现 error 接口
func (fe *FieldError) Error() string {
	return fe.String()
}

// ============================================================================
// 验证上下文：一次 Validate 调用内的错误收集器
// ============================================================================

// ValidationContext 验证上下文，收集一次验证过程中的所有错误
// 错误收集策略：收集所有字段的错误（不因某个字段失败而停止），
// 但同一字段只保留第一条错误，后到的错误（包括整体规则产生的错误）被丢弃
type ValidationContext struct {
	// Errors 按报告顺序排列的错误
	Errors []*FieldError
	// index 字段 -> Errors 下标
	index map[string]int
}

// NewValidationContext 创建验证上下文
func NewValidationContext() *ValidationContext {
	return &ValidationContext{
		Errors: make([]*FieldError, 0, 8),
		index:  make(map[string]int, 8),
	}
}

// HasErrors 检查是否有验证错误
func (vc *ValidationContext) HasErrors() bool {
	return len(vc.Errors) > 0
}

// HasFieldError 字段是否已经有错误
func (vc *ValidationContext) HasFieldError(field string) bool {
	_, ok := vc.index[field]
	return ok
}

// AddError 添加字段错误，字段已有错误时忽略并返回 false
func (vc *ValidationContext) AddError(err *FieldError) bool {
	if err == nil || err.Field == "" {
		return false
	}
	if _, exists := vc.index[err.Field]; exists {
		return false
	}
	vc.index[err.Field] = len(vc.Errors)
	vc.Errors = append(vc.Errors, err)
	return true
}

// AddErrorByDetail 通过详细信息添加字段错误
func (vc *ValidationContext) AddErrorByDetail(value any, field, tag, param, message string) bool {
	return vc.AddError(&FieldError{
		Field:   field,
		Tag:     tag,
		Param:   param,
		Value:   value,
		Message: message,
	})
}

// Error 实现 error 接口
func (vc *ValidationContext) Error() string {
	if len(vc.Errors) == 0 {
		return "validation passed: no errors"
	}

	var builder strings.Builder
	builder.Grow(len(vc.Errors) * errorMessageEstimateLen)
	for i, err := range vc.Errors {
		if i > 0 {
			builder.WriteString("; ")
		}
		builder.WriteString(err.String())
	}
	return builder.String()
}

// reset 清空上下文，供对象池复用
func (vc *ValidationContext) reset() {
	for i := range vc.Errors {
		vc.Errors[i] = nil
	}
	vc.Errors = vc.Errors[:0]
	clear(vc.index)
}

// ============================================================================
// 验证结果
// ============================================================================

// Result 验证结果
// 不变式：IsValid() == (len(Errors()) == 0)；每个字段至多一条消息；
// 错误按字段在表单中的声明顺序排列，未声明的字段（如服务端返回的路径）排在最后
type Result struct {
	errors []*FieldError
	index  map[string]int
	// order 字段声明顺序，用于排序和合并时定位
	order map[string]int
}

// newResult 从验证上下文构建结果（拷贝错误，上下文可以归还对象池）
func newResult(ctx *ValidationContext, order map[string]int) *Result {
	r := &Result{
		errors: make([]*FieldError, 0, len(ctx.Errors)),
		order:  order,
	}
	for _, err := range ctx.Errors {
		copied := *err
		r.errors = append(r.errors, &copied)
	}
	r.sort()
	return r
}

// NewResult 创建空结果（全部通过）
func NewResult(declared []string) *Result {
	order := make(map[string]int, len(declared))
	for i, name := range declared {
		order[name] = i
	}
	r := &Result{order: order}
	r.sort()
	return r
}

// Clone 深拷贝错误列表；声明顺序只读，共享
func (r *Result) Clone() *Result {
	if r == nil {
		return nil
	}
	out := &Result{
		errors: make([]*FieldError, 0, len(r.errors)),
		index:  make(map[string]int, len(r.index)),
		order:  r.order,
	}
	for _, err := range r.errors {
		copied := *err
		out.errors = append(out.errors, &copied)
	}
	for field, i := range r.index {
		out.index[field] = i
	}
	return out
}

// IsValid 是否全部通过
func (r *Result) IsValid() bool {
	return r == nil || len(r.errors) == 0
}

// Errors 返回按声明顺序排列的错误副本
func (r *Result) Errors() []*FieldError {
	if r == nil {
		return nil
	}
	out := make([]*FieldError, len(r.errors))
	copy(out, r.errors)
	return out
}

// Len 错误数量
func (r *Result) Len() int {
	if r == nil {
		return 0
	}
	return len(r.errors)
}

// Messages 返回 字段 -> 消息 映射
func (r *Result) Messages() map[string]string {
	out := make(map[string]string)
	if r == nil {
		return out
	}
	for _, err := range r.errors {
		out[err.Field] = err.Message
	}
	return out
}

// Message 获取指定字段的错误消息
func (r *Result) Message(field string) (string, bool) {
	if r == nil {
		return "", false
	}
	i, ok := r.index[field]
	if !ok {
		return "", false
	}
	return r.errors[i].Message, true
}

// Keys 按声明顺序返回出错字段
func (r *Result) Keys() []string {
	if r == nil {
		return nil
	}
	keys := make([]string, len(r.errors))
	for i, err := range r.errors {
		keys[i] = err.Field
	}
	return keys
}

// Merge 合并一条外部错误（如服务端 details），字段已有错误时保留原错误并返回 false
func (r *Result) Merge(field, message string) bool {
	if r == nil || field == "" {
		return false
	}
	if _, exists := r.index[field]; exists {
		return false
	}
	r.errors = append(r.errors, &FieldError{Field: field, Tag: "server", Message: message})
	r.sort()
	return true
}

// sort 稳定排序：已声明字段按声明顺序，未声明字段保持加入顺序排在最后
func (r *Result) sort() {
	sort.SliceStable(r.errors, func(i, j int) bool {
		return r.rank(r.errors[i].Field) < r.rank(r.errors[j].Field)
	})
	r.index = make(map[string]int, len(r.errors))
	for i, err := range r.errors {
		r.index[err.Field] = i
	}
}

func (r *Result) rank(field string) int {
	if pos, ok := r.order[field]; ok {
		return pos
	}
	// 路径形式的键按根字段排序
	if p, err := ParseFieldPath(field); err == nil {
		if pos, ok := r.order[p.Name]; ok {
			return pos
		}
	}
	return len(r.order)
}

// resultJSON 序列化形式
type resultJSON struct {
	Valid  bool              `json:"valid"`
	Errors map[string]string `json:"errors"`
	Order  []string          `json:"order"`
}

// MarshalJSON 实现 json.Marshaler 接口
func (r *Result) MarshalJSON() ([]byte, error) {
	keys := r.Keys()
	if keys == nil {
		keys = []string{}
	}
	return json.Marshal(resultJSON{
		Valid:  r.IsValid(),
		Errors: r.Messages(),
		Order:  keys,
	})
}
