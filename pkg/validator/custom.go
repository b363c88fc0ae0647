package validator

import (
	"fmt"
	"reflect"
	"regexp"

	"github.com/go-playground/validator/v10"
)

// ValidationFunc 自定义验证函数类型（封装第三方库）
// 注册后的标签可以直接用于 Pattern 规则
type ValidationFunc func(fl FieldLevel) bool

// FieldLevel 字段级别验证上下文（封装第三方库）
type FieldLevel interface {
	// Field 返回当前字段的反射值
	Field() reflect.Value
	// Param 返回验证标签的参数
	Param() string
}

// fieldLevelWrapper 封装第三方库的 FieldLevel
type fieldLevelWrapper struct {
	fl validator.FieldLevel
}

// Field 实现 FieldLevel 接口
func (w *fieldLevelWrapper) Field() reflect.Value {
	return w.fl.Field()
}

// Param 实现 FieldLevel 接口
func (w *fieldLevelWrapper) Param() string {
	return w.fl.Param()
}

// RegisterValidation 注册自定义验证标签
// 重复注册同名标签会被忽略（首次注册生效）
func (v *Validator) RegisterValidation(tag string, fn ValidationFunc) error {
	if tag == "" {
		return ErrEmptyTag
	}
	if fn == nil {
		return fmt.Errorf("register %q: validation func cannot be nil", tag)
	}
	if _, ok := v.registered.Load(tag); ok {
		return nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	// 双重检查，防止并发注册
	if _, ok := v.registered.Load(tag); ok {
		return nil
	}
	if err := v.validate.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
		return fn(&fieldLevelWrapper{fl: fl})
	}); err != nil {
		return fmt.Errorf("register %q: %w", tag, err)
	}
	v.registered.Store(tag, fn)
	return nil
}

// RegisterPattern 把正则注册为验证标签，字段文本必须完整匹配
func (v *Validator) RegisterPattern(tag, expr string) error {
	if tag == "" {
		return ErrEmptyTag
	}
	if v.HasPattern(tag) {
		return nil
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return fmt.Errorf("%w %q: %v", ErrInvalidPattern, tag, err)
	}
	return v.RegisterValidation(tag, func(fl FieldLevel) bool {
		return re.MatchString(fl.Field().String())
	})
}

// HasPattern 标签是否已注册
func (v *Validator) HasPattern(tag string) bool {
	_, ok := v.registered.Load(tag)
	return ok
}
