package validator

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"sync"

	"github.com/go-playground/validator/v10"

	"dormitory-forms/pkg/types"
)

// 内置模式标签
const (
	TagDateDay    = "date_day"    // 两位日，01-31
	TagDateMonth  = "date_month"  // 两位月，01-12
	TagDateYear2  = "date_year2"  // 两位年份
	TagYear4      = "year4"       // 四位年份
	TagPhoneLocal = "phone_local" // 去掉 +380 前缀后的 9 位号码
)

// builtinPatterns 内置正则，New() 时注册到底层验证器
var builtinPatterns = map[string]string{
	TagDateDay:    `^(0[1-9]|[12]\d|3[01])$`,
	TagDateMonth:  `^(0[1-9]|1[0-2])$`,
	TagDateYear2:  `^\d{2}$`,
	TagYear4:      `^\d{4}$`,
	TagPhoneLocal: `^\d{9}$`,
}

var (
	// ErrEmptyTag 标签名为空
	ErrEmptyTag = errors.New("validator: pattern tag cannot be empty")
	// ErrInvalidPattern 正则无法编译
	ErrInvalidPattern = errors.New("validator: invalid pattern")
)

// Validator 表单验证器，在 go-playground/validator 之上提供按字段声明的规则求值
// 设计原则：
//   - 单例模式：Default() 全局唯一，减少资源消耗
//   - 工厂模式：New() 创建独立实例（单元测试、隔离的模式注册）
//
// 并发：Validate/Evaluate 可并发调用；RegisterPattern 应在并发使用前完成
type Validator struct {
	// validate 底层验证器实例
	validate *validator.Validate
	// mu 保护模式注册
	mu sync.Mutex
	// registered 已注册的自定义标签，key: tag, value: ValidationFunc
	registered *sync.Map
}

var (
	// defaultValidator 默认验证器实例，全局单例
	defaultValidator *Validator
	// once 确保默认验证器只初始化一次
	once sync.Once
)

// Default 获取默认验证器实例（单例模式）
func Default() *Validator {
	once.Do(func() {
		defaultValidator = New()
	})
	return defaultValidator
}

// New 创建新的验证器实例并注册内置模式
func New() *Validator {
	v := &Validator{
		validate:   validator.New(),
		registered: &sync.Map{},
	}
	for tag, expr := range builtinPatterns {
		if err := v.RegisterPattern(tag, expr); err != nil {
			// 内置正则在编译期已确定，失败说明代码有误
			panic(err)
		}
	}
	return v
}

// Validate 使用 schema 验证表单取值
//
// 验证流程（按顺序执行）：
//  1. 按声明顺序对每个字段求值（所有字段都会求值，不因前面字段失败而停止）
//  2. 按声明顺序执行整体规则，整体规则报告的错误不会覆盖字段已有的错误
//
// 同步、无副作用；缺失的可选字段不会报错
func (v *Validator) Validate(schema *Schema, values types.Values) *Result {
	if schema == nil {
		ctx := NewValidationContext()
		ctx.AddErrorByDetail(nil, "form", "schema", "", "validation schema cannot be nil")
		return newResult(ctx, nil)
	}
	if values == nil {
		values = types.Values{}
	}

	ctx := acquireValidationContext()
	defer releaseValidationContext(ctx)

	// ========================================================================
	// 步骤1: 字段规则
	// ========================================================================
	for _, spec := range schema.fields {
		if fe := v.evaluate(spec, values); fe != nil {
			ctx.AddError(fe)
		}
	}

	// ========================================================================
	// 步骤2: 整体规则
	// ========================================================================
	for _, rule := range schema.objectRules {
		report := func(field, tag, message string) {
			value, _ := values.Get(field)
			ctx.AddErrorByDetail(value, field, tag, rule.name, message)
		}
		rule.fn(values, report)
	}

	return newResult(ctx, schema.order)
}

// evaluate 对单个字段求值，返回第一条失败规则对应的错误
// 字段未填写时只检查生效的必填规则；已填写时按声明顺序检查全部规则
func (v *Validator) evaluate(spec *FieldSpec, values types.Values) *FieldError {
	text, present := values.Text(spec.Name)

	if !present {
		for _, rule := range spec.Rules {
			if rule.isRequired(values) {
				return NewFieldError(spec.Name, rule.tagName(), rule.param()).
					WithMessage(rule.Message)
			}
		}
		return nil
	}

	for _, rule := range spec.Rules {
		if v.passes(rule, text, values) {
			continue
		}
		raw, _ := values.Get(spec.Name)
		return NewFieldError(spec.Name, rule.tagName(), rule.param()).
			WithMessage(rule.Message).
			WithValue(raw)
	}
	return nil
}

// passes 单条规则是否通过，text 为已去除首尾空白的非空文本
func (v *Validator) passes(rule FieldRule, text string, values types.Values) bool {
	switch rule.Kind {
	case KindRequired:
		// 条件不成立的必填规则视为通过；成立时 text 非空即通过
		return v.validate.Var(text, "required") == nil
	case KindPattern:
		return v.validate.Var(text, rule.Tag) == nil
	case KindDateComponent:
		return v.validate.Var(text, rule.Part.tag()) == nil
	case KindNumericRange:
		n, err := strconv.Atoi(text)
		if err != nil {
			return false
		}
		return v.validate.Var(n, fmt.Sprintf("gte=%d,lte=%d", rule.Min, rule.Max)) == nil
	case KindCrossFieldRef:
		refValue, _ := values.Text(rule.RefField)
		return slices.Contains(rule.AllowList(refValue), text)
	default:
		return false
	}
}
