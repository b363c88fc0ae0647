package validator

import (
	"fmt"

	"dormitory-forms/pkg/types"
)

// RuleKind 字段规则类型
type RuleKind uint8

const (
	// KindRequired 必填：去除首尾空白后非空
	KindRequired RuleKind = iota + 1
	// KindPattern 正则完整匹配（正则以标签形式注册到底层验证器）
	KindPattern
	// KindNumericRange 解析为整数并落在 [Min, Max] 区间
	KindNumericRange
	// KindDateComponent 日期三段式中的一段（日/月/两位年）
	KindDateComponent
	// KindCrossFieldRef 取值必须在依赖另一个字段的允许列表中
	KindCrossFieldRef
)

// String 返回规则类型名
func (k RuleKind) String() string {
	switch k {
	case KindRequired:
		return "required"
	case KindPattern:
		return "pattern"
	case KindNumericRange:
		return "numericRange"
	case KindDateComponent:
		return "dateComponent"
	case KindCrossFieldRef:
		return "crossFieldRef"
	default:
		return fmt.Sprintf("RuleKind(%d)", uint8(k))
	}
}

// DatePart 日期三段式中的一段
type DatePart uint8

const (
	PartDay DatePart = iota + 1
	PartMonth
	PartYear
)

// tag 每一段对应的内置校验标签
func (p DatePart) tag() string {
	switch p {
	case PartDay:
		return TagDateDay
	case PartMonth:
		return TagDateMonth
	case PartYear:
		return TagDateYear2
	default:
		return ""
	}
}

// AllowListFunc 允许列表提供函数，参数为被引用字段的当前值
// 例如：根据当前选中的院系返回该院系下的班级 id 列表
type AllowListFunc func(refValue string) []string

// Condition 规则生效条件：Field 的当前值等于 Equals 时规则才生效
type Condition struct {
	Field  string
	Equals string
}

// holds 条件是否成立
func (c *Condition) holds(values types.Values) bool {
	if c == nil {
		return true
	}
	text, _ := values.Text(c.Field)
	return text == c.Equals
}

// FieldRule 单条字段规则
// 一个字段可以有多条规则，按声明顺序求值，第一条失败规则的消息胜出
type FieldRule struct {
	Kind    RuleKind
	Message string

	// Tag 模式规则使用的已注册标签
	Tag string
	// Min Max 数值范围（闭区间）
	Min, Max int
	// Part 日期段
	Part DatePart
	// RefField 跨字段引用的字段名
	RefField string
	// AllowList 跨字段允许列表
	AllowList AllowListFunc
	// When 必填规则的生效条件，nil 表示总是生效
	When *Condition
}

// Required 必填规则
func Required(message string) FieldRule {
	return FieldRule{Kind: KindRequired, Message: message}
}

// RequiredIf 条件必填：field 的值等于 equals 时才必填
func RequiredIf(field, equals, message string) FieldRule {
	return FieldRule{
		Kind:    KindRequired,
		Message: message,
		When:    &Condition{Field: field, Equals: equals},
	}
}

// Pattern 正则规则，tag 必须已通过 RegisterPattern 注册
func Pattern(tag, message string) FieldRule {
	return FieldRule{Kind: KindPattern, Tag: tag, Message: message}
}

// NumericRange 整数范围规则
func NumericRange(min, max int, message string) FieldRule {
	return FieldRule{Kind: KindNumericRange, Min: min, Max: max, Message: message}
}

// DateComponent 日期段规则
func DateComponent(part DatePart, message string) FieldRule {
	return FieldRule{Kind: KindDateComponent, Part: part, Message: message}
}

// CrossFieldRef 跨字段引用规则
func CrossFieldRef(refField string, allow AllowListFunc, message string) FieldRule {
	return FieldRule{Kind: KindCrossFieldRef, RefField: refField, AllowList: allow, Message: message}
}

// isRequired 规则是否为在当前取值下生效的必填规则
func (r FieldRule) isRequired(values types.Values) bool {
	return r.Kind == KindRequired && r.When.holds(values)
}

// param 用于错误信息的规则参数
func (r FieldRule) param() string {
	switch r.Kind {
	case KindNumericRange:
		return fmt.Sprintf("%d-%d", r.Min, r.Max)
	case KindCrossFieldRef:
		return r.RefField
	case KindPattern:
		return r.Tag
	case KindRequired:
		if r.When != nil {
			return r.When.Field + "=" + r.When.Equals
		}
	}
	return ""
}

// tagName 用于错误信息的规则标签
func (r FieldRule) tagName() string {
	switch r.Kind {
	case KindPattern:
		return r.Tag
	case KindDateComponent:
		return r.Part.tag()
	default:
		return r.Kind.String()
	}
}
