package validator

import (
	"errors"
	"fmt"

	"dormitory-forms/pkg/types"
)

// 常量定义
const (
	// defaultFieldCapacity 默认字段容量，用于预分配内存
	defaultFieldCapacity = 16
	// maxFieldNameLength 最大字段名长度
	maxFieldNameLength = 128
)

var (
	ErrEmptyFieldName   = errors.New("schema: field name cannot be empty")
	ErrFieldNameTooLong = errors.New("schema: field name too long")
	ErrDuplicateField   = errors.New("schema: duplicate field")
	ErrMissingAllowList = errors.New("schema: cross-field rule has no allow-list")
	ErrUnknownRefField  = errors.New("schema: rule references an undeclared field")
	ErrInvalidRange     = errors.New("schema: numeric range min is greater than max")
	ErrUnknownPattern   = errors.New("schema: pattern tag is not registered")
	ErrUnknownRuleKind  = errors.New("schema: unknown rule kind")
	ErrNilObjectRule    = errors.New("schema: object rule cannot be nil")
)

// FuncReportError 整体规则的错误报告函数
// field 为错误归属的字段（不是规则本身），tag 为规则标签，message 为面向用户的消息
type FuncReportError func(field, tag, message string)

// ObjectRuleFunc 整体规则：跨越多个字段的检查，在所有字段规则之后执行
type ObjectRuleFunc func(values types.Values, report FuncReportError)

// FieldSpec 单个字段的规则声明
type FieldSpec struct {
	Name  string
	Rules []FieldRule
}

type objectRule struct {
	name string
	fn   ObjectRuleFunc
}

// Schema 整个表单的验证模式：按声明顺序排列的字段规则 + 整体规则
// Schema 构建后只读，可在多个 goroutine 间共享
type Schema struct {
	engine      *Validator
	fields      []*FieldSpec
	order       map[string]int
	objectRules []objectRule
}

// Fields 按声明顺序返回字段名
func (s *Schema) Fields() []string {
	names := make([]string, len(s.fields))
	for i, f := range s.fields {
		names[i] = f.Name
	}
	return names
}

// HasField 字段是否已声明
func (s *Schema) HasField(name string) bool {
	_, ok := s.order[name]
	return ok
}

// UnknownKeys 返回取值中未在模式里声明的键（已排序）
func (s *Schema) UnknownKeys(values types.Values) []string {
	var unknown []string
	for _, key := range values.Keys() {
		if !s.HasField(key) {
			unknown = append(unknown, key)
		}
	}
	return unknown
}

// Evaluate 单字段求值：返回第一条失败规则的消息；全部通过或字段未填写且非必填时返回 false
func (s *Schema) Evaluate(field string, values types.Values) (string, bool) {
	i, ok := s.order[field]
	if !ok {
		return "", false
	}
	if values == nil {
		values = types.Values{}
	}
	fe := s.engine.evaluate(s.fields[i], values)
	if fe == nil {
		return "", false
	}
	return fe.Message, true
}

// Validate 便捷方法，等价于 engine.Validate(s, values)
func (s *Schema) Validate(values types.Values) *Result {
	return s.engine.Validate(s, values)
}

// ============================================================================
// 构建器
// ============================================================================

// SchemaBuilder 表单模式构建器（流式接口）
// 结构错误（如跨字段规则缺少允许列表）在 Build 时统一报告，而不是在验证时静默忽略
type SchemaBuilder struct {
	engine      *Validator
	fields      []*FieldSpec
	objectRules []objectRule
}

// NewSchemaBuilder 创建构建器，engine 为 nil 时使用默认验证器
func NewSchemaBuilder(engine *Validator) *SchemaBuilder {
	if engine == nil {
		engine = Default()
	}
	return &SchemaBuilder{
		engine: engine,
		fields: make([]*FieldSpec, 0, defaultFieldCapacity),
	}
}

// Field 声明字段及其规则（链式调用）
func (b *SchemaBuilder) Field(name string, rules ...FieldRule) *SchemaBuilder {
	b.fields = append(b.fields, &FieldSpec{Name: name, Rules: rules})
	return b
}

// Object 添加整体规则（链式调用）
func (b *SchemaBuilder) Object(name string, fn ObjectRuleFunc) *SchemaBuilder {
	b.objectRules = append(b.objectRules, objectRule{name: name, fn: fn})
	return b
}

// Build 校验声明并生成只读的 Schema
func (b *SchemaBuilder) Build() (*Schema, error) {
	order := make(map[string]int, len(b.fields))
	var errs []error

	for i, spec := range b.fields {
		switch {
		case spec.Name == "":
			errs = append(errs, fmt.Errorf("field #%d: %w", i, ErrEmptyFieldName))
			continue
		case len(spec.Name) > maxFieldNameLength:
			errs = append(errs, fmt.Errorf("field #%d: %w (max %d)", i, ErrFieldNameTooLong, maxFieldNameLength))
			continue
		}
		if _, exists := order[spec.Name]; exists {
			errs = append(errs, fmt.Errorf("field %q: %w", spec.Name, ErrDuplicateField))
			continue
		}
		order[spec.Name] = i
	}

	for _, spec := range b.fields {
		for _, rule := range spec.Rules {
			if err := b.checkRule(rule, order); err != nil {
				errs = append(errs, fmt.Errorf("field %q: %w", spec.Name, err))
			}
		}
	}

	for _, rule := range b.objectRules {
		if rule.fn == nil {
			errs = append(errs, fmt.Errorf("object rule %q: %w", rule.name, ErrNilObjectRule))
		}
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	fields := make([]*FieldSpec, len(b.fields))
	for i, spec := range b.fields {
		rules := make([]FieldRule, len(spec.Rules))
		copy(rules, spec.Rules)
		fields[i] = &FieldSpec{Name: spec.Name, Rules: rules}
	}
	objectRules := make([]objectRule, len(b.objectRules))
	copy(objectRules, b.objectRules)

	return &Schema{
		engine:      b.engine,
		fields:      fields,
		order:       order,
		objectRules: objectRules,
	}, nil
}

// MustBuild 构建失败时 panic，仅用于静态声明的模式
func (b *SchemaBuilder) MustBuild() *Schema {
	s, err := b.Build()
	if err != nil {
		panic(err)
	}
	return s
}

// checkRule 校验单条规则的声明
func (b *SchemaBuilder) checkRule(rule FieldRule, order map[string]int) error {
	switch rule.Kind {
	case KindRequired:
		if rule.When != nil {
			if _, ok := order[rule.When.Field]; !ok {
				return fmt.Errorf("%w: %q", ErrUnknownRefField, rule.When.Field)
			}
		}
	case KindPattern:
		if !b.engine.HasPattern(rule.Tag) {
			return fmt.Errorf("%w: %q", ErrUnknownPattern, rule.Tag)
		}
	case KindDateComponent:
		if rule.Part.tag() == "" {
			return fmt.Errorf("%w: date part %d", ErrUnknownRuleKind, rule.Part)
		}
	case KindNumericRange:
		if rule.Min > rule.Max {
			return fmt.Errorf("%w: [%d, %d]", ErrInvalidRange, rule.Min, rule.Max)
		}
	case KindCrossFieldRef:
		if rule.AllowList == nil {
			return ErrMissingAllowList
		}
		if _, ok := order[rule.RefField]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownRefField, rule.RefField)
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnknownRuleKind, rule.Kind)
	}
	return nil
}
