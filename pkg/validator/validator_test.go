package validator

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dormitory-forms/pkg/types"
)

// 测试用的院系 -> 班级允许列表
func testGroups(faculty string) []string {
	switch faculty {
	case "3":
		return []string{"12", "13"}
	case "4":
		return []string{"20"}
	default:
		return nil
	}
}

func buildTestSchema(t *testing.T) *Schema {
	t.Helper()
	schema, err := NewSchemaBuilder(New()).
		Field("faculty", Required("Select a faculty")).
		Field("group",
			Required("Select a group"),
			CrossFieldRef("faculty", testGroups, "Group does not belong to the faculty")).
		Field("phone",
			Required("Phone is required"),
			Pattern(TagPhoneLocal, "Phone must have 9 digits")).
		Field("course", NumericRange(1, 6, "Course must be between 1 and 6")).
		Field("roomType").
		Field("bedCount", RequiredIf("roomType", "shared", "Bed count is required")).
		Field("day", DateComponent(PartDay, "Invalid day")).
		Build()
	require.NoError(t, err)
	return schema
}

func TestValidator_Evaluate(t *testing.T) {
	schema := buildTestSchema(t)

	tests := []struct {
		name    string
		field   string
		values  types.Values
		wantMsg string
		wantErr bool
	}{
		{
			name:    "必填字段缺失",
			field:   "phone",
			values:  types.Values{},
			wantMsg: "Phone is required",
			wantErr: true,
		},
		{
			name:    "纯空白视为缺失",
			field:   "phone",
			values:  types.Values{"phone": "   "},
			wantMsg: "Phone is required",
			wantErr: true,
		},
		{
			name:    "模式不匹配",
			field:   "phone",
			values:  types.Values{"phone": "50123"},
			wantMsg: "Phone must have 9 digits",
			wantErr: true,
		},
		{
			name:   "模式匹配",
			field:  "phone",
			values: types.Values{"phone": "501234567"},
		},
		{
			name:   "可选字段缺失不报错",
			field:  "course",
			values: types.Values{},
		},
		{
			name:    "数值不是整数",
			field:   "course",
			values:  types.Values{"course": "two"},
			wantMsg: "Course must be between 1 and 6",
			wantErr: true,
		},
		{
			name:    "数值超出范围",
			field:   "course",
			values:  types.Values{"course": 7},
			wantMsg: "Course must be between 1 and 6",
			wantErr: true,
		},
		{
			name:   "数值来自 JSON 数字",
			field:  "course",
			values: types.Values{"course": float64(2)},
		},
		{
			name:   "班级属于当前院系",
			field:  "group",
			values: types.Values{"faculty": 3, "group": "12"},
		},
		{
			name:    "班级不属于当前院系",
			field:   "group",
			values:  types.Values{"faculty": "4", "group": "12"},
			wantMsg: "Group does not belong to the faculty",
			wantErr: true,
		},
		{
			name:    "条件必填生效",
			field:   "bedCount",
			values:  types.Values{"roomType": "shared"},
			wantMsg: "Bed count is required",
			wantErr: true,
		},
		{
			name:   "条件必填不生效",
			field:  "bedCount",
			values: types.Values{"roomType": "single"},
		},
		{
			name:    "日期段格式错误",
			field:   "day",
			values:  types.Values{"day": "32"},
			wantMsg: "Invalid day",
			wantErr: true,
		},
		{
			name:   "未声明字段",
			field:  "unknown",
			values: types.Values{"unknown": "x"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, failed := schema.Evaluate(tt.field, tt.values)
			assert.Equal(t, tt.wantErr, failed)
			assert.Equal(t, tt.wantMsg, msg)
		})
	}
}

func TestValidator_FirstFailingRuleWins(t *testing.T) {
	v := New()
	require.NoError(t, v.RegisterPattern("digits", `^\d+$`))

	schema, err := NewSchemaBuilder(v).
		Field("code",
			Pattern("digits", "Digits only"),
			NumericRange(10, 20, "Out of range")).
		Build()
	require.NoError(t, err)

	// 两条规则都失败，保留声明在前的那条
	msg, failed := schema.Evaluate("code", types.Values{"code": "abc"})
	assert.True(t, failed)
	assert.Equal(t, "Digits only", msg)

	msg, failed = schema.Evaluate("code", types.Values{"code": "5"})
	assert.True(t, failed)
	assert.Equal(t, "Out of range", msg)
}

func TestValidator_CollectsAllFields(t *testing.T) {
	schema := buildTestSchema(t)

	result := schema.Validate(types.Values{
		"group":    "99",
		"phone":    "123",
		"course":   "9",
		"roomType": "shared",
	})

	assert.False(t, result.IsValid())
	assert.Equal(t, []string{"faculty", "group", "phone", "course", "bedCount"}, result.Keys())
	assert.Equal(t, 5, result.Len())
}

func TestValidator_ObjectRuleDoesNotOverwrite(t *testing.T) {
	v := New()
	schema, err := NewSchemaBuilder(v).
		Field("a", Required("A is required")).
		Field("b").
		Object("always", func(values types.Values, report FuncReportError) {
			report("a", "object", "object error on a")
			report("b", "object", "object error on b")
		}).
		Build()
	require.NoError(t, err)

	result := v.Validate(schema, types.Values{})
	want := map[string]string{
		"a": "A is required",
		"b": "object error on b",
	}
	if diff := cmp.Diff(want, result.Messages()); diff != "" {
		t.Errorf("messages mismatch (-want +got):\n%s", diff)
	}
}

func TestValidator_Idempotent(t *testing.T) {
	schema := buildTestSchema(t)
	values := types.Values{"faculty": "3", "group": "20", "phone": "1"}

	first := schema.Validate(values)
	second := schema.Validate(values)

	assert.Equal(t, first.Messages(), second.Messages())
	assert.Equal(t, first.Keys(), second.Keys())
}

func TestValidator_NilInputs(t *testing.T) {
	v := New()
	result := v.Validate(nil, types.Values{})
	assert.False(t, result.IsValid())

	schema := buildTestSchema(t)
	result = v.Validate(schema, nil)
	assert.False(t, result.IsValid())
	_, ok := result.Message("faculty")
	assert.True(t, ok)
}

func TestSchemaBuilder_Errors(t *testing.T) {
	v := New()

	tests := []struct {
		name    string
		builder *SchemaBuilder
		wantErr error
	}{
		{
			name:    "跨字段规则缺少允许列表",
			builder: NewSchemaBuilder(v).Field("faculty").Field("group", CrossFieldRef("faculty", nil, "x")),
			wantErr: ErrMissingAllowList,
		},
		{
			name:    "引用未声明的字段",
			builder: NewSchemaBuilder(v).Field("group", CrossFieldRef("faculty", testGroups, "x")),
			wantErr: ErrUnknownRefField,
		},
		{
			name:    "条件必填引用未声明的字段",
			builder: NewSchemaBuilder(v).Field("bedCount", RequiredIf("roomType", "shared", "x")),
			wantErr: ErrUnknownRefField,
		},
		{
			name:    "范围颠倒",
			builder: NewSchemaBuilder(v).Field("course", NumericRange(6, 1, "x")),
			wantErr: ErrInvalidRange,
		},
		{
			name:    "未注册的模式",
			builder: NewSchemaBuilder(v).Field("code", Pattern("nope", "x")),
			wantErr: ErrUnknownPattern,
		},
		{
			name:    "重复字段",
			builder: NewSchemaBuilder(v).Field("a").Field("a"),
			wantErr: ErrDuplicateField,
		},
		{
			name:    "空字段名",
			builder: NewSchemaBuilder(v).Field(""),
			wantErr: ErrEmptyFieldName,
		},
		{
			name:    "空整体规则",
			builder: NewSchemaBuilder(v).Field("a").Object("nil", nil),
			wantErr: ErrNilObjectRule,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			schema, err := tt.builder.Build()
			assert.Nil(t, schema)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSchemaBuilder_JoinsAllProblems(t *testing.T) {
	_, err := NewSchemaBuilder(New()).
		Field("course", NumericRange(6, 1, "x")).
		Field("code", Pattern("nope", "x")).
		Build()
	assert.ErrorIs(t, err, ErrInvalidRange)
	assert.ErrorIs(t, err, ErrUnknownPattern)
}

func TestValidator_RegisterPattern(t *testing.T) {
	v := New()
	assert.ErrorIs(t, v.RegisterPattern("", `^a$`), ErrEmptyTag)
	assert.ErrorIs(t, v.RegisterPattern("broken", `([`), ErrInvalidPattern)
	assert.False(t, v.HasPattern("broken"))

	require.NoError(t, v.RegisterPattern("letters", `^[a-z]+$`))
	// 重复注册以首次为准
	require.NoError(t, v.RegisterPattern("letters", `^\d+$`))

	schema := NewSchemaBuilder(v).Field("name", Pattern("letters", "letters only")).MustBuild()
	_, failed := schema.Evaluate("name", types.Values{"name": "abc"})
	assert.False(t, failed)
}

func TestResult_Merge(t *testing.T) {
	schema := buildTestSchema(t)
	result := schema.Validate(types.Values{
		"faculty": "3",
		"group":   "12",
		"phone":   "12",
	})
	require.Equal(t, []string{"phone"}, result.Keys())

	// 已有错误的字段保留客户端消息
	assert.False(t, result.Merge("phone", "server says no"))
	// 声明过的字段按声明顺序插入
	assert.True(t, result.Merge("faculty", "Faculty closed"))
	// 未声明的字段排在最后
	assert.True(t, result.Merge("extra", "Unknown"))

	assert.Equal(t, []string{"faculty", "phone", "extra"}, result.Keys())
	msg, _ := result.Message("phone")
	assert.Equal(t, "Phone must have 9 digits", msg)
}

func TestResult_CloneIsIndependent(t *testing.T) {
	schema := buildTestSchema(t)
	result := schema.Validate(types.Values{"faculty": "3", "group": "12", "phone": "12"})

	clone := result.Clone()
	assert.True(t, clone.Merge("faculty", "Faculty closed"))

	assert.Equal(t, []string{"phone"}, result.Keys())
	assert.Equal(t, []string{"faculty", "phone"}, clone.Keys())
	_, ok := result.Message("faculty")
	assert.False(t, ok)

	var nilResult *Result
	assert.Nil(t, nilResult.Clone())
}

func TestResult_JSON(t *testing.T) {
	result := NewResult([]string{"a"})
	data, err := result.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"valid":true,"errors":{},"order":[]}`, string(data))

	result.Merge("a", "bad")
	data, err = result.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"valid":false,"errors":{"a":"bad"},"order":["a"]}`, string(data))
}

func TestValidationContextPool(t *testing.T) {
	ctx := acquireValidationContext()
	require.NotNil(t, ctx)
	assert.False(t, ctx.HasErrors())

	assert.True(t, ctx.AddError(NewFieldError("a", "required", "")))
	assert.False(t, ctx.AddError(NewFieldError("a", "other", "")), "同一字段只保留第一条")
	assert.True(t, ctx.HasFieldError("a"))
	releaseValidationContext(ctx)

	ctx2 := acquireValidationContext()
	assert.False(t, ctx2.HasErrors())
	assert.False(t, ctx2.HasFieldError("a"))
	releaseValidationContext(ctx2)
}

func TestValidator_RegisterValidation(t *testing.T) {
	v := New()
	require.NoError(t, v.RegisterValidation("even_len", func(fl FieldLevel) bool {
		return len(fl.Field().String())%2 == 0
	}))
	assert.True(t, v.HasPattern("even_len"))
	assert.Error(t, v.RegisterValidation("nil_func", nil))

	schema := NewSchemaBuilder(v).Field("code", Pattern("even_len", "odd length")).MustBuild()

	_, failed := schema.Evaluate("code", types.Values{"code": "ab"})
	assert.False(t, failed)
	msg, failed := schema.Evaluate("code", types.Values{"code": "abc"})
	assert.True(t, failed)
	assert.Equal(t, "odd length", msg)
}
