package validator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dormitory-forms/pkg/types"
)

var (
	startDate = DateFields{Day: "startDay", Month: "startMonth", Year: "startYear"}
	endDate   = DateFields{Day: "endDay", Month: "endMonth", Year: "endYear"}
	appDate   = DateFields{Day: "appDay", Month: "appMonth", Year: "appYear"}
)

func dateSchema(t *testing.T, now func() time.Time) *Schema {
	t.Helper()
	b := NewSchemaBuilder(New())
	for _, f := range []DateFields{startDate, endDate, appDate} {
		b.Field(f.Day).Field(f.Month).Field(f.Year)
	}
	b.Field("yearStart").Field("yearEnd")

	schema, err := b.
		Object("startResolvable", DateResolvable(startDate, types.DefaultCenturyPrefix, "Invalid date")).
		Object("endResolvable", DateResolvable(endDate, types.DefaultCenturyPrefix, "Invalid date")).
		Object("appResolvable", DateResolvable(appDate, types.DefaultCenturyPrefix, "Invalid date")).
		Object("order", DateOrder(startDate, endDate, types.DefaultCenturyPrefix, "End before start")).
		Object("future", NotInFuture(appDate, types.DefaultCenturyPrefix, now, "Date in future")).
		Object("years", SequentialYears("yearStart", "yearEnd", "Years must be sequential")).
		Build()
	require.NoError(t, err)
	return schema
}

func TestDateResolvable(t *testing.T) {
	schema := dateSchema(t, nil)

	tests := []struct {
		name   string
		values types.Values
		want   map[string]string
	}{
		{
			name:   "全部为空不报错",
			values: types.Values{},
			want:   map[string]string{},
		},
		{
			name:   "部分填写",
			values: types.Values{"startDay": "01"},
			want:   map[string]string{"startDay": "Invalid date"},
		},
		{
			name:   "不存在的日期",
			values: types.Values{"startDay": "30", "startMonth": "02", "startYear": "25"},
			want:   map[string]string{"startDay": "Invalid date"},
		},
		{
			name:   "闰年二月二十九",
			values: types.Values{"startDay": "29", "startMonth": "02", "startYear": "24"},
			want:   map[string]string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, schema.Validate(tt.values).Messages())
		})
	}
}

func TestDateOrder(t *testing.T) {
	schema := dateSchema(t, nil)

	values := types.Values{
		"startDay": "15", "startMonth": "09", "startYear": "25",
		"endDay": "01", "endMonth": "09", "endYear": "25",
	}
	result := schema.Validate(values)
	msg, ok := result.Message("endDay")
	assert.True(t, ok)
	assert.Equal(t, "End before start", msg)
	assert.Equal(t, 1, result.Len())

	// 同一天允许
	values.Set("endDay", "15")
	assert.True(t, schema.Validate(values).IsValid())

	// 任一日期无效时不检查先后
	values.Set("endDay", "31")
	values.Set("endMonth", "02")
	result = schema.Validate(values)
	msg, _ = result.Message("endDay")
	assert.Equal(t, "Invalid date", msg)
}

func TestNotInFuture(t *testing.T) {
	now := func() time.Time { return time.Date(2025, time.March, 10, 18, 30, 0, 0, time.Local) }
	schema := dateSchema(t, now)

	tests := []struct {
		name    string
		day     string
		wantErr bool
	}{
		{name: "今天", day: "10"},
		{name: "昨天", day: "09"},
		{name: "明天", day: "11", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := schema.Validate(types.Values{"appDay": tt.day, "appMonth": "03", "appYear": "25"})
			_, has := result.Message("appDay")
			assert.Equal(t, tt.wantErr, has)
		})
	}
}

func TestSequentialYears(t *testing.T) {
	schema := dateSchema(t, nil)

	tests := []struct {
		name    string
		start   string
		end     string
		wantErr bool
	}{
		{name: "连续", start: "2024", end: "2025"},
		{name: "相同", start: "2024", end: "2024", wantErr: true},
		{name: "跨两年", start: "2024", end: "2026", wantErr: true},
		{name: "格式错误交给字段规则", start: "24", end: "2026"},
		{name: "未填写", start: "", end: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := schema.Validate(types.Values{"yearStart": tt.start, "yearEnd": tt.end})
			msg, has := result.Message("yearEnd")
			assert.Equal(t, tt.wantErr, has)
			if tt.wantErr {
				assert.Equal(t, "Years must be sequential", msg)
			}
		})
	}
}

func TestDateFields_SetAndParts(t *testing.T) {
	values := types.NewValues(3)
	parts := types.DateParts{Day: "01", Month: "09", Year: "25"}
	startDate.Set(values, parts)

	assert.Equal(t, parts, startDate.Parts(values))
	assert.Equal(t, []string{"startDay", "startMonth", "startYear"}, startDate.Names())
}
