package validator

import (
	"regexp"
	"strconv"
	"time"

	"dormitory-forms/pkg/types"
)

// 整体规则标签
const (
	TagDateInvalid  = "date_invalid"
	TagDateOrder    = "date_order"
	TagDateFuture   = "date_future"
	TagYearSequence = "year_sequence"
)

var year4Pattern = regexp.MustCompile(`^\d{4}$`)

// DateFields 一个逻辑日期对应的三个字段名
type DateFields struct {
	Day   string
	Month string
	Year  string
}

// Names 按 日、月、年 顺序返回字段名
func (f DateFields) Names() []string {
	return []string{f.Day, f.Month, f.Year}
}

// Parts 从表单取值中读出三段文本
func (f DateFields) Parts(values types.Values) types.DateParts {
	day, _ := values.Text(f.Day)
	month, _ := values.Text(f.Month)
	year, _ := values.Text(f.Year)
	return types.DateParts{Day: day, Month: month, Year: year}
}

// Set 把三段文本写回表单取值
func (f DateFields) Set(values types.Values, parts types.DateParts) {
	values.Set(f.Day, parts.Day)
	values.Set(f.Month, parts.Month)
	values.Set(f.Year, parts.Year)
}

// DateResolvable 非法组合规则：三段中任一段非空，但整体无法解析为真实日期时，错误归属日字段
func DateResolvable(fields DateFields, centuryPrefix, message string) ObjectRuleFunc {
	return func(values types.Values, report FuncReportError) {
		parts := fields.Parts(values)
		if parts.IsEmpty() {
			return
		}
		if _, err := parts.Resolve(centuryPrefix); err != nil {
			report(fields.Day, TagDateInvalid, message)
		}
	}
}

// DateOrder 日期先后规则：开始与结束日期都有效时，开始日期必须不晚于结束日期，
// 违反时错误归属结束日期的日字段
func DateOrder(start, end DateFields, centuryPrefix, message string) ObjectRuleFunc {
	return func(values types.Values, report FuncReportError) {
		from, err := start.Parts(values).Resolve(centuryPrefix)
		if err != nil {
			return
		}
		to, err := end.Parts(values).Resolve(centuryPrefix)
		if err != nil {
			return
		}
		if from.After(to) {
			report(end.Day, TagDateOrder, message)
		}
	}
}

// NotInFuture 非未来日期规则：日期有效时不得晚于今天（本地日历日，忽略时间）
func NotInFuture(fields DateFields, centuryPrefix string, now func() time.Time, message string) ObjectRuleFunc {
	if now == nil {
		now = time.Now
	}
	return func(values types.Values, report FuncReportError) {
		date, err := fields.Parts(values).Resolve(centuryPrefix)
		if err != nil {
			return
		}
		current := now().In(time.Local)
		today := time.Date(current.Year(), current.Month(), current.Day(), 0, 0, 0, 0, time.Local)
		if date.After(today) {
			report(fields.Day, TagDateFuture, message)
		}
	}
}

// SequentialYears 学年连续规则：两个四位年份都合法时，结束年必须等于开始年 + 1
// 格式错误交给字段规则处理，这里不重复报告
func SequentialYears(startField, endField, message string) ObjectRuleFunc {
	return func(values types.Values, report FuncReportError) {
		startText, _ := values.Text(startField)
		endText, _ := values.Text(endField)
		if !year4Pattern.MatchString(startText) || !year4Pattern.MatchString(endText) {
			return
		}
		start, _ := strconv.Atoi(startText)
		end, _ := strconv.Atoi(endText)
		if end != start+1 {
			report(endField, TagYearSequence, message)
		}
	}
}
