package types

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// DefaultCenturyPrefix 两位年份补全用的世纪前缀，"25" -> "2025"
const DefaultCenturyPrefix = "20"

// ISODateLayout 提交给后端的日期格式
const ISODateLayout = "2006-01-02"

var (
	// ErrIncompleteDate 日/月/年有未填写或格式不对的部分
	ErrIncompleteDate = errors.New("date parts are incomplete")
	// ErrInvalidDate 三部分格式正确但不是真实存在的日期（如 02/30）
	ErrInvalidDate = errors.New("date parts do not form a calendar date")
	// ErrInvalidCentury 世纪前缀不是两位数字
	ErrInvalidCentury = errors.New("century prefix must be two digits")
)

var (
	dayPattern     = regexp.MustCompile(`^(0[1-9]|[12]\d|3[01])$`)
	monthPattern   = regexp.MustCompile(`^(0[1-9]|1[0-2])$`)
	yearPattern    = regexp.MustCompile(`^\d{2}$`)
	centuryPattern = regexp.MustCompile(`^\d{2}$`)
)

// DateParts 由三个独立输入框组成的逻辑日期：日、月、两位年份
// 生命周期：创建时为空，按键逐位修改，仅在提交或跨字段校验时组合为 ISO 日期
type DateParts struct {
	Day   string `json:"day"`
	Month string `json:"month"`
	Year  string `json:"year"`
}

// IsEmpty 三部分均未填写
func (d DateParts) IsEmpty() bool {
	return d.Day == "" && d.Month == "" && d.Year == ""
}

// IsTouched 至少有一部分已填写
func (d DateParts) IsTouched() bool {
	return !d.IsEmpty()
}

// IsComplete 三部分均非空且符合各自的位数格式
func (d DateParts) IsComplete() bool {
	return dayPattern.MatchString(d.Day) &&
		monthPattern.MatchString(d.Month) &&
		yearPattern.MatchString(d.Year)
}

// Resolve 按世纪前缀补全年份并解析为本地日期（时间部分为零）
func (d DateParts) Resolve(centuryPrefix string) (time.Time, error) {
	if !centuryPattern.MatchString(centuryPrefix) {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidCentury, centuryPrefix)
	}
	if !d.IsComplete() {
		return time.Time{}, ErrIncompleteDate
	}

	year, _ := strconv.Atoi(centuryPrefix + d.Year)
	month, _ := strconv.Atoi(d.Month)
	day, _ := strconv.Atoi(d.Day)

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.Local)
	// time.Date 会把 02/30 规范化成 03/02，回读比较即可识别非法日期
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return time.Time{}, ErrInvalidDate
	}
	return t, nil
}

// IsValid 完整且是真实存在的日期
func (d DateParts) IsValid(centuryPrefix string) bool {
	_, err := d.Resolve(centuryPrefix)
	return err == nil
}

// ISO 返回 YYYY-MM-DD 形式的日期字符串
func (d DateParts) ISO(centuryPrefix string) (string, error) {
	t, err := d.Resolve(centuryPrefix)
	if err != nil {
		return "", err
	}
	return t.Format(ISODateLayout), nil
}

// String 以 DD/MM/YY 形式展示
func (d DateParts) String() string {
	return d.Day + "/" + d.Month + "/" + d.Year
}

// DatePartsFromISO 将后端返回的 ISO 日期拆分为三部分（用于预设填充）
// 允许带时间部分的 RFC3339 字符串，只取日期
func DatePartsFromISO(value string) (DateParts, error) {
	if len(value) >= len(ISODateLayout) {
		value = value[:len(ISODateLayout)]
	}
	t, err := time.Parse(ISODateLayout, value)
	if err != nil {
		return DateParts{}, fmt.Errorf("parse iso date %q: %w", value, err)
	}
	return DatePartsFromTime(t), nil
}

// DatePartsFromTime 将时间拆分为三部分，年份保留后两位
func DatePartsFromTime(t time.Time) DateParts {
	return DateParts{
		Day:   fmt.Sprintf("%02d", t.Day()),
		Month: fmt.Sprintf("%02d", int(t.Month())),
		Year:  fmt.Sprintf("%02d", t.Year()%100),
	}
}

// TruncateDay 截断到本地日期零点
func TruncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
