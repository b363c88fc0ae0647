package forms

import (
	"time"

	"dormitory-forms/pkg/types"
	"dormitory-forms/pkg/validator"
)

// 数值范围
const (
	MinCourse = 1
	MaxCourse = 6
	MinDorm   = 1
	MaxDorm   = 99
)

// Context 构建住宿申请模式所需的动态上下文
type Context struct {
	// Groups 班级允许列表，为 nil 时构建失败
	Groups GroupCatalog
	// CenturyPrefix 两位年份补全用的世纪前缀，空值使用 "20"
	CenturyPrefix string
	// Now 当前时间，空值使用 time.Now
	Now func() time.Time
}

func (c Context) century() string {
	if c.CenturyPrefix == "" {
		return types.DefaultCenturyPrefix
	}
	return c.CenturyPrefix
}

// BuildAccommodationSchema 组装住宿申请表单的验证模式
// 相同的上下文总是得到行为相同的模式
func BuildAccommodationSchema(v *validator.Validator, ctx Context) (*validator.Schema, error) {
	if v == nil {
		v = validator.Default()
	}
	if err := registerPatterns(v); err != nil {
		return nil, err
	}

	var allow validator.AllowListFunc
	if ctx.Groups != nil {
		allow = ctx.Groups.GroupIDs
	}
	century := ctx.century()

	b := validator.NewSchemaBuilder(v).
		Field(KeyFaculty, validator.Required(MsgFacultyRequired)).
		Field(KeyGroup,
			validator.Required(MsgGroupRequired),
			validator.CrossFieldRef(KeyFaculty, allow, MsgGroupMismatch)).
		Field(KeyCourse,
			validator.Required(MsgCourseRequired),
			validator.NumericRange(MinCourse, MaxCourse, MsgCourseRange)).
		Field(KeyFullName,
			validator.Required(MsgFullNameRequired),
			validator.Pattern(TagPersonName, MsgNameFormat)).
		Field(KeySurname,
			validator.Required(MsgSurnameRequired),
			validator.Pattern(TagPersonName, MsgNameFormat)).
		Field(KeyResidentPhone,
			validator.Required(MsgPhoneRequired),
			validator.Pattern(validator.TagPhoneLocal, MsgPhoneFormat)).
		Field(KeyDormNumber,
			validator.Required(MsgDormRequired),
			validator.NumericRange(MinDorm, MaxDorm, MsgDormRange)).
		Field(KeyAcademicYearStart,
			validator.Required(MsgYearRequired),
			validator.Pattern(validator.TagYear4, MsgYearFormat)).
		Field(KeyAcademicYearEnd,
			validator.Required(MsgYearRequired),
			validator.Pattern(validator.TagYear4, MsgYearFormat))

	for _, triple := range DateTriples() {
		dateRules(b, triple)
	}
	for _, triple := range DateTriples() {
		b.Object(triple.Day+"Resolvable", validator.DateResolvable(triple, century, MsgInvalidDate))
	}

	return b.
		Object("dateOrder", validator.DateOrder(StartDate, EndDate, century, MsgDateOrder)).
		Object("applicationNotInFuture", validator.NotInFuture(ApplicationDate, century, ctx.Now, MsgDateInFuture)).
		Object("sequentialAcademicYear", validator.SequentialYears(KeyAcademicYearStart, KeyAcademicYearEnd, MsgYearSequence)).
		Build()
}
