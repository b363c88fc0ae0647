package forms

import (
	"dormitory-forms/pkg/validator"
)

// 住宿申请表单字段键
const (
	KeyFaculty           = "faculty"
	KeyGroup             = "group"
	KeyCourse            = "course"
	KeyFullName          = "fullName"
	KeySurname           = "surname"
	KeyResidentPhone     = "residentPhone"
	KeyDormNumber        = "dormNumber"
	KeyAcademicYearStart = "academicYearStart"
	KeyAcademicYearEnd   = "academicYearEnd"
)

// 三段式日期
var (
	StartDate = validator.DateFields{Day: "startDay", Month: "startMonth", Year: "startYear"}
	EndDate   = validator.DateFields{Day: "endDay", Month: "endMonth", Year: "endYear"}
	// ApplicationDate 申请日期，不能晚于今天
	ApplicationDate = validator.DateFields{
		Day:   "applicationDateDay",
		Month: "applicationDateMonth",
		Year:  "applicationDateYear",
	}
)

// AccommodationFields 按页面上的出现顺序排列，错误导航依赖这个顺序
func AccommodationFields() []string {
	keys := []string{
		KeyFaculty,
		KeyGroup,
		KeyCourse,
		KeyFullName,
		KeySurname,
		KeyResidentPhone,
		KeyDormNumber,
		KeyAcademicYearStart,
		KeyAcademicYearEnd,
	}
	keys = append(keys, StartDate.Names()...)
	keys = append(keys, EndDate.Names()...)
	return append(keys, ApplicationDate.Names()...)
}

// DateTriples 三段式日期字段组
func DateTriples() []validator.DateFields {
	return []validator.DateFields{StartDate, EndDate, ApplicationDate}
}

// 面向用户的错误消息
const (
	MsgFacultyRequired   = "Select a faculty"
	MsgGroupRequired     = "Select a group"
	MsgGroupMismatch     = "The group does not belong to the selected faculty"
	MsgCourseRequired    = "Course is required"
	MsgCourseRange       = "Course must be a number from 1 to 6"
	MsgFullNameRequired  = "Full name is required"
	MsgSurnameRequired   = "Surname is required"
	MsgNameFormat        = "Only letters, spaces, apostrophes and hyphens are allowed"
	MsgPhoneRequired     = "Phone number is required"
	MsgPhoneFormat       = "Enter 9 digits after +380"
	MsgDormRequired      = "Select a dormitory"
	MsgDormRange         = "Dormitory number must be from 1 to 99"
	MsgYearRequired      = "Year is required"
	MsgYearFormat        = "Enter a 4-digit year"
	MsgYearSequence      = "The academic year must span two consecutive years"
	MsgDayRequired       = "Day is required"
	MsgDayFormat         = "DD"
	MsgMonthRequired     = "Month is required"
	MsgMonthFormat       = "MM"
	MsgShortYearRequired = "Year is required"
	MsgShortYearFormat   = "YY"
	MsgInvalidDate       = "Invalid date"
	MsgDateOrder         = "End date must not be earlier than start date"
	MsgDateInFuture      = "Application date cannot be in the future"
)

// TagPersonName 姓名：Unicode 字母，单词之间允许空格、撇号和连字符
const TagPersonName = "person_name"

const personNamePattern = `^\p{L}+(?:[ '’\-]\p{L}+)*$`

// registerPatterns 在验证器上注册表单用到的自定义标签（重复注册会被忽略）
func registerPatterns(v *validator.Validator) error {
	return v.RegisterPattern(TagPersonName, personNamePattern)
}

// dateRules 一个三段式日期的字段规则：必填 + 位数格式
func dateRules(b *validator.SchemaBuilder, f validator.DateFields) {
	b.Field(f.Day,
		validator.Required(MsgDayRequired),
		validator.DateComponent(validator.PartDay, MsgDayFormat))
	b.Field(f.Month,
		validator.Required(MsgMonthRequired),
		validator.DateComponent(validator.PartMonth, MsgMonthFormat))
	b.Field(f.Year,
		validator.Required(MsgShortYearRequired),
		validator.DateComponent(validator.PartYear, MsgShortYearFormat))
}
