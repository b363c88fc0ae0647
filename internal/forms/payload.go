package forms

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"dormitory-forms/internal/backend"
	"dormitory-forms/pkg/types"
	"dormitory-forms/pkg/validator"
)

// PhonePrefix 乌克兰手机号国家码，表单里只输入后 9 位
const PhonePrefix = "+380"

// ErrIncompletePayload 取值无法转换为提交体（提交前应先通过验证）
var ErrIncompletePayload = errors.New("forms: values cannot be converted to a submission payload")

// AccommodationPayload 把已通过验证的表单取值转换为提交体
func AccommodationPayload(values types.Values, centuryPrefix string) (backend.AccommodationRequest, error) {
	if centuryPrefix == "" {
		centuryPrefix = types.DefaultCenturyPrefix
	}
	var errs []error
	intField := func(key string) int {
		n, ok := values.Int(key)
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %s is not an integer", ErrIncompletePayload, key))
		}
		return n
	}
	textField := func(key string) string {
		text, _ := values.Text(key)
		return text
	}
	dateField := func(f validator.DateFields) string {
		iso, err := f.Parts(values).ISO(centuryPrefix)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: %s: %v", ErrIncompletePayload, f.Day, err))
		}
		return iso
	}

	req := backend.AccommodationRequest{
		FacultyID:       intField(KeyFaculty),
		GroupID:         intField(KeyGroup),
		Course:          intField(KeyCourse),
		FullName:        textField(KeyFullName),
		Surname:         textField(KeySurname),
		PhoneNumber:     PhonePrefix + strings.TrimPrefix(textField(KeyResidentPhone), PhonePrefix),
		DormitoryID:     intField(KeyDormNumber),
		ApplicationDate: dateField(ApplicationDate),
		StartDate:       dateField(StartDate),
		EndDate:         dateField(EndDate),
	}
	if len(errs) > 0 {
		return backend.AccommodationRequest{}, errors.Join(errs...)
	}
	return req, nil
}

// ServerFieldAliases 后端 JSON 字段 -> 表单字段
// 日期错误归属到对应三段式的日字段
var ServerFieldAliases = map[string]string{
	"faculty_id":       KeyFaculty,
	"group_id":         KeyGroup,
	"course":           KeyCourse,
	"full_name":        KeyFullName,
	"surname":          KeySurname,
	"phone_number":     KeyResidentPhone,
	"dormitory_id":     KeyDormNumber,
	"academic_year":    KeyAcademicYearStart,
	"application_date": ApplicationDate.Day,
	"start_date":       StartDate.Day,
	"end_date":         EndDate.Day,
}

// FormKey 服务端字段对应的表单字段，没有别名时原样返回
func FormKey(serverKey string) string {
	if key, ok := ServerFieldAliases[serverKey]; ok {
		return key
	}
	return serverKey
}

// MapServerErrors 把服务端字段错误映射到表单字段
// 多个服务端字段落到同一表单字段时，按服务端字段名排序后保留第一条
func MapServerErrors(fieldErrors map[string]string) map[string]string {
	serverKeys := make([]string, 0, len(fieldErrors))
	for k := range fieldErrors {
		serverKeys = append(serverKeys, k)
	}
	sort.Strings(serverKeys)

	out := make(map[string]string, len(fieldErrors))
	for _, serverKey := range serverKeys {
		key := FormKey(serverKey)
		if _, exists := out[key]; exists {
			continue
		}
		out[key] = fieldErrors[serverKey]
	}
	return out
}
