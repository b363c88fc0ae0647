package forms

import (
	"dormitory-forms/internal/wizard"
	"dormitory-forms/pkg/validator"
)

// 住宿合同字段键
const (
	ContractFullName     = "fullName"
	ContractPassport     = "passportNumber"
	ContractPhone        = "residentPhone"
	ContractDormNumber   = "dormNumber"
	ContractRoomNumber   = "roomNumber"
	ContractRoomType     = "roomType"
	ContractBedCount     = "bedCount"
	ContractGuardianName = "guardianName"
	ContractGuardianTel  = "guardianPhone"
	ContractAgreement    = "agreement"
)

// 房间类型
const (
	RoomSingle = "single"
	RoomShared = "shared"
)

// 合同日期
var (
	ContractStart = validator.DateFields{Day: "contractStartDay", Month: "contractStartMonth", Year: "contractStartYear"}
	ContractEnd   = validator.DateFields{Day: "contractEndDay", Month: "contractEndMonth", Year: "contractEndYear"}
)

// ContractPages 合同的逻辑页数
const ContractPages = 5

// 合同表单的自定义标签
const (
	TagPassport = "passport"
	TagRoomType = "room_type"
	// TagAccepted 复选框必须勾选
	TagAccepted = "accepted"
)

// 合同错误消息
const (
	MsgPassportRequired  = "Passport number is required"
	MsgPassportFormat    = "Passport number must be 9 digits or 2 letters and 6 digits"
	MsgRoomRequired      = "Room number is required"
	MsgRoomRange         = "Room number must be from 1 to 999"
	MsgRoomTypeRequired  = "Select a room type"
	MsgRoomTypeInvalid   = "Unknown room type"
	MsgBedCountRequired  = "Bed count is required for a shared room"
	MsgBedCountRange     = "Bed count must be from 2 to 4"
	MsgGuardianRequired  = "Guardian name is required"
	MsgAgreementRequired = "You must accept the contract terms"
)

const (
	passportPattern = `^(\d{9}|\p{Lu}{2}\d{6})$`
	roomTypePattern = `^(single|shared)$`
	acceptedPattern = `^(?i:true|1|on|yes)$`
)

// ContractPageFields 每一页上的字段，下标即逻辑页号
func ContractPageFields() [][]string {
	return [][]string{
		{ContractFullName, ContractPassport, ContractPhone},
		{ContractDormNumber, ContractRoomNumber, ContractRoomType, ContractBedCount},
		append(ContractStart.Names(), ContractEnd.Names()...),
		{ContractGuardianName, ContractGuardianTel},
		{ContractAgreement},
	}
}

// ContractFields 合同字段的声明顺序
func ContractFields() []string {
	var keys []string
	for _, page := range ContractPageFields() {
		keys = append(keys, page...)
	}
	return keys
}

// ContractRequired 完成度统计使用的必填集合，合住时床位数也必填
func ContractRequired() wizard.RequiredSet {
	base := []string{
		ContractFullName, ContractPassport, ContractPhone,
		ContractDormNumber, ContractRoomNumber, ContractRoomType,
	}
	base = append(base, ContractStart.Names()...)
	base = append(base, ContractEnd.Names()...)
	base = append(base, ContractGuardianName, ContractAgreement)
	return wizard.RequiredSet{
		Base: base,
		Conditional: []wizard.Conditional{
			{When: ContractRoomType, Equals: RoomShared, Fields: []string{ContractBedCount}},
		},
		Checkboxes: []string{ContractAgreement},
	}
}

// BuildContractSchema 合同表单的验证模式
func BuildContractSchema(v *validator.Validator, centuryPrefix string) (*validator.Schema, error) {
	if v == nil {
		v = validator.Default()
	}
	if centuryPrefix == "" {
		centuryPrefix = Context{}.century()
	}
	if err := registerPatterns(v); err != nil {
		return nil, err
	}
	if err := v.RegisterPattern(TagPassport, passportPattern); err != nil {
		return nil, err
	}
	if err := v.RegisterPattern(TagRoomType, roomTypePattern); err != nil {
		return nil, err
	}
	if err := v.RegisterPattern(TagAccepted, acceptedPattern); err != nil {
		return nil, err
	}

	b := validator.NewSchemaBuilder(v).
		Field(ContractFullName,
			validator.Required(MsgFullNameRequired),
			validator.Pattern(TagPersonName, MsgNameFormat)).
		Field(ContractPassport,
			validator.Required(MsgPassportRequired),
			validator.Pattern(TagPassport, MsgPassportFormat)).
		Field(ContractPhone,
			validator.Required(MsgPhoneRequired),
			validator.Pattern(validator.TagPhoneLocal, MsgPhoneFormat)).
		Field(ContractDormNumber,
			validator.Required(MsgDormRequired),
			validator.NumericRange(MinDorm, MaxDorm, MsgDormRange)).
		Field(ContractRoomNumber,
			validator.Required(MsgRoomRequired),
			validator.NumericRange(1, 999, MsgRoomRange)).
		Field(ContractRoomType,
			validator.Required(MsgRoomTypeRequired),
			validator.Pattern(TagRoomType, MsgRoomTypeInvalid)).
		Field(ContractBedCount,
			validator.RequiredIf(ContractRoomType, RoomShared, MsgBedCountRequired),
			validator.NumericRange(2, 4, MsgBedCountRange))

	dateRules(b, ContractStart)
	dateRules(b, ContractEnd)

	return b.
		Field(ContractGuardianName,
			validator.Required(MsgGuardianRequired),
			validator.Pattern(TagPersonName, MsgNameFormat)).
		Field(ContractGuardianTel, validator.Pattern(validator.TagPhoneLocal, MsgPhoneFormat)).
		Field(ContractAgreement,
			validator.Required(MsgAgreementRequired),
			validator.Pattern(TagAccepted, MsgAgreementRequired)).
		Object("contractStartResolvable", validator.DateResolvable(ContractStart, centuryPrefix, MsgInvalidDate)).
		Object("contractEndResolvable", validator.DateResolvable(ContractEnd, centuryPrefix, MsgInvalidDate)).
		Object("contractDateOrder", validator.DateOrder(ContractStart, ContractEnd, centuryPrefix, MsgDateOrder)).
		Build()
}
