package forms

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dormitory-forms/internal/wizard"
	"dormitory-forms/pkg/types"
	"dormitory-forms/pkg/validator"
)

func contractValues() types.Values {
	values := types.Values{
		ContractFullName:     "Петренко Іван",
		ContractPassport:     "123456789",
		ContractPhone:        "501234567",
		ContractDormNumber:   "5",
		ContractRoomNumber:   "214",
		ContractRoomType:     RoomSingle,
		ContractGuardianName: "Петренко Олег",
		ContractAgreement:    true,
	}
	ContractStart.Set(values, types.DateParts{Day: "01", Month: "09", Year: "24"})
	ContractEnd.Set(values, types.DateParts{Day: "30", Month: "06", Year: "25"})
	return values
}

func TestContractSchema(t *testing.T) {
	schema, err := BuildContractSchema(validator.New(), "")
	require.NoError(t, err)
	assert.Equal(t, ContractFields(), schema.Fields())

	values := contractValues()
	assert.True(t, schema.Validate(values).IsValid())

	values.Set(ContractRoomType, RoomShared)
	result := schema.Validate(values)
	assert.Equal(t, map[string]string{ContractBedCount: MsgBedCountRequired}, result.Messages())

	values.Set(ContractBedCount, "5")
	result = schema.Validate(values)
	assert.Equal(t, map[string]string{ContractBedCount: MsgBedCountRange}, result.Messages())

	values.Set(ContractBedCount, 3)
	values.Set(ContractPassport, "AB123456")
	assert.True(t, schema.Validate(values).IsValid())

	values.Set(ContractRoomType, "suite")
	msg, _ := schema.Validate(values).Message(ContractRoomType)
	assert.Equal(t, MsgRoomTypeInvalid, msg)
}

func TestContractSchema_Agreement(t *testing.T) {
	schema, err := BuildContractSchema(validator.New(), "")
	require.NoError(t, err)

	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"勾选", true, ""},
		{"文本勾选", "on", ""},
		{"未勾选", false, MsgAgreementRequired},
		{"文本未勾选", "false", MsgAgreementRequired},
		{"缺失", nil, MsgAgreementRequired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, failed := schema.Evaluate(ContractAgreement, types.Values{ContractAgreement: tt.value})
			assert.Equal(t, tt.want != "", failed)
			assert.Equal(t, tt.want, msg)

			values := contractValues()
			values.Set(ContractAgreement, tt.value)
			got, _ := schema.Validate(values).Message(ContractAgreement)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestContractPages(t *testing.T) {
	pages := ContractPageFields()
	assert.Len(t, pages, ContractPages)
	assert.Equal(t, 3, wizard.TotalSpreads(len(pages)))
}

func TestContractRequired_Progress(t *testing.T) {
	tracker := wizard.NewTracker(ContractRequired(), contractValues())
	assert.Equal(t, 1.0, tracker.Progress().Ratio)

	p := tracker.Update(ContractRoomType, RoomShared)
	assert.Contains(t, p.Required, ContractBedCount)
	assert.Equal(t, []string{ContractBedCount}, p.Missing)
	assert.Less(t, p.Ratio, 1.0)
}

func TestContractRequired_AgreementUnchecked(t *testing.T) {
	values := contractValues()
	values.Set(ContractAgreement, false)
	tracker := wizard.NewTracker(ContractRequired(), values)

	p := tracker.Progress()
	assert.Equal(t, []string{ContractAgreement}, p.Missing)
	assert.Less(t, p.Ratio, 1.0)

	p = tracker.Update(ContractAgreement, true)
	assert.Empty(t, p.Missing)
	assert.Equal(t, 1.0, p.Ratio)
}
