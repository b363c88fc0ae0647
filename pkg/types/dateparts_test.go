package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateParts_States(t *testing.T) {
	empty := DateParts{}
	assert.True(t, empty.IsEmpty())
	assert.False(t, empty.IsTouched())
	assert.False(t, empty.IsComplete())

	partial := DateParts{Day: "1"}
	assert.True(t, partial.IsTouched())
	assert.False(t, partial.IsComplete(), "日必须是两位")

	full := DateParts{Day: "01", Month: "09", Year: "25"}
	assert.True(t, full.IsComplete())
	assert.Equal(t, "01/09/25", full.String())
}

func TestDateParts_Resolve(t *testing.T) {
	tests := []struct {
		name    string
		parts   DateParts
		century string
		want    string
		wantErr error
	}{
		{name: "正常", parts: DateParts{"01", "09", "25"}, century: DefaultCenturyPrefix, want: "2025-09-01"},
		{name: "世纪可配置", parts: DateParts{"31", "12", "99"}, century: "19", want: "1999-12-31"},
		{name: "闰年", parts: DateParts{"29", "02", "24"}, century: "20", want: "2024-02-29"},
		{name: "非闰年", parts: DateParts{"29", "02", "25"}, century: "20", wantErr: ErrInvalidDate},
		{name: "四月三十一", parts: DateParts{"31", "04", "25"}, century: "20", wantErr: ErrInvalidDate},
		{name: "月份越界", parts: DateParts{"01", "13", "25"}, century: "20", wantErr: ErrIncompleteDate},
		{name: "缺年份", parts: DateParts{"01", "01", ""}, century: "20", wantErr: ErrIncompleteDate},
		{name: "世纪非法", parts: DateParts{"01", "01", "25"}, century: "2", wantErr: ErrInvalidCentury},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			iso, err := tt.parts.ISO(tt.century)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.False(t, tt.parts.IsValid(tt.century))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, iso)
			assert.True(t, tt.parts.IsValid(tt.century))
		})
	}
}

func TestDatePartsFromISO(t *testing.T) {
	parts, err := DatePartsFromISO("2025-09-01")
	require.NoError(t, err)
	assert.Equal(t, DateParts{Day: "01", Month: "09", Year: "25"}, parts)

	parts, err = DatePartsFromISO("2026-06-30T00:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, DateParts{Day: "30", Month: "06", Year: "26"}, parts)

	_, err = DatePartsFromISO("30.06.2026")
	assert.Error(t, err)
}

func TestTruncateDay(t *testing.T) {
	ts := time.Date(2025, time.May, 4, 23, 59, 1, 5, time.UTC)
	assert.Equal(t, time.Date(2025, time.May, 4, 0, 0, 0, 0, time.UTC), TruncateDay(ts))
}
