package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldState_Flags(t *testing.T) {
	var s FieldState
	assert.Equal(t, "none", s.String())
	assert.True(t, s.CanEdit())

	s.Set(FieldPrefilled)
	s.Set(FieldLocked)
	assert.True(t, s.IsLocked())
	assert.False(t, s.CanEdit())
	assert.True(t, s.Contain(FieldPrefilled|FieldLocked))
	assert.False(t, s.Contain(FieldTouched|FieldLocked))
	assert.True(t, s.HasAny(FieldTouched, FieldLocked))
	assert.Equal(t, "prefilled|locked", s.String())

	s.Unset(FieldLocked)
	assert.True(t, s.CanEdit())

	s.Toggle(FieldTouched)
	assert.True(t, s.Contain(FieldTouched))
	s.Toggle(FieldTouched)
	assert.False(t, s.Contain(FieldTouched))

	s.Clear()
	assert.Equal(t, FieldNone, s)
}

func TestFieldState_FlagsAreDistinct(t *testing.T) {
	flags := []FieldState{FieldTouched, FieldPrefilled, FieldLocked, FieldHighlighted}
	for i, a := range flags {
		assert.NotEqual(t, FieldNone, a)
		for j, b := range flags {
			if i != j {
				assert.Zero(t, a&b, "状态位不能重叠")
			}
		}
	}
}

func TestFieldState_JSON(t *testing.T) {
	s := FieldLocked | FieldTouched
	data, err := json.Marshal(s)
	require.NoError(t, err)

	var decoded FieldState
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, s, decoded)

	assert.Error(t, json.Unmarshal([]byte(`"locked"`), &decoded))
}
