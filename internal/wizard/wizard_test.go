package wizard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dormitory-forms/pkg/types"
)

func TestTotalSpreads(t *testing.T) {
	tests := []struct {
		pageCount int
		want      int
	}{
		{-3, 0}, {0, 0}, {1, 1}, {2, 1}, {3, 2}, {4, 2}, {5, 3}, {10, 5},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TotalSpreads(tt.pageCount), "pageCount=%d", tt.pageCount)
	}
}

func TestController_SpreadPages(t *testing.T) {
	c, err := NewController(5)
	require.NoError(t, err)

	assert.Equal(t, Spread{Index: 0, Left: 0, Right: 1}, c.SpreadPages(0))
	assert.Equal(t, Spread{Index: 1, Left: 2, Right: 3}, c.SpreadPages(1))

	last := c.SpreadPages(2)
	assert.Equal(t, 4, last.Left)
	assert.False(t, last.HasRight(), "奇数页的最后一页与占位页配对")
}

func TestController_Bounds(t *testing.T) {
	for pageCount := 0; pageCount <= 9; pageCount++ {
		c, err := NewController(pageCount)
		require.NoError(t, err)

		total := TotalSpreads(pageCount)
		for i := 0; i < total; i++ {
			c.Advance()
		}
		want := total - 1
		if want < 0 {
			want = 0
		}
		assert.Equal(t, want, c.Index(), "pageCount=%d", pageCount)

		// 再前进也不越界
		assert.False(t, c.Advance())
		assert.Equal(t, want, c.Index())
		assert.Equal(t, total > 0, c.CanSubmit())
	}
}

func TestController_Retreat(t *testing.T) {
	c, err := NewController(4)
	require.NoError(t, err)

	assert.False(t, c.Retreat(), "第一个跨页后退是空操作")
	assert.True(t, c.Advance())
	assert.True(t, c.CanSubmit())
	assert.True(t, c.Retreat())
	assert.Equal(t, 0, c.Index())
	assert.False(t, c.CanSubmit())

	pos := c.Position()
	assert.Equal(t, Position{CurrentSpreadIndex: 0, TotalSpreads: 2, CanSubmit: false}, pos)
}

func TestController_Seek(t *testing.T) {
	c, err := NewController(6)
	require.NoError(t, err)

	c.Seek(10)
	assert.Equal(t, 2, c.Index())
	c.Seek(-1)
	assert.Equal(t, 0, c.Index())
	c.Seek(1)
	assert.Equal(t, Spread{Index: 1, Left: 2, Right: 3}, c.Current())

	_, err = NewController(-1)
	assert.ErrorIs(t, err, ErrNegativePageCount)
}

var contractSet = RequiredSet{
	Base: []string{"fullName", "roomType", "startDate"},
	Conditional: []Conditional{
		{When: "roomType", Equals: "shared", Fields: []string{"bedCount"}},
	},
}

func TestRequiredSet_Resolve(t *testing.T) {
	assert.Equal(t, []string{"fullName", "roomType", "startDate"}, contractSet.Resolve(types.Values{}))
	assert.Equal(t,
		[]string{"fullName", "roomType", "startDate", "bedCount"},
		contractSet.Resolve(types.Values{"roomType": "shared"}))
}

func TestCompletionRatio(t *testing.T) {
	assert.Equal(t, 1.0, CompletionRatio(nil, types.Values{}))
	assert.Equal(t, 0.0, CompletionRatio([]string{"a", "b"}, types.Values{"a": " "}))
	assert.Equal(t, 0.5, CompletionRatio([]string{"a", "b"}, types.Values{"a": "x"}))
	assert.Equal(t, 1.0, CompletionRatio([]string{"a", "b"}, types.Values{"a": "x", "b": 2}))
}

func TestTracker_RederivesMembership(t *testing.T) {
	tracker := NewTracker(contractSet, types.Values{"fullName": "Іван"})

	p := tracker.Update("roomType", "single")
	assert.InDelta(t, 2.0/3.0, p.Ratio, 1e-9)
	assert.Equal(t, []string{"startDate"}, p.Missing)

	// 切换到合住后 bedCount 成为必填
	p = tracker.Update("roomType", "shared")
	assert.Equal(t, 0.5, p.Ratio)
	assert.Equal(t, 50, p.Percent)
	assert.Equal(t, []string{"bedCount", "startDate"}, p.Missing)

	tracker.Update("bedCount", 2)
	p = tracker.Update("startDate", "2025-09-01")
	assert.Equal(t, 1.0, p.Ratio)
	assert.Empty(t, p.Missing)

	// 切回单间，bedCount 不再计入
	p = tracker.Update("roomType", "single")
	assert.Equal(t, []string{"fullName", "roomType", "startDate"}, p.Required)
	assert.Equal(t, 1.0, p.Ratio)

	// 清空字段
	p = tracker.Update("fullName", nil)
	assert.InDelta(t, 2.0/3.0, p.Ratio, 1e-9)
}

func TestTracker_Checkboxes(t *testing.T) {
	set := RequiredSet{Base: []string{"fullName", "agreement"}, Checkboxes: []string{"agreement"}}
	tracker := NewTracker(set, types.Values{"fullName": "Іван", "agreement": false})

	p := tracker.Progress()
	assert.Equal(t, 0.5, p.Ratio)
	assert.Equal(t, []string{"agreement"}, p.Missing)

	p = tracker.Update("agreement", "yes")
	assert.Empty(t, p.Missing)

	p = tracker.Update("agreement", "off")
	assert.Equal(t, []string{"agreement"}, p.Missing)
}
