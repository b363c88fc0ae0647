package wizard

import "errors"

// ErrNegativePageCount 页数不能为负
var ErrNegativePageCount = errors.New("wizard: page count cannot be negative")

// NoPage 右页越界时的占位页下标
const NoPage = -1

// TotalSpreads 页数对应的跨页数量 ceil(pageCount/2)，负数视为 0
func TotalSpreads(pageCount int) int {
	if pageCount <= 0 {
		return 0
	}
	return (pageCount + 1) / 2
}

// Spread 一个跨页：左页和右页的逻辑页下标
// 右页越界时 Right == NoPage，渲染为空白占位页
type Spread struct {
	Index int `json:"index"`
	Left  int `json:"left"`
	Right int `json:"right"`
}

// HasRight 右页是否为真实页面
func (s Spread) HasRight() bool {
	return s.Right != NoPage
}

// Position 向导位置
type Position struct {
	CurrentSpreadIndex int  `json:"currentSpreadIndex"`
	TotalSpreads       int  `json:"totalSpreads"`
	CanSubmit          bool `json:"canSubmit"`
}

// Controller 多页合同的跨页控制器
// 状态是跨页下标 0..TotalSpreads-1，前进后退都是饱和的（不回绕）
// 提交不是状态转移，只在最后一个跨页时可用
//
// 非线程安全：归属单个表单会话
type Controller struct {
	pageCount int
	index     int
}

// NewController 创建控制器，从第一个跨页开始
func NewController(pageCount int) (*Controller, error) {
	if pageCount < 0 {
		return nil, ErrNegativePageCount
	}
	return &Controller{pageCount: pageCount}, nil
}

// PageCount 逻辑页数
func (c *Controller) PageCount() int {
	return c.pageCount
}

// TotalSpreads 跨页数量
func (c *Controller) TotalSpreads() int {
	return TotalSpreads(c.pageCount)
}

// SpreadPages 第 i 个跨页的左右页 (2i, 2i+1)，超出页数的右页为 NoPage
func (c *Controller) SpreadPages(i int) Spread {
	left, right := 2*i, 2*i+1
	if right >= c.pageCount {
		right = NoPage
	}
	return Spread{Index: i, Left: left, Right: right}
}

// Current 当前跨页
func (c *Controller) Current() Spread {
	return c.SpreadPages(c.index)
}

// Index 当前跨页下标
func (c *Controller) Index() int {
	return c.index
}

// Advance 前进一个跨页，已在最后一个跨页时不变并返回 false
func (c *Controller) Advance() bool {
	if c.index+1 >= c.TotalSpreads() {
		return false
	}
	c.index++
	return true
}

// Retreat 后退一个跨页，已在第一个跨页时不变并返回 false
func (c *Controller) Retreat() bool {
	if c.index == 0 {
		return false
	}
	c.index--
	return true
}

// Seek 跳到指定跨页，越界时钳制到有效范围
func (c *Controller) Seek(i int) {
	last := c.TotalSpreads() - 1
	switch {
	case last < 0 || i < 0:
		c.index = 0
	case i > last:
		c.index = last
	default:
		c.index = i
	}
}

// CanSubmit 是否处在最后一个跨页（没有页面时不可提交）
func (c *Controller) CanSubmit() bool {
	total := c.TotalSpreads()
	return total > 0 && c.index == total-1
}

// Position 当前位置快照
func (c *Controller) Position() Position {
	return Position{
		CurrentSpreadIndex: c.index,
		TotalSpreads:       c.TotalSpreads(),
		CanSubmit:          c.CanSubmit(),
	}
}
