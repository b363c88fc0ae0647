package navigator

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"dormitory-forms/pkg/validator"
)

// DefaultHighlightDuration 高亮自动移除的时间
const DefaultHighlightDuration = 3 * time.Second

var (
	// ErrNoErrors 没有可导航的错误
	ErrNoErrors = errors.New("navigator: no errors to navigate")
	// ErrIndexOutOfRange 下标越界
	ErrIndexOutOfRange = errors.New("navigator: index out of range")
)

// FieldRegistry 持有字段句柄的协作者
// 导航器只给出要聚焦的字段键，滚动、聚焦和样式由协作者完成
type FieldRegistry interface {
	// Focus 滚动到字段并聚焦
	Focus(key string) error
	// SetHighlight 添加或移除错误高亮
	SetHighlight(key string, on bool)
}

// Timer 可停止的定时器，*time.Timer 满足该接口
type Timer interface {
	Stop() bool
}

// AfterFunc 定时器工厂，默认使用 time.AfterFunc
type AfterFunc func(d time.Duration, f func()) Timer

func stdAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// BuildOrderedKeys 把错误映射转换为稳定的字段键列表
// 已声明字段按声明顺序（路径形式的键按根字段），其余按字典序排在最后
func BuildOrderedKeys(errs map[string]string, declared []string) []string {
	rank := make(map[string]int, len(declared))
	for i, name := range declared {
		if _, ok := rank[name]; !ok {
			rank[name] = i
		}
	}
	position := func(key string) int {
		if pos, ok := rank[key]; ok {
			return pos
		}
		if p, err := validator.ParseFieldPath(key); err == nil {
			if pos, ok := rank[p.Name]; ok {
				return pos
			}
		}
		return len(declared)
	}

	keys := make([]string, 0, len(errs))
	for key := range errs {
		keys = append(keys, key)
	}
	sort.SliceStable(keys, func(i, j int) bool {
		pi, pj := position(keys[i]), position(keys[j])
		if pi != pj {
			return pi < pj
		}
		return keys[i] < keys[j]
	})
	return keys
}

// Cursor 错误游标：在有序的错误字段之间跳转，并驱动短暂的高亮
// 高亮由定时器移除，与后续的失焦、聚焦等交互无关
// 并发安全：定时器回调在独立 goroutine 中执行
type Cursor struct {
	mu sync.Mutex

	registry  FieldRegistry
	keys      []string
	index     int
	duration  time.Duration
	afterFunc AfterFunc
	logger    *zap.Logger

	// timers 每个字段当前的高亮定时器；gen 用于识别已被替换的定时器
	timers map[string]Timer
	gen    map[string]uint64
}

// Option 游标选项
type Option func(*Cursor)

// WithHighlightDuration 设置高亮时长
func WithHighlightDuration(d time.Duration) Option {
	return func(c *Cursor) {
		if d > 0 {
			c.duration = d
		}
	}
}

// WithAfterFunc 替换定时器工厂（测试用）
func WithAfterFunc(fn AfterFunc) Option {
	return func(c *Cursor) {
		if fn != nil {
			c.afterFunc = fn
		}
	}
}

// WithLogger 设置日志
func WithLogger(logger *zap.Logger) Option {
	return func(c *Cursor) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewCursor 创建游标
func NewCursor(registry FieldRegistry, opts ...Option) *Cursor {
	c := &Cursor{
		registry:  registry,
		duration:  DefaultHighlightDuration,
		afterFunc: stdAfterFunc,
		logger:    zap.NewNop(),
		timers:    make(map[string]Timer),
		gen:       make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Reset 用新的错误列表重建游标，下标回到 0
// 正在进行的高亮不受影响，仍按各自的定时器移除
func (c *Cursor) Reset(keys []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keys = append(c.keys[:0:0], keys...)
	c.index = 0
}

// Keys 有序的错误字段
func (c *Cursor) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.keys))
	copy(out, c.keys)
	return out
}

// Len 错误数量
func (c *Cursor) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.keys)
}

// Index 当前下标
func (c *Cursor) Index() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index
}

// Current 当前字段
func (c *Cursor) Current() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.keys) == 0 {
		return "", false
	}
	return c.keys[c.index], true
}

// JumpTo 移动到第 index 个错误，聚焦并高亮该字段
// 聚焦失败时游标和高亮仍然生效，错误返回给调用方
func (c *Cursor) JumpTo(index int) (string, error) {
	c.mu.Lock()
	if len(c.keys) == 0 {
		c.mu.Unlock()
		return "", ErrNoErrors
	}
	if index < 0 || index >= len(c.keys) {
		n := len(c.keys)
		c.mu.Unlock()
		return "", fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, index, n)
	}
	c.index = index
	key := c.keys[index]
	c.mu.Unlock()

	return key, c.activate(key)
}

// Next 跳到下一个错误，最后一个之后回到第一个
func (c *Cursor) Next() (string, error) {
	c.mu.Lock()
	n := len(c.keys)
	next := 0
	if n > 0 {
		next = (c.index + 1) % n
	}
	c.mu.Unlock()
	return c.JumpTo(next)
}

// Prev 跳到上一个错误，第一个之前回到最后一个
func (c *Cursor) Prev() (string, error) {
	c.mu.Lock()
	n := len(c.keys)
	prev := 0
	if n > 0 {
		prev = (c.index - 1 + n) % n
	}
	c.mu.Unlock()
	return c.JumpTo(prev)
}

// Close 停止全部定时器并立即移除高亮
func (c *Cursor) Close() {
	c.mu.Lock()
	keys := make([]string, 0, len(c.timers))
	for key, timer := range c.timers {
		timer.Stop()
		c.gen[key]++
		keys = append(keys, key)
	}
	clear(c.timers)
	c.mu.Unlock()

	if c.registry == nil {
		return
	}
	sort.Strings(keys)
	for _, key := range keys {
		c.registry.SetHighlight(key, false)
	}
}

// activate 高亮并聚焦；同一字段再次高亮时重新计时
func (c *Cursor) activate(key string) error {
	if c.registry == nil {
		return nil
	}

	c.mu.Lock()
	if old, ok := c.timers[key]; ok {
		old.Stop()
	}
	c.gen[key]++
	gen := c.gen[key]
	c.timers[key] = c.afterFunc(c.duration, func() {
		c.expire(key, gen)
	})
	c.mu.Unlock()

	c.registry.SetHighlight(key, true)
	if err := c.registry.Focus(key); err != nil {
		c.logger.Debug("focus failed", zap.String("field", key), zap.Error(err))
		return fmt.Errorf("focus %q: %w", key, err)
	}
	return nil
}

// expire 定时器回调：只有仍是最新一次高亮时才移除
func (c *Cursor) expire(key string, gen uint64) {
	c.mu.Lock()
	if c.gen[key] != gen {
		c.mu.Unlock()
		return
	}
	delete(c.timers, key)
	c.mu.Unlock()

	c.registry.SetHighlight(key, false)
}
