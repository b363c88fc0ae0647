package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"dormitory-forms/pkg/idgen"
)

var (
	// ErrSessionNotFound 会话不存在或已过期
	ErrSessionNotFound = errors.New("session: not found")
	// ErrTooManySessions 活跃会话达到上限
	ErrTooManySessions = errors.New("session: too many active sessions")
)

const (
	// DefaultIdleTTL 会话空闲多久后过期
	DefaultIdleTTL = 30 * time.Minute
	// DefaultSweepInterval 后台清理间隔
	DefaultSweepInterval = time.Minute
)

// entry 注册表中的会话及其最近访问时间
type entry struct {
	session  *Session
	lastUsed atomic.Int64 // UnixNano
}

// Manager 进程内的会话注册表
// 空闲超过 idleTTL 的会话在 Get、Sweep 或达到上限的 Create 时被关闭并移除
type Manager struct {
	ids      *idgen.Snowflake
	opts     Options
	sessions sync.Map // idgen.ID -> *entry
	count    atomic.Int64

	idleTTL     time.Duration
	maxSessions int
	now         func() time.Time
}

// ManagerOption 注册表选项
type ManagerOption func(*Manager)

// WithIdleTTL 设置空闲过期时间，<= 0 表示永不过期
func WithIdleTTL(ttl time.Duration) ManagerOption {
	return func(m *Manager) {
		m.idleTTL = ttl
	}
}

// WithMaxSessions 设置活跃会话上限，<= 0 表示不限
func WithMaxSessions(n int) ManagerOption {
	return func(m *Manager) {
		m.maxSessions = n
	}
}

// WithClock 设置时钟（测试用）
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager 创建会话注册表
func NewManager(ids *idgen.Snowflake, opts Options, options ...ManagerOption) *Manager {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	m := &Manager{
		ids:     ids,
		opts:    opts,
		idleTTL: DefaultIdleTTL,
		now:     time.Now,
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

// Create 创建新会话；达到上限时先清理过期会话，仍无空位返回 ErrTooManySessions
func (m *Manager) Create() (*Session, error) {
	if m.maxSessions > 0 && m.Len() >= m.maxSessions {
		m.Sweep()
	}
	if n := m.count.Add(1); m.maxSessions > 0 && n > int64(m.maxSessions) {
		m.count.Add(-1)
		m.opts.Logger.Warn("session limit reached", zap.Int("max", m.maxSessions))
		return nil, ErrTooManySessions
	}

	id, err := m.ids.NextID()
	if err != nil {
		m.count.Add(-1)
		return nil, err
	}
	e := &entry{session: New(id, m.opts)}
	e.lastUsed.Store(m.now().UnixNano())
	m.sessions.Store(id, e)
	m.opts.Logger.Debug("session created", zap.String("session", id.String()))
	return e.session, nil
}

// Get 查找会话并刷新访问时间；已过期的会话被移除
func (m *Manager) Get(id idgen.ID) (*Session, error) {
	v, ok := m.sessions.Load(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	e := v.(*entry)
	now := m.now()
	if m.expired(e, now) {
		m.remove(id, e)
		return nil, ErrSessionNotFound
	}
	e.lastUsed.Store(now.UnixNano())
	return e.session, nil
}

// Delete 关闭并移除会话
func (m *Manager) Delete(id idgen.ID) bool {
	v, ok := m.sessions.Load(id)
	if !ok {
		return false
	}
	return m.remove(id, v.(*entry))
}

// Sweep 关闭并移除全部过期会话，返回移除数量
func (m *Manager) Sweep() int {
	if m.idleTTL <= 0 {
		return 0
	}
	now := m.now()
	removed := 0
	m.sessions.Range(func(key, value any) bool {
		if e := value.(*entry); m.expired(e, now) && m.remove(key.(idgen.ID), e) {
			removed++
		}
		return true
	})
	return removed
}

// Run 按 interval 周期清理，直到 ctx 结束
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				m.opts.Logger.Info("expired sessions removed",
					zap.Int("removed", n),
					zap.Int("active", m.Len()))
			}
		}
	}
}

// Len 会话数量
func (m *Manager) Len() int {
	return int(m.count.Load())
}

// Close 关闭全部会话
func (m *Manager) Close() {
	m.sessions.Range(func(key, value any) bool {
		m.remove(key.(idgen.ID), value.(*entry))
		return true
	})
}

func (m *Manager) expired(e *entry, now time.Time) bool {
	return m.idleTTL > 0 && now.Sub(time.Unix(0, e.lastUsed.Load())) > m.idleTTL
}

// remove 只有真正删除该条目的调用方负责关闭会话
func (m *Manager) remove(id idgen.ID, e *entry) bool {
	if !m.sessions.CompareAndDelete(id, e) {
		return false
	}
	e.session.Close()
	m.count.Add(-1)
	m.opts.Logger.Debug("session removed", zap.String("session", id.String()))
	return true
}
