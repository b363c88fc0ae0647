package prefs

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
)

// SidebarExpandedKey 侧边栏展开状态
const SidebarExpandedKey = "sidebar.expanded"

// maxKeyLength 偏好键的最大长度，与数据库列宽一致
const maxKeyLength = 128

var (
	ErrEmptyKey   = errors.New("prefs: key cannot be empty")
	ErrKeyTooLong = errors.New("prefs: key too long")
)

// Store 持久化的用户偏好（键值均为字符串）
type Store interface {
	// Get 读取偏好，不存在时返回 def
	Get(ctx context.Context, key, def string) (string, error)
	// Set 写入偏好
	Set(ctx context.Context, key, value string) error
}

func checkKey(key string) error {
	switch {
	case strings.TrimSpace(key) == "":
		return ErrEmptyKey
	case len(key) > maxKeyLength:
		return ErrKeyTooLong
	}
	return nil
}

// Bool 读取布尔偏好，无法解析时返回 def
func Bool(ctx context.Context, s Store, key string, def bool) (bool, error) {
	raw, err := s.Get(ctx, key, strconv.FormatBool(def))
	if err != nil {
		return def, err
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def, nil
	}
	return v, nil
}

// SetBool 写入布尔偏好
func SetBool(ctx context.Context, s Store, key string, value bool) error {
	return s.Set(ctx, key, strconv.FormatBool(value))
}

// ============================================================================
// 内存实现
// ============================================================================

// Memory 进程内存储，重启后丢失
type Memory struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemory 创建内存存储
func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

// Get 实现 Store
func (m *Memory) Get(_ context.Context, key, def string) (string, error) {
	if err := checkKey(key); err != nil {
		return def, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if v, ok := m.values[key]; ok {
		return v, nil
	}
	return def, nil
}

// Set 实现 Store
func (m *Memory) Set(_ context.Context, key, value string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}
