package idgen

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// ID 会话和请求使用的唯一标识
// JSON 序列化为字符串，避免前端 JavaScript 的 53 位精度丢失
type ID int64

// String 十进制字符串
func (id ID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// IsValid ID 是否为正数
func (id ID) IsValid() bool {
	return id > 0
}

// MarshalJSON 实现 json.Marshaler 接口
func (id ID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.String())
}

// UnmarshalJSON 同时接受字符串和数字
func (id *ID) UnmarshalJSON(data []byte) error {
	text := strings.Trim(string(data), `"`)
	if text == "" || text == "null" {
		*id = 0
		return nil
	}
	parsed, err := ParseID(text)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ParseID 从十进制字符串解析ID
func ParseID(text string) (ID, error) {
	raw, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSnowflakeID, text)
	}
	if raw <= 0 {
		return 0, fmt.Errorf("%w: %d must be positive", ErrInvalidSnowflakeID, raw)
	}
	return ID(raw), nil
}

var (
	defaultGenerator *Snowflake
	defaultOnce      sync.Once
	defaultErr       error
)

// Init 初始化全局默认生成器，只有第一次调用生效
func Init(datacenterID, workerID int64) error {
	defaultOnce.Do(func() {
		defaultGenerator, defaultErr = NewSnowflake(datacenterID, workerID)
	})
	return defaultErr
}

// NewID 使用全局默认生成器生成ID，未初始化时以 (0, 0) 初始化
func NewID() (ID, error) {
	if err := Init(0, 0); err != nil {
		return 0, err
	}
	return defaultGenerator.NextID()
}
