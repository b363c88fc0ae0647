package idgen

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

const (
	// Epoch 起始时间戳 (2024-01-01 00:00:00 UTC)，毫秒
	Epoch int64 = 1704067200000

	// 位数分配
	WorkerIDBits     = 5  // 工作机器ID位数
	DatacenterIDBits = 5  // 数据中心ID位数
	SequenceBits     = 12 // 序列号位数

	MaxWorkerID     = -1 ^ (-1 << WorkerIDBits)     // 31
	MaxDatacenterID = -1 ^ (-1 << DatacenterIDBits) // 31
	MaxSequence     = -1 ^ (-1 << SequenceBits)     // 4095

	WorkerIDShift     = SequenceBits
	DatacenterIDShift = SequenceBits + WorkerIDBits
	TimestampShift    = SequenceBits + WorkerIDBits + DatacenterIDBits

	// 序列号耗尽时等待下一毫秒的休眠间隔
	sleepDuration = 100 * time.Microsecond

	// 时钟回拨容忍时间（毫秒），不超过该值时等待追上
	maxClockBackwardTolerance = 5
)

var (
	// ErrInvalidWorkerID 工作机器ID超出有效范围
	ErrInvalidWorkerID = errors.New("invalid worker id: must be between 0 and 31")
	// ErrInvalidDatacenterID 数据中心ID超出有效范围
	ErrInvalidDatacenterID = errors.New("invalid datacenter id: must be between 0 and 31")
	// ErrClockMovedBackwards 检测到时钟回拨
	ErrClockMovedBackwards = errors.New("clock moved backwards: refusing to generate id")
	// ErrInvalidSnowflakeID 无效的Snowflake ID
	ErrInvalidSnowflakeID = errors.New("invalid snowflake id")
)

// Snowflake 分布式唯一ID生成器
// 用于表单会话ID和后端请求的 X-Request-ID，线程安全
type Snowflake struct {
	mu sync.Mutex

	lastTimestamp int64
	sequence      int64

	datacenterID int64
	workerID     int64

	// datacenterID 和 workerID 部分预先计算
	precomputedPart int64

	// now 时间源，测试时可替换
	now func() time.Time
}

// NewSnowflake 创建Snowflake ID生成器
// datacenterID、workerID 取值范围均为 [0, 31]
func NewSnowflake(datacenterID, workerID int64) (*Snowflake, error) {
	if datacenterID < 0 || datacenterID > MaxDatacenterID {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidDatacenterID, datacenterID)
	}
	if workerID < 0 || workerID > MaxWorkerID {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidWorkerID, workerID)
	}
	return &Snowflake{
		lastTimestamp:   -1,
		datacenterID:    datacenterID,
		workerID:        workerID,
		precomputedPart: (datacenterID << DatacenterIDShift) | (workerID << WorkerIDShift),
		now:             time.Now,
	}, nil
}

// NextID 生成下一个唯一ID（线程安全）
func (s *Snowflake) NextID() (ID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	timestamp := s.currentMillis()

	// 时钟回拨检测：小幅回拨等待追上，超过容忍值直接报错
	if timestamp < s.lastTimestamp {
		offset := s.lastTimestamp - timestamp
		if offset > maxClockBackwardTolerance {
			return 0, fmt.Errorf("%w: %dms", ErrClockMovedBackwards, offset)
		}
		timestamp = s.waitNextMillis(s.lastTimestamp - 1)
	}

	if timestamp == s.lastTimestamp {
		s.sequence = (s.sequence + 1) & MaxSequence
		if s.sequence == 0 {
			// 当前毫秒序列号耗尽
			timestamp = s.waitNextMillis(s.lastTimestamp)
		}
	} else {
		s.sequence = 0
	}

	s.lastTimestamp = timestamp
	id := ((timestamp - Epoch) << TimestampShift) | s.precomputedPart | s.sequence
	return ID(id), nil
}

// MustNextID 生成ID，失败时 panic
func (s *Snowflake) MustNextID() ID {
	id, err := s.NextID()
	if err != nil {
		panic(err)
	}
	return id
}

func (s *Snowflake) currentMillis() int64 {
	return s.now().UnixMilli()
}

// waitNextMillis 等待直到时间戳大于 last
func (s *Snowflake) waitNextMillis(last int64) int64 {
	timestamp := s.currentMillis()
	for timestamp <= last {
		time.Sleep(sleepDuration)
		timestamp = s.currentMillis()
	}
	return timestamp
}

// GetWorkerID 获取工作机器ID
func (s *Snowflake) GetWorkerID() int64 {
	return s.workerID
}

// GetDatacenterID 获取数据中心ID
func (s *Snowflake) GetDatacenterID() int64 {
	return s.datacenterID
}

// ParseSnowflakeID 解析Snowflake ID，提取时间戳（毫秒）、数据中心ID、工作机器ID和序列号
func ParseSnowflakeID(id ID) (timestamp, datacenterID, workerID, sequence int64) {
	raw := int64(id)
	timestamp = (raw >> TimestampShift) + Epoch
	datacenterID = (raw >> DatacenterIDShift) & MaxDatacenterID
	workerID = (raw >> WorkerIDShift) & MaxWorkerID
	sequence = raw & MaxSequence
	return
}

// GetTimestamp 从ID中提取生成时间
func GetTimestamp(id ID) time.Time {
	timestamp, _, _, _ := ParseSnowflakeID(id)
	return time.UnixMilli(timestamp)
}
