package session

import (
	"sync"

	"go.uber.org/zap"
)

// Level 通知级别
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notice 面向用户的短暂通知
type Notice struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// Notifier 通知协作者（界面上的 toast）
type Notifier interface {
	Notify(n Notice)
}

// NotifierFunc 函数适配器
type NotifierFunc func(n Notice)

// Notify 实现 Notifier
func (f NotifierFunc) Notify(n Notice) {
	f(n)
}

// logNotifier 默认实现：写日志
type logNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier 把通知写入日志
func NewLogNotifier(logger *zap.Logger) Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &logNotifier{logger: logger}
}

func (n *logNotifier) Notify(notice Notice) {
	switch notice.Level {
	case LevelError:
		n.logger.Error(notice.Message)
	case LevelWarning:
		n.logger.Warn(notice.Message)
	default:
		n.logger.Info(notice.Message)
	}
}

// maxNotices 会话保留的最近通知条数
const maxNotices = 20

// noticeLog 保留最近的通知，供 HTTP 接口读取
type noticeLog struct {
	mu      sync.Mutex
	notices []Notice
}

func (l *noticeLog) add(n Notice) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.notices = append(l.notices, n)
	if over := len(l.notices) - maxNotices; over > 0 {
		l.notices = append(l.notices[:0], l.notices[over:]...)
	}
}

// drain 取出并清空
func (l *noticeLog) drain() []Notice {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := l.notices
	l.notices = nil
	return out
}
