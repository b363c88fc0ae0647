package session

import "context"

// fetchSlot 一个依赖字段的请求槽位
// 每次发起新请求都会取消上一次请求并递增代数，响应返回时代数不一致即为过期响应
type fetchSlot struct {
	gen    uint64
	cancel context.CancelFunc
}

// begin 取消旧请求并开始新一代请求
func (f *fetchSlot) begin(parent context.Context) (uint64, context.Context) {
	if f.cancel != nil {
		f.cancel()
	}
	f.gen++
	ctx, cancel := context.WithCancel(parent)
	f.cancel = cancel
	return f.gen, ctx
}

// current 该代请求是否仍是最新的
func (f *fetchSlot) current(gen uint64) bool {
	return f.gen == gen
}

// finish 最新一代请求结束，释放 context
func (f *fetchSlot) finish(gen uint64) {
	if f.gen == gen && f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
}

// stop 取消进行中的请求
func (f *fetchSlot) stop() {
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
	f.gen++
}
