package validator

import (
	"sync"
)

// ============================================================================
// 对象池优化 - 减少内存分配和 GC 压力
// ============================================================================

// maxPooledErrors 超过该容量的上下文不再归还对象池，防止大切片常驻内存
const maxPooledErrors = 256

// validationContextPool ValidationContext 对象池
// 表单在每次按键后都可能重新验证，复用上下文可以减少频繁的小对象分配
var validationContextPool = sync.Pool{
	New: func() interface{} {
		return NewValidationContext()
	},
}

// acquireValidationContext 从对象池获取 ValidationContext
// 使用后必须调用 releaseValidationContext 归还
func acquireValidationContext() *ValidationContext {
	ctx := validationContextPool.Get().(*ValidationContext)
	ctx.reset()
	return ctx
}

// releaseValidationContext 将 ValidationContext 归还到对象池
func releaseValidationContext(ctx *ValidationContext) {
	if ctx == nil {
		return
	}

	// 防止内存泄漏：容量过大时不归还
	if cap(ctx.Errors) > maxPooledErrors {
		return
	}

	ctx.reset()
	validationContextPool.Put(ctx)
}
