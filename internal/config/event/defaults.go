package event

// 事件总线配置默认值
const (
	// defaultEnableHistory 默认记录事件历史
	// 历史事件用于测试断言和问题排查
	defaultEnableHistory = true

	// defaultHistoryLimit 每种事件类型默认保留1000条历史
	defaultHistoryLimit = 1000

	// defaultAsyncWorkers 默认异步并发度
	defaultAsyncWorkers = 4
)
