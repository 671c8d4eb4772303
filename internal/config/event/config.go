package event

import "fmt"

// Options 事件总线配置选项
type Options struct {
	// EnableHistory 是否记录事件历史
	EnableHistory bool `json:"enable_history"`

	// HistoryLimit 每种事件类型保留的历史条数上限
	HistoryLimit int `json:"history_limit"`

	// AsyncWorkers 异步回调并发度（仅作提示，底层由EventBus调度）
	AsyncWorkers int `json:"async_workers"`
}

// Config 事件总线配置实现
type Config struct {
	options *Options
}

// New 创建事件总线配置
func New(userOptions *Options) *Config {
	options := &Options{
		EnableHistory: defaultEnableHistory,
		HistoryLimit:  defaultHistoryLimit,
		AsyncWorkers:  defaultAsyncWorkers,
	}

	if userOptions != nil {
		options.EnableHistory = userOptions.EnableHistory
		if userOptions.HistoryLimit > 0 {
			options.HistoryLimit = userOptions.HistoryLimit
		}
		if userOptions.AsyncWorkers > 0 {
			options.AsyncWorkers = userOptions.AsyncWorkers
		}
	}

	return &Config{options: options}
}

// Validate 校验配置合法性
func (c *Config) Validate() error {
	if c.options.HistoryLimit < 0 {
		return fmt.Errorf("history_limit 不能为负数: %d", c.options.HistoryLimit)
	}
	if c.options.AsyncWorkers < 0 {
		return fmt.Errorf("async_workers 不能为负数: %d", c.options.AsyncWorkers)
	}
	return nil
}

// GetOptions 获取配置选项
func (c *Config) GetOptions() *Options {
	return c.options
}
