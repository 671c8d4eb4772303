// 基于asaskevich/EventBus的事件总线实现
// 为暗池订单生命周期提供提交后发布的领域事件通道

package event

import (
	"fmt"
	"sync"
	"sync/atomic"

	evbus "github.com/asaskevich/EventBus"
	eventconfig "github.com/veilmatch/v1/internal/config/event"
	"github.com/veilmatch/v1/pkg/interfaces/infrastructure/event"
)

// EventBus 是基于asaskevich/EventBus的实现
//
// 🎯 **VeilMatch增强特性**：
// - 保持与原有asaskevich/EventBus的完全兼容
// - 增加生命周期管理能力（Start/Stop）
// - 可选的事件历史记录（测试断言与问题排查）
// - 内置发布计数统计
type EventBus struct {
	// ================== 基础组件 ==================
	bus    evbus.Bus           // 底层事件总线
	config *eventconfig.Config // 配置

	// ================== 历史记录 ==================
	historyMu    sync.RWMutex                      // 历史记录锁
	eventHistory map[event.EventType][]interface{} // 历史事件存储

	// ================== 运行状态 ==================
	running atomic.Bool

	// ================== 指标统计 ==================
	publishedTotal atomic.Uint64
}

// New 创建事件总线实例
// 所有事件总线实例必须通过此函数创建，确保配置被正确应用
func New(config *eventconfig.Config) event.EventBus {
	if config == nil {
		config = eventconfig.New(nil)
	}

	return &EventBus{
		bus:          evbus.New(),
		config:       config,
		eventHistory: make(map[event.EventType][]interface{}),
	}
}

// Start 启动事件总线
func (eb *EventBus) Start() error {
	if !eb.running.CompareAndSwap(false, true) {
		return fmt.Errorf("事件总线已经启动")
	}
	return nil
}

// Stop 停止事件总线，等待在途异步回调完成
func (eb *EventBus) Stop() error {
	if !eb.running.CompareAndSwap(true, false) {
		return fmt.Errorf("事件总线尚未启动")
	}
	eb.bus.WaitAsync()
	return nil
}

// Subscribe 订阅事件（同步回调）
func (eb *EventBus) Subscribe(eventType event.EventType, handler interface{}) error {
	return eb.bus.Subscribe(string(eventType), handler)
}

// SubscribeAsync 异步订阅事件
func (eb *EventBus) SubscribeAsync(eventType event.EventType, handler interface{}, transactional bool) error {
	return eb.bus.SubscribeAsync(string(eventType), handler, transactional)
}

// SubscribeOnce 一次性订阅事件
func (eb *EventBus) SubscribeOnce(eventType event.EventType, handler interface{}) error {
	return eb.bus.SubscribeOnce(string(eventType), handler)
}

// Unsubscribe 取消订阅
func (eb *EventBus) Unsubscribe(eventType event.EventType, handler interface{}) error {
	return eb.bus.Unsubscribe(string(eventType), handler)
}

// Publish 发布事件
//
// ⚠️ 调用方约定：只在账本状态提交之后发布，订阅方不得观察到未提交状态
func (eb *EventBus) Publish(eventType event.EventType, args ...interface{}) {
	eb.publishedTotal.Add(1)

	if eb.config.GetOptions().EnableHistory {
		eb.recordHistory(eventType, args)
	}

	eb.bus.Publish(string(eventType), args...)
}

// GetEventHistory 获取指定类型的历史事件
func (eb *EventBus) GetEventHistory(eventType event.EventType) []interface{} {
	eb.historyMu.RLock()
	defer eb.historyMu.RUnlock()

	history := eb.eventHistory[eventType]
	result := make([]interface{}, len(history))
	copy(result, history)
	return result
}

// PublishedTotal 返回累计发布事件数
func (eb *EventBus) PublishedTotal() uint64 {
	return eb.publishedTotal.Load()
}

// recordHistory 记录历史事件，超出上限时丢弃最旧条目
func (eb *EventBus) recordHistory(eventType event.EventType, args []interface{}) {
	eb.historyMu.Lock()
	defer eb.historyMu.Unlock()

	limit := eb.config.GetOptions().HistoryLimit
	history := eb.eventHistory[eventType]

	var entry interface{}
	if len(args) == 1 {
		entry = args[0]
	} else {
		entry = args
	}

	history = append(history, entry)
	if limit > 0 && len(history) > limit {
		history = history[len(history)-limit:]
	}
	eb.eventHistory[eventType] = history
}

// 确保EventBus实现了event.EventBus接口
var _ event.EventBus = (*EventBus)(nil)
