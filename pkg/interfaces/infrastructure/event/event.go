// Package event 提供VeilMatch系统的事件总线接口定义
//
// 📡 **事件总线接口 (Event Bus Interface)**
//
// 本文件定义了VeilMatch暗池撮合系统的事件总线接口，专注于：
// - 统一的事件发布/订阅接口
// - 同步与异步订阅支持
// - 事件历史记录查询
//
// 🎯 **设计原则**
// - 解耦：订单生命周期、金库、验证引擎通过事件松耦合
// - 提交后发布：事件只在账本状态提交之后发布，订阅方看不到未提交状态
package event

// EventType 事件类型
type EventType string

// Event 定义事件接口
type Event interface {
	// Type 返回事件类型
	Type() EventType

	// Data 返回事件负载
	Data() interface{}
}

// EventBus 定义事件总线接口
type EventBus interface {
	// Subscribe 订阅事件（同步回调）
	Subscribe(eventType EventType, handler interface{}) error

	// SubscribeAsync 异步订阅事件
	// transactional 为true时，同一订阅者的回调串行执行
	SubscribeAsync(eventType EventType, handler interface{}, transactional bool) error

	// SubscribeOnce 一次性订阅事件
	SubscribeOnce(eventType EventType, handler interface{}) error

	// Unsubscribe 取消订阅
	Unsubscribe(eventType EventType, handler interface{}) error

	// Publish 发布事件
	Publish(eventType EventType, args ...interface{})

	// GetEventHistory 获取指定类型的历史事件
	GetEventHistory(eventType EventType) []interface{}

	// Start 启动事件总线
	Start() error

	// Stop 停止事件总线，等待在途异步回调完成
	Stop() error
}
