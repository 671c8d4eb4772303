package lifecycle

import (
	"math/big"

	"github.com/veilmatch/v1/internal/core/darkpool/vault"
	"github.com/veilmatch/v1/pkg/interfaces/infrastructure/event"
)

// 生命周期事件类型
const (
	EventRouted   event.EventType = "order.routed"
	EventExecuted event.EventType = "order.executed"
	EventFallback event.EventType = "order.fallback"
)

// RoutedEvent 入库路由事件负载
type RoutedEvent struct {
	OrderID  vault.OrderID
	Trader   string
	Pool     string
	Side     uint8
	Amount   uint64
	Deadline int64
}

// ExecutedEvent 证明执行事件负载
type ExecutedEvent struct {
	OrderID        vault.OrderID
	Pool           string
	MatchHash      *big.Int
	ExecutionPrice *big.Int
	TotalVolume    *big.Int
	Operators      []string
}

// FallbackEvent 回退执行事件负载
type FallbackEvent struct {
	OrderID vault.OrderID
	Pool    string
	Caller  string
	Reason  string
}
