package vault

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics 金库运行指标
type Metrics struct {
	StoredTotal    prometheus.Counter
	RetrievedTotal prometheus.Counter
	ExpiredTotal   prometheus.Counter
	ActiveOrders   prometheus.Gauge
}

// NewMetrics 创建并注册金库指标
//
// reg 为 nil 时只创建不注册（测试用）
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		StoredTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "veilmatch",
			Subsystem: "vault",
			Name:      "stored_total",
			Help:      "累计入库的加密订单数",
		}),
		RetrievedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "veilmatch",
			Subsystem: "vault",
			Name:      "retrieved_total",
			Help:      "累计被操作者取回的订单数",
		}),
		ExpiredTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "veilmatch",
			Subsystem: "vault",
			Name:      "expired_total",
			Help:      "累计过期的订单数",
		}),
		ActiveOrders: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "veilmatch",
			Subsystem: "vault",
			Name:      "active_orders",
			Help:      "当前活跃（未取回未过期）订单数",
		}),
	}
}
