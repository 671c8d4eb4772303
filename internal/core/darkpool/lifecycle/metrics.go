package lifecycle

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics 生命周期指标集合
type Metrics struct {
	RoutedTotal    prometheus.Counter // 入库路由累计
	ExecutedTotal  prometheus.Counter // 证明执行累计
	FallbackTotal  prometheus.Counter // 回退执行累计
	RejectedProofs prometheus.Counter // 证明验证失败累计
}

// NewMetrics 创建并注册生命周期指标
//
// reg为nil时指标不注册，仅在进程内累计（测试场景）。
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RoutedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "veilmatch",
			Subsystem: "lifecycle",
			Name:      "routed_total",
			Help:      "累计入库路由的订单数",
		}),
		ExecutedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "veilmatch",
			Subsystem: "lifecycle",
			Name:      "executed_total",
			Help:      "累计经证明执行的订单数",
		}),
		FallbackTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "veilmatch",
			Subsystem: "lifecycle",
			Name:      "fallback_total",
			Help:      "累计回退执行的订单数",
		}),
		RejectedProofs: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "veilmatch",
			Subsystem: "lifecycle",
			Name:      "rejected_proofs_total",
			Help:      "累计被拒绝的撮合证明数",
		}),
	}
}
