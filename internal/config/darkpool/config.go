// Package darkpool 提供暗池撮合核心的配置定义
//
// ⚙️ **暗池核心配置 (Darkpool Core Configuration)**
//
// 本包集中管理订单生命周期、订单金库与证明验证引擎的配置项：
// - 订单存续窗口（MinLifetime / MaxLifetime）
// - 大额订单判定阈值（基点）
// - 证明新鲜度窗口与批量电路规模
package darkpool

import "fmt"

// Options 暗池核心配置选项
type Options struct {
	// === 订单金库配置 ===

	// MinLifetimeSeconds 订单最短存续时间（秒）
	// 创建时必须满足 now + MinLifetime < deadline
	MinLifetimeSeconds int64 `json:"min_lifetime_seconds"`

	// MaxLifetimeSeconds 订单最长存续时间（秒）
	// 创建时必须满足 deadline <= now + MaxLifetime
	MaxLifetimeSeconds int64 `json:"max_lifetime_seconds"`

	// === 路由配置 ===

	// DefaultThresholdBps 默认大额订单判定阈值（基点，0-10000）
	// |amount| * 10000 >= liquidity * thresholdBps 时判定为大额订单
	DefaultThresholdBps uint64 `json:"default_threshold_bps"`

	// === 证明验证配置 ===

	// FreshnessWindowSeconds 证明新鲜度窗口（秒）
	// 验证时刻与证明声明时间戳的最大允许差值
	FreshnessWindowSeconds int64 `json:"freshness_window_seconds"`

	// MaxBatchOrders 电路批量订单槽位数N
	// 电路编译时固定，不可超过 HardMaxBatchOrders
	MaxBatchOrders int `json:"max_batch_orders"`

	// ProvingScheme 证明方案（groth16 / plonk）
	ProvingScheme string `json:"proving_scheme"`

	// Curve 椭圆曲线（bls12-377 / bn254）
	Curve string `json:"curve"`
}

// Config 暗池核心配置实现
type Config struct {
	options *Options
}

// New 创建暗池核心配置
//
// userOptions 为 nil 时使用默认配置
func New(userOptions *Options) *Config {
	options := &Options{
		MinLifetimeSeconds:     defaultMinLifetimeSeconds,
		MaxLifetimeSeconds:     defaultMaxLifetimeSeconds,
		DefaultThresholdBps:    defaultThresholdBps,
		FreshnessWindowSeconds: defaultFreshnessWindowSeconds,
		MaxBatchOrders:         defaultMaxBatchOrders,
		ProvingScheme:          defaultProvingScheme,
		Curve:                  defaultCurve,
	}

	if userOptions != nil {
		if userOptions.MinLifetimeSeconds > 0 {
			options.MinLifetimeSeconds = userOptions.MinLifetimeSeconds
		}
		if userOptions.MaxLifetimeSeconds > 0 {
			options.MaxLifetimeSeconds = userOptions.MaxLifetimeSeconds
		}
		if userOptions.DefaultThresholdBps > 0 {
			options.DefaultThresholdBps = userOptions.DefaultThresholdBps
		}
		if userOptions.FreshnessWindowSeconds > 0 {
			options.FreshnessWindowSeconds = userOptions.FreshnessWindowSeconds
		}
		if userOptions.MaxBatchOrders > 0 {
			options.MaxBatchOrders = userOptions.MaxBatchOrders
		}
		if userOptions.ProvingScheme != "" {
			options.ProvingScheme = userOptions.ProvingScheme
		}
		if userOptions.Curve != "" {
			options.Curve = userOptions.Curve
		}
	}

	return &Config{options: options}
}

// Validate 校验配置合法性
func (c *Config) Validate() error {
	o := c.options

	if o.MinLifetimeSeconds <= 0 {
		return fmt.Errorf("min_lifetime_seconds 必须为正数: %d", o.MinLifetimeSeconds)
	}
	if o.MaxLifetimeSeconds <= o.MinLifetimeSeconds {
		return fmt.Errorf("max_lifetime_seconds 必须大于 min_lifetime_seconds: %d <= %d",
			o.MaxLifetimeSeconds, o.MinLifetimeSeconds)
	}
	if o.DefaultThresholdBps > MaxThresholdBps {
		return fmt.Errorf("default_threshold_bps 超过上限: %d > %d", o.DefaultThresholdBps, MaxThresholdBps)
	}
	if o.FreshnessWindowSeconds <= 0 {
		return fmt.Errorf("freshness_window_seconds 必须为正数: %d", o.FreshnessWindowSeconds)
	}
	if o.MaxBatchOrders <= 1 {
		return fmt.Errorf("max_batch_orders 至少为2（一买一卖）: %d", o.MaxBatchOrders)
	}
	if o.MaxBatchOrders > HardMaxBatchOrders {
		return fmt.Errorf("max_batch_orders 超过硬上限: %d > %d", o.MaxBatchOrders, HardMaxBatchOrders)
	}
	if o.ProvingScheme != "groth16" && o.ProvingScheme != "plonk" {
		return fmt.Errorf("不支持的证明方案: %s", o.ProvingScheme)
	}
	if o.Curve != "bls12-377" && o.Curve != "bn254" {
		return fmt.Errorf("不支持的椭圆曲线: %s", o.Curve)
	}
	return nil
}

// GetOptions 获取配置选项
func (c *Config) GetOptions() *Options {
	return c.options
}
