// Package darkpool 组装暗池撮合核心
//
// 🎯 **专门职责**：
// - 将电路管理、证明验证、订单金库、生命周期引擎接入依赖注入容器
// - 密文存储按数据目录选择badger（持久）或内存（开发/测试）
// - 存储与事件总线的关闭挂接到应用生命周期
package darkpool

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	darkpoolcfg "github.com/veilmatch/v1/internal/config/darkpool"
	"github.com/veilmatch/v1/internal/core/darkpool/lifecycle"
	"github.com/veilmatch/v1/internal/core/darkpool/vault"
	"github.com/veilmatch/v1/internal/core/darkpool/zkproof"
	hashsvc "github.com/veilmatch/v1/internal/core/infrastructure/crypto/hash"
	"github.com/veilmatch/v1/internal/core/infrastructure/storage/badger"
	"github.com/veilmatch/v1/internal/core/infrastructure/storage/memory"
	"github.com/veilmatch/v1/pkg/interfaces/infrastructure/crypto"
	"github.com/veilmatch/v1/pkg/interfaces/infrastructure/event"
	"github.com/veilmatch/v1/pkg/interfaces/infrastructure/log"
	"github.com/veilmatch/v1/pkg/interfaces/infrastructure/storage"
)

// BootParams 节点级启动参数
type BootParams struct {
	DataDir string // 密文存储目录，空值使用内存存储
	Admin   string // 管理身份（阈值调整、协调者注册）
}

// Module 返回暗池核心模块
func Module() fx.Option {
	return fx.Module("darkpool",
		fx.Provide(
			ProvideOptions,
			ProvideHashManager,
			ProvideRegistry,
			ProvideCiphertextStore,
			ProvideCircuitManager,
			ProvideProver,
			ProvideVerifier,
			ProvideVault,
			ProvideEngine,
		),
	)
}

// ProvideOptions 从配置提取运行参数
func ProvideOptions(config *darkpoolcfg.Config) (*darkpoolcfg.Options, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config.GetOptions(), nil
}

// ProvideHashManager 提供哈希计算服务
func ProvideHashManager() crypto.HashManager {
	return hashsvc.NewHashService()
}

// ProvideRegistry 提供指标注册表
func ProvideRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

// ProvideCiphertextStore 提供密文存储
//
// DataDir为空时退回内存存储（开发与测试场景）。
func ProvideCiphertextStore(lc fx.Lifecycle, params BootParams, logger log.Logger) (storage.CiphertextStore, error) {
	var store storage.CiphertextStore
	if params.DataDir == "" {
		store = memory.New()
	} else {
		badgerStore, err := badger.New(params.DataDir, logger)
		if err != nil {
			return nil, err
		}
		store = badgerStore
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return store.Close()
		},
	})
	return store, nil
}

// ProvideCircuitManager 提供电路管理器
func ProvideCircuitManager(logger log.Logger, options *darkpoolcfg.Options, hashManager crypto.HashManager) *zkproof.CircuitManager {
	return zkproof.NewCircuitManager(logger, options, hashManager)
}

// ProvideProver 提供证明器
func ProvideProver(logger log.Logger, manager *zkproof.CircuitManager) *zkproof.Prover {
	return zkproof.NewProver(logger, manager)
}

// ProvideVerifier 提供验证引擎
func ProvideVerifier(logger log.Logger, options *darkpoolcfg.Options, manager *zkproof.CircuitManager) *zkproof.Verifier {
	return zkproof.NewVerifier(logger, options, manager)
}

// ProvideVault 提供订单金库
func ProvideVault(
	logger log.Logger,
	options *darkpoolcfg.Options,
	store storage.CiphertextStore,
	bus event.EventBus,
	registry *prometheus.Registry,
) *vault.Vault {
	return vault.New(logger, options, store, bus, vault.NewMetrics(registry))
}

// ProvideEngine 提供生命周期引擎
func ProvideEngine(
	logger log.Logger,
	options *darkpoolcfg.Options,
	orderVault *vault.Vault,
	verifier *zkproof.Verifier,
	hashManager crypto.HashManager,
	bus event.EventBus,
	registry *prometheus.Registry,
	params BootParams,
) *lifecycle.Engine {
	return lifecycle.NewEngine(logger, options, orderVault, verifier, hashManager, bus, lifecycle.NewMetrics(registry), params.Admin)
}
