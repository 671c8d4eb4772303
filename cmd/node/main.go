package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/fx"

	darkpoolcfg "github.com/veilmatch/v1/internal/config/darkpool"
	eventconfig "github.com/veilmatch/v1/internal/config/event"
	logconfig "github.com/veilmatch/v1/internal/config/log"
	"github.com/veilmatch/v1/internal/core/darkpool"
	"github.com/veilmatch/v1/internal/core/darkpool/lifecycle"
	"github.com/veilmatch/v1/internal/core/darkpool/vault"
	"github.com/veilmatch/v1/internal/core/darkpool/zkproof"
	eventmodule "github.com/veilmatch/v1/internal/core/infrastructure/event"
	logmodule "github.com/veilmatch/v1/internal/core/infrastructure/log"
	"github.com/veilmatch/v1/pkg/interfaces/infrastructure/event"
	logiface "github.com/veilmatch/v1/pkg/interfaces/infrastructure/log"
)

const version = "1.0.0"

func main() {
	// panic兜底，避免启动期错误无声退出
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "\n❌ [PANIC] 程序发生严重错误: %v\n", r)
			os.Exit(1)
		}
	}()

	var (
		dataDir      string
		admin        string
		logLevel     string
		thresholdBps uint64
		batchOrders  int
		scheme       string
		curve        string
		showVersion  bool
	)

	flag.StringVar(&dataDir, "data-dir", "", "密文存储目录（为空使用内存存储）")
	flag.StringVar(&admin, "admin", "admin", "管理身份（阈值调整、协调者注册）")
	flag.StringVar(&logLevel, "log-level", "info", "日志级别：debug | info | warn | error")
	flag.Uint64Var(&thresholdBps, "threshold-bps", 0, "默认大额判定阈值（基点，0使用内置默认）")
	flag.IntVar(&batchOrders, "batch-orders", 0, "撮合电路批次槽位数（0使用内置默认）")
	flag.StringVar(&scheme, "scheme", "", "证明方案：groth16 | plonk")
	flag.StringVar(&curve, "curve", "", "证明曲线：bls12-377 | bn254")
	flag.BoolVar(&showVersion, "version", false, "显示版本信息")
	flag.Parse()

	if showVersion {
		fmt.Printf("veilmatch-node v%s\n", version)
		return
	}

	fmt.Println("🚀 veilmatch-node 启动中...")

	app := fx.New(
		fx.NopLogger,
		// 可信设置预热在OnStart内完成，放宽启动超时
		fx.StartTimeout(5*time.Minute),
		fx.Supply(
			darkpool.BootParams{DataDir: dataDir, Admin: admin},
			logconfig.New(&logconfig.LogOptions{Level: logLevel, ToConsole: true}),
			eventconfig.New(nil),
			darkpoolcfg.New(&darkpoolcfg.Options{
				DefaultThresholdBps: thresholdBps,
				MaxBatchOrders:      batchOrders,
				ProvingScheme:       scheme,
				Curve:               curve,
			}),
		),
		logmodule.Module(),
		eventmodule.Module(),
		darkpool.Module(),
		fx.Invoke(runNode),
	)

	app.Run()
}

// 过期清扫参数
const (
	sweepInterval = time.Minute
	sweepMaxCount = 256
)

// runNode 挂接节点生命周期
//
// 启动时预热电路可信设置，撮合证明到达时验证路径不再承担编译
// 开销；同时拉起过期订单的周期清扫；停止时关停事件总线。
func runNode(
	lc fx.Lifecycle,
	logger logiface.Logger,
	bus event.EventBus,
	manager *zkproof.CircuitManager,
	orderVault *vault.Vault,
	engine *lifecycle.Engine,
) {
	sweepCtx, cancelSweep := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			if err := bus.Start(); err != nil {
				return err
			}

			logger.Infof("预热电路可信设置...")
			if err := manager.WarmUp(
				zkproof.CircuitOrderMatching,
				zkproof.CircuitPrivacyValidity,
				zkproof.CircuitBatchAggregate,
			); err != nil {
				return fmt.Errorf("电路可信设置失败: %w", err)
			}

			go runExpirySweep(sweepCtx, logger, orderVault)

			logger.Infof("✅ veilmatch-node 就绪: 订单总数=%d", engine.OrderCount())
			return nil
		},
		OnStop: func(context.Context) error {
			logger.Infof("veilmatch-node 停止中...")
			cancelSweep()
			return bus.Stop()
		},
	})
}

// runExpirySweep 周期清扫超期未撮合的金库订单
func runExpirySweep(ctx context.Context, logger logiface.Logger, orderVault *vault.Vault) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if expired := orderVault.CleanupExpired(sweepMaxCount); expired > 0 {
				logger.Infof("过期清扫: 本轮过期订单数=%d", expired)
			}
		}
	}
}
