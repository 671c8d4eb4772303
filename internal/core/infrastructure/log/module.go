// Package log 提供日志管理功能
package log

import (
	logconfig "github.com/veilmatch/v1/internal/config/log"
	logInterface "github.com/veilmatch/v1/pkg/interfaces/infrastructure/log"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// ModuleOutput 定义日志模块的输出结构
type ModuleOutput struct {
	fx.Out

	Logger    logInterface.Logger // 日志记录器接口
	ZapLogger *zap.Logger         // zap.Logger 具体类型（供需要 zap 特性的模块使用）
}

// Module 返回日志模块
func Module() fx.Option {
	return fx.Module("log",
		fx.Provide(ProvideServices),
	)
}

// ProvideServices 提供日志服务
// 根据配置初始化日志记录器并返回
func ProvideServices(config *logconfig.Config) (ModuleOutput, error) {
	logger, err := New(config)
	if err != nil {
		return ModuleOutput{}, err
	}

	// 同步设置为全局记录器，便于未接入DI的代码获取
	SetLogger(logger)

	return ModuleOutput{
		Logger:    logger,
		ZapLogger: logger.GetZapLogger(),
	}, nil
}
