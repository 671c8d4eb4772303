// Package event 提供事件总线基础设施
package event

import (
	eventconfig "github.com/veilmatch/v1/internal/config/event"
	"github.com/veilmatch/v1/pkg/interfaces/infrastructure/event"
	"go.uber.org/fx"
)

// Module 返回事件总线模块
func Module() fx.Option {
	return fx.Module("event",
		fx.Provide(ProvideEventBus),
	)
}

// ProvideEventBus 提供事件总线实例
func ProvideEventBus(config *eventconfig.Config) (event.EventBus, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return New(config), nil
}
