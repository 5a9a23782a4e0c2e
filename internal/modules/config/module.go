package config

import (
	"go.uber.org/fx"

	strategy "signal_bot/internal/modules/strategy/service"
)

// Module отдаёт уже загруженный конфиг и производные от него параметры стратегии.
func Module(cfg *Config) fx.Option {
	return fx.Module("config",
		fx.Supply(cfg),
		fx.Provide(
			func(cfg *Config) (strategy.Params, error) { return cfg.StrategyParams() },
		),
	)
}
