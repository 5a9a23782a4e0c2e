package redis

import (
	"context"

	"go.uber.org/fx"

	"signal_bot/internal/modules/config"
	"signal_bot/internal/modules/redis/service"
	"signal_bot/internal/runner"
)

func Module() fx.Option {
	return fx.Module("redis",
		fx.Provide(
			func(lc fx.Lifecycle, cfg *config.Config) (*service.Publisher, error) {
				p, err := service.NewPublisher(cfg.Redis)
				if err != nil {
					return nil, err
				}
				lc.Append(fx.Hook{
					OnStop: func(context.Context) error { return p.Close() },
				})
				return p, nil
			},
			fx.Annotate(
				func(p *service.Publisher) runner.AlertSink { return p },
				fx.ResultTags(`group:"sinks"`),
			),
		),
	)
}
