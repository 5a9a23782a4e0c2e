package feed

import (
	"context"

	"go.uber.org/fx"

	"signal_bot/internal/models"
	"signal_bot/internal/modules/config"
	"signal_bot/internal/modules/feed/service"
	health "signal_bot/internal/modules/health/service"
	strategy "signal_bot/internal/modules/strategy/service"
)

func newCandlesChan() chan models.Candle {
	// общий буфер закрытых свечей для хаба
	return make(chan models.Candle, 4096)
}

// Module поднимает стример тиков и сборку свечей.
func Module() fx.Option {
	return fx.Module("feed",
		fx.Provide(
			newCandlesChan,
			func(cfg *config.Config, params strategy.Params, state *health.State) *service.Client {
				return service.NewClient(cfg, params, state)
			},
		),
		fx.Invoke(func(lc fx.Lifecycle, c *service.Client, out chan models.Candle) {
			ctx, cancel := context.WithCancel(context.Background())
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					go c.Start(ctx, out)
					return nil
				},
				OnStop: func(context.Context) error {
					cancel()
					return nil
				},
			})
		}),
	)
}
