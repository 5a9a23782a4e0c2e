package strategy

import (
	"context"

	"go.uber.org/fx"

	"signal_bot/internal/models"
	"signal_bot/internal/modules/config"
	health "signal_bot/internal/modules/health/service"
	"signal_bot/internal/modules/strategy/service"
)

func newEventsChan() chan models.Event {
	return make(chan models.Event, 1024)
}
func asSendOnlyEvents(ch chan models.Event) chan<- models.Event { return ch }

type hubParams struct {
	fx.In

	Cfg    *config.Config
	Engine *service.Engine
	Out    chan<- models.Event
	State  *health.State
	Sink   service.CandleSink `optional:"true"`
}

func newHub(p hubParams) *service.Hub {
	return service.NewHub(
		service.HubConfig{Workers: p.Cfg.Strategy.Workers},
		p.Engine, p.Out, p.Sink, p.State,
	)
}

func Module() fx.Option {
	return fx.Module("strategy",
		fx.Provide(
			newEventsChan,    // chan models.Event
			asSendOnlyEvents, // chan<- models.Event
			service.NewEngine,
			newHub,
		),

		fx.Invoke(func(lc fx.Lifecycle, hub *service.Hub, candles chan models.Candle) {
			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan struct{})
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					go func() {
						defer close(done)
						hub.Run(ctx, candles)
					}()
					return nil
				},
				OnStop: func(stopCtx context.Context) error {
					cancel()
					select {
					case <-done:
					case <-stopCtx.Done():
					}
					return nil
				},
			})
		}),
	)
}
