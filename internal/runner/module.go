package runner

import (
	"context"

	"go.uber.org/fx"

	"signal_bot/internal/models"
)

type dispatcherParams struct {
	fx.In

	Sinks []AlertSink `group:"sinks"`
}

func Module() fx.Option {
	return fx.Module("runner",
		fx.Provide(
			fx.Annotate(
				func() AlertSink { return NewLogSink() },
				fx.ResultTags(`group:"sinks"`),
			),
			func(p dispatcherParams) *Dispatcher { return NewDispatcher(p.Sinks, 0) },
		),
		fx.Invoke(func(lc fx.Lifecycle, d *Dispatcher, events chan models.Event) {
			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan struct{})
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					go func() {
						defer close(done)
						d.Run(ctx, events)
					}()
					return nil
				},
				// канал событий закрывает хаб, когда дочитает свои очереди;
				// хук хаба останавливается раньше, поэтому здесь только ждём
				OnStop: func(stopCtx context.Context) error {
					select {
					case <-done:
					case <-stopCtx.Done():
						cancel()
					}
					return nil
				},
			})
		}),
	)
}
