package telegram

import (
	"context"

	"go.uber.org/fx"

	"signal_bot/internal/modules/config"
	pg "signal_bot/internal/modules/postgres/service"
	strategy "signal_bot/internal/modules/strategy/service"
	"signal_bot/internal/modules/telegram_bot/service"
	"signal_bot/internal/runner"
)

func Module() fx.Option {
	return fx.Module("telegram",
		// сервис: алерты + команды
		fx.Provide(
			func(cfg *config.Config, hub *strategy.Hub, store *pg.Store) (*service.Telegram, error) {
				return service.NewTelegram(cfg, hub.Engine(), hub, store)
			},
		),

		// как канал доставки для диспетчера
		fx.Provide(
			fx.Annotate(
				func(t *service.Telegram) runner.AlertSink { return t },
				fx.ResultTags(`group:"sinks"`),
			),
		),

		fx.Invoke(
			func(lc fx.Lifecycle, t *service.Telegram) {
				lc.Append(fx.Hook{
					OnStart: func(context.Context) error {
						t.Start()
						return nil
					},
					OnStop: func(context.Context) error {
						t.Stop()
						return nil
					},
				})
			},
		),
	)
}
