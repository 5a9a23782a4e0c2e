package bootstrap

import (
	"context"
	"sync"
	"time"

	"go.uber.org/fx"

	bootstrap "signal_bot/internal/modules/bootstrap/service"
	"signal_bot/internal/modules/config"
	feed "signal_bot/internal/modules/feed/service"
	health "signal_bot/internal/modules/health/service"
	pg "signal_bot/internal/modules/postgres/service"
	strategy "signal_bot/internal/modules/strategy/service"
)

const cleanupEvery = 24 * time.Hour

func newWarmuper(cfg *config.Config, fc *feed.Client, store *pg.Store, hub *strategy.Hub, state *health.State) *bootstrap.Warmuper {
	return bootstrap.NewWarmuper(
		bootstrap.Config{
			Symbols:      cfg.Symbols,
			HistoryDays:  cfg.Feed.HistoryDays,
			FetchHistory: cfg.Feed.AccessToken != "",
		},
		fc, store, hub.Engine(), hub, state,
	)
}

func Module() fx.Option {
	return fx.Module("bootstrap",
		fx.Provide(
			newWarmuper, // -> *bootstrap.Warmuper
		),
		fx.Invoke(func(lc fx.Lifecycle, cfg *config.Config, wu *bootstrap.Warmuper, store *pg.Store) {
			ctx, cancel := context.WithCancel(context.Background())
			var wg sync.WaitGroup
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					wg.Add(2)
					go func() {
						defer wg.Done()
						wu.Warmup(ctx, time.Now())
					}()
					go func() {
						defer wg.Done()
						retention := time.Duration(cfg.Feed.RetentionDays) * 24 * time.Hour
						bootstrap.RunCleanup(ctx, store, retention, cleanupEvery, time.Now)
					}()
					return nil
				},
				OnStop: func(context.Context) error {
					cancel()
					wg.Wait()
					return nil
				},
			})
		}),
	)
}
