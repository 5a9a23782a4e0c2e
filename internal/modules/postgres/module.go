package postgres

import (
	"context"
	"fmt"

	"go.uber.org/fx"

	"signal_bot/internal/modules/config"
	"signal_bot/internal/modules/postgres/service"
	strategy "signal_bot/internal/modules/strategy/service"
	"signal_bot/internal/runner"
	"signal_bot/pkg/db"
)

func newTxManager(lc fx.Lifecycle, cfg *config.Config) (*db.PgTxManager, error) {
	ctx := context.Background()
	poolMaster, err := db.NewPool(ctx, db.PoolConfig{
		DSN: cfg.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create poolMaster: %w", err)
	}

	if err = poolMaster.Ping(ctx); err != nil {
		poolMaster.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	tm := db.NewPgTxManager(poolMaster)
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			tm.Close()
			return nil
		},
	})
	return tm, nil
}

func Module() fx.Option {
	return fx.Module("postgres",
		fx.Provide(
			newTxManager,
			func(tm *db.PgTxManager, cfg *config.Config, p strategy.Params) *service.Store {
				return service.NewStore(tm, p.Location, cfg.Feed.Interval)
			},
			func(s *service.Store) strategy.CandleSink { return s },
			fx.Annotate(
				func(s *service.Store) runner.AlertSink { return s },
				fx.ResultTags(`group:"sinks"`),
			),
		),
	)
}
