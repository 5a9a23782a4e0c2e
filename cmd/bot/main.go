package main

import (
	"log"
	_ "time/tzdata"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"signal_bot/internal/modules/bootstrap"
	"signal_bot/internal/modules/config"
	"signal_bot/internal/modules/feed"
	"signal_bot/internal/modules/health"
	"signal_bot/internal/modules/postgres"
	"signal_bot/internal/modules/redis"
	"signal_bot/internal/modules/strategy"
	telegram "signal_bot/internal/modules/telegram_bot"
	"signal_bot/internal/runner"
	"signal_bot/pkg/logger"
	"signal_bot/pkg/tracing"
)

const serviceName = "signal_bot"

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		// логгер ещё не поднят
		log.Fatalf("config: %v", err)
	}

	if err := logger.Init(cfg.LogLevel); err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	logger.SetServiceName(serviceName)
	tracing.SetServiceName(serviceName)

	_, closeTracer, err := tracing.InitTracer(tracing.Config{
		Enabled: cfg.Tracing.Enabled,
		Host:    cfg.Tracing.Host,
		Port:    cfg.Tracing.Port,
	})
	if err != nil {
		logger.Fatal("[MAIN] tracer: %v", err)
	}
	defer closeTracer()

	logger.Info("[MAIN] starting: symbols=%d interval=%s", len(cfg.Symbols), cfg.Feed.Interval)

	app := fx.New(
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger.InfoLogger.WithOptions(zap.AddCallerSkip(-1))}
		}),
		config.Module(cfg),
		health.Module(),
		postgres.Module(),
		// хуки останавливаются в обратном порядке: feed, затем хаб, затем диспетчер
		runner.Module(),
		strategy.Module(),
		feed.Module(),
		redis.Module(),
		telegram.Module(),
		bootstrap.Module(),
	)
	app.Run()
}
