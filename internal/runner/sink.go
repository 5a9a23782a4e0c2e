package runner

import (
	"context"
	"time"

	"signal_bot/internal/models"
	"signal_bot/pkg/logger"
)

// AlertSink — получатель событий движка (лог, БД, redis, telegram).
// Ошибка синка логируется и считается, но не трогает движок и другие синки.
type AlertSink interface {
	Name() string
	Deliver(ctx context.Context, ev models.Event) error
}

// toggler — синк, который может быть выключен конфигом (нет токена, нет адреса).
type toggler interface {
	Enabled() bool
}

type LogSink struct{}

func NewLogSink() *LogSink { return &LogSink{} }

func (LogSink) Name() string { return "log" }

func (LogSink) Deliver(_ context.Context, ev models.Event) error {
	switch ev.Kind {
	case models.EventExit:
		logger.Info("[SIGNAL] EXIT %s %s @ %.4f reason=%s entry=%.4f pnl=%.2f%% candle=%s",
			ev.Symbol, ev.Side, ev.Price, ev.Reason, ev.EntryPrice, ev.PnLPct(),
			ev.CandleTime.Format(time.RFC3339))
	default:
		logger.Info("[SIGNAL] %s %s @ %.4f sl=%.4f tp=%.4f rr=%.2f candle=%s",
			ev.Kind, ev.Symbol, ev.Price, ev.StopLoss, ev.TakeProfit, ev.RiskReward,
			ev.CandleTime.Format(time.RFC3339))
	}
	return nil
}
