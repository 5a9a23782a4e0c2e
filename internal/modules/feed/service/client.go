package service

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"signal_bot/internal/metrics"
	"signal_bot/internal/models"
	"signal_bot/internal/modules/config"
	strategy "signal_bot/internal/modules/strategy/service"
	"signal_bot/pkg/logger"
)

// ConnState — куда фид отчитывается о соединении и последнем тике.
type ConnState interface {
	SetWSConnected(v bool)
	TouchTick(t time.Time)
}

type Client struct {
	cfg     config.FeedConfig
	symbols []string
	state   ConnState

	http     *http.Client
	wsDialer *websocket.Dialer
	agg      *Aggregator
}

func NewClient(cfg *config.Config, params strategy.Params, state ConnState) *Client {
	return &Client{
		cfg:      cfg.Feed,
		symbols:  cfg.Symbols,
		state:    state,
		http:     &http.Client{Timeout: 15 * time.Second},
		wsDialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		agg:      NewAggregator(cfg.Feed.Interval, params.Location),
	}
}

func (c *Client) Aggregator() *Aggregator { return c.agg }

// Start стримит тики по всем символам, собирает из них свечи и отдаёт закрытые в out.
// Блокируется до отмены ctx.
func (c *Client) Start(ctx context.Context, out chan<- models.Candle) {
	if len(c.symbols) == 0 {
		logger.Warn("[FEED] пустой список инструментов — стример не запущен")
		return
	}
	logger.Info("[FEED] старт: инструментов=%d интервал=%s", len(c.symbols), c.cfg.Interval)

	ticks := c.StreamTicks(ctx, c.symbols)

	flush := time.NewTicker(time.Second)
	defer flush.Stop()

	var lateSeen int64

	for {
		select {
		case <-ctx.Done():
			logger.Info("[FEED] остановка")
			return

		case t, ok := <-ticks:
			if !ok {
				logger.Warn("[FEED] поток тиков закрыт")
				return
			}
			c.state.TouchTick(t.Time)
			metrics.TicksTotal.WithLabelValues(t.Symbol).Inc()
			if !c.emit(ctx, out, c.agg.Add(t)) {
				return
			}
			if n := c.agg.Late(); n > lateSeen {
				metrics.TicksLate.Add(float64(n - lateSeen))
				lateSeen = n
			}

		case now := <-flush.C:
			if !c.emit(ctx, out, c.agg.Flush(now, c.cfg.FlushGrace)) {
				return
			}
		}
	}
}

func (c *Client) emit(ctx context.Context, out chan<- models.Candle, candles []models.Candle) bool {
	for _, cd := range candles {
		logger.Debug("[FEED] candle %s %s close=%.4f vol=%.0f",
			cd.Symbol, cd.Timestamp.Format(time.RFC3339), cd.Close, cd.Volume)
		select {
		case out <- cd:
		case <-ctx.Done():
			return false
		}
	}
	return true
}
