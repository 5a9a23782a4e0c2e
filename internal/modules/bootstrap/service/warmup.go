package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"signal_bot/internal/models"
	strategy "signal_bot/internal/modules/strategy/service"
	"signal_bot/pkg/logger"
)

// HistorySource — REST-история инструмента.
type HistorySource interface {
	FetchHistory(ctx context.Context, key string, days int, now time.Time) ([]models.Candle, error)
}

// CandleStore — хранилище свечей.
type CandleStore interface {
	SaveCandles(ctx context.Context, cs []models.Candle) error
	CandlesSince(ctx context.Context, symbol string, since time.Time) ([]models.Candle, error)
	Cleanup(ctx context.Context, before time.Time) (int64, error)
}

// Warmer прогоняет историю через индикаторы.
type Warmer interface {
	Warmup(c models.Candle) error
}

// Gate открывает хаб для живых свечей.
type Gate interface {
	MarkWarm()
}

type Readiness interface {
	SetReady(v bool)
}

type Config struct {
	Symbols     []string
	HistoryDays int
	// REST-история только при заданном токене, иначе прогрев из БД
	FetchHistory bool
	Parallel     int
}

type Warmuper struct {
	cfg     Config
	history HistorySource
	store   CandleStore
	engine  Warmer
	gate    Gate
	ready   Readiness

	// ограничитель параллелизма, чтобы не словить rate limit
	sem chan struct{}
}

type Stats struct {
	Fetched  int
	Replayed int
	Rejected int
	Failed   int
}

func NewWarmuper(cfg Config, history HistorySource, store CandleStore, engine Warmer, gate Gate, ready Readiness) *Warmuper {
	if cfg.Parallel <= 0 {
		cfg.Parallel = 4
	}
	return &Warmuper{
		cfg:     cfg,
		history: history,
		store:   store,
		engine:  engine,
		gate:    gate,
		ready:   ready,
		sem:     make(chan struct{}, cfg.Parallel),
	}
}

// Lookback — с какого момента поднимаем свечи из БД: history_days торговых дней
// с запасом на выходные.
func (w *Warmuper) Lookback(now time.Time) time.Time {
	days := w.cfg.HistoryDays
	if days <= 0 {
		days = 1
	}
	return now.AddDate(0, 0, -(days*7/5 + 3))
}

// Warmup прогревает все символы и открывает хаб. Ошибки по отдельным символам
// не останавливают прогрев: символ просто стартует с тем, что есть в БД.
func (w *Warmuper) Warmup(ctx context.Context, now time.Time) Stats {
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		stats Stats
	)

	for _, sym := range w.cfg.Symbols {
		wg.Add(1)
		go func() {
			defer wg.Done()
			select {
			case w.sem <- struct{}{}:
			case <-ctx.Done():
				return
			}
			defer func() { <-w.sem }()

			s := w.warmSymbol(ctx, sym, now)

			mu.Lock()
			stats.Fetched += s.Fetched
			stats.Replayed += s.Replayed
			stats.Rejected += s.Rejected
			stats.Failed += s.Failed
			mu.Unlock()
		}()
	}
	wg.Wait()

	w.gate.MarkWarm()
	w.ready.SetReady(true)
	logger.Info("[BOOT] warmup done: symbols=%d fetched=%d replayed=%d rejected=%d failed=%d",
		len(w.cfg.Symbols), stats.Fetched, stats.Replayed, stats.Rejected, stats.Failed)
	return stats
}

func (w *Warmuper) warmSymbol(ctx context.Context, sym string, now time.Time) Stats {
	var s Stats

	if w.cfg.FetchHistory && w.history != nil {
		cs, err := w.history.FetchHistory(ctx, sym, w.cfg.HistoryDays, now)
		if err != nil {
			logger.Warn("[BOOT] %s history fetch failed: %v", sym, err)
			s.Failed++
		} else {
			cs = closedOnly(cs, now)
			if err := w.store.SaveCandles(ctx, cs); err != nil {
				logger.Warn("[BOOT] %s save history failed: %v", sym, err)
				s.Failed++
			}
			s.Fetched = len(cs)
		}
	}

	cs, err := w.store.CandlesSince(ctx, sym, w.Lookback(now))
	if err != nil {
		logger.Error("[BOOT] %s load candles failed: %v", sym, err)
		s.Failed++
		return s
	}

	for _, c := range cs {
		if err := w.engine.Warmup(c); err != nil {
			s.Rejected++
			if !errors.Is(err, strategy.ErrOutOfOrderCandle) {
				logger.Warn("[BOOT] %s warmup candle %s: %v", sym, c.Timestamp.Format(time.RFC3339), err)
			}
			continue
		}
		s.Replayed++
	}
	logger.Debug("[BOOT] %s warmed: %d candles", sym, s.Replayed)
	return s
}

// closedOnly отбрасывает свечу, которая на момент запроса ещё формируется.
func closedOnly(cs []models.Candle, now time.Time) []models.Candle {
	out := cs[:0]
	for _, c := range cs {
		if c.End().After(now) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// RunCleanup раз в every удаляет свечи старше retention. Первый проход сразу.
func RunCleanup(ctx context.Context, store CandleStore, retention, every time.Duration, now func() time.Time) {
	if retention <= 0 {
		return
	}
	clean := func() {
		n, err := store.Cleanup(ctx, now().Add(-retention))
		if err != nil {
			logger.Error("[BOOT] cleanup failed: %v", err)
			return
		}
		if n > 0 {
			logger.Info("[BOOT] cleanup: removed %d candles", n)
		}
	}

	clean()
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			clean()
		}
	}
}
