package service

import (
	"context"
	"fmt"
	"time"

	"signal_bot/internal/models"
	"signal_bot/internal/modules/postgres/service/candles"
	"signal_bot/internal/modules/postgres/service/events"
	"signal_bot/pkg/db"
	"signal_bot/pkg/logger"
)

// Store — свечи и события в postgres.
// Сохраняет закрытые свечи из хаба, отдаёт их на прогрев и пишет события как один из синков.
type Store struct {
	db       db.TxManager
	candles  *candles.Candles
	events   *events.Events
	loc      *time.Location
	interval time.Duration
}

func NewStore(tm db.TxManager, loc *time.Location, interval time.Duration) *Store {
	return &Store{
		db:       tm,
		candles:  candles.New(),
		events:   events.New(),
		loc:      loc,
		interval: interval,
	}
}

func (s *Store) SaveCandle(ctx context.Context, c models.Candle) error {
	return s.db.RunMaster(ctx, func(ctxTx context.Context, tx db.Transaction) error {
		return s.candles.Upsert(ctxTx, tx, c, s.loc)
	})
}

// SaveCandles пишет пачку одной транзакцией.
func (s *Store) SaveCandles(ctx context.Context, cs []models.Candle) error {
	if len(cs) == 0 {
		return nil
	}
	return s.db.RunMaster(ctx, func(ctxTx context.Context, tx db.Transaction) error {
		for _, c := range cs {
			if err := s.candles.Upsert(ctxTx, tx, c, s.loc); err != nil {
				return err
			}
		}
		return nil
	})
}

// CandlesSince — свечи символа с момента since в хронологическом порядке.
// Читаем снимком: хаб в это время продолжает дописывать свечи.
func (s *Store) CandlesSince(ctx context.Context, symbol string, since time.Time) (out []models.Candle, err error) {
	err = s.db.RunRepeatableRead(ctx, func(ctxTx context.Context, tx db.Transaction) error {
		out, err = s.candles.ListSince(ctxTx, tx, symbol, s.interval, since)
		return err
	})
	return out, err
}

// Cleanup удаляет свечи сессий раньше before.
func (s *Store) Cleanup(ctx context.Context, before time.Time) (int64, error) {
	var n int64
	err := s.db.RunMaster(ctx, func(ctxTx context.Context, tx db.Transaction) (err error) {
		n, err = s.candles.DeleteBefore(ctxTx, tx, candles.SessionDate(before, s.loc))
		return err
	})
	return n, err
}

func (s *Store) Name() string { return "postgres" }

// Deliver — синк событий.
func (s *Store) Deliver(ctx context.Context, ev models.Event) error {
	return s.db.RunMaster(ctx, func(ctxTx context.Context, tx db.Transaction) error {
		inserted, err := s.events.Insert(ctxTx, tx, ev)
		if err != nil {
			return err
		}
		if !inserted {
			logger.Debug("[PG] event %s %s %s already stored", ev.Kind, ev.Symbol, ev.CandleTime.Format(time.RFC3339))
		}
		return nil
	})
}

// LastEvents — последние n событий (по символу или по всем, если symbol пустой).
func (s *Store) LastEvents(ctx context.Context, symbol string, n int) ([]models.Event, error) {
	if n <= 0 {
		return nil, fmt.Errorf("limit must be > 0, got %d", n)
	}
	return s.events.LastN(ctx, s.db.Conn(), symbol, n)
}
