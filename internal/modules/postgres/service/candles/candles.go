package candles

import (
	"context"
	"fmt"
	"time"

	"signal_bot/internal/models"
	"signal_bot/internal/modules/postgres/service/candles/sql"
	"signal_bot/pkg/db"
)

// Candles implement db store
type Candles struct {
	sql *sql.Queries
}

// New instance
func New() *Candles {
	return &Candles{
		sql: sql.New(),
	}
}

// SessionDate — календарная дата свечи по времени биржи.
func SessionDate(ts time.Time, loc *time.Location) time.Time {
	lt := ts.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, time.UTC)
}

func (c *Candles) Upsert(ctx context.Context, tx db.Transaction, cd models.Candle, loc *time.Location) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Candles.Upsert: %w", err)
		}
	}()
	return c.sql.Upsert(ctx, tx, &sql.UpsertParams{
		Symbol:      cd.Symbol,
		Ts:          cd.Timestamp,
		IntervalSec: int32(cd.Interval / time.Second),
		SessionDate: SessionDate(cd.Timestamp, loc),
		Open:        cd.Open,
		High:        cd.High,
		Low:         cd.Low,
		Close:       cd.Close,
		Volume:      cd.Volume,
	})
}

func (c *Candles) ListSince(
	ctx context.Context,
	tx db.Transaction,
	symbol string,
	interval time.Duration,
	since time.Time,
) (out []models.Candle, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Candles.ListSince: %w", err)
		}
	}()
	rows, err := c.sql.ListSince(ctx, tx, &sql.ListSinceParams{
		Symbol:      symbol,
		IntervalSec: int32(interval / time.Second),
		Ts:          since,
	})
	if err != nil {
		return nil, err
	}
	out = make([]models.Candle, 0, len(rows))
	for _, r := range rows {
		out = append(out, FromRow(r))
	}
	return out, nil
}

func (c *Candles) DeleteBefore(ctx context.Context, tx db.Transaction, day time.Time) (n int64, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Candles.DeleteBefore: %w", err)
		}
	}()
	return c.sql.DeleteBefore(ctx, tx, day)
}

func FromRow(r *sql.Candle) models.Candle {
	return models.Candle{
		Symbol:    r.Symbol,
		Open:      r.Open,
		High:      r.High,
		Low:       r.Low,
		Close:     r.Close,
		Volume:    r.Volume,
		Timestamp: r.Ts,
		Interval:  time.Duration(r.IntervalSec) * time.Second,
	}
}
