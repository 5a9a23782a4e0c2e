package events

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"

	"signal_bot/internal/models"
	"signal_bot/internal/modules/postgres/service/events/sql"
	"signal_bot/pkg/db"
)

// Events implement db store
type Events struct {
	sql *sql.Queries
}

// New instance
func New() *Events {
	return &Events{
		sql: sql.New(),
	}
}

// Insert сохраняет событие; повтор того же (symbol, kind, candle) — no-op, inserted=false.
func (e *Events) Insert(ctx context.Context, tx db.Transaction, ev models.Event) (inserted bool, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Events.Insert: %w", err)
		}
	}()

	payload, err := sonic.Marshal(ev)
	if err != nil {
		return false, err
	}
	n, err := e.sql.Insert(ctx, tx, ToParams(ev, payload))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (e *Events) LastN(ctx context.Context, tx db.Transaction, symbol string, limit int) (out []models.Event, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Events.LastN: %w", err)
		}
	}()

	var rows []*sql.SignalEvent
	if symbol == "" {
		rows, err = e.sql.LastN(ctx, tx, int32(limit))
	} else {
		rows, err = e.sql.LastBySymbol(ctx, tx, &sql.LastBySymbolParams{Symbol: symbol, Limit: int32(limit)})
	}
	if err != nil {
		return nil, err
	}

	out = make([]models.Event, 0, len(rows))
	for _, r := range rows {
		ev, err := FromRow(r)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, nil
}

func ToParams(ev models.Event, payload []byte) *sql.InsertParams {
	return &sql.InsertParams{
		Symbol:     ev.Symbol,
		Kind:       string(ev.Kind),
		Side:       string(ev.Side),
		Price:      ev.Price,
		StopLoss:   ev.StopLoss,
		TakeProfit: ev.TakeProfit,
		RiskReward: ev.RiskReward,
		Reason:     string(ev.Reason),
		CandleTs:   ev.CandleTime,
		CreatedAt:  ev.CreatedAt,
		Payload:    payload,
	}
}

// FromRow собирает событие из payload; колонки — запасной вариант для старых строк.
func FromRow(r *sql.SignalEvent) (models.Event, error) {
	var ev models.Event
	if len(r.Payload) > 0 {
		if err := sonic.Unmarshal(r.Payload, &ev); err != nil {
			return models.Event{}, err
		}
		return ev, nil
	}
	return models.Event{
		Kind:       models.EventKind(r.Kind),
		Symbol:     r.Symbol,
		Side:       models.Side(r.Side),
		Price:      r.Price,
		StopLoss:   r.StopLoss,
		TakeProfit: r.TakeProfit,
		RiskReward: r.RiskReward,
		Reason:     models.ExitReason(r.Reason),
		CandleTime: r.CandleTs,
		CreatedAt:  r.CreatedAt,
	}, nil
}
