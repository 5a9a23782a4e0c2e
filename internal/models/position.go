package models

import "time"

// Position — синтетическая позиция, которую ведёт движок (ордеров не ставим).
type Position struct {
	Symbol     string    `json:"symbol"`
	Side       Side      `json:"side"`
	EntryPrice float64   `json:"entry_price"`
	StopLoss   float64   `json:"stop_loss"`
	TakeProfit float64   `json:"take_profit"`
	OpenedAt   time.Time `json:"opened_at"`
}

// PositionFromEvent собирает позицию из сигнала на вход.
func PositionFromEvent(ev Event) Position {
	return Position{
		Symbol:     ev.Symbol,
		Side:       ev.Side,
		EntryPrice: ev.Price,
		StopLoss:   ev.StopLoss,
		TakeProfit: ev.TakeProfit,
		OpenedAt:   ev.CandleTime,
	}
}
