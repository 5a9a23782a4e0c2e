package models

import "time"

type EventKind string

const (
	EventBuy  EventKind = "BUY"
	EventSell EventKind = "SELL"
	EventExit EventKind = "EXIT"
)

type Side string

const (
	SideNone  Side = ""
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

type ExitReason string

const (
	ExitTakeProfit ExitReason = "TP_HIT"
	ExitStopLoss   ExitReason = "SL_HIT"
	ExitOther      ExitReason = "OTHER"
)

// Event — самодостаточное событие движка: вход (BUY/SELL) или выход (EXIT).
// Всё нужное для доставки лежит внутри, без обращений обратно в движок.
type Event struct {
	Kind   EventKind `json:"kind"`
	Symbol string    `json:"symbol"`
	Side   Side      `json:"side"`
	Price  float64   `json:"price"`

	// вход
	StopLoss   float64 `json:"stop_loss,omitempty"`
	TakeProfit float64 `json:"take_profit,omitempty"`
	RiskReward float64 `json:"risk_reward,omitempty"`

	// выход
	Reason     ExitReason `json:"reason,omitempty"`
	EntryPrice float64    `json:"entry_price,omitempty"`

	CandleTime time.Time `json:"candle_time"`
	CreatedAt  time.Time `json:"created_at"`
}

func (e Event) IsEntry() bool { return e.Kind == EventBuy || e.Kind == EventSell }

// PnLPct — результат сделки в процентах от входа (только для EXIT).
func (e Event) PnLPct() float64 {
	if e.Kind != EventExit || e.EntryPrice <= 0 {
		return 0
	}
	if e.Side == SideShort {
		return (e.EntryPrice - e.Price) / e.EntryPrice * 100
	}
	return (e.Price - e.EntryPrice) / e.EntryPrice * 100
}
