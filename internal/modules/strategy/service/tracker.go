package service

import "signal_bot/internal/models"

// CheckExit проверяет открытую позицию по свече.
//
// Если за одну свечу задеты и стоп, и тейк, считаем что сработал стоп:
// внутри свечи порядок неизвестен, берём худший вариант. Исполнение — ровно
// по уровню, а не по close.
func CheckExit(pos models.Position, c models.Candle) *models.Event {
	var (
		price  float64
		reason models.ExitReason
	)

	switch pos.Side {
	case models.SideLong:
		switch {
		case c.Low <= pos.StopLoss:
			price, reason = pos.StopLoss, models.ExitStopLoss
		case c.High >= pos.TakeProfit:
			price, reason = pos.TakeProfit, models.ExitTakeProfit
		}
	case models.SideShort:
		switch {
		case c.High >= pos.StopLoss:
			price, reason = pos.StopLoss, models.ExitStopLoss
		case c.Low <= pos.TakeProfit:
			price, reason = pos.TakeProfit, models.ExitTakeProfit
		}
	}

	if reason == "" {
		return nil
	}
	return &models.Event{
		Kind:       models.EventExit,
		Symbol:     pos.Symbol,
		Side:       pos.Side,
		Price:      price,
		Reason:     reason,
		EntryPrice: pos.EntryPrice,
		StopLoss:   pos.StopLoss,
		TakeProfit: pos.TakeProfit,
		CandleTime: c.Timestamp,
		CreatedAt:  c.End(),
	}
}
