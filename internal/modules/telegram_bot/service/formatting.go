package service

import (
	"fmt"
	"strings"
	"time"

	"signal_bot/internal/models"
	strategy "signal_bot/internal/modules/strategy/service"
)

// FormatEvent — текст алерта в Markdown.
func FormatEvent(ev models.Event, tick float64) string {
	var b strings.Builder
	switch ev.Kind {
	case models.EventBuy, models.EventSell:
		emoji := "🚀"
		if ev.Kind == models.EventSell {
			emoji = "💣"
		}
		fmt.Fprintf(&b, "%s *%s SIGNAL* - `%s`\n\n", emoji, ev.Kind, shortSymbol(ev.Symbol))
		fmt.Fprintf(&b, "📍 Entry Price: `%s`\n", price(ev.Price, tick))
		fmt.Fprintf(&b, "🛑 Stop Loss: `%s`\n", price(ev.StopLoss, tick))
		fmt.Fprintf(&b, "🎯 Take Profit: `%s`\n", price(ev.TakeProfit, tick))
		fmt.Fprintf(&b, "📊 Risk/Reward: `%.2f`\n", ev.RiskReward)

	case models.EventExit:
		emoji := "❌"
		if ev.Reason == models.ExitTakeProfit {
			emoji = "✅"
		}
		fmt.Fprintf(&b, "%s *EXIT SIGNAL* - `%s`\n\n", emoji, shortSymbol(ev.Symbol))
		fmt.Fprintf(&b, "📍 Exit Price: `%s`\n", price(ev.Price, tick))
		fmt.Fprintf(&b, "📝 Reason: `%s`\n", ev.Reason)
		if ev.EntryPrice > 0 {
			fmt.Fprintf(&b, "↩️ Entry: `%s` (%s, `%s`)\n", price(ev.EntryPrice, tick), ev.Side, pct(ev.PnLPct()))
		}

	default:
		fmt.Fprintf(&b, "⚠️ *UNKNOWN SIGNAL* - `%s`\n", shortSymbol(ev.Symbol))
	}

	if !ev.CandleTime.IsZero() {
		fmt.Fprintf(&b, "🕒 Candle: `%s`\n", ev.CandleTime.Format("2006-01-02 15:04"))
	}
	return b.String()
}

func formatStatus(snaps []strategy.Snapshot, positions []models.Position, processed int64, p strategy.Params) string {
	var b strings.Builder
	b.WriteString("🤖 *Status*\n\n")
	fmt.Fprintf(&b, "Инструментов: `%d`\n", len(snaps))
	fmt.Fprintf(&b, "Свечей обработано: `%d`\n", processed)
	fmt.Fprintf(&b, "Открытых позиций: `%d`\n\n", len(positions))

	b.WriteString("*⚙️ Параметры*\n")
	fmt.Fprintf(&b, "EMA: `%d`, объём: `%d x %.2f`\n", p.EMAPeriod, p.VolWindow, p.VolMultiplier)
	fmt.Fprintf(&b, "VWAP dist: `%s`, SL buf: `%s`, RR: `%.2f`\n", pct(p.VWAPDistancePct), pct(p.SLBufferPct), p.RiskReward)
	fmt.Fprintf(&b, "Окно: `%s-%s`, стоп: `%s`\n",
		strategy.FormatClock(p.SessionStart), strategy.FormatClock(p.SessionEnd), p.StopPolicy)

	if len(snaps) > 0 {
		b.WriteString("\n*📈 Инструменты*\n")
		for i, s := range snaps {
			last := "-"
			if !s.LastCandle.IsZero() {
				last = s.LastCandle.Format("15:04")
			}
			fmt.Fprintf(&b, "%d. `%s` свечей `%d`, последняя `%s`\n", i+1, shortSymbol(s.Symbol), s.Candles, last)
		}
	}
	return b.String()
}

func formatPositions(positions []models.Position, tick float64) string {
	if len(positions) == 0 {
		return "📭 Открытых позиций нет"
	}
	var b strings.Builder
	b.WriteString("📊 *Открытые позиции*\n\n")
	for _, p := range positions {
		fmt.Fprintf(&b, "`%s` %s @ `%s`\n  SL `%s` / TP `%s`, с `%s`\n",
			shortSymbol(p.Symbol), p.Side, price(p.EntryPrice, tick),
			price(p.StopLoss, tick), price(p.TakeProfit, tick),
			p.OpenedAt.Format("01-02 15:04"))
	}
	return b.String()
}

func formatLevels(s strategy.Snapshot, tick float64) string {
	val := func(v float64, ok bool) string {
		if !ok {
			return "n/a"
		}
		return price(v, tick)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📐 *Levels* - `%s`\n\n", shortSymbol(s.Symbol))
	fmt.Fprintf(&b, "Close: `%s`\n", price(s.LastClose, tick))
	fmt.Fprintf(&b, "EMA: `%s`\n", val(s.EMA, s.EMAReady))
	fmt.Fprintf(&b, "VWAP: `%s`\n", val(s.VWAP, s.VWAPReady))
	fmt.Fprintf(&b, "Avg vol: `%s`\n", val(s.AvgVolume, s.VolumeReady))
	fmt.Fprintf(&b, "PDH / PDL: `%s` / `%s`\n", val(s.PDH, s.LevelsReady), val(s.PDL, s.LevelsReady))
	fmt.Fprintf(&b, "Сессия: `%s`, свечей: `%d`\n", s.Session, s.Candles)
	if s.Blocked.Long != "" || s.Blocked.Short != "" {
		fmt.Fprintf(&b, "Гейты: long=`%s` short=`%s`\n", s.Blocked.Long, s.Blocked.Short)
	}
	if p := s.Position; p != nil {
		fmt.Fprintf(&b, "\nПозиция: %s @ `%s` SL `%s` TP `%s`\n",
			p.Side, price(p.EntryPrice, tick), price(p.StopLoss, tick), price(p.TakeProfit, tick))
	}
	return b.String()
}

func formatHistory(evs []models.Event, tick float64) string {
	if len(evs) == 0 {
		return "📭 Событий пока нет"
	}
	var b strings.Builder
	b.WriteString("🗂 *Последние события*\n\n")
	for _, ev := range evs {
		line := fmt.Sprintf("`%s` %s `%s` @ `%s`", ev.CandleTime.Format(time.DateTime), ev.Kind, shortSymbol(ev.Symbol), price(ev.Price, tick))
		if ev.Kind == models.EventExit {
			line += " `" + string(ev.Reason) + "`"
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

const helpText = "*Команды*\n\n" +
	"/status — состояние движка\n" +
	"/positions — открытые позиции\n" +
	"/levels <symbol> — индикаторы по инструменту\n" +
	"/history [n] — последние события\n" +
	"/close <symbol> — закрыть позицию вручную\n" +
	"/help — эта справка"
