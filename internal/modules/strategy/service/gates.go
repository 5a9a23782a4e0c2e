package service

import (
	"math"

	"signal_bot/internal/models"
)

// evalContext — всё, на что смотрят гейты: свеча и значения индикаторов
// уже после её применения к состоянию.
type evalContext struct {
	params      Params
	candle      models.Candle
	hasPosition bool

	candles int

	ema       float64
	emaOK     bool
	vwap      float64
	vwapOK    bool
	avgVol    float64
	avgVolOK  bool
	pdh, pdl  float64
	levelsOK  bool
	prevClose float64
	prevOK    bool

	swingLow, swingHigh float64
}

func newEvalContext(p Params, st *IndicatorState, c models.Candle, hasPosition bool) *evalContext {
	ec := &evalContext{
		params:      p,
		candle:      c,
		hasPosition: hasPosition,
		candles:     st.Candles(),
		swingLow:    st.SwingLow(),
		swingHigh:   st.SwingHigh(),
	}
	ec.ema, ec.emaOK = st.EMA()
	ec.vwap, ec.vwapOK = st.VWAP()
	ec.avgVol, ec.avgVolOK = st.AvgVolume()
	ec.pdh, ec.pdl, ec.levelsOK = st.Levels()
	ec.prevClose, ec.prevOK = st.PrevClose()
	return ec
}

type gate struct {
	name string
	pass func(ec *evalContext, side models.Side) bool
}

// Порядок важен только для читаемости логов: сигнал гасит первый непройденный гейт.
var entryGates = []gate{
	{name: "ready", pass: gateReady},
	{name: "flat", pass: gateFlat},
	{name: "trend", pass: gateTrend},
	{name: "volume", pass: gateVolume},
	{name: "vwap_distance", pass: gateVWAPDistance},
	{name: "breakout", pass: gateBreakout},
	{name: "session", pass: gateSession},
}

const gateStopPlacement = "stop_placement"

func gateReady(ec *evalContext, _ models.Side) bool {
	return ec.emaOK && ec.vwapOK && ec.avgVolOK && ec.levelsOK &&
		ec.candles >= ec.params.MinCandles
}

// никогда не доливаемся и не переворачиваемся, пока позиция открыта
func gateFlat(ec *evalContext, _ models.Side) bool { return !ec.hasPosition }

func gateTrend(ec *evalContext, side models.Side) bool {
	if side == models.SideLong {
		return ec.candle.Close > ec.ema
	}
	return ec.candle.Close < ec.ema
}

func gateVolume(ec *evalContext, _ models.Side) bool {
	return ec.candle.Volume > ec.avgVol*ec.params.VolMultiplier
}

func gateVWAPDistance(ec *evalContext, side models.Side) bool {
	if ec.vwap <= 0 {
		return false
	}
	c := ec.candle.Close
	if side == models.SideLong && c <= ec.vwap {
		return false
	}
	if side == models.SideShort && c >= ec.vwap {
		return false
	}
	distPct := math.Abs(c-ec.vwap) / ec.vwap * 100
	return distPct >= ec.params.VWAPDistancePct
}

// пробой — событие пересечения уровня: прошлая свеча закрылась по нашу сторону
func gateBreakout(ec *evalContext, side models.Side) bool {
	if !ec.prevOK {
		return false
	}
	c := ec.candle.Close
	if side == models.SideLong {
		return c > ec.pdh && ec.prevClose <= ec.pdh
	}
	return c < ec.pdl && ec.prevClose >= ec.pdl
}

func gateSession(ec *evalContext, _ models.Side) bool {
	t := ec.candle.Timestamp.In(ec.params.Location)
	m := t.Hour()*60 + t.Minute()
	return m >= ec.params.SessionStart && m <= ec.params.SessionEnd
}

// Verdict — имя первого непройденного гейта по каждой стороне ("" — прошли все).
type Verdict struct {
	Long  string
	Short string
}

func firstFailed(ec *evalContext, side models.Side) string {
	for _, g := range entryGates {
		if !g.pass(ec, side) {
			return g.name
		}
	}
	return ""
}

// Evaluate решает, есть ли вход на этой свече. Состояние не меняет.
func Evaluate(p Params, st *IndicatorState, c models.Candle, hasPosition bool) (*models.Event, Verdict) {
	ec := newEvalContext(p, st, c, hasPosition)

	var v Verdict
	if v.Long = firstFailed(ec, models.SideLong); v.Long == "" {
		if ev, ok := entryEvent(ec, models.SideLong); ok {
			return ev, v
		}
		v.Long = gateStopPlacement
	}
	if v.Short = firstFailed(ec, models.SideShort); v.Short == "" {
		if ev, ok := entryEvent(ec, models.SideShort); ok {
			return ev, v
		}
		v.Short = gateStopPlacement
	}
	return nil, v
}

// stopLoss по выбранной политике; стоп по ту же сторону от входа — сигнала нет.
func stopLoss(ec *evalContext, side models.Side) (float64, bool) {
	p := ec.params
	buf := p.SLBufferPct / 100
	entry := ec.candle.Close

	var sl float64
	switch p.StopPolicy {
	case StopSwing:
		if side == models.SideLong {
			sl = ec.swingLow
		} else {
			sl = ec.swingHigh
		}
	case StopVWAPCandle:
		if side == models.SideLong {
			sl = math.Min(ec.vwap*(1-buf), ec.candle.Low)
		} else {
			sl = math.Max(ec.vwap*(1+buf), ec.candle.High)
		}
	default:
		if side == models.SideLong {
			sl = ec.pdh - buf*ec.pdh
		} else {
			sl = ec.pdl + buf*ec.pdl
		}
	}

	if side == models.SideLong {
		return sl, sl > 0 && sl < entry
	}
	return sl, sl > entry
}

func entryEvent(ec *evalContext, side models.Side) (*models.Event, bool) {
	sl, ok := stopLoss(ec, side)
	if !ok {
		return nil, false
	}
	entry := ec.candle.Close
	risk := math.Abs(entry - sl)

	ev := &models.Event{
		Symbol:     ec.candle.Symbol,
		Side:       side,
		Price:      entry,
		StopLoss:   sl,
		RiskReward: ec.params.RiskReward,
		CandleTime: ec.candle.Timestamp,
		CreatedAt:  ec.candle.End(),
	}
	if side == models.SideLong {
		ev.Kind = models.EventBuy
		ev.TakeProfit = entry + risk*ec.params.RiskReward
	} else {
		ev.Kind = models.EventSell
		ev.TakeProfit = entry - risk*ec.params.RiskReward
	}
	return ev, true
}
