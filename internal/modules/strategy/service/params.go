package service

import (
	"fmt"
	"strings"
	"time"
)

// StopPolicy — как ставим стоп при входе.
type StopPolicy string

const (
	// StopBreakoutBuffer — стоп за уровнем пробоя с буфером: pdh*(1-buf) / pdl*(1+buf).
	StopBreakoutBuffer StopPolicy = "breakout_buffer"
	// StopSwing — локальный экстремум последних SwingLookback свечей.
	StopSwing StopPolicy = "swing"
	// StopVWAPCandle — min(vwap*(1-buf), low) для лонга, max(vwap*(1+buf), high) для шорта.
	StopVWAPCandle StopPolicy = "vwap_candle"
)

func ParseStopPolicy(raw string) (StopPolicy, error) {
	switch p := StopPolicy(strings.ToLower(strings.TrimSpace(raw))); p {
	case "":
		return StopBreakoutBuffer, nil
	case StopBreakoutBuffer, StopSwing, StopVWAPCandle:
		return p, nil
	default:
		return "", fmt.Errorf("unknown stop-loss policy %q", raw)
	}
}

// Params — неизменяемые параметры стратегии, собираются из конфига один раз при старте.
type Params struct {
	EMAPeriod       int
	VolWindow       int
	VolMultiplier   float64
	VWAPDistancePct float64 // в процентах: 0.15 => 0.15%
	SLBufferPct     float64 // в процентах: 0.08 => 0.08%
	RiskReward      float64
	StopPolicy      StopPolicy
	SwingLookback   int

	// торговое окно, минуты от полуночи по времени биржи (включительно)
	SessionStart int
	SessionEnd   int
	Location     *time.Location

	// сколько свечей должно пройти через движок, прежде чем он начнёт сигналить
	MinCandles int
}

func DefaultParams() Params {
	return Params{
		EMAPeriod:       200,
		VolWindow:       20,
		VolMultiplier:   1.5,
		VWAPDistancePct: 0.15,
		SLBufferPct:     0.08,
		RiskReward:      1.6,
		StopPolicy:      StopBreakoutBuffer,
		SwingLookback:   5,
		SessionStart:    9*60 + 15,
		SessionEnd:      15*60 + 25,
		Location:        time.UTC,
	}
}

func (p Params) Validate() error {
	switch {
	case p.EMAPeriod <= 0:
		return fmt.Errorf("ema_period must be > 0, got %d", p.EMAPeriod)
	case p.VolWindow <= 0:
		return fmt.Errorf("vol_window must be > 0, got %d", p.VolWindow)
	case p.VolMultiplier < 0:
		return fmt.Errorf("vol_multiplier must be >= 0, got %v", p.VolMultiplier)
	case p.VWAPDistancePct < 0:
		return fmt.Errorf("vwap_distance_pct must be >= 0, got %v", p.VWAPDistancePct)
	case p.SLBufferPct < 0:
		return fmt.Errorf("sl_buffer_pct must be >= 0, got %v", p.SLBufferPct)
	case p.RiskReward <= 0:
		return fmt.Errorf("risk_reward must be > 0, got %v", p.RiskReward)
	case p.StopPolicy == StopSwing && p.SwingLookback <= 0:
		return fmt.Errorf("swing_lookback must be > 0 for swing stops")
	case p.SessionStart < 0 || p.SessionEnd >= 24*60 || p.SessionEnd <= p.SessionStart:
		return fmt.Errorf("bad session window %s-%s", FormatClock(p.SessionStart), FormatClock(p.SessionEnd))
	case p.Location == nil:
		return fmt.Errorf("location is required")
	}
	if _, err := ParseStopPolicy(string(p.StopPolicy)); err != nil {
		return err
	}
	return nil
}

// ParseClock "09:15" -> 555.
func ParseClock(s string) (int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("parse clock %q: %w", s, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

func FormatClock(m int) string { return fmt.Sprintf("%02d:%02d", m/60, m%60) }
