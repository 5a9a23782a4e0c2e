package service

import (
	"errors"
	"fmt"
	"time"

	"signal_bot/internal/models"
)

var (
	// ErrOutOfOrderCandle — свеча не строго позже последней принятой по символу.
	ErrOutOfOrderCandle = errors.New("out-of-order candle")
	// ErrUnknownSymbol — по символу ещё не приходило ни одной свечи.
	ErrUnknownSymbol = errors.New("unknown symbol")
)

const dateLayout = "2006-01-02"

// IndicatorState — скользящее состояние индикаторов одного символа.
// Обновляется строго по одной закрытой свече, по возрастанию времени.
type IndicatorState struct {
	loc *time.Location

	ema emaState

	// VWAP с начала текущей сессии
	cumPV  float64
	cumVol float64

	volumes *ringWindow
	lows    *ringWindow
	highs   *ringWindow

	// уровни прошлого дня, меняются только на смене сессии
	pdh, pdl    float64
	levelsKnown bool

	session     string // дата текущей сессии по времени биржи
	sessionHigh float64
	sessionLow  float64

	lastClose float64
	prevClose float64
	hasPrev   bool

	lastTS time.Time
	count  int
}

func NewIndicatorState(p Params) *IndicatorState {
	loc := p.Location
	if loc == nil {
		loc = time.UTC
	}
	swing := p.SwingLookback
	if swing <= 0 {
		swing = 1
	}
	return &IndicatorState{
		loc:     loc,
		ema:     newEMA(p.EMAPeriod),
		volumes: newRingWindow(p.VolWindow),
		lows:    newRingWindow(swing),
		highs:   newRingWindow(swing),
	}
}

// Update применяет закрытую свечу. Свеча с временем <= последней принятой
// отклоняется с ErrOutOfOrderCandle, состояние при этом не меняется.
func (s *IndicatorState) Update(c models.Candle) error {
	if s.count > 0 && !c.Timestamp.After(s.lastTS) {
		return fmt.Errorf("%w: %s at %s, last accepted %s", ErrOutOfOrderCandle,
			c.Symbol, c.Timestamp.Format(time.RFC3339), s.lastTS.Format(time.RFC3339))
	}

	day := c.Timestamp.In(s.loc).Format(dateLayout)
	switch {
	case s.session == "":
		s.startSession(day, c)
	case day != s.session:
		// смена дня: экстремумы закрытой сессии становятся PDH/PDL, VWAP с нуля
		s.pdh, s.pdl = s.sessionHigh, s.sessionLow
		s.levelsKnown = true
		s.startSession(day, c)
	default:
		if c.High > s.sessionHigh {
			s.sessionHigh = c.High
		}
		if c.Low < s.sessionLow {
			s.sessionLow = c.Low
		}
	}

	s.ema.Update(c.Close)

	s.cumPV += c.Close * c.Volume
	s.cumVol += c.Volume

	s.volumes.Add(c.Volume)
	s.lows.Add(c.Low)
	s.highs.Add(c.High)

	if s.count > 0 {
		s.prevClose = s.lastClose
		s.hasPrev = true
	}
	s.lastClose = c.Close
	s.lastTS = c.Timestamp
	s.count++
	return nil
}

func (s *IndicatorState) startSession(day string, c models.Candle) {
	s.session = day
	s.sessionHigh = c.High
	s.sessionLow = c.Low
	s.cumPV = 0
	s.cumVol = 0
}

func (s *IndicatorState) EMA() (float64, bool) { return s.ema.Value(), s.ema.Seeded() }

// VWAP не определён, пока в сессии не было свечи с ненулевым объёмом.
func (s *IndicatorState) VWAP() (float64, bool) {
	if s.cumVol <= 0 {
		return 0, false
	}
	return s.cumPV / s.cumVol, true
}

// AvgVolume готов только при полном окне.
func (s *IndicatorState) AvgVolume() (float64, bool) {
	avg, ok := s.volumes.Mean()
	return avg, ok && s.volumes.Full()
}

func (s *IndicatorState) Levels() (pdh, pdl float64, ok bool) {
	return s.pdh, s.pdl, s.levelsKnown
}

// PrevClose — close свечи, предшествующей последней принятой.
func (s *IndicatorState) PrevClose() (float64, bool) { return s.prevClose, s.hasPrev }

// SwingLow / SwingHigh — экстремумы последних SwingLookback свечей (включая текущую).
func (s *IndicatorState) SwingLow() float64 { return s.lows.Min() }
func (s *IndicatorState) SwingHigh() float64 { return s.highs.Max() }

func (s *IndicatorState) Candles() int { return s.count }
func (s *IndicatorState) LastTimestamp() time.Time { return s.lastTS }
func (s *IndicatorState) Session() string { return s.session }
func (s *IndicatorState) Location() *time.Location { return s.loc }
