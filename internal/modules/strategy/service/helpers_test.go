package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"signal_bot/internal/models"
)

const testSym = "NSE_EQ|INE467B01029"

func testParams() Params {
	p := DefaultParams()
	p.EMAPeriod = 3
	p.VolWindow = 3
	p.Location = time.UTC
	return p
}

// at — время свечи: день января 2024 и hh:mm по UTC.
func at(day, hh, mm int) time.Time {
	return time.Date(2024, time.January, day, hh, mm, 0, 0, time.UTC)
}

func candle(ts time.Time, o, h, l, c, v float64) models.Candle {
	return models.Candle{
		Symbol:    testSym,
		Open:      o,
		High:      h,
		Low:       l,
		Close:     c,
		Volume:    v,
		Timestamp: ts,
		Interval:  5 * time.Minute,
	}
}

func feed(t *testing.T, st *IndicatorState, cs ...models.Candle) {
	t.Helper()
	for _, c := range cs {
		require.NoError(t, st.Update(c))
	}
}

// breakoutSetup: 8 января — сессия с high=13 и low=9.5,
// 9 января — первая свеча с close=12. Следующая свеча с close>13 — пробой вверх.
func breakoutSetup(t *testing.T, p Params) *IndicatorState {
	t.Helper()
	st := NewIndicatorState(p)
	feed(t, st,
		candle(at(8, 10, 0), 10, 13, 9.5, 10, 100),
		candle(at(8, 10, 5), 10, 11, 10, 10.5, 100),
		candle(at(8, 10, 10), 10.5, 11, 10, 11, 100),
		candle(at(9, 10, 0), 11, 12, 11, 12, 100),
	)
	return st
}

// breakoutCandle — close=13.5 > pdh=13 с объёмом 400.
func breakoutCandle() models.Candle {
	return candle(at(9, 10, 5), 12, 14, 12, 13.5, 400)
}
