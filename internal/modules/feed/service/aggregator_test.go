package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signal_bot/internal/models"
)

const sym = "NSE_EQ|INE467B01029"

var ist = time.FixedZone("IST", 5*3600+1800)

func tick(hh, mm, ss int, price, qty float64) models.Tick {
	return models.Tick{
		Symbol: sym,
		Price:  price,
		Qty:    qty,
		Time:   time.Date(2024, time.January, 9, hh, mm, ss, 0, ist),
	}
}

func TestAggregator_BuildsCandle(t *testing.T) {
	a := NewAggregator(5*time.Minute, ist)

	assert.Empty(t, a.Add(tick(9, 15, 1, 100, 10)))
	assert.Empty(t, a.Add(tick(9, 16, 0, 102, 5)))
	assert.Empty(t, a.Add(tick(9, 17, 30, 99, 7)))
	assert.Empty(t, a.Add(tick(9, 19, 59, 101, 3)))

	out := a.Add(tick(9, 20, 0, 103, 1))
	require.Len(t, out, 1)

	c := out[0]
	assert.Equal(t, sym, c.Symbol)
	assert.True(t, c.Timestamp.Equal(time.Date(2024, time.January, 9, 9, 15, 0, 0, ist)))
	assert.Equal(t, 5*time.Minute, c.Interval)
	assert.Equal(t, 100.0, c.Open)
	assert.Equal(t, 102.0, c.High)
	assert.Equal(t, 99.0, c.Low)
	assert.Equal(t, 101.0, c.Close)
	assert.Equal(t, 25.0, c.Volume)
}

func TestAggregator_AlignsToExchangeClock(t *testing.T) {
	// IST смещён на 30 минут от часовой сетки UTC: 09:15 IST = 03:45 UTC
	a := NewAggregator(15*time.Minute, ist)
	a.Add(tick(9, 16, 0, 100, 1))
	out := a.Flush(time.Date(2024, time.January, 9, 10, 0, 0, 0, ist), 0)
	require.Len(t, out, 1)
	assert.True(t, out[0].Timestamp.Equal(time.Date(2024, time.January, 9, 9, 15, 0, 0, ist)))
}

func TestAggregator_LateTicksDropped(t *testing.T) {
	a := NewAggregator(5*time.Minute, ist)
	a.Add(tick(9, 15, 0, 100, 1))
	require.Len(t, a.Add(tick(9, 20, 0, 101, 1)), 1)

	// тик из закрытого бакета не переоткрывает свечу
	assert.Empty(t, a.Add(tick(9, 19, 0, 50, 100)))
	assert.Equal(t, int64(1), a.Late())

	out := a.Add(tick(9, 25, 0, 102, 1))
	require.Len(t, out, 1)
	assert.Equal(t, 101.0, out[0].Low)
	assert.Equal(t, 1.0, out[0].Volume)
}

func TestAggregator_Flush(t *testing.T) {
	a := NewAggregator(5*time.Minute, ist)
	a.Add(tick(9, 15, 10, 100, 1))

	other := tick(9, 16, 0, 200, 2)
	other.Symbol = "NSE_EQ|INE002A01018"
	a.Add(other)

	grace := 2 * time.Second
	assert.Empty(t, a.Flush(time.Date(2024, time.January, 9, 9, 20, 1, 0, ist), grace))

	out := a.Flush(time.Date(2024, time.January, 9, 9, 20, 2, 0, ist), grace)
	require.Len(t, out, 2)
	assert.Equal(t, "NSE_EQ|INE002A01018", out[0].Symbol)
	assert.Equal(t, sym, out[1].Symbol)

	// после флаша тик того же бакета — опоздавший
	assert.Empty(t, a.Add(tick(9, 19, 59, 100, 1)))
	assert.Equal(t, int64(1), a.Late())
	assert.Empty(t, a.Flush(time.Date(2024, time.January, 9, 9, 30, 0, 0, ist), grace))
}

func TestAggregator_IgnoresBadTicks(t *testing.T) {
	a := NewAggregator(time.Minute, ist)
	assert.Empty(t, a.Add(tick(9, 15, 0, 0, 1)))
	noSym := tick(9, 15, 0, 10, 1)
	noSym.Symbol = ""
	assert.Empty(t, a.Add(noSym))
	assert.Empty(t, a.Flush(time.Date(2024, time.January, 10, 0, 0, 0, 0, ist), 0))
}
