package models

import "time"

// Candle — закрытая OHLCV свеча одного инструмента.
type Candle struct {
	Symbol    string        `json:"symbol"`
	Open      float64       `json:"open"`
	High      float64       `json:"high"`
	Low       float64       `json:"low"`
	Close     float64       `json:"close"`
	Volume    float64       `json:"volume"`
	Timestamp time.Time     `json:"timestamp"` // начало бакета
	Interval  time.Duration `json:"interval"`
}

// End — конец интервала свечи.
func (c Candle) End() time.Time { return c.Timestamp.Add(c.Interval) }

// Tick — одна сделка из потока котировок.
type Tick struct {
	Symbol string
	Price  float64
	Qty    float64
	Time   time.Time
}
