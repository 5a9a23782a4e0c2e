package service

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"signal_bot/internal/models"
)

// Aggregator складывает тики в свечи фиксированного интервала.
// Бакеты выровнены по полуночи биржевого времени, а не по UTC.
type Aggregator struct {
	interval time.Duration
	loc      *time.Location

	mu     sync.Mutex
	open   map[string]*models.Candle
	closed map[string]time.Time // начало последнего выданного бакета

	late atomic.Int64
}

func NewAggregator(interval time.Duration, loc *time.Location) *Aggregator {
	if loc == nil {
		loc = time.UTC
	}
	return &Aggregator{
		interval: interval,
		loc:      loc,
		open:     make(map[string]*models.Candle),
		closed:   make(map[string]time.Time),
	}
}

func (a *Aggregator) bucket(t time.Time) time.Time {
	lt := t.In(a.loc)
	midnight := time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, a.loc)
	off := lt.Sub(midnight)
	return midnight.Add(off - off%a.interval)
}

// Add применяет тик. Возвращает свечи, которые этот тик закрыл (0 или 1).
func (a *Aggregator) Add(t models.Tick) []models.Candle {
	if t.Price <= 0 || t.Symbol == "" {
		return nil
	}
	b := a.bucket(t.Time)

	a.mu.Lock()
	defer a.mu.Unlock()

	cur, ok := a.open[t.Symbol]
	if ok {
		switch {
		case b.Equal(cur.Timestamp):
			cur.High = max(cur.High, t.Price)
			cur.Low = min(cur.Low, t.Price)
			cur.Close = t.Price
			cur.Volume += t.Qty
			return nil
		case b.Before(cur.Timestamp):
			a.late.Add(1)
			return nil
		}
		done := *cur
		a.closed[t.Symbol] = cur.Timestamp
		a.start(t, b)
		return []models.Candle{done}
	}

	if last, ok := a.closed[t.Symbol]; ok && !b.After(last) {
		a.late.Add(1)
		return nil
	}
	a.start(t, b)
	return nil
}

func (a *Aggregator) start(t models.Tick, b time.Time) {
	a.open[t.Symbol] = &models.Candle{
		Symbol:    t.Symbol,
		Open:      t.Price,
		High:      t.Price,
		Low:       t.Price,
		Close:     t.Price,
		Volume:    t.Qty,
		Timestamp: b,
		Interval:  a.interval,
	}
}

// Flush закрывает все свечи, у которых конец бакета + grace уже наступил.
// Нужен для тихих инструментов, по которым следующий тик может не прийти.
func (a *Aggregator) Flush(now time.Time, grace time.Duration) []models.Candle {
	a.mu.Lock()
	defer a.mu.Unlock()

	var out []models.Candle
	for sym, c := range a.open {
		if c.End().Add(grace).After(now) {
			continue
		}
		out = append(out, *c)
		a.closed[sym] = c.Timestamp
		delete(a.open, sym)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Late — сколько тиков отброшено как опоздавшие.
func (a *Aggregator) Late() int64 { return a.late.Load() }
