package service

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"signal_bot/internal/models"
)

// Engine держит состояние по каждому символу: индикаторы + не больше одной позиции.
// Переходы одного символа строго последовательны (лок на символ),
// разные символы можно гонять параллельно.
type Engine struct {
	params Params

	mu    sync.RWMutex
	books map[string]*book

	processed atomic.Int64
	rejected  atomic.Int64
}

type book struct {
	mu       sync.Mutex
	state    *IndicatorState
	position *models.Position
	verdict  Verdict
}

func NewEngine(p Params) (*Engine, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("strategy params: %w", err)
	}
	return &Engine{
		params: p,
		books:  make(map[string]*book),
	}, nil
}

func (e *Engine) Params() Params { return e.params }

func (e *Engine) get(symbol string) *book {
	e.mu.RLock()
	b, ok := e.books[symbol]
	e.mu.RUnlock()
	if ok {
		return b
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if b, ok := e.books[symbol]; ok {
		return b
	}
	b = &book{state: NewIndicatorState(e.params)}
	e.books[symbol] = b
	return b
}

func (e *Engine) lookup(symbol string) (*book, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	b, ok := e.books[symbol]
	return b, ok
}

// OnCandle — один шаг движка на закрытой свече:
// индикаторы -> оценка входа -> (если позиция была открыта до этой свечи) проверка выхода.
// Позиция, открытая на этой свече, этой же свечой не проверяется.
func (e *Engine) OnCandle(c models.Candle) (*models.Event, error) {
	b := e.get(c.Symbol)
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.state.Update(c); err != nil {
		e.rejected.Add(1)
		return nil, err
	}
	e.processed.Add(1)

	entry, verdict := Evaluate(e.params, b.state, c, b.position != nil)
	b.verdict = verdict
	if entry != nil {
		pos := models.PositionFromEvent(*entry)
		b.position = &pos
		return entry, nil
	}

	if b.position == nil {
		return nil, nil
	}
	exit := CheckExit(*b.position, c)
	if exit != nil {
		b.position = nil
	}
	return exit, nil
}

// Warmup прогоняет историческую свечу только через индикаторы:
// без оценки входа и без позиций. Порядок проверяется так же, как в OnCandle.
func (e *Engine) Warmup(c models.Candle) error {
	b := e.get(c.Symbol)
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.state.Update(c); err != nil {
		e.rejected.Add(1)
		return err
	}
	e.processed.Add(1)
	return nil
}

// ForceExit закрывает позицию вручную (EXIT с причиной OTHER).
func (e *Engine) ForceExit(symbol string, price float64, at time.Time) (*models.Event, error) {
	b, ok := e.lookup(symbol)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.position == nil {
		return nil, nil
	}
	if price <= 0 {
		price = b.state.lastClose
	}
	pos := *b.position
	b.position = nil
	return &models.Event{
		Kind:       models.EventExit,
		Symbol:     symbol,
		Side:       pos.Side,
		Price:      price,
		Reason:     models.ExitOther,
		EntryPrice: pos.EntryPrice,
		StopLoss:   pos.StopLoss,
		TakeProfit: pos.TakeProfit,
		CandleTime: b.state.LastTimestamp(),
		CreatedAt:  at,
	}, nil
}

// Snapshot — срез состояния символа для статусных команд.
type Snapshot struct {
	Symbol      string           `json:"symbol"`
	Candles     int              `json:"candles"`
	LastCandle  time.Time        `json:"last_candle"`
	LastClose   float64          `json:"last_close"`
	Session     string           `json:"session"`
	EMA         float64          `json:"ema"`
	EMAReady    bool             `json:"ema_ready"`
	VWAP        float64          `json:"vwap"`
	VWAPReady   bool             `json:"vwap_ready"`
	AvgVolume   float64          `json:"avg_volume"`
	VolumeReady bool             `json:"volume_ready"`
	PDH         float64          `json:"pdh"`
	PDL         float64          `json:"pdl"`
	LevelsReady bool             `json:"levels_ready"`
	Blocked     Verdict          `json:"blocked"`
	Position    *models.Position `json:"position,omitempty"`
}

func (b *book) snapshot(symbol string) Snapshot {
	st := b.state
	s := Snapshot{
		Symbol:     symbol,
		Candles:    st.Candles(),
		LastCandle: st.LastTimestamp(),
		LastClose:  st.lastClose,
		Session:    st.Session(),
		Blocked:    b.verdict,
	}
	s.EMA, s.EMAReady = st.EMA()
	s.VWAP, s.VWAPReady = st.VWAP()
	s.AvgVolume, s.VolumeReady = st.AvgVolume()
	s.PDH, s.PDL, s.LevelsReady = st.Levels()
	if b.position != nil {
		p := *b.position
		s.Position = &p
	}
	return s
}

func (e *Engine) Snapshot(symbol string) (Snapshot, error) {
	b, ok := e.lookup(symbol)
	if !ok {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshot(symbol), nil
}

// Snapshots по всем символам, отсортированы по имени.
func (e *Engine) Snapshots() []Snapshot {
	syms := e.Symbols()
	out := make([]Snapshot, 0, len(syms))
	for _, sym := range syms {
		if s, err := e.Snapshot(sym); err == nil {
			out = append(out, s)
		}
	}
	return out
}

func (e *Engine) Symbols() []string {
	e.mu.RLock()
	out := make([]string, 0, len(e.books))
	for sym := range e.books {
		out = append(out, sym)
	}
	e.mu.RUnlock()
	sort.Strings(out)
	return out
}

func (e *Engine) OpenPositions() []models.Position {
	var out []models.Position
	for _, s := range e.Snapshots() {
		if s.Position != nil {
			out = append(out, *s.Position)
		}
	}
	return out
}

func (e *Engine) CandlesProcessed() int64 { return e.processed.Load() }
func (e *Engine) CandlesRejected() int64 { return e.rejected.Load() }
