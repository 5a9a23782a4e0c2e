package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signal_bot/internal/models"
	strategy "signal_bot/internal/modules/strategy/service"
)

var base = time.Date(2024, time.January, 9, 9, 15, 0, 0, time.UTC)

func candle(sym string, i int) models.Candle {
	return models.Candle{
		Symbol: sym, Open: 10, High: 11, Low: 9, Close: 10, Volume: 100,
		Timestamp: base.Add(time.Duration(i) * 5 * time.Minute), Interval: 5 * time.Minute,
	}
}

type fakeHistory struct {
	mu    sync.Mutex
	calls []string
	data  map[string][]models.Candle
	err   map[string]error
}

func (f *fakeHistory) FetchHistory(_ context.Context, key string, days int, _ time.Time) ([]models.Candle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, key)
	if err := f.err[key]; err != nil {
		return nil, err
	}
	return append([]models.Candle(nil), f.data[key]...), nil
}

type memStore struct {
	mu      sync.Mutex
	candles map[string][]models.Candle
	since   time.Time
	before  []time.Time
}

func newMemStore() *memStore { return &memStore{candles: map[string][]models.Candle{}} }

func (m *memStore) SaveCandles(_ context.Context, cs []models.Candle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range cs {
		m.candles[c.Symbol] = append(m.candles[c.Symbol], c)
	}
	return nil
}

func (m *memStore) CandlesSince(_ context.Context, symbol string, since time.Time) ([]models.Candle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.since = since
	out := append([]models.Candle(nil), m.candles[symbol]...)
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (m *memStore) Cleanup(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.before = append(m.before, before)
	return 3, nil
}

type fakeWarmer struct {
	mu   sync.Mutex
	last map[string]time.Time
	got  map[string]int
}

func (f *fakeWarmer) Warmup(c models.Candle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.last == nil {
		f.last, f.got = map[string]time.Time{}, map[string]int{}
	}
	if !c.Timestamp.After(f.last[c.Symbol]) {
		return strategy.ErrOutOfOrderCandle
	}
	f.last[c.Symbol] = c.Timestamp
	f.got[c.Symbol]++
	return nil
}

type flags struct {
	warm  atomic.Bool
	ready atomic.Bool
}

func (f *flags) MarkWarm()       { f.warm.Store(true) }
func (f *flags) SetReady(v bool) { f.ready.Store(v) }

func TestWarmup_FetchSaveReplay(t *testing.T) {
	now := base.Add(22 * time.Minute) // 09:37, свеча 09:35 ещё формируется
	h := &fakeHistory{data: map[string][]models.Candle{
		"A": {candle("A", 0), candle("A", 1), candle("A", 2), candle("A", 3), candle("A", 4)},
		"B": {candle("B", 0), candle("B", 1)},
	}}
	st := newMemStore()
	eng := &fakeWarmer{}
	fl := &flags{}

	w := NewWarmuper(Config{Symbols: []string{"A", "B"}, HistoryDays: 5, FetchHistory: true}, h, st, eng, fl, fl)
	stats := w.Warmup(context.Background(), now)

	assert.Equal(t, 6, stats.Fetched)
	assert.Equal(t, 6, stats.Replayed)
	assert.Zero(t, stats.Failed)
	assert.Equal(t, 4, eng.got["A"])
	assert.Equal(t, 2, eng.got["B"])
	assert.Len(t, st.candles["A"], 4)
	assert.True(t, fl.warm.Load())
	assert.True(t, fl.ready.Load())
	assert.Equal(t, now.AddDate(0, 0, -10), st.since)
}

func TestWarmup_WithoutTokenUsesStore(t *testing.T) {
	h := &fakeHistory{}
	st := newMemStore()
	require.NoError(t, st.SaveCandles(context.Background(), []models.Candle{
		candle("A", 1), candle("A", 0), candle("A", 2),
	}))
	eng := &fakeWarmer{}
	fl := &flags{}

	w := NewWarmuper(Config{Symbols: []string{"A"}, HistoryDays: 1}, h, st, eng, fl, fl)
	stats := w.Warmup(context.Background(), base.Add(time.Hour))

	assert.Empty(t, h.calls)
	assert.Equal(t, 3, stats.Replayed)
	assert.True(t, fl.ready.Load())
}

func TestWarmup_FetchErrorStillWarms(t *testing.T) {
	h := &fakeHistory{err: map[string]error{"A": errors.New("401 Unauthorized")}}
	st := newMemStore()
	require.NoError(t, st.SaveCandles(context.Background(), []models.Candle{candle("A", 0)}))
	eng := &fakeWarmer{}
	fl := &flags{}

	w := NewWarmuper(Config{Symbols: []string{"A"}, HistoryDays: 2, FetchHistory: true}, h, st, eng, fl, fl)
	stats := w.Warmup(context.Background(), base.Add(time.Hour))

	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 1, stats.Replayed)
	assert.True(t, fl.warm.Load())
}

func TestWarmup_DuplicatesRejected(t *testing.T) {
	st := newMemStore()
	require.NoError(t, st.SaveCandles(context.Background(), []models.Candle{
		candle("A", 0), candle("A", 1), candle("A", 1),
	}))
	eng := &fakeWarmer{}
	fl := &flags{}

	w := NewWarmuper(Config{Symbols: []string{"A"}}, nil, st, eng, fl, fl)
	stats := w.Warmup(context.Background(), base.Add(time.Hour))

	assert.Equal(t, 2, stats.Replayed)
	assert.Equal(t, 1, stats.Rejected)
}

func TestClosedOnly(t *testing.T) {
	cs := []models.Candle{candle("A", 0), candle("A", 1)}
	assert.Len(t, closedOnly(cs, base.Add(5*time.Minute)), 1)
	assert.Len(t, closedOnly([]models.Candle{candle("A", 0)}, base.Add(10*time.Minute)), 1)
}

func TestRunCleanup(t *testing.T) {
	st := newMemStore()
	now := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		defer close(done)
		RunCleanup(ctx, st, 30*24*time.Hour, 10*time.Millisecond, func() time.Time { return now })
	}()

	assert.Eventually(t, func() bool {
		st.mu.Lock()
		defer st.mu.Unlock()
		return len(st.before) >= 2
	}, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	st.mu.Lock()
	defer st.mu.Unlock()
	assert.Equal(t, now.AddDate(0, 0, -30), st.before[0])
}
