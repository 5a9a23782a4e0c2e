package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signal_bot/internal/models"
	"signal_bot/pkg/db"
)

type execCall struct {
	sql  string
	args []any
}

// fakeTx пишет все Exec; Query только запоминает sql и падает.
type fakeTx struct {
	calls    []execCall
	queries  []string
	affected int64
	err      error
}

func (f *fakeTx) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.calls = append(f.calls, execCall{sql: sql, args: args})
	if f.err != nil {
		return pgconn.CommandTag{}, f.err
	}
	return pgconn.NewCommandTag("INSERT 0 " + strconv.FormatInt(f.affected, 10)), nil
}

func (f *fakeTx) Query(_ context.Context, sql string, _ ...interface{}) (pgx.Rows, error) {
	f.queries = append(f.queries, sql)
	return nil, errors.New("not implemented")
}

func (f *fakeTx) QueryRow(context.Context, string, ...interface{}) pgx.Row { return nil }

type fakeTxManager struct {
	tx      *fakeTx
	commits int
	reads   int
}

func (m *fakeTxManager) RunMaster(ctx context.Context, fn func(context.Context, db.Transaction) error) error {
	if err := fn(ctx, m.tx); err != nil {
		return err
	}
	m.commits++
	return nil
}

func (m *fakeTxManager) RunRepeatableRead(ctx context.Context, fn func(context.Context, db.Transaction) error) error {
	m.reads++
	return fn(ctx, m.tx)
}

func (m *fakeTxManager) Conn() db.Transaction { return m.tx }

var ist = time.FixedZone("IST", 5*3600+1800)

func newTestStore(affected int64) (*Store, *fakeTxManager) {
	tm := &fakeTxManager{tx: &fakeTx{affected: affected}}
	return NewStore(tm, ist, 5*time.Minute), tm
}

func TestStore_SaveCandle(t *testing.T) {
	s, tm := newTestStore(1)

	// 23:00 UTC 8 января — это уже 9 января по IST
	ts := time.Date(2024, time.January, 8, 23, 0, 0, 0, time.UTC)
	err := s.SaveCandle(context.Background(), models.Candle{
		Symbol: "NSE_EQ|A", Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10,
		Timestamp: ts, Interval: 5 * time.Minute,
	})
	require.NoError(t, err)
	require.Len(t, tm.tx.calls, 1)
	assert.Equal(t, 1, tm.commits)

	call := tm.tx.calls[0]
	assert.True(t, strings.Contains(call.sql, "INSERT INTO candles"))
	require.Len(t, call.args, 9)
	assert.Equal(t, "NSE_EQ|A", call.args[0])
	assert.Equal(t, ts, call.args[1])
	assert.Equal(t, int32(300), call.args[2])
	assert.Equal(t, time.Date(2024, time.January, 9, 0, 0, 0, 0, time.UTC), call.args[3])
	assert.Equal(t, 1.5, call.args[7])
}

func TestStore_SaveCandlesOneTx(t *testing.T) {
	s, tm := newTestStore(1)

	cs := []models.Candle{
		{Symbol: "NSE_EQ|A", Close: 1, Timestamp: time.Unix(0, 0), Interval: time.Minute},
		{Symbol: "NSE_EQ|A", Close: 2, Timestamp: time.Unix(60, 0), Interval: time.Minute},
	}
	require.NoError(t, s.SaveCandles(context.Background(), cs))
	assert.Len(t, tm.tx.calls, 2)
	assert.Equal(t, 1, tm.commits)

	require.NoError(t, s.SaveCandles(context.Background(), nil))
	assert.Equal(t, 1, tm.commits)
}

func TestStore_DeliverEvent(t *testing.T) {
	s, tm := newTestStore(0)

	ev := models.Event{
		Kind: models.EventExit, Symbol: "NSE_EQ|A", Side: models.SideShort,
		Price: 9.5076, Reason: models.ExitStopLoss, EntryPrice: 9,
		CandleTime: time.Date(2024, time.January, 9, 9, 35, 0, 0, ist),
	}
	require.NoError(t, s.Deliver(context.Background(), ev))

	require.Len(t, tm.tx.calls, 1)
	args := tm.tx.calls[0].args
	require.Len(t, args, 11)
	assert.Equal(t, "EXIT", args[1])
	assert.Equal(t, "SHORT", args[2])
	assert.Equal(t, "SL_HIT", args[7])
	assert.Contains(t, string(args[10].([]byte)), `"entry_price":9`)
}

func TestStore_DeliverError(t *testing.T) {
	s, tm := newTestStore(1)
	tm.tx.err = errors.New("connection reset")

	err := s.Deliver(context.Background(), models.Event{Kind: models.EventBuy, Symbol: "NSE_EQ|A"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Events.Insert")
	assert.Equal(t, 0, tm.commits)
}

func TestStore_Cleanup(t *testing.T) {
	s, tm := newTestStore(1)

	n, err := s.Cleanup(context.Background(), time.Date(2024, time.January, 2, 20, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	require.Len(t, tm.tx.calls, 1)
	assert.Equal(t, time.Date(2024, time.January, 3, 0, 0, 0, 0, time.UTC), tm.tx.calls[0].args[0])
}

func TestStore_LastEventsLimit(t *testing.T) {
	s, _ := newTestStore(0)
	_, err := s.LastEvents(context.Background(), "", 0)
	assert.Error(t, err)
}

func TestStore_CandlesSinceReadsSnapshot(t *testing.T) {
	s, tm := newTestStore(0)

	_, err := s.CandlesSince(context.Background(), "NSE_EQ|A", time.Unix(0, 0))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Candles.ListSince")
	assert.Equal(t, 1, tm.reads)
	assert.Equal(t, 0, tm.commits)
	require.Len(t, tm.tx.queries, 1)
	assert.Contains(t, tm.tx.queries[0], "FROM candles")
}

func TestStore_LastEventsGoesToPool(t *testing.T) {
	s, tm := newTestStore(0)

	_, err := s.LastEvents(context.Background(), "NSE_EQ|A", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Events.LastN")
	assert.Equal(t, 0, tm.reads)
	assert.Len(t, tm.tx.queries, 1)
}
