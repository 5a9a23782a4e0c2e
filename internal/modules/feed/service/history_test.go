package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signal_bot/internal/modules/config"
	strategy "signal_bot/internal/modules/strategy/service"
)

type nopState struct{}

func (nopState) SetWSConnected(bool) {}
func (nopState) TouchTick(time.Time) {}

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	cfg := &config.Config{Symbols: []string{sym}}
	cfg.Feed.HistoryURL = srv.URL + "/v3/historical-candle"
	cfg.Feed.AccessToken = "secret"
	cfg.Feed.Interval = 5 * time.Minute
	return NewClient(cfg, strategy.DefaultParams(), nopState{})
}

const historyBody = `{"status":"success","data":{"candles":[
	["2024-01-09T09:20:00+05:30", 101, 103, 100.5, 102, 2000, 0],
	["2024-01-09T09:15:00+05:30", 100, 101.5, 99, 101, 1500, 0]
]}}`

func TestGetIntradayCandles(t *testing.T) {
	var gotPath, gotAuth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(historyBody))
	})

	cs, err := c.GetIntradayCandles(context.Background(), sym)
	require.NoError(t, err)

	assert.Equal(t, "/v3/historical-candle/intraday/NSE_EQ%7CINE467B01029/minutes/5", gotPath)
	assert.Equal(t, "Bearer secret", gotAuth)

	require.Len(t, cs, 2)
	// newest-first развёрнуто в хронологию
	assert.Equal(t, 100.0, cs[0].Open)
	assert.Equal(t, 101.0, cs[0].Close)
	assert.Equal(t, 1500.0, cs[0].Volume)
	assert.True(t, cs[0].Timestamp.Before(cs[1].Timestamp))
	assert.Equal(t, sym, cs[1].Symbol)
	assert.Equal(t, 5*time.Minute, cs[1].Interval)
}

func TestGetDayCandles_Path(t *testing.T) {
	var gotPath string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		_, _ = w.Write([]byte(`{"status":"success","data":{"candles":[]}}`))
	})

	cs, err := c.GetDayCandles(context.Background(), sym, time.Date(2024, time.January, 8, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Empty(t, cs)
	assert.Equal(t, "/v3/historical-candle/NSE_EQ%7CINE467B01029/minutes/5/2024-01-08/2024-01-08", gotPath)
}

func TestGetCandles_Errors(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "intraday") {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"status":"error"}`))
			return
		}
		_, _ = w.Write([]byte(`{"status":"error","errors":[{"errorCode":"UDAPI100","message":"bad key"}]}`))
	})

	_, err := c.GetIntradayCandles(context.Background(), sym)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")

	_, err = c.GetDayCandles(context.Background(), sym, time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad key")
}

func TestFetchHistory_SkipsWeekends(t *testing.T) {
	var days []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "intraday") {
			_, _ = w.Write([]byte(`{"status":"success","data":{"candles":[["2024-01-09T09:15:00+05:30", 1, 1, 1, 1, 1, 0]]}}`))
			return
		}
		parts := strings.Split(r.URL.Path, "/")
		day := parts[len(parts)-1]
		days = append(days, day)
		_, _ = w.Write([]byte(`{"status":"success","data":{"candles":[["` + day + `T09:15:00+05:30", 1, 1, 1, 1, 1, 0]]}}`))
	})

	// вторник 9 января: назад — понедельник 8-е, затем пятница 5-е
	cs, err := c.FetchHistory(context.Background(), sym, 2, time.Date(2024, time.January, 9, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t, []string{"2024-01-08", "2024-01-05"}, days)
	require.Len(t, cs, 3)
	assert.Equal(t, 5, cs[0].Timestamp.Day())
	assert.Equal(t, 8, cs[1].Timestamp.Day())
	assert.Equal(t, 9, cs[2].Timestamp.Day())
}
