package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signal_bot/internal/models"
	"signal_bot/internal/modules/health/service"
	strategy "signal_bot/internal/modules/strategy/service"
)

type fakeEngine struct {
	snaps     []strategy.Snapshot
	positions []models.Position
}

func (f fakeEngine) Snapshots() []strategy.Snapshot   { return f.snaps }
func (f fakeEngine) OpenPositions() []models.Position { return f.positions }
func (f fakeEngine) CandlesProcessed() int64          { return 42 }
func (f fakeEngine) CandlesRejected() int64           { return 1 }

func do(t *testing.T, mux *http.ServeMux, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestReadyz(t *testing.T) {
	state := service.NewState()
	mux := NewMux(state, fakeEngine{})

	assert.Equal(t, http.StatusOK, do(t, mux, "/livez").Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, mux, "/readyz").Code)

	state.SetReady(true)
	assert.Equal(t, http.StatusOK, do(t, mux, "/readyz").Code)
}

func TestHealthz(t *testing.T) {
	state := service.NewState()
	state.SetWSConnected(true)
	state.TouchCandle(time.Unix(1704790800, 0))
	mux := NewMux(state, fakeEngine{})

	rec := do(t, mux, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["wsConnected"])
	assert.Equal(t, false, body["ready"])
	assert.Equal(t, float64(1704790800), body["lastCandleUnix"])
	assert.Equal(t, float64(0), body["lastTickUnix"])
}

func TestStatus(t *testing.T) {
	eng := fakeEngine{
		snaps: []strategy.Snapshot{{Symbol: "NSE_EQ|A", Candles: 10, EMA: 101.5, EMAReady: true}},
		positions: []models.Position{{
			Symbol: "NSE_EQ|A", Side: models.SideLong, EntryPrice: 100, StopLoss: 99, TakeProfit: 101.6,
		}},
	}
	mux := NewMux(service.NewState(), eng)

	rec := do(t, mux, "/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		CandlesProcessed int64               `json:"candlesProcessed"`
		OpenPositions    []models.Position   `json:"openPositions"`
		Symbols          []strategy.Snapshot `json:"symbols"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(42), body.CandlesProcessed)
	require.Len(t, body.OpenPositions, 1)
	assert.Equal(t, models.SideLong, body.OpenPositions[0].Side)
	require.Len(t, body.Symbols, 1)
	assert.Equal(t, 101.5, body.Symbols[0].EMA)
}

func TestMetricsEndpoint(t *testing.T) {
	rec := do(t, NewMux(service.NewState(), fakeEngine{}), "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
}
