package health

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"

	"signal_bot/internal/models"
	"signal_bot/internal/modules/config"
	"signal_bot/internal/modules/health/service"
	strategy "signal_bot/internal/modules/strategy/service"
	"signal_bot/pkg/logger"
)

type Config struct {
	Addr string // например ":8080"
}

func NewConfig(cfg *config.Config) Config {
	return Config{Addr: cfg.Service.Addr}
}

// StatusSource — срез состояния движка для /status.
type StatusSource interface {
	Snapshots() []strategy.Snapshot
	OpenPositions() []models.Position
	CandlesProcessed() int64
	CandlesRejected() int64
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func NewMux(state *service.State, engine StatusSource) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/livez", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if !state.Ready() {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"ready":          state.Ready(),
			"wsConnected":    state.WSConnected(),
			"uptimeSec":      int64(state.Uptime().Seconds()),
			"lastTickUnix":   unixOrZero(state.LastTick()),
			"lastCandleUnix": unixOrZero(state.LastCandle()),
		})
	})

	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		positions := engine.OpenPositions()
		if positions == nil {
			positions = []models.Position{}
		}
		writeJSON(w, map[string]any{
			"candlesProcessed": engine.CandlesProcessed(),
			"candlesRejected":  engine.CandlesRejected(),
			"openPositions":    positions,
			"symbols":          engine.Snapshots(),
		})
	})

	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

func RunHTTP(lc fx.Lifecycle, cfg Config, mux *http.ServeMux) {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", cfg.Addr)
			if err != nil {
				return err
			}
			logger.Info("[HEALTH] listening on %s", ln.Addr())
			go func() { _ = srv.Serve(ln) }()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}

func Module() fx.Option {
	return fx.Module("health",
		fx.Provide(
			service.NewState,
			NewConfig,
			func(state *service.State, e *strategy.Engine) *http.ServeMux { return NewMux(state, e) },
		),
		fx.Invoke(RunHTTP),
	)
}
