package service

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"
	"time"

	"github.com/opentracing/opentracing-go"

	"signal_bot/internal/metrics"
	"signal_bot/internal/models"
	"signal_bot/pkg/logger"
)

// CandleSink — куда хаб складывает принятые свечи (история для прогрева после рестарта).
type CandleSink interface {
	SaveCandle(ctx context.Context, c models.Candle) error
}

// CandleObserver получает время последней обработанной свечи (health).
type CandleObserver interface {
	TouchCandle(t time.Time)
}

// ErrHubStopped — хаб уже остановлен, команду некому выполнить.
var ErrHubStopped = errors.New("hub stopped")

type HubConfig struct {
	Workers   int
	QueueSize int
}

// Hub раскидывает свечи по воркерам по хэшу символа: один символ всегда
// обрабатывается одним воркером, поэтому порядок его свечей сохраняется.
// Ручное закрытие идёт через ту же очередь, что и свечи символа.
// До MarkWarm живые свечи копятся в буфере и в движок не идут.
// Канал out закрывается, когда воркеры дочитали очереди.
type Hub struct {
	cfg    HubConfig
	engine *Engine
	sink   CandleSink
	obs    CandleObserver
	out    chan<- models.Event

	queues []chan job
	done   chan struct{}
	wg     sync.WaitGroup

	mu      sync.Mutex
	warm    bool
	closed  bool
	pending []models.Candle
}

func NewHub(cfg HubConfig, engine *Engine, out chan<- models.Event, sink CandleSink, obs CandleObserver) *Hub {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	h := &Hub{
		cfg:    cfg,
		engine: engine,
		sink:   sink,
		obs:    obs,
		out:    out,
		queues: make([]chan job, cfg.Workers),
		done:   make(chan struct{}),
	}
	for i := range h.queues {
		h.queues[i] = make(chan job, cfg.QueueSize)
	}
	return h
}

func (h *Hub) Engine() *Engine { return h.engine }

// Run запускает воркеры и читает свечи из in до отмены ctx или закрытия in.
// Возвращается, когда все воркеры дочитали свои очереди.
func (h *Hub) Run(ctx context.Context, in <-chan models.Candle) {
	for i, q := range h.queues {
		h.wg.Add(1)
		go h.worker(ctx, i, q)
	}
	logger.Info("[STRAT] hub loop started, workers=%d", len(h.queues))

	defer func() {
		close(h.done)
		h.mu.Lock()
		h.closed = true
		for _, q := range h.queues {
			close(q)
		}
		h.mu.Unlock()
		h.wg.Wait()
		// события шлют только воркеры, после Wait отправителей нет
		close(h.out)
		logger.Info("[STRAT] hub loop stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case c, ok := <-in:
			if !ok {
				logger.Warn("[STRAT] candles channel closed")
				return
			}
			h.Submit(c)
		}
	}
}

// Submit ставит свечу в очередь её воркера (или в буфер, пока прогрев не закончен).
func (h *Hub) Submit(c models.Candle) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	if !h.warm {
		h.pending = append(h.pending, c)
		return
	}
	h.enqueue(c)
}

// MarkWarm открывает гейт: буфер уходит в движок в порядке поступления.
func (h *Hub) MarkWarm() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.warm || h.closed {
		return
	}
	h.warm = true
	logger.Info("[STRAT] warmup finished, replaying %d buffered candles", len(h.pending))
	for _, c := range h.pending {
		h.enqueue(c)
	}
	h.pending = nil
}

func (h *Hub) Warm() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.warm
}

func (h *Hub) shard(symbol string) int {
	f := fnv.New32a()
	_, _ = f.Write([]byte(symbol))
	return int(f.Sum32() % uint32(len(h.queues)))
}

// job — свеча или запрос на ручное закрытие.
type job struct {
	candle models.Candle
	exit   *exitReq
}

type exitReq struct {
	symbol string
	at     time.Time
	reply  chan exitResult
}

type exitResult struct {
	ev  *models.Event
	err error
}

func (h *Hub) enqueue(c models.Candle) {
	select {
	case h.queues[h.shard(c.Symbol)] <- job{candle: c}:
	case <-h.done:
	}
}

func (h *Hub) worker(ctx context.Context, id int, q <-chan job) {
	defer h.wg.Done()
	// очередь дочитываем и после отмены, чтобы не терять принятые свечи
	ctx = context.WithoutCancel(ctx)
	for j := range q {
		if j.exit != nil {
			j.exit.reply <- h.forceExit(j.exit)
			continue
		}
		h.process(ctx, j.candle)
	}
	logger.Debug("[STRAT] worker %d done", id)
}

func (h *Hub) process(ctx context.Context, c models.Candle) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "strategy.candle")
	span.SetTag("symbol", c.Symbol)
	defer span.Finish()

	ev, err := h.engine.OnCandle(c)
	if err != nil {
		if errors.Is(err, ErrOutOfOrderCandle) {
			metrics.CandlesRejected.WithLabelValues(c.Symbol).Inc()
			logger.Warn("[ENGINE] %s: %v", c.Symbol, err)
			return
		}
		span.SetTag("error", true)
		logger.Error("[ENGINE] %s: %v", c.Symbol, err)
		return
	}
	metrics.CandlesProcessed.WithLabelValues(c.Symbol).Inc()
	if h.obs != nil {
		h.obs.TouchCandle(c.End())
	}

	if h.sink != nil {
		if err := h.sink.SaveCandle(ctx, c); err != nil {
			logger.Error("[STRAT] save candle %s %s: %v", c.Symbol, c.Timestamp.Format(time.RFC3339), err)
		}
	}

	if ev == nil {
		return
	}
	span.SetTag("event", string(ev.Kind))
	metrics.EventsTotal.WithLabelValues(string(ev.Kind)).Inc()
	metrics.OpenPositions.Set(float64(len(h.engine.OpenPositions())))
	logger.Info("[ENGINE] %s %s %s @ %.4f", ev.Kind, ev.Symbol, ev.Side, ev.Price)

	h.emit(*ev)
}

// emit не блокирует воркер: при забитой очереди событие теряется с записью в лог.
func (h *Hub) emit(ev models.Event) {
	select {
	case h.out <- ev:
	default:
		metrics.EventsDropped.Inc()
		logger.Error("[STRAT] event channel full, drop %s %s @ %.4f", ev.Kind, ev.Symbol, ev.Price)
	}
}

// ForceExit закрывает позицию вручную. Запрос встаёт в очередь воркера символа,
// так что EXIT уходит в канал событий между событиями соседних свечей, а не вперёд них.
// Буфер прогрева запрос обходит. (nil, nil) — позиции не было.
func (h *Hub) ForceExit(ctx context.Context, symbol string, at time.Time) (*models.Event, error) {
	req := &exitReq{symbol: symbol, at: at, reply: make(chan exitResult, 1)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrHubStopped
	}
	select {
	case h.queues[h.shard(symbol)] <- job{exit: req}:
	case <-h.done:
		h.mu.Unlock()
		return nil, ErrHubStopped
	case <-ctx.Done():
		h.mu.Unlock()
		return nil, ctx.Err()
	}
	h.mu.Unlock()

	select {
	case r := <-req.reply:
		return r.ev, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (h *Hub) forceExit(req *exitReq) exitResult {
	ev, err := h.engine.ForceExit(req.symbol, 0, req.at)
	if err != nil || ev == nil {
		return exitResult{ev: ev, err: err}
	}
	metrics.EventsTotal.WithLabelValues(string(ev.Kind)).Inc()
	metrics.OpenPositions.Set(float64(len(h.engine.OpenPositions())))
	logger.Info("[ENGINE] manual EXIT %s %s @ %.4f", ev.Symbol, ev.Side, ev.Price)
	h.emit(*ev)
	return exitResult{ev: ev}
}
