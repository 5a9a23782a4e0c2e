package runner

import (
	"context"
	"sync"
	"time"

	"github.com/opentracing/opentracing-go"

	"signal_bot/internal/metrics"
	"signal_bot/internal/models"
	"signal_bot/pkg/logger"
)

const (
	defaultSinkQueue   = 64
	defaultSinkTimeout = 10 * time.Second
)

// Dispatcher раздаёт события всем синкам. У каждого синка своя очередь и воркер:
// медленный telegram не задерживает запись в БД.
type Dispatcher struct {
	sinks   []AlertSink
	queues  []chan models.Event
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewDispatcher(sinks []AlertSink, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = defaultSinkTimeout
	}
	d := &Dispatcher{timeout: timeout}
	for _, s := range sinks {
		if s == nil {
			continue
		}
		if t, ok := s.(toggler); ok && !t.Enabled() {
			logger.Info("[DISPATCH] sink %s disabled", s.Name())
			continue
		}
		d.sinks = append(d.sinks, s)
		d.queues = append(d.queues, make(chan models.Event, defaultSinkQueue))
	}
	return d
}

func (d *Dispatcher) Sinks() []string {
	out := make([]string, 0, len(d.sinks))
	for _, s := range d.sinks {
		out = append(out, s.Name())
	}
	return out
}

// Run читает события до отмены ctx или закрытия канала, затем дожидается,
// пока синки разберут свои очереди.
func (d *Dispatcher) Run(ctx context.Context, events <-chan models.Event) {
	for i := range d.sinks {
		d.wg.Add(1)
		go d.worker(ctx, d.sinks[i], d.queues[i])
	}
	logger.Info("[DISPATCH] started, sinks=%v", d.Sinks())

	defer func() {
		for _, q := range d.queues {
			close(q)
		}
		d.wg.Wait()
		logger.Info("[DISPATCH] stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			d.OnEvent(ev)
		}
	}
}

func (d *Dispatcher) OnEvent(ev models.Event) {
	for i, q := range d.queues {
		select {
		case q <- ev:
		default:
			metrics.SinkFailures.WithLabelValues(d.sinks[i].Name()).Inc()
			logger.Error("[DISPATCH] %s queue full, drop %s %s", d.sinks[i].Name(), ev.Kind, ev.Symbol)
		}
	}
}

func (d *Dispatcher) worker(ctx context.Context, s AlertSink, q <-chan models.Event) {
	defer d.wg.Done()
	ctx = context.WithoutCancel(ctx)
	for ev := range q {
		d.deliver(ctx, s, ev)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, s AlertSink, ev models.Event) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "dispatch.deliver")
	span.SetTag("sink", s.Name())
	span.SetTag("symbol", ev.Symbol)
	span.SetTag("event", string(ev.Kind))
	defer span.Finish()

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if err := s.Deliver(ctx, ev); err != nil {
		span.SetTag("error", true)
		metrics.SinkFailures.WithLabelValues(s.Name()).Inc()
		logger.Error("[DISPATCH] %s: deliver %s %s: %v", s.Name(), ev.Kind, ev.Symbol, err)
	}
}
