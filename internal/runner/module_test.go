package runner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"

	"signal_bot/internal/models"
)

func TestModule_StopDrainsUntilEventsClosed(t *testing.T) {
	events := make(chan models.Event, 4)
	rec := &recordingSink{name: "rec"}

	app := fx.New(
		fx.NopLogger,
		fx.Supply(events),
		fx.Provide(fx.Annotate(
			func() AlertSink { return rec },
			fx.ResultTags(`group:"sinks"`),
		)),
		Module(),
	)
	require.NoError(t, app.Err())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, app.Start(ctx))

	// хаб дописывает события уже во время остановки
	go func() {
		time.Sleep(50 * time.Millisecond)
		for _, ev := range testEvents() {
			events <- ev
		}
		close(events)
	}()
	require.NoError(t, app.Stop(ctx))

	assert.Equal(t, testEvents(), rec.events())
}
