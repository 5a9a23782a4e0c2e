package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signal_bot/internal/models"
	"signal_bot/internal/modules/config"
)

type published struct {
	channel string
	data    []byte
}

type stored struct {
	key  string
	data []byte
	ttl  time.Duration
}

type fakeRedis struct {
	pubErr error
	pubs   []published
	sets   []stored
}

func (f *fakeRedis) Publish(_ context.Context, channel string, message interface{}) *redis.IntCmd {
	if f.pubErr != nil {
		return redis.NewIntResult(0, f.pubErr)
	}
	f.pubs = append(f.pubs, published{channel: channel, data: message.([]byte)})
	return redis.NewIntResult(1, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	f.sets = append(f.sets, stored{key: key, data: value.([]byte), ttl: expiration})
	return redis.NewStatusResult("OK", nil)
}

func TestPublisher_Deliver(t *testing.T) {
	fr := &fakeRedis{}
	p := &Publisher{rdb: fr, prefix: "signals", ttl: time.Hour}

	ev := models.Event{
		Kind: models.EventBuy, Symbol: "NSE_EQ|INE467B01029", Side: models.SideLong,
		Price: 13.5, StopLoss: 12.99, TakeProfit: 14.32, RiskReward: 1.6,
		CandleTime: time.Date(2024, 1, 9, 10, 5, 0, 0, time.UTC),
	}
	require.NoError(t, p.Deliver(context.Background(), ev))

	require.Len(t, fr.pubs, 1)
	assert.Equal(t, "signals.NSE_EQ|INE467B01029", fr.pubs[0].channel)
	require.Len(t, fr.sets, 1)
	assert.Equal(t, "signals:last:NSE_EQ|INE467B01029", fr.sets[0].key)
	assert.Equal(t, time.Hour, fr.sets[0].ttl)

	var got models.Event
	require.NoError(t, sonic.Unmarshal(fr.pubs[0].data, &got))
	assert.Equal(t, ev.Kind, got.Kind)
	assert.InDelta(t, ev.StopLoss, got.StopLoss, 1e-9)
	assert.True(t, ev.CandleTime.Equal(got.CandleTime))
}

func TestPublisher_PublishError(t *testing.T) {
	fr := &fakeRedis{pubErr: errors.New("connection refused")}
	p := &Publisher{rdb: fr, prefix: "signals"}

	err := p.Deliver(context.Background(), models.Event{Kind: models.EventExit, Symbol: "X"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Empty(t, fr.sets)
}

func TestPublisher_Disabled(t *testing.T) {
	p, err := NewPublisher(config.RedisConfig{})
	require.NoError(t, err)
	assert.False(t, p.Enabled())
	assert.Equal(t, "redis", p.Name())
	assert.Equal(t, "signals.X", p.Channel("X"))
	assert.NoError(t, p.Deliver(context.Background(), models.Event{Symbol: "X"}))
	assert.NoError(t, p.Close())
}
