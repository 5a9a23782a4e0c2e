package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"signal_bot/internal/models"
	"signal_bot/internal/modules/config"
	"signal_bot/pkg/logger"
)

// commander — подмножество *redis.Client, нужное публикатору.
type commander interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// Publisher рассылает события в redis pub/sub и держит последнее событие по символу.
// Канал: <prefix>.<symbol>, ключ: <prefix>:last:<symbol>.
type Publisher struct {
	rdb    commander
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewPublisher без адреса возвращает выключенный публикатор.
func NewPublisher(cfg config.RedisConfig) (*Publisher, error) {
	p := &Publisher{prefix: cfg.ChannelPrefix, ttl: cfg.LastTTL}
	if p.prefix == "" {
		p.prefix = "signals"
	}
	if cfg.Addr == "" {
		logger.Info("[REDIS] addr is empty, publisher disabled")
		return p, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis %s: %w", cfg.Addr, err)
	}

	logger.Info("[REDIS] connected to %s db=%d prefix=%s", cfg.Addr, cfg.DB, p.prefix)
	p.client = client
	p.rdb = client
	return p, nil
}

func (p *Publisher) Enabled() bool { return p.rdb != nil }

func (p *Publisher) Name() string { return "redis" }

func (p *Publisher) Channel(symbol string) string { return p.prefix + "." + symbol }

func (p *Publisher) LastKey(symbol string) string { return p.prefix + ":last:" + symbol }

func (p *Publisher) Deliver(ctx context.Context, ev models.Event) error {
	if !p.Enabled() {
		return nil
	}

	data, err := sonic.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := p.rdb.Publish(ctx, p.Channel(ev.Symbol), data).Err(); err != nil {
		return fmt.Errorf("failed to publish %s %s: %w", ev.Kind, ev.Symbol, err)
	}
	if err := p.rdb.Set(ctx, p.LastKey(ev.Symbol), data, p.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache last event %s: %w", ev.Symbol, err)
	}

	logger.Debug("[REDIS] published %s %s", ev.Kind, ev.Symbol)
	return nil
}

func (p *Publisher) Close() error {
	if p.client == nil {
		return nil
	}
	return p.client.Close()
}
