package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"

	strategy "signal_bot/internal/modules/strategy/service"
)

const (
	configFilePathENV = "CONFIG_FILE"
	tokenTelegramENV  = "TELEGRAM_TOKEN"
	chatIDsENV        = "TELEGRAM_CHAT_IDS"
	authorizedENV     = "AUTHORIZED_USERS"
	databaseDSN       = "DATABASE_DSN"
	upstoxTokenENV    = "UPSTOX_ACCESS_TOKEN"
	redisAddrENV      = "REDIS_ADDR"
	symbolsENV        = "SYMBOLS"
	logLevelENV       = "LOG_LEVEL"
)

// Config ...
type Config struct {
	Telegram Telegram    `yaml:"telegram"`
	DB       string      `yaml:"db_dsn"`
	Redis    RedisConfig `yaml:"redis"`

	Feed     FeedConfig     `yaml:"feed"`
	Strategy StrategyConfig `yaml:"strategy"`

	// ключи инструментов вида "NSE_EQ|INE467B01029"
	Symbols []string `yaml:"symbols"`

	Service struct {
		Addr string `yaml:"addr"`
	} `yaml:"service"`
	Tracing struct {
		Enabled bool   `yaml:"enabled"`
		Host    string `yaml:"host"`
		Port    string `yaml:"port"`
	} `yaml:"tracing"`
	LogLevel string `yaml:"log_level"`
}

type Telegram struct {
	Token           string  `yaml:"token"`
	ChatIDs         []int64 `yaml:"chat_ids"`
	AuthorizedUsers []int64 `yaml:"authorized_users"`
	// шаг цены для отображения в алертах, 0 — без округления
	TickSize float64 `yaml:"tick_size"`
}

type RedisConfig struct {
	Addr          string        `yaml:"addr"`
	Password      string        `yaml:"password"`
	DB            int           `yaml:"db"`
	ChannelPrefix string        `yaml:"channel_prefix"`
	LastTTL       time.Duration `yaml:"last_ttl"`
}

type FeedConfig struct {
	// authorize_url выдаёт одноразовый wss-адрес; ws_url — прямой адрес без authorize
	AuthorizeURL string `yaml:"authorize_url"`
	WSURL        string `yaml:"ws_url"`
	HistoryURL   string `yaml:"history_url"`
	AccessToken  string `yaml:"access_token"`

	Interval       time.Duration `yaml:"interval"`
	FlushGrace     time.Duration `yaml:"flush_grace"`
	PingInterval   time.Duration `yaml:"ping_interval"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`

	HistoryDays   int `yaml:"history_days"`
	RetentionDays int `yaml:"retention_days"`
}

type StrategyConfig struct {
	EMAPeriod       int     `yaml:"ema_period"`
	VolWindow       int     `yaml:"vol_window"`
	VolMultiplier   float64 `yaml:"vol_multiplier"`
	VWAPDistancePct float64 `yaml:"vwap_distance_pct"`
	SLBufferPct     float64 `yaml:"sl_buffer_pct"`
	SLPolicy        string  `yaml:"sl_policy"`
	SwingLookback   int     `yaml:"swing_lookback"`
	RiskReward      float64 `yaml:"risk_reward"`
	SessionStart    string  `yaml:"session_start"`
	SessionEnd      string  `yaml:"session_end"`
	Timezone        string  `yaml:"timezone"`
	MinCandles      int     `yaml:"min_candles"`
	Workers         int     `yaml:"workers"`
}

func defaults() Config {
	d := strategy.DefaultParams()

	var cfg Config
	cfg.Redis.ChannelPrefix = "signals"
	cfg.Redis.LastTTL = 24 * time.Hour
	cfg.Feed = FeedConfig{
		AuthorizeURL:   "https://api.upstox.com/v3/feed/market-data-feed/authorize",
		HistoryURL:     "https://api.upstox.com/v3/historical-candle",
		Interval:       5 * time.Minute,
		FlushGrace:     3 * time.Second,
		PingInterval:   20 * time.Second,
		ReconnectDelay: time.Second,
		HistoryDays:    5,
		RetentionDays:  30,
	}
	cfg.Strategy = StrategyConfig{
		EMAPeriod:       d.EMAPeriod,
		VolWindow:       d.VolWindow,
		VolMultiplier:   d.VolMultiplier,
		VWAPDistancePct: d.VWAPDistancePct,
		SLBufferPct:     d.SLBufferPct,
		SLPolicy:        string(d.StopPolicy),
		SwingLookback:   d.SwingLookback,
		RiskReward:      d.RiskReward,
		SessionStart:    strategy.FormatClock(d.SessionStart),
		SessionEnd:      strategy.FormatClock(d.SessionEnd),
		Timezone:        "Asia/Kolkata",
		Workers:         intFromEnv("STRATEGY_WORKERS", 4),
	}
	cfg.Service.Addr = ":8080"
	cfg.Tracing.Host = "localhost"
	cfg.Tracing.Port = "6831"
	cfg.LogLevel = "info"
	return cfg
}

func NewConfig() (*Config, error) {
	// .env необязателен
	_ = godotenv.Load()

	configFileName := os.Getenv(configFilePathENV)
	if configFileName == "" {
		configFileName = "values_local.yaml"
	}
	return Load(filepath.Join("configs", configFileName))
}

// Load читает yaml, накладывает env и валидирует.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config file: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	config := defaults()
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, fmt.Errorf("decode config file %s: %w", path, err)
	}

	config.applyEnv()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &config, nil
}

func (c *Config) applyEnv() {
	c.Telegram.Token = getenvDefault(tokenTelegramENV, c.Telegram.Token)
	c.DB = getenvDefault(databaseDSN, c.DB)
	c.Feed.AccessToken = getenvDefault(upstoxTokenENV, c.Feed.AccessToken)
	c.Redis.Addr = getenvDefault(redisAddrENV, c.Redis.Addr)
	c.LogLevel = getenvDefault(logLevelENV, c.LogLevel)
	c.Feed.Interval = durationFromEnv("FEED_INTERVAL", c.Feed.Interval)
	c.Tracing.Enabled = boolFromEnv("TRACING_ENABLED", c.Tracing.Enabled)

	if v := os.Getenv(symbolsENV); v != "" {
		c.Symbols = splitList(v)
	}
	if ids := int64ListFromEnv(chatIDsENV); ids != nil {
		c.Telegram.ChatIDs = ids
	}
	if ids := int64ListFromEnv(authorizedENV); ids != nil {
		c.Telegram.AuthorizedUsers = ids
	}
}

func (c *Config) Validate() error {
	if len(c.Symbols) == 0 {
		return fmt.Errorf("symbols list is empty")
	}
	if c.DB == "" {
		return fmt.Errorf("db_dsn is required")
	}
	if c.Feed.Interval <= 0 {
		return fmt.Errorf("feed.interval must be > 0, got %s", c.Feed.Interval)
	}
	if c.Strategy.Workers <= 0 {
		return fmt.Errorf("strategy.workers must be > 0, got %d", c.Strategy.Workers)
	}
	if _, err := c.StrategyParams(); err != nil {
		return err
	}
	return nil
}

// StrategyParams собирает неизменяемые параметры движка из секции strategy.
func (c *Config) StrategyParams() (strategy.Params, error) {
	s := c.Strategy

	policy, err := strategy.ParseStopPolicy(s.SLPolicy)
	if err != nil {
		return strategy.Params{}, err
	}
	start, err := strategy.ParseClock(s.SessionStart)
	if err != nil {
		return strategy.Params{}, fmt.Errorf("strategy.session_start: %w", err)
	}
	end, err := strategy.ParseClock(s.SessionEnd)
	if err != nil {
		return strategy.Params{}, fmt.Errorf("strategy.session_end: %w", err)
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return strategy.Params{}, fmt.Errorf("strategy.timezone: %w", err)
	}

	p := strategy.Params{
		EMAPeriod:       s.EMAPeriod,
		VolWindow:       s.VolWindow,
		VolMultiplier:   s.VolMultiplier,
		VWAPDistancePct: s.VWAPDistancePct,
		SLBufferPct:     s.SLBufferPct,
		RiskReward:      s.RiskReward,
		StopPolicy:      policy,
		SwingLookback:   s.SwingLookback,
		SessionStart:    start,
		SessionEnd:      end,
		Location:        loc,
		MinCandles:      s.MinCandles,
	}
	if err := p.Validate(); err != nil {
		return strategy.Params{}, err
	}
	return p, nil
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// int64ListFromEnv: "1,2, 3" -> [1 2 3]; мусорные элементы пропускаем.
func int64ListFromEnv(key string) []int64 {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []int64
	for _, s := range splitList(v) {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			out = append(out, n)
		}
	}
	return out
}

func intFromEnv(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func boolFromEnv(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if v == "1" || v == "true" || v == "TRUE" {
			return true
		}
		if v == "0" || v == "false" || v == "FALSE" {
			return false
		}
	}
	return def
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func durationFromEnv(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
