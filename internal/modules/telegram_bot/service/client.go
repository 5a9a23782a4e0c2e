package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"signal_bot/internal/models"
	"signal_bot/internal/modules/config"
	strategy "signal_bot/internal/modules/strategy/service"
	"signal_bot/pkg/logger"
)

// sender — часть BotAPI, которой хватает для ответов и алертов.
type sender interface {
	Send(c tgbot.Chattable) (tgbot.Message, error)
}

// EngineView — то, что бот читает из движка для команд.
type EngineView interface {
	Snapshots() []strategy.Snapshot
	Snapshot(symbol string) (strategy.Snapshot, error)
	OpenPositions() []models.Position
	CandlesProcessed() int64
	Params() strategy.Params
}

// PositionCloser закрывает позицию вручную (/close).
type PositionCloser interface {
	ForceExit(ctx context.Context, symbol string, at time.Time) (*models.Event, error)
}

// EventHistory — журнал сигналов (/history).
type EventHistory interface {
	LastEvents(ctx context.Context, symbol string, n int) ([]models.Event, error)
}

// Telegram — канал алертов и командный интерфейс к движку.
type Telegram struct {
	bot     *tgbot.BotAPI
	send    sender
	cfg     config.Telegram
	engine  EngineView
	closer  PositionCloser
	history EventHistory

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewTelegram без токена возвращает выключенного бота: Deliver ничего не делает.
func NewTelegram(cfg *config.Config, engine EngineView, closer PositionCloser, history EventHistory) (*Telegram, error) {
	t := &Telegram{
		cfg:     cfg.Telegram,
		engine:  engine,
		closer:  closer,
		history: history,
	}
	if cfg.Telegram.Token == "" {
		logger.Warn("[TG] token is empty, telegram disabled")
		return t, nil
	}

	b, err := tgbot.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	t.bot = b
	t.send = b
	logger.Info("[TG] authorized as @%s, chats=%d", b.Self.UserName, len(cfg.Telegram.ChatIDs))
	return t, nil
}

func (t *Telegram) Enabled() bool { return t.send != nil }

func (t *Telegram) Name() string { return "telegram" }

// Deliver рассылает алерт во все чаты. Ошибка, только если не дошло никуда.
func (t *Telegram) Deliver(_ context.Context, ev models.Event) error {
	if !t.Enabled() || len(t.cfg.ChatIDs) == 0 {
		return nil
	}

	text := FormatEvent(ev, t.cfg.TickSize)
	var lastErr error
	sent := 0
	for _, chatID := range t.cfg.ChatIDs {
		if _, err := t.sendMarkdown(chatID, text); err != nil {
			logger.Warn("[TG] send to %d failed: %v", chatID, err)
			lastErr = err
			continue
		}
		sent++
	}
	if sent == 0 {
		return fmt.Errorf("telegram: no chat received %s %s: %w", ev.Kind, ev.Symbol, lastErr)
	}
	return nil
}

func (t *Telegram) sendMarkdown(chatID int64, text string) (tgbot.Message, error) {
	msg := tgbot.NewMessage(chatID, text)
	msg.ParseMode = tgbot.ModeMarkdown
	return t.send.Send(msg)
}

func (t *Telegram) reply(chatID int64, text string) {
	if _, err := t.sendMarkdown(chatID, text); err != nil {
		logger.Warn("[TG] reply to %d failed: %v", chatID, err)
	}
}

// Start запускает цикл обработки команд в фоне.
func (t *Telegram) Start() {
	if t.bot == nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	t.mu.Lock()
	t.cancel, t.done = cancel, done
	t.mu.Unlock()

	u := tgbot.NewUpdate(0)
	u.Timeout = 30
	updates := t.bot.GetUpdatesChan(u)

	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				t.handleUpdate(ctx, update)
			}
		}
	}()
}

func (t *Telegram) Stop() {
	t.mu.Lock()
	cancel, done := t.cancel, t.done
	t.mu.Unlock()
	if cancel == nil {
		return
	}

	t.bot.StopReceivingUpdates()
	cancel()
	<-done
}
