package service

import (
	"context"
	"slices"
	"strconv"
	"strings"
	"time"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"signal_bot/pkg/logger"
)

const (
	defaultHistory = 10
	maxHistory     = 50
	closeTimeout   = 5 * time.Second
)

// authorized: пустой список никого не пускает.
func (t *Telegram) authorized(userID int64) bool {
	return slices.Contains(t.cfg.AuthorizedUsers, userID)
}

func (t *Telegram) handleUpdate(ctx context.Context, update tgbot.Update) {
	msg := update.Message
	if msg == nil || msg.Chat == nil || !msg.IsCommand() {
		return
	}
	chatID := msg.Chat.ID

	if msg.From == nil || !t.authorized(msg.From.ID) {
		var uid int64
		if msg.From != nil {
			uid = msg.From.ID
		}
		logger.Warn("[TG] unauthorized command /%s from %d", msg.Command(), uid)
		t.reply(chatID, "⛔️ Нет доступа")
		return
	}

	args := strings.TrimSpace(msg.CommandArguments())
	switch msg.Command() {
	case "start", "help":
		t.reply(chatID, helpText)
	case "status":
		t.handleStatus(chatID)
	case "positions":
		t.reply(chatID, formatPositions(t.engine.OpenPositions(), t.cfg.TickSize))
	case "levels":
		t.handleLevels(chatID, args)
	case "history":
		t.handleHistory(ctx, chatID, args)
	case "close":
		t.handleClose(ctx, chatID, args)
	default:
		t.reply(chatID, "Неизвестная команда, см. /help")
	}
}

func (t *Telegram) handleStatus(chatID int64) {
	t.reply(chatID, formatStatus(
		t.engine.Snapshots(),
		t.engine.OpenPositions(),
		t.engine.CandlesProcessed(),
		t.engine.Params(),
	))
}

func (t *Telegram) handleLevels(chatID int64, arg string) {
	if arg == "" {
		t.reply(chatID, "Формат: `/levels <symbol>`")
		return
	}
	symbol, ok := t.resolveSymbol(arg)
	if !ok {
		t.reply(chatID, "❓ Инструмент `"+arg+"` не найден")
		return
	}
	snap, err := t.engine.Snapshot(symbol)
	if err != nil {
		t.reply(chatID, "❗️ "+err.Error())
		return
	}
	t.reply(chatID, formatLevels(snap, t.cfg.TickSize))
}

func (t *Telegram) handleHistory(ctx context.Context, chatID int64, arg string) {
	if t.history == nil {
		t.reply(chatID, "📭 Журнал недоступен")
		return
	}
	n := defaultHistory
	if arg != "" {
		v, err := strconv.Atoi(arg)
		if err != nil || v <= 0 {
			t.reply(chatID, "Формат: `/history [n]`")
			return
		}
		n = min(v, maxHistory)
	}

	evs, err := t.history.LastEvents(ctx, "", n)
	if err != nil {
		logger.Error("[TG] history: %v", err)
		t.reply(chatID, "❗️ Не удалось загрузить историю")
		return
	}
	t.reply(chatID, formatHistory(evs, t.cfg.TickSize))
}

func (t *Telegram) handleClose(ctx context.Context, chatID int64, arg string) {
	if arg == "" {
		t.reply(chatID, "Формат: `/close <symbol>`")
		return
	}
	symbol, ok := t.resolveSymbol(arg)
	if !ok {
		t.reply(chatID, "❓ Инструмент `"+arg+"` не найден")
		return
	}

	ctx, cancel := context.WithTimeout(ctx, closeTimeout)
	defer cancel()
	ev, err := t.closer.ForceExit(ctx, symbol, time.Now())
	switch {
	case err != nil:
		t.reply(chatID, "❗️ "+err.Error())
	case ev == nil:
		t.reply(chatID, "📭 По `"+shortSymbol(symbol)+"` позиции нет")
	default:
		// EXIT уйдёт алертом через диспетчер, здесь только подтверждение
		t.reply(chatID, "🛑 Позиция `"+shortSymbol(symbol)+"` закрыта по `"+price(ev.Price, t.cfg.TickSize)+"`")
	}
}

// resolveSymbol принимает полный ключ или только ISIN/тикер после "|".
func (t *Telegram) resolveSymbol(arg string) (string, bool) {
	arg = strings.ToUpper(strings.TrimSpace(arg))
	for _, s := range t.engine.Snapshots() {
		if strings.ToUpper(s.Symbol) == arg || strings.ToUpper(shortSymbol(s.Symbol)) == arg {
			return s.Symbol, true
		}
	}
	return "", false
}
