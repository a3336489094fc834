package notifier

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"DivergenceSentinel/internal/logger"
	"DivergenceSentinel/internal/model"
)

// CommandHandler is called when a user command is received.
type CommandHandler func(command string) string

type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier sends alerts via the Telegram Bot API.
type TelegramNotifier struct {
	bot        botAPI
	api        *tgbotapi.BotAPI
	chatID     int64
	maxRetries int
	retryBase  time.Duration
}

// NewTelegramNotifier creates a notifier with optional proxy support.
func NewTelegramNotifier(botToken, chatID, proxyURL string, maxRetries int) (*TelegramNotifier, error) {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	client := &http.Client{Timeout: 75 * time.Second, Transport: transport}
	api, err := tgbotapi.NewBotAPIWithClient(botToken, tgbotapi.APIEndpoint, client)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &TelegramNotifier{bot: api, api: api, chatID: id, maxRetries: maxRetries, retryBase: time.Second}, nil
}

func (t *TelegramNotifier) Name() string { return "telegram" }

// Send sends an HTML message to the configured chat.
func (t *TelegramNotifier) Send(text string) error {
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// SendWithRetry sends a message with exponential backoff retry.
func (t *TelegramNotifier) SendWithRetry(ctx context.Context, text string, maxRetries int) error {
	var lastErr error
	for i := 0; i <= maxRetries; i++ {
		err := t.Send(text)
		if err == nil {
			return nil
		}
		lastErr = err
		if i == maxRetries {
			break
		}
		backoff := t.retryBase * time.Duration(1<<uint(i))
		logger.Warn("Telegram send failed (attempt %d/%d): %v, retrying in %v", i+1, maxRetries+1, err, backoff)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return fmt.Errorf("all %d attempts failed: %w", maxRetries+1, lastErr)
}

func (t *TelegramNotifier) Notify(ctx context.Context, ev model.AlertEvent) error {
	return t.SendWithRetry(ctx, FormatAlert(ev), t.maxRetries)
}

// Announce sends an operational notice that is not an alert.
func (t *TelegramNotifier) Announce(ctx context.Context, text string) error {
	return t.SendWithRetry(ctx, text, t.maxRetries)
}

// ListenForCommands polls for bot commands from the configured chat and
// replies with handler's output. It returns immediately; polling stops
// when ctx is cancelled.
func (t *TelegramNotifier) ListenForCommands(ctx context.Context, handler CommandHandler) {
	if t.api == nil {
		return
	}
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := t.api.GetUpdatesChan(u)

	go func() {
		for {
			select {
			case <-ctx.Done():
				t.api.StopReceivingUpdates()
				logger.Info("Telegram polling stopped")
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				t.handleUpdate(update, handler)
			}
		}
	}()
}

func (t *TelegramNotifier) handleUpdate(update tgbotapi.Update, handler CommandHandler) {
	msg := update.Message
	if msg == nil || !msg.IsCommand() || msg.Chat == nil || msg.Chat.ID != t.chatID {
		return
	}
	logger.Info("received command: /%s", msg.Command())
	reply := handler("/" + msg.Command())
	if reply == "" {
		return
	}
	if err := t.Send(reply); err != nil {
		logger.Error("send reply: %v", err)
	}
}
