package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/arden-atelier/orderdesk/internal/orders"
	"github.com/sethvargo/go-retry"
)

const DefaultAPIBaseURL = "https://api.telegram.org"

var ErrNotConfigured = errors.New("telegram is not configured: token and at least one chat id are required")

type TelegramConfig struct {
	Token   string
	ChatIDs []string
	BaseURL string
	Timeout time.Duration
	// Retries is the number of extra attempts after a 429 or 5xx reply.
	Retries   int
	RetryBase time.Duration
}

type Telegram struct {
	cfg    TelegramConfig
	client *http.Client
	logger *slog.Logger
}

func NewTelegram(cfg TelegramConfig, logger *slog.Logger) *Telegram {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultAPIBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 500 * time.Millisecond
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Telegram{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

func (t *Telegram) Configured() bool {
	return strings.TrimSpace(t.cfg.Token) != "" && len(t.cfg.ChatIDs) > 0
}

type Delivery struct {
	ChatID  string `json:"chatId"`
	Photo   bool   `json:"photo"`
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
	Message int    `json:"message"`
}

type SendReport struct {
	Reminders  int        `json:"reminders"`
	Messages   int        `json:"messages"`
	Sent       int        `json:"sent"`
	Failed     int        `json:"failed"`
	Deliveries []Delivery `json:"deliveries"`
}

// SendReminders delivers the digest to every chat. A failed chat is logged and
// recorded; it never stops the remaining deliveries.
func (t *Telegram) SendReminders(ctx context.Context, reminders []orders.Reminder, now time.Time) (SendReport, error) {
	if !t.Configured() {
		return SendReport{}, ErrNotConfigured
	}

	messages := BuildMessages(reminders, now)
	report := SendReport{Reminders: len(reminders), Messages: len(messages), Deliveries: []Delivery{}}
	for i, msg := range messages {
		for _, chatID := range t.cfg.ChatIDs {
			d := Delivery{ChatID: chatID, Photo: msg.PhotoURL != "", Message: i}
			if err := t.send(ctx, chatID, msg); err != nil {
				d.Error = err.Error()
				report.Failed++
				t.logger.Warn("telegram_send_failed", "chat_id", chatID, "message", i, "error", err)
			} else {
				d.OK = true
				report.Sent++
				t.logger.Info("telegram_sent", "chat_id", chatID, "message", i, "photo", d.Photo)
			}
			report.Deliveries = append(report.Deliveries, d)
		}
	}
	return report, nil
}

type apiReply struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

func (t *Telegram) send(ctx context.Context, chatID string, msg Message) error {
	method := "sendMessage"
	payload := map[string]any{"chat_id": chatID, "parse_mode": "HTML"}
	if msg.PhotoURL != "" {
		method = "sendPhoto"
		payload["photo"] = msg.PhotoURL
		payload["caption"] = msg.Text
	} else {
		payload["text"] = msg.Text
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", method, err)
	}
	endpoint := fmt.Sprintf("%s/bot%s/%s", strings.TrimRight(t.cfg.BaseURL, "/"), t.cfg.Token, method)

	backoff := retry.WithMaxRetries(uint64(t.cfg.Retries), retry.NewExponential(t.cfg.RetryBase))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := t.client.Do(req)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("%s: %w", method, redact(err, t.cfg.Token)))
		}
		defer resp.Body.Close()

		var reply apiReply
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		_ = json.Unmarshal(raw, &reply)

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return retry.RetryableError(fmt.Errorf("%s: status %d: %s", method, resp.StatusCode, reply.Description))
		}
		if resp.StatusCode != http.StatusOK || !reply.OK {
			return fmt.Errorf("%s: status %d: %s", method, resp.StatusCode, reply.Description)
		}
		return nil
	})
}

// redact keeps the bot token out of logged transport errors, which embed the
// request URL.
func redact(err error, token string) error {
	if token == "" {
		return err
	}
	return errors.New(strings.ReplaceAll(err.Error(), token, "***"))
}
