package telegram

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"roe-outage-bot/internal/domain"
	"roe-outage-bot/internal/infra/metrics"
)

const apiTarget = "api.telegram.org"

// API — часть tgbotapi.BotAPI, нужная для отправки.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Sender отправляет уведомления через Bot API с общим ограничением частоты.
type Sender struct {
	api     API
	limiter *rate.Limiter
	log     zerolog.Logger
}

var _ domain.Notifier = (*Sender)(nil)

// NewSender создаёт отправителя. rps ограничивает число сообщений в секунду.
func NewSender(api API, rps int, log zerolog.Logger) *Sender {
	if rps <= 0 {
		rps = 25
	}
	return &Sender{api: api, limiter: rate.NewLimiter(rate.Limit(rps), rps), log: log}
}

// Notify отправляет сообщение, разбивая длинный текст. Клавиатура крепится к последней части.
func (s *Sender) Notify(ctx context.Context, chatID int64, n domain.Notification) error {
	parts := SplitMessage(n.Text, MessageLimit)
	for i, part := range parts {
		if err := s.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("ожидание лимита отправки: %w", err)
		}
		msg := tgbotapi.NewMessage(chatID, part)
		msg.DisableWebPagePreview = true
		if i == len(parts)-1 && len(n.Actions) > 0 {
			msg.ReplyMarkup = Keyboard(n.Actions)
		}
		start := time.Now()
		_, err := s.api.Send(msg)
		metrics.ObserveNetworkRequest("telegram_bot", "send_message", apiTarget, start, err)
		if err != nil {
			return fmt.Errorf("отправка сообщения в чат %d: %w", chatID, err)
		}
	}
	return nil
}

// AnswerCallback подтверждает нажатие кнопки, text показывается всплывающей подсказкой.
func (s *Sender) AnswerCallback(ctx context.Context, callbackID, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	_, err := s.api.Request(tgbotapi.NewCallback(callbackID, text))
	metrics.ObserveNetworkRequest("telegram_bot", "answer_callback", apiTarget, start, err)
	return err
}

// Keyboard строит inline-клавиатуру из действий.
func Keyboard(actions [][]domain.Action) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(actions))
	for _, row := range actions {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, a := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(a.Label, a.Data))
		}
		rows = append(rows, buttons)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
