package telegram

import (
	"context"
	"errors"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"roe-outage-bot/internal/domain"
)

type fakeAPI struct {
	sent     []tgbotapi.MessageConfig
	requests []tgbotapi.Chattable
	err      error
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if f.err != nil {
		return tgbotapi.Message{}, f.err
	}
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, msg)
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, f.err
}

func TestNotifyAttachesKeyboardToLastPart(t *testing.T) {
	api := &fakeAPI{}
	s := NewSender(api, 1000, zerolog.Nop())
	text := strings.Repeat("a", 4000) + "\n\n" + strings.Repeat("b", 200)
	n := domain.Notification{Text: text, Actions: [][]domain.Action{{{Label: "❌", Data: "stop"}}}}

	if err := s.Notify(context.Background(), 77, n); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if len(api.sent) != 2 {
		t.Fatalf("ожидали 2 сообщения, получили %d", len(api.sent))
	}
	if api.sent[0].ReplyMarkup != nil {
		t.Fatal("клавиатура должна быть только у последней части")
	}
	kb, ok := api.sent[1].ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	if !ok || len(kb.InlineKeyboard) != 1 || *kb.InlineKeyboard[0][0].CallbackData != "stop" {
		t.Fatalf("неожиданная клавиатура: %#v", api.sent[1].ReplyMarkup)
	}
	if api.sent[0].ChatID != 77 {
		t.Fatalf("неверный чат: %d", api.sent[0].ChatID)
	}
}

func TestNotifyReturnsSendError(t *testing.T) {
	api := &fakeAPI{err: errors.New("Forbidden: bot was blocked by the user")}
	s := NewSender(api, 1000, zerolog.Nop())
	if err := s.Notify(context.Background(), 1, domain.Notification{Text: "hi"}); err == nil {
		t.Fatal("ожидали ошибку отправки")
	}
}

func TestNotifyCancelledContext(t *testing.T) {
	api := &fakeAPI{}
	s := NewSender(api, 1, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Notify(ctx, 1, domain.Notification{Text: "hi"}); err == nil {
		t.Fatal("ожидали ошибку для отменённого контекста")
	}
	if len(api.sent) != 0 {
		t.Fatal("сообщение не должно отправляться")
	}
}

func TestAnswerCallback(t *testing.T) {
	api := &fakeAPI{}
	s := NewSender(api, 10, zerolog.Nop())
	if err := s.AnswerCallback(context.Background(), "cb1", "ok"); err != nil {
		t.Fatalf("AnswerCallback: %v", err)
	}
	cfg, ok := api.requests[0].(tgbotapi.CallbackConfig)
	if !ok || cfg.CallbackQueryID != "cb1" || cfg.Text != "ok" {
		t.Fatalf("неожиданный запрос: %#v", api.requests[0])
	}
}
