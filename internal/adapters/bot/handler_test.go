package bot

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"roe-outage-bot/internal/domain"
	"roe-outage-bot/internal/usecase/subscription"
)

type sentMessage struct {
	chatID int64
	n      domain.Notification
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (f *fakeNotifier) Notify(_ context.Context, chatID int64, n domain.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{chatID: chatID, n: n})
	return nil
}

func (f *fakeNotifier) last(t *testing.T) sentMessage {
	t.Helper()
	if len(f.sent) == 0 {
		t.Fatal("сообщений не отправлено")
	}
	return f.sent[len(f.sent)-1]
}

type fakeAnswerer struct {
	answers []string
}

func (f *fakeAnswerer) AnswerCallback(_ context.Context, _ string, text string) error {
	f.answers = append(f.answers, text)
	return nil
}

type fakeSource struct {
	snap     domain.Snapshot
	hasLast  bool
	err      error
	now      time.Time
	refreshs int
}

func (s *fakeSource) Refresh(context.Context) (domain.Snapshot, error) {
	s.refreshs++
	if s.err != nil {
		return domain.Snapshot{}, s.err
	}
	return s.snap, nil
}

func (s *fakeSource) Latest() (domain.Snapshot, bool) { return s.snap, s.hasLast }
func (s *fakeSource) Now() time.Time                  { return s.now }

type nopRepo struct{}

func (nopRepo) ListSubscribers(context.Context) ([]domain.Subscriber, error) { return nil, nil }
func (nopRepo) UpsertSubscriber(context.Context, domain.Subscriber) error    { return nil }
func (nopRepo) DeleteSubscriber(context.Context, int64) error                { return nil }

var zone = time.FixedZone("EET", 3*60*60)

type fixture struct {
	h        *Handler
	notifier *fakeNotifier
	answerer *fakeAnswerer
	source   *fakeSource
	subs     *subscription.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	d, _ := domain.ParseDate("10.05.2024")
	r1, _ := domain.ParseTimeRange("06:00-10:00")
	r2, _ := domain.ParseTimeRange("18:00-20:00")
	source := &fakeSource{
		snap: domain.Snapshot{
			Schedules:    domain.EntitySchedule{"1.1": {d: {r1, r2}}},
			TableFound:   true,
			UpdateMarker: "Оновлено: 10.05.2024 08:15",
		},
		now: time.Date(2024, 5, 10, 12, 0, 0, 0, zone),
	}
	subs := subscription.NewService(subscription.NewRegistry(), nopRepo{}, []string{"1.1", "1.2"}, []int{5, 10, 30}, 10, zerolog.Nop())
	notifier := &fakeNotifier{}
	answerer := &fakeAnswerer{}
	h := NewHandler(zerolog.Nop(), notifier, answerer, subs, source, "https://www.roe.vsei.ua/disconnections/")
	return &fixture{h: h, notifier: notifier, answerer: answerer, source: source, subs: subs}
}

func message(chatID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{Text: text, Chat: &tgbotapi.Chat{ID: chatID}}}
}

func callback(chatID int64, data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb",
		Data:    data,
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: chatID}},
	}}
}

func TestCommand(t *testing.T) {
	tests := map[string]string{
		"/start":            "/start",
		" /Status@roe_bot ": "/status",
		"/lead 10":          "/lead",
		"":                  "",
	}
	for in, want := range tests {
		if got := command(in); got != want {
			t.Fatalf("command(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestStartShowsSubqueueKeyboard(t *testing.T) {
	f := newFixture(t)
	f.h.HandleUpdate(context.Background(), message(1, "/start"))
	msg := f.notifier.last(t)
	if !strings.HasPrefix(msg.n.Text, "Оберіть вашу підчергу.") {
		t.Fatalf("неожиданный текст: %q", msg.n.Text)
	}
	if len(msg.n.Actions) != 1 || msg.n.Actions[0][1].Data != "sq:1.2" {
		t.Fatalf("неожиданная клавиатура: %+v", msg.n.Actions)
	}
}

func TestSelectSubscribesAndPrimes(t *testing.T) {
	f := newFixture(t)
	f.h.HandleUpdate(context.Background(), callback(1, "sq:1.1"))

	msg := f.notifier.last(t)
	if !strings.HasPrefix(msg.n.Text, "✅ Ви обрали підчергу 1.1\n\n") || !strings.Contains(msg.n.Text, "• 18:00–20:00") {
		t.Fatalf("неожиданный текст: %q", msg.n.Text)
	}
	if msg.n.Actions[0][0].Data != subscription.CallbackChange {
		t.Fatalf("ожидали клавиатуру управления: %+v", msg.n.Actions)
	}
	e, ok := f.subs.Get(1)
	if !ok || !e.Observed || e.Entity != "1.1" {
		t.Fatalf("подписка не создана или не подготовлена: %+v", e)
	}
	if len(f.answerer.answers) != 1 {
		t.Fatal("callback должен быть подтверждён")
	}
}

func TestSelectFetchFailureWithoutSnapshot(t *testing.T) {
	f := newFixture(t)
	f.source.err = errors.New("timeout")
	f.h.HandleUpdate(context.Background(), callback(1, "sq:1.2"))
	msg := f.notifier.last(t)
	if !strings.Contains(msg.n.Text, "Не зміг зараз отримати графік") {
		t.Fatalf("неожиданный текст: %q", msg.n.Text)
	}
	if e, ok := f.subs.Get(1); !ok || e.Observed {
		t.Fatalf("подписка должна быть без отпечатка: %+v", e)
	}
}

func TestSelectFetchFailureUsesLastSnapshot(t *testing.T) {
	f := newFixture(t)
	f.source.err = errors.New("timeout")
	f.source.hasLast = true
	f.h.HandleUpdate(context.Background(), callback(1, "sq:1.1"))
	msg := f.notifier.last(t)
	if !strings.Contains(msg.n.Text, "06:00–10:00") || !strings.Contains(msg.n.Text, "останній відомий") {
		t.Fatalf("неожиданный текст: %q", msg.n.Text)
	}
}

func TestSelectUnknownEntity(t *testing.T) {
	f := newFixture(t)
	f.h.HandleUpdate(context.Background(), callback(1, "sq:9.9"))
	if f.subs.Count() != 0 {
		t.Fatal("неизвестная подочередь не должна подписывать")
	}
	if f.source.refreshs != 0 {
		t.Fatal("для неизвестной подочереди загрузка не нужна")
	}
}

func TestStopRemovesSubscription(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.h.HandleUpdate(ctx, callback(1, "sq:1.1"))
	f.h.HandleUpdate(ctx, callback(1, "stop"))
	if _, ok := f.subs.Get(1); ok {
		t.Fatal("подписка должна быть удалена")
	}
	if got := f.answerer.answers[len(f.answerer.answers)-1]; got != "Сповіщення вимкнено" {
		t.Fatalf("неожиданный ответ callback: %q", got)
	}
	if !strings.HasPrefix(f.notifier.last(t).n.Text, "Сповіщення вимкнув ✅") {
		t.Fatalf("неожиданный текст: %q", f.notifier.last(t).n.Text)
	}
}

func TestLeadFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.h.HandleUpdate(ctx, message(1, "/lead"))
	if f.notifier.last(t).n.Text != notSubscribedMessage {
		t.Fatalf("без подписки ожидали подсказку, получили %q", f.notifier.last(t).n.Text)
	}

	f.h.HandleUpdate(ctx, callback(1, "sq:1.1"))
	f.h.HandleUpdate(ctx, callback(1, "lead_menu"))
	menu := f.notifier.last(t)
	if len(menu.n.Actions) != 1 || len(menu.n.Actions[0]) != 3 || menu.n.Actions[0][1].Label != "✅ 10 хв" {
		t.Fatalf("неожиданное меню: %+v", menu.n.Actions)
	}

	f.h.HandleUpdate(ctx, callback(1, "lead:30"))
	if e, _ := f.subs.Get(1); e.LeadMinutes != 30 {
		t.Fatalf("время напоминания не изменилось: %d", e.LeadMinutes)
	}
	f.h.HandleUpdate(ctx, callback(1, "lead:7"))
	if e, _ := f.subs.Get(1); e.LeadMinutes != 30 {
		t.Fatalf("недопустимое значение не должно применяться: %d", e.LeadMinutes)
	}
}

func TestStatusShowsNextTransition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.h.HandleUpdate(ctx, callback(1, "sq:1.1"))
	f.h.HandleUpdate(ctx, message(1, "/status"))
	text := f.notifier.last(t).n.Text
	if !strings.Contains(text, "💡 Наступне відключення о 18:00") || !strings.Contains(text, "⏰ Нагадування за 10 хв") {
		t.Fatalf("неожиданный статус: %q", text)
	}
}

func TestTestCommands(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.h.HandleUpdate(ctx, message(1, "/test_off"))
	if f.notifier.last(t).n.Text != notSubscribedMessage {
		t.Fatal("без подписки тестовые команды недоступны")
	}
	f.h.HandleUpdate(ctx, callback(1, "sq:1.1"))

	f.h.HandleUpdate(ctx, message(1, "/test_off"))
	if got := f.notifier.last(t).n.Text; got != "⏰ За 10 хв можливе відключення світла (12:10)" {
		t.Fatalf("test_off: %q", got)
	}
	f.h.HandleUpdate(ctx, message(1, "/test_on"))
	if got := f.notifier.last(t).n.Text; !strings.Contains(got, "відновлення") {
		t.Fatalf("test_on: %q", got)
	}
	f.h.HandleUpdate(ctx, message(1, "/test_update"))
	got := f.notifier.last(t).n.Text
	if !strings.HasPrefix(got, "🔄 Оновився графік по підчерзі 1.1") || !strings.Contains(got, "23:00–23:59") {
		t.Fatalf("test_update: %q", got)
	}
}

func TestUnknownCommand(t *testing.T) {
	f := newFixture(t)
	f.h.HandleUpdate(context.Background(), message(5, "/digest"))
	if !strings.Contains(f.notifier.last(t).n.Text, "/help") {
		t.Fatalf("неожиданный ответ: %q", f.notifier.last(t).n.Text)
	}
}
