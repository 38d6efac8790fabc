package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"roe-outage-bot/internal/domain"
	"roe-outage-bot/internal/usecase/schedule"
	"roe-outage-bot/internal/usecase/subscription"
)

// ScheduleSource даёт доступ к свежему и последнему снимку графика.
type ScheduleSource interface {
	Refresh(ctx context.Context) (domain.Snapshot, error)
	Latest() (domain.Snapshot, bool)
	Now() time.Time
}

// CallbackAnswerer подтверждает нажатия inline-кнопок.
type CallbackAnswerer interface {
	AnswerCallback(ctx context.Context, callbackID, text string) error
}

// Handler обрабатывает команды и кнопки бота.
type Handler struct {
	log       zerolog.Logger
	notifier  domain.Notifier
	answerer  CallbackAnswerer
	subs      *subscription.Service
	source    ScheduleSource
	sourceURL string
}

// NewHandler создаёт обработчик.
func NewHandler(log zerolog.Logger, notifier domain.Notifier, answerer CallbackAnswerer, subs *subscription.Service, source ScheduleSource, sourceURL string) *Handler {
	return &Handler{
		log:       log,
		notifier:  notifier,
		answerer:  answerer,
		subs:      subs,
		source:    source,
		sourceURL: sourceURL,
	}
}

// HandleUpdate обрабатывает входящий апдейт.
func (h *Handler) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.Message != nil {
		h.handleMessage(ctx, upd.Message)
	} else if upd.CallbackQuery != nil {
		h.handleCallback(ctx, upd.CallbackQuery)
	}
}

func (h *Handler) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.Chat == nil {
		return
	}
	chatID := msg.Chat.ID
	switch command(msg.Text) {
	case "/start":
		h.handleStart(ctx, chatID)
	case "/help":
		h.reply(ctx, chatID, helpMessage, nil)
	case "/status":
		h.handleStatus(ctx, chatID)
	case "/lead":
		h.handleLeadMenu(ctx, chatID)
	case "/stop":
		h.handleStop(ctx, chatID)
	case "/test_off":
		h.handleTestReminder(ctx, chatID, domain.TransitionOff)
	case "/test_on":
		h.handleTestReminder(ctx, chatID, domain.TransitionOn)
	case "/test_update":
		h.handleTestUpdate(ctx, chatID)
	default:
		h.reply(ctx, chatID, "Невідома команда. Скористайтесь /help", nil)
	}
}

// command возвращает команду без аргументов и суффикса @botname.
func command(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}
	cmd, _, _ := strings.Cut(fields[0], "@")
	return strings.ToLower(cmd)
}

func (h *Handler) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	answer := ""
	if cb.Message != nil && cb.Message.Chat != nil {
		chatID := cb.Message.Chat.ID
		data := cb.Data
		switch {
		case strings.HasPrefix(data, subscription.CallbackSelectPrefix):
			h.handleSelect(ctx, chatID, strings.TrimPrefix(data, subscription.CallbackSelectPrefix))
		case data == subscription.CallbackChange:
			h.reply(ctx, chatID, "Ок, обери нову підчергу 👇", subscription.ChooseActions(h.subs.Entities()))
		case data == subscription.CallbackStop:
			h.handleStop(ctx, chatID)
			answer = "Сповіщення вимкнено"
		case data == subscription.CallbackLeadMenu:
			h.handleLeadMenu(ctx, chatID)
		case strings.HasPrefix(data, subscription.CallbackLeadPrefix):
			minutes, ok := subscription.ParseLeadCallback(data)
			if !ok {
				h.reply(ctx, chatID, "⚠️ Не вдалося розпізнати час нагадування", nil)
				break
			}
			h.handleSetLead(ctx, chatID, minutes)
		}
	}
	if err := h.answerer.AnswerCallback(ctx, cb.ID, answer); err != nil {
		h.log.Error().Err(err).Msg("не удалось ответить на callback")
	}
}

func (h *Handler) handleStart(ctx context.Context, chatID int64) {
	text := "Оберіть вашу підчергу.\n" +
		"Де дізнатись підчергу:\n" +
		h.sourceURL + "\n\n" +
		"👇 Натисни кнопку:"
	h.reply(ctx, chatID, text, subscription.ChooseActions(h.subs.Entities()))
}

func (h *Handler) handleSelect(ctx context.Context, chatID int64, entity string) {
	if _, err := h.subs.Select(ctx, chatID, entity); err != nil {
		if errors.Is(err, subscription.ErrUnknownEntity) {
			h.reply(ctx, chatID, "⚠️ Невідома підчерга. Оберіть зі списку 👇", subscription.ChooseActions(h.subs.Entities()))
			return
		}
		h.log.Error().Err(err).Int64("chat", chatID).Str("entity", entity).Msg("не удалось сохранить подписку")
	}

	now := h.source.Now()
	snap, err := h.source.Refresh(ctx)
	if err == nil {
		h.subs.Prime(chatID, snap)
		body := schedule.FormatSchedule(entity, snap.For(entity), snap.UpdateMarker, now)
		h.reply(ctx, chatID, schedule.FormatSelected(entity, body), subscription.ManageActions())
		return
	}

	h.log.Warn().Err(err).Int64("chat", chatID).Msg("не удалось получить график при выборе подочереди")
	if last, ok := h.source.Latest(); ok {
		h.subs.Prime(chatID, last)
		body := schedule.FormatSchedule(entity, last.For(entity), last.UpdateMarker, now) +
			"\n\n⚠️ Не зміг зараз оновити графік із сайту, показую останній відомий."
		h.reply(ctx, chatID, schedule.FormatSelected(entity, body), subscription.ManageActions())
		return
	}
	text := fmt.Sprintf("✅ Ви обрали підчергу %s\n\n⚠️ Не зміг зараз отримати графік із сайту. Спробуй ще раз через хвилину.", entity)
	h.reply(ctx, chatID, text, subscription.ManageActions())
}

func (h *Handler) handleStop(ctx context.Context, chatID int64) {
	if _, err := h.subs.Unsubscribe(ctx, chatID); err != nil {
		h.log.Error().Err(err).Int64("chat", chatID).Msg("не удалось удалить подписку")
	}
	h.reply(ctx, chatID, "Сповіщення вимкнув ✅\nЩоб знову увімкнути — натисни /start", nil)
}

func (h *Handler) handleLeadMenu(ctx context.Context, chatID int64) {
	entry, ok := h.subs.Get(chatID)
	if !ok {
		h.reply(ctx, chatID, notSubscribedMessage, nil)
		return
	}
	text := fmt.Sprintf("За скільки хвилин попереджати? Зараз: %d хв", entry.LeadMinutes)
	h.reply(ctx, chatID, text, subscription.LeadActions(h.subs.LeadTimes(), entry.LeadMinutes))
}

func (h *Handler) handleSetLead(ctx context.Context, chatID int64, minutes int) {
	err := h.subs.SetLeadTime(ctx, chatID, minutes)
	switch {
	case errors.Is(err, subscription.ErrNotSubscribed):
		h.reply(ctx, chatID, notSubscribedMessage, nil)
	case errors.Is(err, subscription.ErrLeadTimeNotAllowed):
		h.reply(ctx, chatID, "⚠️ Такий час нагадування недоступний", subscription.LeadActions(h.subs.LeadTimes(), 0))
	default:
		if err != nil {
			h.log.Error().Err(err).Int64("chat", chatID).Int("lead", minutes).Msg("не удалось сохранить время напоминания")
		}
		h.reply(ctx, chatID, fmt.Sprintf("✅ Нагадуватиму за %d хв до зміни стану", minutes), subscription.ManageActions())
	}
}

func (h *Handler) handleStatus(ctx context.Context, chatID int64) {
	entry, ok := h.subs.Get(chatID)
	if !ok {
		h.reply(ctx, chatID, notSubscribedMessage, nil)
		return
	}
	now := h.source.Now()
	days := entry.Schedule
	marker := ""
	if snap, ok := h.source.Latest(); ok {
		marker = snap.UpdateMarker
		if days == nil {
			days = snap.For(entry.Entity)
		}
	}
	tr, found := schedule.Project(days, now)
	text := schedule.FormatSchedule(entry.Entity, days, marker, now) +
		"\n\n" + schedule.FormatNext(tr, found, now) +
		"\n" + fmt.Sprintf("⏰ Нагадування за %d хв", entry.LeadMinutes)
	h.reply(ctx, chatID, text, subscription.ManageActions())
}

func (h *Handler) handleTestReminder(ctx context.Context, chatID int64, kind domain.TransitionKind) {
	entry, ok := h.subs.Get(chatID)
	if !ok {
		h.reply(ctx, chatID, notSubscribedMessage, nil)
		return
	}
	at := h.source.Now().Add(time.Duration(entry.LeadMinutes) * time.Minute)
	h.reply(ctx, chatID, schedule.FormatReminder(kind, entry.LeadMinutes, at), subscription.ManageActions())
}

func (h *Handler) handleTestUpdate(ctx context.Context, chatID int64) {
	entry, ok := h.subs.Get(chatID)
	if !ok {
		h.reply(ctx, chatID, notSubscribedMessage, nil)
		return
	}
	now := h.source.Now()
	demo := domain.DaySchedule{domain.DateOf(now): demoRanges()}
	marker := "Оновлено: " + now.Format("02.01.2006 15:04")
	body := schedule.FormatSchedule(entry.Entity, demo, marker, now)
	h.reply(ctx, chatID, schedule.FormatChange(entry.Entity, body), subscription.ManageActions())
}

func demoRanges() []domain.TimeRange {
	var out []domain.TimeRange
	for _, raw := range []string{"06:00-13:00", "15:00-21:00", "23:00-23:59"} {
		if r, err := domain.ParseTimeRange(raw); err == nil {
			out = append(out, r)
		}
	}
	return out
}

func (h *Handler) reply(ctx context.Context, chatID int64, text string, actions [][]domain.Action) {
	if err := h.notifier.Notify(ctx, chatID, domain.Notification{Text: text, Actions: actions}); err != nil {
		h.log.Error().Err(err).Str("chat", strconv.FormatInt(chatID, 10)).Msg("не удалось отправить сообщение")
	}
}

const notSubscribedMessage = "⚠️ Спочатку обери підчергу через /start"

const helpMessage = "Команди:\n" +
	"/start — обрати підчергу\n" +
	"/status — графік і найближча зміна стану\n" +
	"/lead — за скільки хвилин нагадувати\n" +
	"/stop — вимкнути сповіщення\n" +
	"/test_off, /test_on — приклад нагадування\n" +
	"/test_update — приклад повідомлення про новий графік"
