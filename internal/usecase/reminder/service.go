package reminder

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"roe-outage-bot/internal/domain"
	"roe-outage-bot/internal/infra/metrics"
	"roe-outage-bot/internal/usecase/schedule"
	"roe-outage-bot/internal/usecase/subscription"
)

// Key формирует ключ дедупликации: дата|подочередь|тип|момент|минуты.
func Key(entity string, tr domain.Transition, leadMinutes int) string {
	return strings.Join([]string{
		domain.DateOf(tr.At).ISO(),
		entity,
		string(tr.Kind),
		tr.At.Format(time.RFC3339),
		strconv.Itoa(leadMinutes),
	}, "|")
}

// Decide решает, пора ли напоминать о ближайшем переходе.
// Напоминание положено, если notify_at <= now < notify_at+window, где notify_at = At - lead.
func Decide(entity string, leadMinutes int, days domain.DaySchedule, now time.Time, window time.Duration) (domain.Reminder, bool) {
	tr, ok := schedule.Project(days, now)
	if !ok {
		return domain.Reminder{}, false
	}
	notifyAt := tr.At.Add(-time.Duration(leadMinutes) * time.Minute)
	if now.Before(notifyAt) || !now.Before(notifyAt.Add(window)) {
		return domain.Reminder{}, false
	}
	return domain.Reminder{
		Entity:      entity,
		LeadMinutes: leadMinutes,
		Transition:  tr,
		Key:         Key(entity, tr, leadMinutes),
	}, true
}

// Config задаёт параметры напоминаний.
type Config struct {
	Window time.Duration
	KeyTTL time.Duration
}

// Service рассылает напоминания подписчикам.
type Service struct {
	registry *subscription.Registry
	latest   *schedule.Latest
	notifier domain.Notifier
	cache    domain.Cache
	cfg      Config
	log      zerolog.Logger
}

// NewService создаёт сервис. cache может быть nil.
func NewService(registry *subscription.Registry, latest *schedule.Latest, notifier domain.Notifier, cache domain.Cache, cfg Config, log zerolog.Logger) *Service {
	if cfg.KeyTTL <= 0 {
		cfg.KeyTTL = 48 * time.Hour
	}
	return &Service{registry: registry, latest: latest, notifier: notifier, cache: cache, cfg: cfg, log: log}
}

// Tick проверяет всех подписчиков и отправляет положенные напоминания.
// Решение принимается под блокировкой подписчика, отправка после её снятия.
// Возвращает число отправленных сообщений.
func (s *Service) Tick(ctx context.Context, now time.Time) int {
	type pending struct {
		sub *subscription.Subscription
		r   domain.Reminder
	}
	var due []pending
	for _, sub := range s.registry.All() {
		sub.Do(func(e *subscription.Entry) {
			pruneDelivered(e, now, s.cfg.KeyTTL)
			days := e.Schedule
			if days == nil {
				days, _ = s.latest.For(e.Entity)
			}
			r, ok := Decide(e.Entity, e.LeadMinutes, days, now, s.cfg.Window)
			if !ok {
				return
			}
			if _, done := e.Delivered[r.Key]; done {
				return
			}
			e.Delivered[r.Key] = r.Transition.At
			r.ChatID = e.ChatID
			due = append(due, pending{sub: sub, r: r})
		})
	}

	sent := 0
	for _, p := range due {
		// отписка могла случиться после решения
		if p.sub.Removed() {
			continue
		}
		if s.deliver(ctx, p.r) {
			sent++
		}
	}
	return sent
}

func (s *Service) deliver(ctx context.Context, r domain.Reminder) bool {
	log := s.log.With().Int64("chat", r.ChatID).Str("entity", r.Entity).Str("key", r.Key).Logger()
	n := domain.Notification{
		Text:    schedule.FormatReminder(r.Transition.Kind, r.LeadMinutes, r.Transition.At),
		Actions: subscription.ManageActions(),
	}

	attempted := false
	send := func() error {
		attempted = true
		return s.notifier.Notify(ctx, r.ChatID, n)
	}

	var err error
	if s.cache != nil {
		err = s.cache.Once(ctx, cacheKey(r), s.cfg.KeyTTL, send)
		if err != nil && !attempted {
			log.Warn().Err(err).Msg("reminder: кэш недоступен, отправляем без него")
			err = send()
		}
	} else {
		err = send()
	}

	switch {
	case !attempted:
		log.Debug().Msg("reminder: уже отправлено до перезапуска")
		return false
	case err != nil:
		metrics.NotifyErrors.Inc()
		log.Error().Err(err).Msg("reminder: не удалось отправить напоминание")
		return false
	}
	metrics.IncReminder(string(r.Transition.Kind))
	log.Info().Str("kind", string(r.Transition.Kind)).Time("at", r.Transition.At).Msg("reminder: отправлено")
	return true
}

func cacheKey(r domain.Reminder) string {
	return fmt.Sprintf("reminder:%d:%s", r.ChatID, r.Key)
}

// pruneDelivered удаляет ключи переходов, прошедших больше ttl назад.
func pruneDelivered(e *subscription.Entry, now time.Time, ttl time.Duration) {
	for k, at := range e.Delivered {
		if now.Sub(at) > ttl {
			delete(e.Delivered, k)
		}
	}
}
