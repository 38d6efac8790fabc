package subscription

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"roe-outage-bot/internal/domain"
	"roe-outage-bot/internal/infra/metrics"
	"roe-outage-bot/internal/usecase/schedule"
)

var (
	// ErrUnknownEntity возвращается для неизвестной подочереди.
	ErrUnknownEntity = errors.New("unknown subqueue")
	// ErrLeadTimeNotAllowed возвращается для времени напоминания вне разрешённого списка.
	ErrLeadTimeNotAllowed = errors.New("lead time not allowed")
	// ErrNotSubscribed возвращается, если чат ещё не выбрал подочередь.
	ErrNotSubscribed = errors.New("not subscribed")
)

// Service управляет подписками и их сохранением.
type Service struct {
	registry    *Registry
	repo        domain.SubscriberRepo
	labels      []string
	leadTimes   []int
	defaultLead int
	log         zerolog.Logger
	now         func() time.Time
}

// NewService создаёт сервис подписок.
func NewService(registry *Registry, repo domain.SubscriberRepo, labels []string, leadTimes []int, defaultLead int, log zerolog.Logger) *Service {
	return &Service{
		registry:    registry,
		repo:        repo,
		labels:      append([]string(nil), labels...),
		leadTimes:   append([]int(nil), leadTimes...),
		defaultLead: defaultLead,
		log:         log,
		now:         time.Now,
	}
}

// Registry возвращает реестр подписчиков.
func (s *Service) Registry() *Registry {
	return s.registry
}

// Entities возвращает известные подочереди в порядке конфигурации.
func (s *Service) Entities() []string {
	return append([]string(nil), s.labels...)
}

// LeadTimes возвращает разрешённые значения времени напоминания.
func (s *Service) LeadTimes() []int {
	return append([]int(nil), s.leadTimes...)
}

// IsKnownEntity сообщает, известна ли подочередь.
func (s *Service) IsKnownEntity(entity string) bool {
	return slices.Contains(s.labels, entity)
}

// Load восстанавливает подписчиков из хранилища.
func (s *Service) Load(ctx context.Context) (int, error) {
	subs, err := s.repo.ListSubscribers(ctx)
	if err != nil {
		return 0, fmt.Errorf("загрузка подписчиков: %w", err)
	}
	loaded := 0
	for _, sub := range subs {
		if !s.IsKnownEntity(sub.Entity) {
			s.log.Warn().Int64("chat", sub.ChatID).Str("entity", sub.Entity).Msg("subscription: пропущена неизвестная подочередь")
			continue
		}
		lead := sub.LeadMinutes
		if !slices.Contains(s.leadTimes, lead) {
			lead = s.defaultLead
		}
		s.registry.GetOrCreate(sub.ChatID, func() Entry {
			return Entry{
				ChatID:      sub.ChatID,
				Entity:      sub.Entity,
				LeadMinutes: lead,
				CreatedAt:   sub.CreatedAt,
				UpdatedAt:   sub.UpdatedAt,
			}
		})
		loaded++
	}
	s.updateGauge()
	return loaded, nil
}

// Select выбирает подочередь. Смена подочереди сбрасывает отпечаток, расписание и ключи.
func (s *Service) Select(ctx context.Context, chatID int64, entity string) (domain.Subscriber, error) {
	if !s.IsKnownEntity(entity) {
		return domain.Subscriber{}, fmt.Errorf("%w: %q", ErrUnknownEntity, entity)
	}
	now := s.now()
	var saved domain.Subscriber
	for {
		sub, _ := s.registry.GetOrCreate(chatID, func() Entry {
			return Entry{ChatID: chatID, Entity: entity, LeadMinutes: s.defaultLead, CreatedAt: now}
		})
		// подписку могли удалить между GetOrCreate и Do
		if sub.Do(func(e *Entry) {
			if e.Entity != entity {
				e.Entity = entity
				e.resetTracking()
			}
			e.UpdatedAt = now
			saved = e.Subscriber()
		}) {
			break
		}
	}
	s.updateGauge()
	if err := s.repo.UpsertSubscriber(ctx, saved); err != nil {
		return saved, fmt.Errorf("сохранение подписчика: %w", err)
	}
	return saved, nil
}

// Prime без уведомления записывает отпечаток выбранной подочереди из снимка.
// Ключи отправленных напоминаний сбрасываются только при новом отпечатке.
func (s *Service) Prime(chatID int64, snap domain.Snapshot) bool {
	sub, ok := s.registry.Get(chatID)
	if !ok {
		return false
	}
	return sub.Do(func(e *Entry) {
		days := snap.For(e.Entity)
		fp := schedule.Fingerprint(days)
		if !e.Observed || e.Fingerprint != fp {
			e.Observe(fp, days)
			return
		}
		// тот же график: отправленные ключи остаются в силе
		e.Schedule = days
	})
}

// SetLeadTime меняет время напоминания.
func (s *Service) SetLeadTime(ctx context.Context, chatID int64, minutes int) error {
	if !slices.Contains(s.leadTimes, minutes) {
		return fmt.Errorf("%w: %d", ErrLeadTimeNotAllowed, minutes)
	}
	sub, ok := s.registry.Get(chatID)
	if !ok {
		return ErrNotSubscribed
	}
	var saved domain.Subscriber
	if !sub.Do(func(e *Entry) {
		e.LeadMinutes = minutes
		e.UpdatedAt = s.now()
		saved = e.Subscriber()
	}) {
		return ErrNotSubscribed
	}
	if err := s.repo.UpsertSubscriber(ctx, saved); err != nil {
		return fmt.Errorf("сохранение времени напоминания: %w", err)
	}
	return nil
}

// Unsubscribe удаляет подписку вместе со всем состоянием.
func (s *Service) Unsubscribe(ctx context.Context, chatID int64) (bool, error) {
	removed := s.registry.Remove(chatID)
	s.updateGauge()
	if err := s.repo.DeleteSubscriber(ctx, chatID); err != nil {
		return removed, fmt.Errorf("удаление подписчика: %w", err)
	}
	return removed, nil
}

// Get возвращает копию состояния подписчика.
func (s *Service) Get(chatID int64) (Entry, bool) {
	sub, ok := s.registry.Get(chatID)
	if !ok {
		return Entry{}, false
	}
	return sub.Snapshot(), true
}

// List возвращает сохраняемые настройки всех подписчиков.
func (s *Service) List() []domain.Subscriber {
	all := s.registry.All()
	out := make([]domain.Subscriber, 0, len(all))
	for _, sub := range all {
		sub.Do(func(e *Entry) { out = append(out, e.Subscriber()) })
	}
	return out
}

// Count возвращает количество подписчиков.
func (s *Service) Count() int {
	return s.registry.Len()
}

func (s *Service) updateGauge() {
	metrics.ActiveSubscribers.Set(float64(s.registry.Len()))
}
