package watch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"roe-outage-bot/internal/domain"
	"roe-outage-bot/internal/infra/metrics"
	"roe-outage-bot/internal/usecase/reminder"
	"roe-outage-bot/internal/usecase/schedule"
	"roe-outage-bot/internal/usecase/subscription"
)

const snapshotCacheKey = "snapshot:latest"

// Config задаёт интервалы циклов и таймауты.
type Config struct {
	FetchTimeout     time.Duration
	WatchInterval    time.Duration
	ReminderInterval time.Duration
	SnapshotTTL      time.Duration
	Location         *time.Location
}

// Service опрашивает источник, обнаруживает изменения графика и запускает напоминания.
type Service struct {
	fetcher   domain.SourceFetcher
	parser    domain.ScheduleParser
	subs      *subscription.Service
	reminders *reminder.Service
	latest    *schedule.Latest
	notifier  domain.Notifier
	cache     domain.Cache
	cfg       Config
	log       zerolog.Logger
	now       func() time.Time
}

// NewService создаёт оркестратор. cache может быть nil.
func NewService(fetcher domain.SourceFetcher, parser domain.ScheduleParser, subs *subscription.Service, reminders *reminder.Service, latest *schedule.Latest, notifier domain.Notifier, cache domain.Cache, cfg Config, log zerolog.Logger) *Service {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 25 * time.Second
	}
	if cfg.SnapshotTTL <= 0 {
		cfg.SnapshotTTL = 48 * time.Hour
	}
	return &Service{
		fetcher:   fetcher,
		parser:    parser,
		subs:      subs,
		reminders: reminders,
		latest:    latest,
		notifier:  notifier,
		cache:     cache,
		cfg:       cfg,
		log:       log,
		now:       time.Now,
	}
}

// Now возвращает текущее время в часовом поясе графика.
func (s *Service) Now() time.Time {
	return s.now().In(s.cfg.Location)
}

// Latest возвращает последний опубликованный снимок.
func (s *Service) Latest() (domain.Snapshot, bool) {
	return s.latest.Load()
}

// Refresh загружает и публикует свежий снимок.
func (s *Service) Refresh(ctx context.Context) (domain.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
	defer cancel()

	doc, err := s.fetcher.Fetch(ctx)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("загрузка графика: %w", err)
	}
	snap := s.parser.Parse(doc)
	s.latest.Store(snap)
	s.persist(ctx, snap)
	return snap, nil
}

// WatchOnce выполняет один проход наблюдения за графиком.
func (s *Service) WatchOnce(ctx context.Context) error {
	log := s.log.With().Str("tick_id", uuid.NewString()).Logger()
	start := time.Now()
	defer metrics.ObserveTick("watch", start)

	if s.subs.Count() == 0 {
		log.Debug().Msg("watch: подписчиков нет, пропускаем")
		return nil
	}

	snap, err := s.Refresh(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("watch: не удалось получить график")
		return err
	}

	now := s.Now()
	type change struct {
		sub    *subscription.Subscription
		chatID int64
		entity string
		days   domain.DaySchedule
	}
	var changes []change
	for _, sub := range s.subs.Registry().All() {
		sub.Do(func(e *subscription.Entry) {
			days := snap.For(e.Entity)
			fp := schedule.Fingerprint(days)
			switch {
			case !e.Observed:
				e.Observe(fp, days)
			case e.Fingerprint != fp:
				e.Observe(fp, days)
				changes = append(changes, change{sub: sub, chatID: e.ChatID, entity: e.Entity, days: days})
			default:
				e.Schedule = days
			}
		})
	}

	for _, c := range changes {
		if c.sub.Removed() {
			continue
		}
		text := schedule.FormatChange(c.entity, schedule.FormatSchedule(c.entity, c.days, snap.UpdateMarker, now))
		err := s.notifier.Notify(ctx, c.chatID, domain.Notification{Text: text, Actions: subscription.ManageActions()})
		if err != nil {
			metrics.NotifyErrors.Inc()
			log.Error().Err(err).Int64("chat", c.chatID).Str("entity", c.entity).Msg("watch: не удалось отправить обновление графика")
			continue
		}
		metrics.ScheduleChanges.Inc()
	}

	log.Info().
		Bool("table_found", snap.TableFound).
		Str("marker", snap.UpdateMarker).
		Int("subscribers", s.subs.Count()).
		Int("changes", len(changes)).
		Dur("took", time.Since(start)).
		Msg("watch: проход завершён")
	return nil
}

// RemindOnce выполняет один проход напоминаний.
func (s *Service) RemindOnce(ctx context.Context, now time.Time) int {
	start := time.Now()
	defer metrics.ObserveTick("reminder", start)
	return s.reminders.Tick(ctx, now.In(s.cfg.Location))
}

// Warm восстанавливает последний снимок из кэша.
func (s *Service) Warm(ctx context.Context) (bool, error) {
	if s.cache == nil {
		return false, nil
	}
	raw, err := s.cache.Get(ctx, snapshotCacheKey)
	if err != nil {
		return false, fmt.Errorf("чтение снимка: %w", err)
	}
	if len(raw) == 0 {
		return false, nil
	}
	var snap domain.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return false, fmt.Errorf("разбор снимка: %w", err)
	}
	s.latest.Store(snap)
	return true, nil
}

func (s *Service) persist(ctx context.Context, snap domain.Snapshot) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		s.log.Warn().Err(err).Msg("watch: не удалось сериализовать снимок")
		return
	}
	if err := s.cache.Set(ctx, snapshotCacheKey, raw, s.cfg.SnapshotTTL); err != nil {
		s.log.Warn().Err(err).Msg("watch: не удалось сохранить снимок в кэш")
	}
}

// Run запускает циклы наблюдения и напоминаний и блокируется до отмены ctx.
func (s *Service) Run(ctx context.Context) error {
	if s.cfg.WatchInterval <= 0 || s.cfg.ReminderInterval <= 0 {
		return errors.New("watch: интервалы должны быть положительными")
	}
	cronLog := cron.PrintfLogger(&s.log)
	c := cron.New(
		cron.WithLocation(s.cfg.Location),
		cron.WithLogger(cronLog),
		cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
	)
	c.Schedule(cron.Every(s.cfg.WatchInterval), cron.FuncJob(func() {
		_ = s.WatchOnce(ctx)
	}))
	c.Schedule(cron.Every(s.cfg.ReminderInterval), cron.FuncJob(func() {
		if sent := s.RemindOnce(ctx, s.now()); sent > 0 {
			s.log.Debug().Int("sent", sent).Msg("reminder: проход завершён")
		}
	}))

	s.log.Info().
		Dur("watch_interval", s.cfg.WatchInterval).
		Dur("reminder_interval", s.cfg.ReminderInterval).
		Msg("watch: циклы запущены")
	c.Start()
	go func() { _ = s.WatchOnce(ctx) }()

	<-ctx.Done()
	<-c.Stop().Done()
	s.log.Info().Msg("watch: циклы остановлены")
	return nil
}
