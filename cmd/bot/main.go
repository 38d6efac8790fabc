package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"roe-outage-bot/internal/adapters/api"
	"roe-outage-bot/internal/adapters/bot"
	"roe-outage-bot/internal/adapters/repo"
	"roe-outage-bot/internal/adapters/scraper"
	"roe-outage-bot/internal/adapters/telegram"
	"roe-outage-bot/internal/domain"
	"roe-outage-bot/internal/infra/cache"
	"roe-outage-bot/internal/infra/config"
	"roe-outage-bot/internal/infra/db"
	apphttp "roe-outage-bot/internal/infra/http"
	"roe-outage-bot/internal/infra/log"
	"roe-outage-bot/internal/infra/metrics"
	"roe-outage-bot/internal/usecase/reminder"
	"roe-outage-bot/internal/usecase/schedule"
	"roe-outage-bot/internal/usecase/subscription"
	"roe-outage-bot/internal/usecase/watch"
)

const webhookPath = "/bot/webhook"

func main() {
	cfg := config.Load()
	logger := log.NewLogger(cfg.AppEnv)
	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loc, err := cfg.Location()
	if err != nil {
		logger.Fatal().Err(err).Msg("некорректный часовой пояс")
	}
	if cfg.Telegram.Token == "" {
		logger.Fatal().Msg("TG_BOT_TOKEN не задан")
	}

	subscribers, closeRepo := openRepo(ctx, cfg, logger)
	defer closeRepo()

	var dedup domain.Cache
	if cfg.RedisAddr != "" {
		client, err := cache.Connect(ctx, cfg.RedisAddr)
		if err != nil {
			logger.Fatal().Err(err).Msg("не удалось подключиться к Redis")
		}
		defer client.Close()
		dedup = cache.NewRedis(client, "roe:")
	} else {
		logger.Warn().Msg("REDIS_ADDR не задан, дедупликация только в памяти")
	}

	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		logger.Fatal().Err(err).Msg("не удалось создать бота")
	}
	sender := telegram.NewSender(botAPI, cfg.Telegram.SendRPS, log.Component(logger, "telegram"))

	subs := subscription.NewService(subscription.NewRegistry(), subscribers, cfg.Subscription.Subqueues,
		cfg.Subscription.LeadTimes, cfg.Subscription.DefaultLeadTime, log.Component(logger, "subscription"))
	if n, err := subs.Load(ctx); err != nil {
		logger.Error().Err(err).Msg("не удалось загрузить подписчиков")
	} else {
		logger.Info().Int("subscribers", n).Msg("подписчики загружены")
	}

	latest := &schedule.Latest{}
	reminders := reminder.NewService(subs.Registry(), latest, sender, dedup, reminder.Config{
		Window: cfg.Schedule.TriggerWindow,
		KeyTTL: cfg.Schedule.DeliveryKeyTTL,
	}, log.Component(logger, "reminder"))

	watcher := watch.NewService(
		scraper.NewHTTPFetcher(cfg.Source.URL, cfg.Source.Timeout, cfg.Source.MinInterval),
		scraper.NewParser(cfg.Subscription.Subqueues, log.Component(logger, "scraper")),
		subs, reminders, latest, sender, dedup,
		watch.Config{
			FetchTimeout:     cfg.Source.Timeout,
			WatchInterval:    cfg.Schedule.WatchInterval,
			ReminderInterval: cfg.Schedule.ReminderInterval,
			SnapshotTTL:      cfg.Schedule.DeliveryKeyTTL,
			Location:         loc,
		},
		log.Component(logger, "watch"),
	)
	if ok, err := watcher.Warm(ctx); err != nil {
		logger.Warn().Err(err).Msg("не удалось восстановить снимок из кэша")
	} else if ok {
		logger.Info().Msg("последний снимок восстановлен из кэша")
	}

	h := bot.NewHandler(log.Component(logger, "bot"), sender, sender, subs, watcher, cfg.Source.URL)

	srv := apphttp.NewServer(log.Component(logger, "http"))
	api.NewHandler(cfg.Subscription.Subqueues, watcher, cfg.API.CORSOrigins).Routes(srv.Router)

	var wg sync.WaitGroup
	if cfg.Telegram.WebhookURL != "" {
		srv.Router.With(apphttp.WebhookSecretMiddleware(cfg.Telegram.WebhookSecret)).
			Post(webhookPath, webhookHandler(ctx, h, &wg))
		if err := setWebhook(botAPI, cfg.Telegram.WebhookURL, cfg.Telegram.WebhookSecret); err != nil {
			logger.Fatal().Err(err).Msg("не удалось установить webhook")
		}
		logger.Info().Str("url", cfg.Telegram.WebhookURL).Msg("бот работает через webhook")
	} else {
		if _, err := botAPI.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
			logger.Warn().Err(err).Msg("не удалось снять webhook")
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			poll(ctx, botAPI, h, logger)
		}()
		logger.Info().Msg("бот работает через long polling")
	}

	if cfg.MetricsAddr != "" {
		metrics.StartServer(ctx, log.Component(logger, "metrics"), cfg.MetricsAddr)
	}

	go func() {
		if err := srv.Start(":" + strconv.Itoa(cfg.Port)); err != nil {
			logger.Error().Err(err).Msg("HTTP сервер остановлен")
			stop()
		}
	}()

	if err := watcher.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("циклы наблюдения завершились с ошибкой")
	}

	logger.Info().Msg("остановка бота")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	wg.Wait()
}

func openRepo(ctx context.Context, cfg config.AppConfig, logger zerolog.Logger) (domain.SubscriberRepo, func()) {
	switch {
	case cfg.PGDSN != "":
		pool, err := db.Connect(cfg.PGDSN)
		if err != nil {
			logger.Fatal().Err(err).Msg("не удалось подключиться к БД")
		}
		pg := repo.NewPostgres(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			pool.Close()
			logger.Fatal().Err(err).Msg("не удалось подготовить схему БД")
		}
		return pg, pool.Close
	case cfg.SQLitePath != "":
		lite, err := repo.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			logger.Fatal().Err(err).Str("path", cfg.SQLitePath).Msg("не удалось открыть SQLite")
		}
		return lite, func() { _ = lite.Close() }
	default:
		logger.Warn().Msg("PG_DSN и SQLITE_PATH не заданы, подписчики хранятся только в памяти")
		return repo.NewMemory(), func() {}
	}
}

func setWebhook(botAPI *tgbotapi.BotAPI, url, secret string) error {
	params := tgbotapi.Params{"url": url}
	params.AddNonEmpty("secret_token", secret)
	resp, err := botAPI.MakeRequest("setWebhook", params)
	if err != nil {
		return err
	}
	if !resp.Ok {
		return errors.New(resp.Description)
	}
	return nil
}

func webhookHandler(ctx context.Context, h *bot.Handler, wg *sync.WaitGroup) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var update tgbotapi.Update
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			apphttp.WriteError(w, http.StatusBadRequest, err)
			return
		}
		// Telegram ждёт быстрый ответ, загрузка графика может занять десятки секунд
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.HandleUpdate(ctx, update)
		}()
		w.WriteHeader(http.StatusOK)
	}
}

func poll(ctx context.Context, botAPI *tgbotapi.BotAPI, h *bot.Handler, logger zerolog.Logger) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := botAPI.GetUpdatesChan(u)
	defer botAPI.StopReceivingUpdates()

	var wg sync.WaitGroup
	defer wg.Wait()
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				logger.Warn().Msg("канал обновлений закрыт")
				return
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				h.HandleUpdate(ctx, update)
			}()
		}
	}
}
