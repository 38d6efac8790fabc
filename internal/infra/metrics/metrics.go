package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	SourceFetchErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "source_fetch_errors_total",
		Help: "Ошибки загрузки страницы графиков",
	})
	ParseFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "schedule_parse_failures_total",
		Help: "Страницы, в которых не найдена таблица подочередей",
	})
	SkippedRanges = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "schedule_skipped_ranges_total",
		Help: "Отброшенные некорректные интервалы",
	})
	ScheduleChanges = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "schedule_changes_total",
		Help: "Уведомления об изменении графика подписчика",
	})
	RemindersSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reminders_sent_total",
		Help: "Отправленные напоминания о переходах",
	}, []string{"kind"})
	NotifyErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "notify_errors_total",
		Help: "Ошибки отправки сообщений ботом",
	})
	ActiveSubscribers = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "active_subscribers",
		Help: "Количество подписчиков с выбранной подочередью",
	})

	TickDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "loop_tick_duration_seconds",
		Help:    "Длительность одного прохода фонового цикла",
		Buckets: prometheus.DefBuckets,
	}, []string{"loop"})

	NetworkRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "network_request_duration_seconds",
		Help:    "Длительность сетевых запросов",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 15, 20, 25, 30, 45, 60},
	}, []string{"component", "operation", "target", "status"})

	NetworkRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "network_request_total",
		Help: "Количество сетевых запросов",
	}, []string{"component", "operation", "target", "status"})
)

// MustRegister регистрирует метрики.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		SourceFetchErrors,
		ParseFailures,
		SkippedRanges,
		ScheduleChanges,
		RemindersSent,
		NotifyErrors,
		ActiveSubscribers,
		TickDuration,
		NetworkRequestDuration,
		NetworkRequestTotal,
	)
}

// StartServer запускает HTTP сервер с эндпоинтом /metrics.
func StartServer(ctx context.Context, logger zerolog.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	shutdownCtx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-ctx.Done():
		case <-shutdownCtx.Done():
		}
		shutdownTimeout, timeoutCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer timeoutCancel()
		if err := srv.Shutdown(shutdownTimeout); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: graceful shutdown failed")
		}
	}()

	go func() {
		logger.Info().Str("addr", addr).Msg("metrics: server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: server stopped")
		}
		cancel()
	}()
}

// ObserveNetworkRequest записывает длительность и статус сетевого запроса.
func ObserveNetworkRequest(component, operation, target string, start time.Time, err error) {
	if component == "" {
		component = "unknown"
	}
	if operation == "" {
		operation = "unknown"
	}
	if target == "" {
		target = "unknown"
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	duration := time.Since(start).Seconds()
	NetworkRequestDuration.WithLabelValues(component, operation, target, status).Observe(duration)
	NetworkRequestTotal.WithLabelValues(component, operation, target, status).Inc()
}

// ObserveTick записывает длительность прохода цикла watch или reminder.
func ObserveTick(loop string, start time.Time) {
	TickDuration.WithLabelValues(loop).Observe(time.Since(start).Seconds())
}

// IncReminder учитывает отправленное напоминание указанного типа.
func IncReminder(kind string) {
	RemindersSent.WithLabelValues(kind).Inc()
}
