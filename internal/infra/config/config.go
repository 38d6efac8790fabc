package config

import (
	"errors"
	"fmt"
	"log"
	"slices"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// AppConfig описывает конфигурацию сервиса.
type AppConfig struct {
	AppEnv      string `envconfig:"APP_ENV" default:"dev"`
	TZ          string `envconfig:"TZ" default:"Europe/Kyiv"`
	Port        int    `envconfig:"PORT" default:"8080"`
	MetricsAddr string `envconfig:"METRICS_ADDR" default:":9090"`

	Telegram struct {
		Token         string `envconfig:"TG_BOT_TOKEN"`
		WebhookURL    string `envconfig:"TG_WEBHOOK_URL"`
		WebhookSecret string `envconfig:"TG_WEBHOOK_SECRET"`
		SendRPS       int    `envconfig:"TG_SEND_RPS" default:"25"`
	} `envconfig:""`

	PGDSN      string `envconfig:"PG_DSN"`
	SQLitePath string `envconfig:"SQLITE_PATH"`

	RedisAddr string `envconfig:"REDIS_ADDR"`

	API struct {
		CORSOrigins []string `envconfig:"API_CORS_ORIGINS" default:"*"`
	} `envconfig:""`

	Source struct {
		URL         string        `envconfig:"SOURCE_URL" default:"https://www.roe.vsei.ua/disconnections/"`
		Timeout     time.Duration `envconfig:"SOURCE_TIMEOUT" default:"25s"`
		MinInterval time.Duration `envconfig:"SOURCE_MIN_INTERVAL" default:"10s"`
	} `envconfig:""`

	Schedule struct {
		WatchInterval    time.Duration `envconfig:"WATCH_INTERVAL" default:"300s"`
		ReminderInterval time.Duration `envconfig:"REMINDER_INTERVAL" default:"60s"`
		TriggerWindow    time.Duration `envconfig:"TRIGGER_WINDOW" default:"120s"`
		DeliveryKeyTTL   time.Duration `envconfig:"DELIVERY_KEY_TTL" default:"48h"`
	} `envconfig:""`

	Subscription struct {
		LeadTimes       []int    `envconfig:"LEAD_TIMES" default:"5,10,30"`
		DefaultLeadTime int      `envconfig:"DEFAULT_LEAD_TIME" default:"10"`
		Subqueues       []string `envconfig:"SUBQUEUES" default:"1.1,1.2,2.1,2.2,3.1,3.2,4.1,4.2,5.1,5.2,6.1,6.2"`
	} `envconfig:""`
}

// Load загружает конфиг из окружения, подхватывая .env при наличии.
func Load() AppConfig {
	_ = godotenv.Load(".env")
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("не удалось загрузить конфиг: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("некорректный конфиг: %v", err)
	}
	return cfg
}

// Validate проверяет согласованность интервалов и списков.
func (c AppConfig) Validate() error {
	var errs []error
	if c.Schedule.WatchInterval <= 0 {
		errs = append(errs, fmt.Errorf("WATCH_INTERVAL должен быть положительным, получено %s", c.Schedule.WatchInterval))
	}
	if c.Schedule.ReminderInterval <= 0 {
		errs = append(errs, fmt.Errorf("REMINDER_INTERVAL должен быть положительным, получено %s", c.Schedule.ReminderInterval))
	}
	// окно короче шага цикла теряет напоминания между тиками
	if c.Schedule.TriggerWindow < c.Schedule.ReminderInterval {
		errs = append(errs, fmt.Errorf("TRIGGER_WINDOW (%s) меньше REMINDER_INTERVAL (%s)", c.Schedule.TriggerWindow, c.Schedule.ReminderInterval))
	}
	if len(c.Subscription.LeadTimes) == 0 {
		errs = append(errs, errors.New("LEAD_TIMES пуст"))
	}
	for _, m := range c.Subscription.LeadTimes {
		if m <= 0 {
			errs = append(errs, fmt.Errorf("LEAD_TIMES содержит неположительное значение %d", m))
		}
	}
	if !slices.Contains(c.Subscription.LeadTimes, c.Subscription.DefaultLeadTime) {
		errs = append(errs, fmt.Errorf("DEFAULT_LEAD_TIME=%d не входит в LEAD_TIMES", c.Subscription.DefaultLeadTime))
	}
	if len(c.Subscription.Subqueues) == 0 {
		errs = append(errs, errors.New("SUBQUEUES пуст"))
	}
	return errors.Join(errs...)
}

// Location возвращает часовой пояс графика.
func (c AppConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.TZ)
	if err != nil {
		return nil, fmt.Errorf("load location %q: %w", c.TZ, err)
	}
	return loc, nil
}
