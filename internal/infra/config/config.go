package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// AppConfig описывает конфигурацию сервисов.
type AppConfig struct {
	AppEnv      string `envconfig:"APP_ENV" default:"dev"`
	HTTPAddr    string `envconfig:"HTTP_ADDR" default:":8080"`
	MetricsAddr string `envconfig:"METRICS_ADDR" default:":9090"`

	Telegram struct {
		Token         string  `envconfig:"TG_BOT_TOKEN"`
		WebhookURL    string  `envconfig:"TG_WEBHOOK_URL"`
		WebhookSecret string  `envconfig:"TG_WEBHOOK_SECRET"`
		AdminIDs      []int64 `envconfig:"ADMIN_IDS"`
		PollTimeout   int     `envconfig:"TG_POLL_TIMEOUT" default:"60"`
	} `envconfig:""`

	PGDSN string `envconfig:"PG_DSN"`

	RedisAddr     string `envconfig:"REDIS_ADDR"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	Rabbit struct {
		URL      string `envconfig:"RABBITMQ_URL"`
		Exchange string `envconfig:"RABBITMQ_EXCHANGE" default:"giveaways"`
	} `envconfig:""`

	Lifecycle struct {
		Interval  time.Duration `envconfig:"LIFECYCLE_INTERVAL" default:"30s"`
		InProcess bool          `envconfig:"LIFECYCLE_IN_PROCESS" default:"true"`
	} `envconfig:""`

	StateTTL       time.Duration `envconfig:"STATE_TTL" default:"30m"`
	DefaultKeyword string        `envconfig:"DEFAULT_KEYWORD" default:"Участвую"`
	Timezone       string        `envconfig:"TIMEZONE" default:"Europe/Moscow"`
}

// IsAdmin проверяет, входит ли пользователь в список администраторов.
func (c AppConfig) IsAdmin(userID int64) bool {
	for _, id := range c.Telegram.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// Location возвращает часовой пояс для ввода и вывода дат. Неизвестная зона заменяется на UTC.
func (c AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Load загружает конфиг из окружения. Файл .env, если он есть, читается первым.
func Load() AppConfig {
	_ = godotenv.Load()
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("не удалось загрузить конфиг: %v", err)
	}
	return cfg
}
