// Package config загружает конфигурацию сервера из переменных окружения.
// Используется envconfig для маппинга переменных окружения на поля структуры.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

// Драйверы хранилища.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config содержит ВСЕ настройки приложения.
type Config struct {
	// --- Telegram ---
	TelegramBotToken string `envconfig:"TELEGRAM_BOT_TOKEN"`
	// Разработка без Telegram: initData не проверяется. Несовместимо с токеном.
	AuthDevMode   bool          `envconfig:"AUTH_DEV_MODE" default:"false"`
	AuthMaxAge    time.Duration `envconfig:"AUTH_MAX_AGE" default:"24h"`
	NotifyEnabled bool          `envconfig:"NOTIFY_ENABLED" default:"false"`

	// --- Database ---
	// Дефолт хоста "postgres" — имя сервиса в docker-compose, для локалки DB_HOST=localhost.
	DBDriver   string `envconfig:"DB_DRIVER" default:"postgres"`
	DBHost     string `envconfig:"DB_HOST" default:"postgres"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"gaqt"`
	DBPassword string `envconfig:"DB_PASSWORD"`
	DBName     string `envconfig:"DB_NAME" default:"gaqt"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	DBMaxConns int32  `envconfig:"DB_MAX_CONNS" default:"25"`
	DBMinConns int32  `envconfig:"DB_MIN_CONNS" default:"5"`

	// --- Cache ---
	// Пустой REDIS_ADDR — кеш в памяти процесса (или без кеша при CACHE_LOCAL_SIZE=0).
	RedisAddr      string `envconfig:"REDIS_ADDR"`
	RedisPassword  string `envconfig:"REDIS_PASSWORD"`
	RedisDB        int    `envconfig:"REDIS_DB" default:"0"`
	CacheLocalSize int    `envconfig:"CACHE_LOCAL_SIZE" default:"1024"`

	// --- HTTP ---
	HTTPAddr           string        `envconfig:"HTTP_ADDR" default:":8080"`
	HTTPReadTimeout    time.Duration `envconfig:"HTTP_READ_TIMEOUT" default:"10s"`
	HTTPWriteTimeout   time.Duration `envconfig:"HTTP_WRITE_TIMEOUT" default:"15s"`
	HTTPRequestTimeout time.Duration `envconfig:"HTTP_REQUEST_TIMEOUT" default:"5s"`
	CORSAllowedOrigins []string      `envconfig:"CORS_ALLOWED_ORIGINS"`

	// --- Application ---
	AppEnv      string `envconfig:"APP_ENV" default:"development"`
	AppLogLevel string `envconfig:"APP_LOG_LEVEL" default:"info"`
	AppTimezone string `envconfig:"APP_TIMEZONE" default:"Europe/Moscow"`

	// --- Game ---
	UserStartEnergy       int             `envconfig:"USER_START_ENERGY" default:"0"`
	EnergyRegenSchedule   string          `envconfig:"ENERGY_REGEN_SCHEDULE" default:"@every 1m"`
	DailyQuestCount       int             `envconfig:"DAILY_QUEST_COUNT" default:"3"`
	DailyQuestMultiplier  decimal.Decimal `envconfig:"DAILY_QUEST_MULTIPLIER" default:"2.0"`
	DailyRotationSchedule string          `envconfig:"DAILY_ROTATION_SCHEDULE" default:"5 0 * * *"`
	TopPlayersSchedule    string          `envconfig:"TOP_PLAYERS_SCHEDULE" default:"*/15 * * * *"`

	// --- Admin ---
	// Пустой хеш отключает админ-API.
	AdminPasswordHash      string        `envconfig:"ADMIN_PASSWORD_HASH"`
	AdminMaxFailedAttempts int           `envconfig:"ADMIN_MAX_FAILED_ATTEMPTS" default:"3"`
	AdminLockout           time.Duration `envconfig:"ADMIN_LOCKOUT" default:"1h"`

	// --- Rate Limiting ---
	RateLimitRequests int           `envconfig:"RATE_LIMIT_REQUESTS" default:"60"`
	RateLimitWindow   time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`
}

// DatabaseDSN возвращает строку подключения к PostgreSQL в формате DSN.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// IsProduction сообщает, запущен ли сервер в боевом окружении.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// Validate проверяет согласованность настроек.
func (c *Config) Validate() error {
	if c.AuthDevMode && c.TelegramBotToken != "" {
		return fmt.Errorf("AUTH_DEV_MODE нельзя включать вместе с TELEGRAM_BOT_TOKEN")
	}
	if c.AuthDevMode && c.IsProduction() {
		return fmt.Errorf("AUTH_DEV_MODE запрещён при APP_ENV=production")
	}
	if !c.AuthDevMode && c.TelegramBotToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN не задан (для разработки включите AUTH_DEV_MODE)")
	}
	if c.AuthMaxAge <= 0 {
		return fmt.Errorf("AUTH_MAX_AGE должен быть > 0")
	}
	if c.NotifyEnabled && c.TelegramBotToken == "" {
		return fmt.Errorf("NOTIFY_ENABLED требует TELEGRAM_BOT_TOKEN")
	}

	switch c.DBDriver {
	case DriverPostgres:
		if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
			return fmt.Errorf("некорректные DB_MIN_CONNS/DB_MAX_CONNS")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("неизвестный DB_DRIVER %q", c.DBDriver)
	}

	if c.CacheLocalSize < 0 {
		return fmt.Errorf("CACHE_LOCAL_SIZE должен быть >= 0")
	}
	if c.HTTPRequestTimeout <= 0 {
		return fmt.Errorf("HTTP_REQUEST_TIMEOUT должен быть > 0")
	}
	if c.UserStartEnergy < 0 || c.UserStartEnergy > 1000 {
		return fmt.Errorf("USER_START_ENERGY должен быть в диапазоне 0..1000")
	}
	if c.DailyQuestCount < 0 {
		return fmt.Errorf("DAILY_QUEST_COUNT должен быть >= 0")
	}
	if c.DailyQuestMultiplier.LessThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("DAILY_QUEST_MULTIPLIER должен быть >= 1")
	}
	if c.AdminMaxFailedAttempts <= 0 || c.AdminLockout <= 0 {
		return fmt.Errorf("некорректные ADMIN_MAX_FAILED_ATTEMPTS/ADMIN_LOCKOUT")
	}
	if c.RateLimitRequests <= 0 || c.RateLimitWindow <= 0 {
		return fmt.Errorf("некорректные RATE_LIMIT_REQUESTS/RATE_LIMIT_WINDOW")
	}
	return nil
}

// Load читает переменные окружения и заполняет структуру Config.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("не удалось загрузить конфигурацию: %w", err)
	}
	cfg.CORSAllowedOrigins = trimCSV(cfg.CORSAllowedOrigins)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// trimCSV убирает пробелы и пустые элементы списка.
func trimCSV(items []string) []string {
	out := make([]string, 0, len(items))
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
