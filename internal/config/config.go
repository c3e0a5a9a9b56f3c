package config

import (
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"telegram-customer-calendar/internal/models"
)

// SecretFile is where a Docker secret with the bot token is mounted.
const SecretFile = "/run/secrets/telegram_bot_token"

type Config struct {
	DBPath   string `mapstructure:"db_path"    validate:"required"`
	Timezone string `mapstructure:"tz_location" validate:"required"`

	LogLevel  string `mapstructure:"log_level"  validate:"oneof=debug info warn error"`
	LogFormat string `mapstructure:"log_format" validate:"oneof=json console"`

	Telegram Telegram `mapstructure:",squash"`

	WebhookListen string `mapstructure:"webhook_listen" validate:"omitempty,hostname_port"`
	MetricsListen string `mapstructure:"metrics_listen" validate:"omitempty,hostname_port"`

	PollInterval time.Duration `mapstructure:"poll_interval" validate:"gt=0"`
	PollTimeout  time.Duration `mapstructure:"poll_timeout"  validate:"gte=0"`
	SendRate     float64       `mapstructure:"send_rate"     validate:"gt=0"`

	ReminderInterval  time.Duration `mapstructure:"reminder_interval"  validate:"gt=0"`
	ReminderTolerance time.Duration `mapstructure:"reminder_tolerance" validate:"gte=0"`
	LedgerRetention   time.Duration `mapstructure:"ledger_retention"   validate:"gte=0"`

	ConversationMax     int           `mapstructure:"conversation_max_senders" validate:"min=1"`
	ConversationIdleTTL time.Duration `mapstructure:"conversation_idle_ttl"    validate:"gt=0"`
	DateFallback        string        `mapstructure:"date_fallback"            validate:"oneof=today reject"`
	LabelsFile          string        `mapstructure:"labels_file"`
}

// Telegram seeds the stored bot settings on first start.
type Telegram struct {
	Token   string `mapstructure:"telegram_bot_token"`
	ChatIDs string `mapstructure:"telegram_chat_ids"`
	Enabled bool   `mapstructure:"telegram_enabled"`
	Webhook bool   `mapstructure:"telegram_webhook"`
}

func (t Telegram) Settings() models.TelegramConfig {
	return models.TelegramConfig{
		BotToken:       t.Token,
		ChatIDs:        t.ChatIDs,
		Enabled:        t.Enabled,
		WebhookEnabled: t.Webhook,
	}
}

// Location resolves Timezone. Load has already checked it.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func Load() (*Config, error) {
	return load(SecretFile)
}

func load(secretFile string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	if err := bindEnvVars(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	// A mounted secret wins over the environment.
	if token := readSecret(secretFile); token != "" {
		cfg.Telegram.Token = token
	}
	cfg.Telegram.Token = strings.TrimSpace(cfg.Telegram.Token)
	cfg.DateFallback = strings.ToLower(strings.TrimSpace(cfg.DateFallback))

	if err := validator.New().Struct(cfg); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return nil, errors.Wrapf(err, "unknown TZ_LOCATION %q", cfg.Timezone)
	}
	return &cfg, nil
}

func readSecret(path string) string {
	if path == "" {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("db_path", "data/calendar.db")
	v.SetDefault("tz_location", "Europe/Istanbul")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")

	v.SetDefault("telegram_bot_token", "")
	v.SetDefault("telegram_chat_ids", "")
	v.SetDefault("telegram_enabled", true)
	v.SetDefault("telegram_webhook", false)
	v.SetDefault("webhook_listen", "")
	v.SetDefault("metrics_listen", "")

	v.SetDefault("poll_interval", "2500ms")
	v.SetDefault("poll_timeout", "2s")
	v.SetDefault("send_rate", 20)

	v.SetDefault("reminder_interval", "30s")
	v.SetDefault("reminder_tolerance", "10m")
	v.SetDefault("ledger_retention", "720h")

	v.SetDefault("conversation_max_senders", 1024)
	v.SetDefault("conversation_idle_ttl", "24h")
	v.SetDefault("date_fallback", "today")
	v.SetDefault("labels_file", "")
}

func bindEnvVars(v *viper.Viper) error {
	for _, key := range []string{
		"db_path", "tz_location", "log_level", "log_format",
		"telegram_bot_token", "telegram_chat_ids", "telegram_enabled", "telegram_webhook",
		"webhook_listen", "metrics_listen",
		"poll_interval", "poll_timeout", "send_rate",
		"reminder_interval", "reminder_tolerance", "ledger_retention",
		"conversation_max_senders", "conversation_idle_ttl", "date_fallback", "labels_file",
	} {
		if err := v.BindEnv(key, strings.ToUpper(key)); err != nil {
			return errors.Wrapf(err, "bind %s", key)
		}
	}
	return nil
}
