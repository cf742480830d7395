// Package config provides configuration loading, validation, and defaults
// for the slipbot application. Values come from config.yaml, BOT_* environment
// variables, and built-in defaults, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-telegram/bot/models"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// LoggerConfig controls log level and output format.
type LoggerConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// TelegramConfig holds chat transport settings.
type TelegramConfig struct {
	Token string `mapstructure:"token" validate:"required"`

	// WebhookListenAddr enables webhook mode when non-empty; WebhookURL is the
	// public URL registered with Telegram. When empty the bot falls back to
	// long polling.
	WebhookListenAddr string `mapstructure:"webhook_listen_addr"`
	WebhookURL        string `mapstructure:"webhook_url" validate:"omitempty,url"`

	// BroadcastChatIDs receive a copy of every successful-ingestion reply,
	// excluding the originating chat.
	BroadcastChatIDs []int64 `mapstructure:"broadcast_chat_ids"`

	// AppURL is the base URL of the dashboard application, used to build
	// read-only ledger links.
	AppURL string `mapstructure:"app_url" validate:"omitempty,url"`

	// BotInfo is populated at startup from GetMe; not part of the config file.
	BotInfo *models.User `mapstructure:"-"`
}

// GeminiConfig holds AI extraction service settings.
type GeminiConfig struct {
	APIKey            string  `mapstructure:"api_key" validate:"required"`
	ModelName         string  `mapstructure:"model_name" validate:"required"`
	Temperature       float32 `mapstructure:"temperature" validate:"min=0,max=2"`
	MaxRetries        int     `mapstructure:"max_retries" validate:"min=0,max=10"`
	RetryDelaySeconds int     `mapstructure:"retry_delay_seconds" validate:"min=0,max=60"`
}

// DatabaseConfig holds SQLite settings.
type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// PipelineConfig holds the ingestion pipeline's policy constants.
type PipelineConfig struct {
	// Financial defaults substituted when extraction leaves a field unset.
	DefaultExchangeRate    float64 `mapstructure:"default_exchange_rate" validate:"gt=0"`
	DefaultCommissionPct   float64 `mapstructure:"default_commission_pct" validate:"min=0,max=100"`
	DefaultTransferFeeUSDT float64 `mapstructure:"default_transfer_fee_usdt" validate:"min=0"`
	DefaultMaintenanceDays int     `mapstructure:"default_maintenance_days" validate:"min=1"`

	// IdentityLinkWindow is the trailing window within which an earlier
	// identity-document message in the same chat is linked to a transfer slip.
	IdentityLinkWindow time.Duration `mapstructure:"identity_link_window" validate:"min=1s"`

	// MediaGroupSettleDelay is the heuristic debounce applied before deciding
	// whether a media group has delivered enough evidence. It is not a
	// correctness guarantee; near-simultaneous group members can still race.
	MediaGroupSettleDelay time.Duration `mapstructure:"media_group_settle_delay" validate:"min=0"`

	// ArchiveScanLimit bounds the identity-correlation archive lookback.
	ArchiveScanLimit int `mapstructure:"archive_scan_limit" validate:"min=1,max=500"`

	// BatchScanLimit bounds how many recent archive rows /process_batch
	// inspects; BatchTakeLimit bounds how many it consumes.
	BatchScanLimit int `mapstructure:"batch_scan_limit" validate:"min=1,max=500"`
	BatchTakeLimit int `mapstructure:"batch_take_limit" validate:"min=1,max=100"`

	// TextFallbackMinLen is the minimum text length before the AI free-text
	// extraction fallback is attempted.
	TextFallbackMinLen int `mapstructure:"text_fallback_min_len" validate:"min=0"`
}

// SchedulerConfig maps task names to their schedules.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks"`
}

// TaskConfig enables a named scheduled task with a cron expression.
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
}

// LoadConfig reads configuration from the given path, overlays BOT_*
// environment variables, applies defaults, and validates the result.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix("BOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; env vars and defaults still apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.json", true)

	v.SetDefault("gemini.model_name", "gemini-2.0-flash")
	v.SetDefault("gemini.temperature", 0.2)
	v.SetDefault("gemini.max_retries", 2)
	v.SetDefault("gemini.retry_delay_seconds", 2)

	v.SetDefault("database.path", "slipbot.db")

	v.SetDefault("pipeline.default_exchange_rate", 0.96)
	v.SetDefault("pipeline.default_commission_pct", 13.5)
	v.SetDefault("pipeline.default_transfer_fee_usdt", 25.0)
	v.SetDefault("pipeline.default_maintenance_days", 15)
	v.SetDefault("pipeline.identity_link_window", 5*time.Minute)
	v.SetDefault("pipeline.media_group_settle_delay", 2*time.Second)
	v.SetDefault("pipeline.archive_scan_limit", 30)
	v.SetDefault("pipeline.batch_scan_limit", 50)
	v.SetDefault("pipeline.batch_take_limit", 10)
	v.SetDefault("pipeline.text_fallback_min_len", 10)

	v.SetDefault("scheduler.tasks.sql_maintenance.enabled", true)
	v.SetDefault("scheduler.tasks.sql_maintenance.schedule", "0 0 4 * * *")
}
