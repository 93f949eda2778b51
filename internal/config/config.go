package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/instagram-agent/internal/storage"
)

// Generator providers
const (
	GeneratorAnthropic = "anthropic"
	GeneratorTemplate  = "template"
)

// Gateway providers
const (
	GatewayInstagram = "instagram"
	GatewayStub      = "stub"
)

// Config represents the application configuration
type Config struct {
	Database    DatabaseConfig    `mapstructure:"database"`
	Instagram   InstagramConfig   `mapstructure:"instagram"`
	Anthropic   AnthropicConfig   `mapstructure:"anthropic"`
	Generator   GeneratorConfig   `mapstructure:"generator"`
	Gateway     GatewayConfig     `mapstructure:"gateway"`
	Media       MediaConfig       `mapstructure:"media"`
	Inspiration InspirationConfig `mapstructure:"inspiration"`
	Scheduler   SchedulerConfig   `mapstructure:"scheduler"`
	Retention   RetentionConfig   `mapstructure:"retention"`
	Tracker     TrackerConfig     `mapstructure:"tracker"`
	RateLimit   RateLimitConfig   `mapstructure:"rate_limit"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // sqlite
	DSN    string `mapstructure:"dsn"`    // Connection string
}

// InstagramConfig holds Instagram Graph API settings
type InstagramConfig struct {
	AppID       string `mapstructure:"app_id"`
	AppSecret   string `mapstructure:"app_secret"`
	RedirectURI string `mapstructure:"redirect_uri"`
	// Business account the gateway publishes to. Resolvable from a page
	// token with `instagram-agent verify`.
	AccountID string `mapstructure:"account_id"`
	// Long-lived token injection from environment (headless deployment)
	AccessToken    string `mapstructure:"access_token"`
	TokenExpiresAt string `mapstructure:"token_expires_at"`
	APIVersion     string `mapstructure:"api_version"`
}

// AnthropicConfig holds Claude API settings
type AnthropicConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
}

// GeneratorConfig selects and tunes the content generator
type GeneratorConfig struct {
	Provider string `mapstructure:"provider"` // anthropic or template
}

// GatewayConfig selects and tunes the posting gateway
type GatewayConfig struct {
	Provider string `mapstructure:"provider"` // instagram or stub
	// Wait between staging a container and committing it. The platform
	// needs the gap to finish processing the media.
	StageCommitDelay time.Duration `mapstructure:"stage_commit_delay"`
}

// MediaConfig holds image settings for generated content
type MediaConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Provider       string `mapstructure:"provider"` // "unsplash" or "none"
	UnsplashAPIKey string `mapstructure:"unsplash_api_key"`
	// Used when no image provider is configured or the lookup fails.
	PlaceholderURL string `mapstructure:"placeholder_url"`
}

// InspirationConfig holds RSS headline settings for generation context
type InspirationConfig struct {
	Enabled      bool              `mapstructure:"enabled"`
	Feeds        []InspirationFeed `mapstructure:"feeds"`
	FetchTimeout time.Duration     `mapstructure:"fetch_timeout"`
	MaxHeadlines int               `mapstructure:"max_headlines"`
	MaxAge       time.Duration     `mapstructure:"max_age"`
}

// InspirationFeed represents a single RSS feed tied to an industry
type InspirationFeed struct {
	Industry string `mapstructure:"industry"`
	Name     string `mapstructure:"name"`
	URL      string `mapstructure:"url"`
}

// SchedulerConfig holds scheduler cadences
type SchedulerConfig struct {
	AutomationCron string        `mapstructure:"automation_cron"`
	SweepCron      string        `mapstructure:"sweep_cron"`
	CleanupCron    string        `mapstructure:"cleanup_cron"`
	HealthCron     string        `mapstructure:"health_cron"`
	TickInterval   time.Duration `mapstructure:"tick_interval"`
}

// RetentionConfig holds cleanup windows for terminal schedule entries
type RetentionConfig struct {
	Days             int `mapstructure:"days"`               // completed/cancelled entries
	FailedDays       int `mapstructure:"failed_days"`        // exhausted failed entries
	FailedRetryFloor int `mapstructure:"failed_retry_floor"` // retry_count above this counts as exhausted
}

// Policy converts the retention settings into a storage policy.
func (r RetentionConfig) Policy() storage.RetentionPolicy {
	policy := storage.DefaultRetentionPolicy()
	if r.Days > 0 {
		policy.TerminalMaxAge = time.Duration(r.Days) * 24 * time.Hour
	}
	if r.FailedDays > 0 {
		policy.FailedMaxAge = time.Duration(r.FailedDays) * 24 * time.Hour
	}
	if r.FailedRetryFloor > 0 {
		policy.FailedRetryFloor = r.FailedRetryFloor
	}
	return policy
}

// TrackerConfig holds Google Sheets performance mirror settings
type TrackerConfig struct {
	Enabled            bool   `mapstructure:"enabled"`
	SpreadsheetID      string `mapstructure:"spreadsheet_id"`
	SheetName          string `mapstructure:"sheet_name"`
	CredentialsFile    string `mapstructure:"credentials_file"`
	ServiceAccountJSON string `mapstructure:"service_account_json"`
}

// RateLimitConfig holds rate limiting settings
type RateLimitConfig struct {
	InstagramRequestsPerHour   int `mapstructure:"instagram_requests_per_hour"`
	InstagramPublishesPerDay   int `mapstructure:"instagram_publishes_per_day"`
	AnthropicRequestsPerMinute int `mapstructure:"anthropic_requests_per_minute"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json or console
	Output string `mapstructure:"output"` // stdout or file path
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	// Load .env file if present (ignore errors if not found)
	_ = godotenv.Load()
	_ = godotenv.Load(".env.local")

	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Look for config in current directory and configs folder
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")

		// Also check user's home directory
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".instagram-agent"))
		}
	}

	// Environment variables
	v.SetEnvPrefix("INSTAGRAM")
	v.AutomaticEnv()

	// Explicit bindings for nested keys (Viper doesn't auto-bind underscored nested keys)
	v.BindEnv("anthropic.api_key", "INSTAGRAM_ANTHROPIC_API_KEY")
	v.BindEnv("instagram.app_id", "INSTAGRAM_INSTAGRAM_APP_ID")
	v.BindEnv("instagram.app_secret", "INSTAGRAM_INSTAGRAM_APP_SECRET")
	v.BindEnv("instagram.account_id", "INSTAGRAM_INSTAGRAM_ACCOUNT_ID")
	v.BindEnv("instagram.access_token", "INSTAGRAM_INSTAGRAM_ACCESS_TOKEN")
	v.BindEnv("instagram.token_expires_at", "INSTAGRAM_INSTAGRAM_TOKEN_EXPIRES_AT")
	v.BindEnv("database.driver", "INSTAGRAM_DATABASE_DRIVER")
	v.BindEnv("database.dsn", "INSTAGRAM_DATABASE_DSN")
	v.BindEnv("generator.provider", "INSTAGRAM_GENERATOR_PROVIDER")
	v.BindEnv("gateway.provider", "INSTAGRAM_GATEWAY_PROVIDER")
	v.BindEnv("tracker.enabled", "INSTAGRAM_TRACKER_ENABLED")
	v.BindEnv("tracker.spreadsheet_id", "INSTAGRAM_TRACKER_SPREADSHEET_ID")
	v.BindEnv("tracker.credentials_file", "INSTAGRAM_TRACKER_CREDENTIALS_FILE")
	v.BindEnv("tracker.service_account_json", "INSTAGRAM_TRACKER_SERVICE_ACCOUNT_JSON")
	v.BindEnv("media.enabled", "INSTAGRAM_MEDIA_ENABLED")
	v.BindEnv("media.unsplash_api_key", "INSTAGRAM_MEDIA_UNSPLASH_API_KEY")

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "./data/instagram.db")

	// Instagram defaults
	v.SetDefault("instagram.redirect_uri", "http://localhost:8080/callback")
	v.SetDefault("instagram.api_version", "v18.0")

	// Anthropic defaults
	v.SetDefault("anthropic.model", "claude-sonnet-4-20250514")
	v.SetDefault("anthropic.max_tokens", 4096)
	v.SetDefault("anthropic.temperature", 0.7)

	// Capability selection. Template generator and stub gateway make a
	// runnable install with zero credentials; the real providers are an
	// explicit choice.
	v.SetDefault("generator.provider", GeneratorTemplate)
	v.SetDefault("gateway.provider", GatewayStub)
	v.SetDefault("gateway.stage_commit_delay", "3s")

	// Media defaults
	v.SetDefault("media.enabled", false)
	v.SetDefault("media.provider", "unsplash")
	v.SetDefault("media.placeholder_url", "https://picsum.photos/1080")

	// Inspiration defaults
	v.SetDefault("inspiration.enabled", false)
	v.SetDefault("inspiration.fetch_timeout", "15s")
	v.SetDefault("inspiration.max_headlines", 5)
	v.SetDefault("inspiration.max_age", "168h")

	// Scheduler defaults
	v.SetDefault("scheduler.automation_cron", "0 8 * * *") // 8am daily content cycle
	v.SetDefault("scheduler.sweep_cron", "*/5 * * * *")    // due entries every 5 minutes
	v.SetDefault("scheduler.cleanup_cron", "0 3 * * 0")    // weekly retention cleanup
	v.SetDefault("scheduler.health_cron", "0 * * * *")     // hourly health check
	v.SetDefault("scheduler.tick_interval", "1m")

	// Retention defaults
	v.SetDefault("retention.days", 30)
	v.SetDefault("retention.failed_days", 7)
	v.SetDefault("retention.failed_retry_floor", 3)

	// Tracker defaults
	v.SetDefault("tracker.enabled", false)
	v.SetDefault("tracker.sheet_name", "Performance")

	// Rate limit defaults
	v.SetDefault("rate_limit.instagram_requests_per_hour", 200)
	v.SetDefault("rate_limit.instagram_publishes_per_day", 25)
	v.SetDefault("rate_limit.anthropic_requests_per_minute", 10)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output", "stdout")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Generator.Provider {
	case GeneratorAnthropic:
		if c.Anthropic.APIKey == "" {
			return fmt.Errorf("anthropic.api_key is required when generator.provider=%s", GeneratorAnthropic)
		}
	case GeneratorTemplate:
		// No credentials needed.
	default:
		return fmt.Errorf("generator.provider must be %q or %q, got %q",
			GeneratorAnthropic, GeneratorTemplate, c.Generator.Provider)
	}

	switch c.Gateway.Provider {
	case GatewayInstagram:
		if c.Instagram.AccountID == "" {
			return fmt.Errorf("instagram.account_id is required when gateway.provider=%s", GatewayInstagram)
		}
		if c.Instagram.AccessToken == "" {
			return fmt.Errorf("instagram.access_token is required when gateway.provider=%s", GatewayInstagram)
		}
	case GatewayStub:
		// No credentials needed.
	default:
		return fmt.Errorf("gateway.provider must be %q or %q, got %q",
			GatewayInstagram, GatewayStub, c.Gateway.Provider)
	}

	if c.Gateway.StageCommitDelay < 0 {
		return fmt.Errorf("gateway.stage_commit_delay must not be negative")
	}
	if c.Tracker.Enabled && c.Tracker.SpreadsheetID == "" {
		return fmt.Errorf("tracker.spreadsheet_id is required when tracker.enabled=true")
	}
	return nil
}
