package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates every runtime setting for the service.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	OpenAI    OpenAIConfig
	SMS       SMSConfig
	Telegram  TelegramConfig
	WhatsApp  WhatsAppConfig
	Auth      AuthConfig
	Intake    IntakeConfig
	Scheduler SchedulerConfig
	Retention RetentionConfig
	Billing   BillingConfig
	Log       LogConfig
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	// Missing .env is fine; real deployments inject env directly.
	_ = godotenv.Load()

	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}
	openai, err := loadOpenAIConfig()
	if err != nil {
		return nil, err
	}
	auth := loadAuthConfig()
	intake, err := loadIntakeConfig()
	if err != nil {
		return nil, err
	}
	scheduler, err := loadSchedulerConfig()
	if err != nil {
		return nil, err
	}
	retention, err := loadRetentionConfig()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server:   server,
		Database: DatabaseConfig{URL: strings.TrimSpace(os.Getenv("DATABASE_URL"))},
		OpenAI:   openai,
		SMS: SMSConfig{
			BaseURL:       strings.TrimSpace(os.Getenv("SMS_GATEWAY_URL")),
			AccountID:     strings.TrimSpace(os.Getenv("SMS_ACCOUNT_ID")),
			AuthToken:     strings.TrimSpace(os.Getenv("SMS_AUTH_TOKEN")),
			Sender:        strings.TrimSpace(os.Getenv("SMS_SENDER")),
			WebhookSecret: strings.TrimSpace(os.Getenv("SMS_WEBHOOK_SECRET")),
		},
		Telegram: TelegramConfig{
			BotToken: strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN")),
		},
		WhatsApp: WhatsAppConfig{
			Enabled:    getEnvOrDefault("WHATSAPP_ENABLED", "false") == "true",
			SQLitePath: getEnvOrDefault("WHATSAPP_DB_PATH", "whatsapp.db"),
		},
		Auth:      auth,
		Intake:    intake,
		Scheduler: scheduler,
		Retention: retention,
		Billing: BillingConfig{
			PlanCode:     getEnvOrDefault("BILLING_PLAN", "standard"),
			PlansCSVPath: getEnvOrDefault("PLANS_CSV_PATH", ""),
		},
		Log: LogConfig{
			Development: getEnvOrDefault("LOG_MODE", "production") == "development",
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate fails fast on settings the service cannot run without.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.OpenAI.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}
	if c.Intake.WeeklyReplyCap < 1 {
		return fmt.Errorf("WEEKLY_REPLY_CAP must be at least 1")
	}
	if c.Intake.DelayMin > c.Intake.DelayMax {
		return fmt.Errorf("REPLY_DELAY_MIN_SECONDS exceeds REPLY_DELAY_MAX_SECONDS")
	}
	return nil
}

type ServerConfig struct {
	Addr string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}
	if strings.Contains(port, ":") {
		return ServerConfig{Addr: port}, nil
	}
	if _, err := strconv.Atoi(port); err != nil {
		return ServerConfig{}, fmt.Errorf("invalid PORT value %q: %w", port, err)
	}
	return ServerConfig{Addr: ":" + port}, nil
}

type DatabaseConfig struct {
	URL string
}

type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Timeout     time.Duration
	Temperature float64
}

func loadOpenAIConfig() (OpenAIConfig, error) {
	timeout, err := parseDurationEnv("OPENAI_TIMEOUT", 60*time.Second)
	if err != nil {
		return OpenAIConfig{}, err
	}
	temperature, err := parseFloatEnv("OPENAI_TEMPERATURE", 0.2)
	if err != nil {
		return OpenAIConfig{}, err
	}
	return OpenAIConfig{
		APIKey:      strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		BaseURL:     getEnvOrDefault("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		Model:       getEnvOrDefault("OPENAI_MODEL", "gpt-4o-mini"),
		Timeout:     timeout,
		Temperature: temperature,
	}, nil
}

type SMSConfig struct {
	BaseURL       string
	AccountID     string
	AuthToken     string
	Sender        string
	WebhookSecret string
}

type TelegramConfig struct {
	BotToken string
}

// Enabled reports whether the alert bot should start.
func (c TelegramConfig) Enabled() bool { return c.BotToken != "" }

type WhatsAppConfig struct {
	Enabled    bool
	SQLitePath string
}

type AuthConfig struct {
	JWTSecret     string
	AdminUsername string
	AdminPassword string
}

func loadAuthConfig() AuthConfig {
	return AuthConfig{
		JWTSecret:     strings.TrimSpace(os.Getenv("JWT_SECRET")),
		AdminUsername: getEnvOrDefault("ADMIN_USERNAME", "admin"),
		AdminPassword: strings.TrimSpace(os.Getenv("ADMIN_PASSWORD")),
	}
}

type IntakeConfig struct {
	WeeklyReplyCap int
	DelayEnabled   bool
	DelayMin       time.Duration
	DelayMax       time.Duration
	RateBurst      int
	RatePerMinute  float64
	Debounce       time.Duration
}

func loadIntakeConfig() (IntakeConfig, error) {
	weeklyCap, err := parseIntEnv("WEEKLY_REPLY_CAP", 25)
	if err != nil {
		return IntakeConfig{}, err
	}
	delayEnabled, err := parseBoolEnv("REPLY_DELAY_ENABLED", true)
	if err != nil {
		return IntakeConfig{}, err
	}
	delayMin, err := parseDurationEnv("REPLY_DELAY_MIN_SECONDS", 3*time.Second)
	if err != nil {
		return IntakeConfig{}, err
	}
	delayMax, err := parseDurationEnv("REPLY_DELAY_MAX_SECONDS", 30*time.Second)
	if err != nil {
		return IntakeConfig{}, err
	}
	burst, err := parseIntEnv("CLIENT_RATE_BURST", 5)
	if err != nil {
		return IntakeConfig{}, err
	}
	perMinute, err := parseFloatEnv("CLIENT_RATE_PER_MINUTE", 1)
	if err != nil {
		return IntakeConfig{}, err
	}
	debounce, err := parseDurationEnv("MESSAGE_DEBOUNCE", 2*time.Second)
	if err != nil {
		return IntakeConfig{}, err
	}
	return IntakeConfig{
		WeeklyReplyCap: weeklyCap,
		DelayEnabled:   delayEnabled,
		DelayMin:       delayMin,
		DelayMax:       delayMax,
		RateBurst:      burst,
		RatePerMinute:  perMinute,
		Debounce:       debounce,
	}, nil
}

type SchedulerConfig struct {
	Interval time.Duration
	Enabled  bool
}

func loadSchedulerConfig() (SchedulerConfig, error) {
	interval, err := parseDurationEnv("SCHEDULER_INTERVAL", 5*time.Minute)
	if err != nil {
		return SchedulerConfig{}, err
	}
	enabled, err := parseBoolEnv("SCHEDULER_ENABLED", true)
	if err != nil {
		return SchedulerConfig{}, err
	}
	return SchedulerConfig{Interval: interval, Enabled: enabled}, nil
}

type RetentionConfig struct {
	ArchiveAfterDays int
	PurgeAfterDays   int
}

func loadRetentionConfig() (RetentionConfig, error) {
	archive, err := parseIntEnv("RETENTION_ARCHIVE_DAYS", 365)
	if err != nil {
		return RetentionConfig{}, err
	}
	purge, err := parseIntEnv("RETENTION_PURGE_DAYS", 2555)
	if err != nil {
		return RetentionConfig{}, err
	}
	return RetentionConfig{ArchiveAfterDays: archive, PurgeAfterDays: purge}, nil
}

type BillingConfig struct {
	PlanCode     string
	PlansCSVPath string
}

type LogConfig struct {
	Development bool
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}
	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseIntEnv(key string, defaultValue int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseFloatEnv(key string, defaultValue float64) (float64, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}
	val, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

// parseDurationEnv accepts either a Go duration ("45s") or a bare number of
// seconds ("45"), matching how the deployment templates are written.
func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}
