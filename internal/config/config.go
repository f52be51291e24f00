package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Email provider names accepted by CRM_EMAIL_PROVIDER.
const (
	ProviderMailjet = "mailjet"
	ProviderResend  = "resend"
	ProviderNoop    = "noop"
)

// Config is the full service configuration.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Cron      CronConfig
	Email     EmailConfig
	Redis     RedisConfig
	AMQP      AMQPConfig
	Scheduler SchedulerConfig
}

type ServerConfig struct {
	Address        string
	Env            string
	Location       *time.Location
	LogLevel       slog.Level
	LogJSON        bool
	CSRFKey        string
	RateLimit      int
	ExposeInternal bool
	SeedFile       string
}

type DatabaseConfig struct {
	Driver string
	DSN    string
}

// CronConfig holds the shared secret for the due-dispatch trigger. At most
// one of Secret and SecretHash is used; the hash wins when both are set.
type CronConfig struct {
	Secret     string
	SecretHash string
}

type EmailConfig struct {
	Provider       string
	MailjetKey     string
	MailjetSecret  string
	MailjetBaseURL string
	ResendKey      string
	SenderEmail    string
	SenderName     string
}

type RedisConfig struct {
	Enabled  bool
	Address  string
	Password string
	DB       int
	DedupTTL time.Duration
}

type AMQPConfig struct {
	URL      string
	Exchange string
}

type SchedulerConfig struct {
	OutboxInterval time.Duration
	DueInterval    time.Duration // zero disables the in-process ticker
}

// IsProduction reports whether CRM_ENV is production.
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// Load reads an optional .env file and then the environment.
// PRE: none
// POST: Returns a validated Config or the first invalid setting
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("dotenv_not_loaded", "error", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the process environment only.
func FromEnv() (*Config, error) {
	loc, err := time.LoadLocation(getEnv("CRM_TIMEZONE", "UTC"))
	if err != nil {
		return nil, fmt.Errorf("invalid CRM_TIMEZONE: %w", err)
	}
	level, err := parseLevel(getEnv("CRM_LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Address:        getEnv("CRM_ADDR", ":8080"),
			Env:            getEnv("CRM_ENV", "development"),
			Location:       loc,
			LogLevel:       level,
			LogJSON:        strings.EqualFold(os.Getenv("CRM_LOG_FORMAT"), "json"),
			CSRFKey:        os.Getenv("CRM_CSRF_KEY"),
			ExposeInternal: getEnvBool("CRM_EXPOSE_INTERNAL", false),
			SeedFile:       os.Getenv("CRM_SEED_FILE"),
		},
		Database: DatabaseConfig{
			Driver: getEnv("CRM_DB_DRIVER", "sqlite"),
			DSN:    getEnv("CRM_DB_DSN", "crm.db"),
		},
		Cron: CronConfig{
			Secret:     os.Getenv("CRON_SECRET"),
			SecretHash: os.Getenv("CRON_SECRET_HASH"),
		},
		Email: EmailConfig{
			Provider:       strings.ToLower(getEnv("CRM_EMAIL_PROVIDER", ProviderNoop)),
			MailjetKey:     os.Getenv("MAILJET_API_KEY"),
			MailjetSecret:  os.Getenv("MAILJET_API_SECRET"),
			MailjetBaseURL: os.Getenv("MAILJET_BASE_URL"),
			ResendKey:      os.Getenv("RESEND_API_KEY"),
			SenderEmail:    os.Getenv("SENDER_EMAIL"),
			SenderName:     os.Getenv("SENDER_NAME"),
		},
		Redis: loadRedisConfig(),
		AMQP: AMQPConfig{
			URL:      os.Getenv("AMQP_URL"),
			Exchange: getEnv("AMQP_EXCHANGE", "crm.events"),
		},
	}

	if cfg.Server.RateLimit, err = getEnvInt("CRM_RATE_LIMIT", 20); err != nil {
		return nil, err
	}
	outbox, err := getEnvInt("OUTBOX_INTERVAL_SECONDS", 30)
	if err != nil {
		return nil, err
	}
	due, err := getEnvInt("SCHEDULER_INTERVAL_SECONDS", 0)
	if err != nil {
		return nil, err
	}
	cfg.Scheduler = SchedulerConfig{
		OutboxInterval: time.Duration(outbox) * time.Second,
		DueInterval:    time.Duration(due) * time.Second,
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadRedisConfig() RedisConfig {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		return RedisConfig{Enabled: false}
	}
	db, _ := getEnvInt("REDIS_DB", 0)
	ttl, _ := getEnvInt("WEBHOOK_DEDUP_TTL_SECONDS", 86400)
	return RedisConfig{
		Enabled:  true,
		Address:  addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       db,
		DedupTTL: time.Duration(ttl) * time.Second,
	}
}

func validate(cfg *Config) error {
	switch cfg.Email.Provider {
	case ProviderNoop:
	case ProviderMailjet:
		if cfg.Email.MailjetKey == "" || cfg.Email.MailjetSecret == "" {
			return fmt.Errorf("MAILJET_API_KEY and MAILJET_API_SECRET are required for the mailjet provider")
		}
	case ProviderResend:
		if cfg.Email.ResendKey == "" {
			return fmt.Errorf("RESEND_API_KEY is required for the resend provider")
		}
	default:
		return fmt.Errorf("unknown CRM_EMAIL_PROVIDER %q", cfg.Email.Provider)
	}
	if cfg.Server.RateLimit <= 0 {
		return fmt.Errorf("CRM_RATE_LIMIT must be > 0")
	}
	if cfg.Scheduler.OutboxInterval <= 0 {
		return fmt.Errorf("OUTBOX_INTERVAL_SECONDS must be > 0")
	}
	if cfg.Scheduler.DueInterval < 0 {
		return fmt.Errorf("SCHEDULER_INTERVAL_SECONDS must be >= 0")
	}
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid CRM_LOG_LEVEL %q", s)
	}
	return level, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid int for env %s: %s", key, v)
	}
	return i, nil
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
