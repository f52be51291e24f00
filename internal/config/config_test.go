package config

import (
	"log/slog"
	"strings"
	"testing"
	"time"
)

var allKeys = []string{
	"CRM_ADDR", "CRM_ENV", "CRM_TIMEZONE", "CRM_LOG_LEVEL", "CRM_LOG_FORMAT", "CRM_CSRF_KEY",
	"CRM_RATE_LIMIT", "CRM_EXPOSE_INTERNAL", "CRM_SEED_FILE", "CRM_DB_DRIVER", "CRM_DB_DSN",
	"CRON_SECRET", "CRON_SECRET_HASH", "CRM_EMAIL_PROVIDER", "MAILJET_API_KEY", "MAILJET_API_SECRET",
	"MAILJET_BASE_URL", "RESEND_API_KEY", "SENDER_EMAIL", "SENDER_NAME", "REDIS_ADDR", "REDIS_PASSWORD",
	"REDIS_DB", "WEBHOOK_DEDUP_TTL_SECONDS", "AMQP_URL", "AMQP_EXCHANGE", "OUTBOX_INTERVAL_SECONDS",
	"SCHEDULER_INTERVAL_SECONDS",
}

// clearTestEnv blanks every key; empty values fall back to defaults.
func clearTestEnv(t *testing.T) {
	t.Helper()
	for _, k := range allKeys {
		t.Setenv(k, "")
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearTestEnv(t)

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.Server.Address != ":8080" || cfg.Server.Env != "development" || cfg.IsProduction() {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Server.Location != time.UTC {
		t.Errorf("Location = %v, want UTC", cfg.Server.Location)
	}
	if cfg.Server.LogLevel != slog.LevelInfo || cfg.Server.LogJSON {
		t.Errorf("log level %v json %v", cfg.Server.LogLevel, cfg.Server.LogJSON)
	}
	if cfg.Database.Driver != "sqlite" || cfg.Database.DSN != "crm.db" {
		t.Errorf("database = %+v", cfg.Database)
	}
	if cfg.Email.Provider != ProviderNoop {
		t.Errorf("Provider = %q", cfg.Email.Provider)
	}
	if cfg.Redis.Enabled {
		t.Error("redis should be disabled without REDIS_ADDR")
	}
	if cfg.AMQP.Exchange != "crm.events" {
		t.Errorf("Exchange = %q", cfg.AMQP.Exchange)
	}
	if cfg.Scheduler.OutboxInterval != 30*time.Second || cfg.Scheduler.DueInterval != 0 {
		t.Errorf("scheduler = %+v", cfg.Scheduler)
	}
	if cfg.Server.RateLimit != 20 {
		t.Errorf("RateLimit = %d", cfg.Server.RateLimit)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	clearTestEnv(t)
	t.Setenv("CRM_TIMEZONE", "Asia/Tokyo")
	t.Setenv("CRM_LOG_LEVEL", "debug")
	t.Setenv("CRM_LOG_FORMAT", "JSON")
	t.Setenv("CRM_EMAIL_PROVIDER", "Mailjet")
	t.Setenv("MAILJET_API_KEY", "k")
	t.Setenv("MAILJET_API_SECRET", "s")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("WEBHOOK_DEDUP_TTL_SECONDS", "60")
	t.Setenv("SCHEDULER_INTERVAL_SECONDS", "15")
	t.Setenv("CRM_EXPOSE_INTERNAL", "true")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.Server.Location.String() != "Asia/Tokyo" {
		t.Errorf("Location = %v", cfg.Server.Location)
	}
	if cfg.Server.LogLevel != slog.LevelDebug || !cfg.Server.LogJSON {
		t.Errorf("log level %v json %v", cfg.Server.LogLevel, cfg.Server.LogJSON)
	}
	if cfg.Email.Provider != ProviderMailjet {
		t.Errorf("Provider = %q", cfg.Email.Provider)
	}
	if !cfg.Redis.Enabled || cfg.Redis.DedupTTL != time.Minute {
		t.Errorf("redis = %+v", cfg.Redis)
	}
	if cfg.Scheduler.DueInterval != 15*time.Second {
		t.Errorf("DueInterval = %v", cfg.Scheduler.DueInterval)
	}
	if !cfg.Server.ExposeInternal {
		t.Error("ExposeInternal should be true")
	}
}

func TestFromEnv_Invalid(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"timezone", map[string]string{"CRM_TIMEZONE": "Mars/Olympus"}, "CRM_TIMEZONE"},
		{"provider", map[string]string{"CRM_EMAIL_PROVIDER": "smtp"}, "CRM_EMAIL_PROVIDER"},
		{"mailjet creds", map[string]string{"CRM_EMAIL_PROVIDER": "mailjet"}, "MAILJET_API_KEY"},
		{"resend creds", map[string]string{"CRM_EMAIL_PROVIDER": "resend"}, "RESEND_API_KEY"},
		{"rate limit", map[string]string{"CRM_RATE_LIMIT": "abc"}, "CRM_RATE_LIMIT"},
		{"log level", map[string]string{"CRM_LOG_LEVEL": "loud"}, "CRM_LOG_LEVEL"},
		{"negative scheduler", map[string]string{"SCHEDULER_INTERVAL_SECONDS": "-1"}, "SCHEDULER_INTERVAL_SECONDS"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clearTestEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := FromEnv()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q should mention %s", err, tc.want)
			}
		})
	}
}
