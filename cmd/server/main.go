package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"crmmail/internal/adapters/cache"
	"crmmail/internal/adapters/email"
	web "crmmail/internal/adapters/http"
	"crmmail/internal/adapters/http/perf"
	"crmmail/internal/adapters/mq"
	"crmmail/internal/adapters/storage"
	campaignStore "crmmail/internal/adapters/storage/campaign"
	customerStore "crmmail/internal/adapters/storage/customer"
	outboxStore "crmmail/internal/adapters/storage/outbox"
	scheduleStore "crmmail/internal/adapters/storage/schedule"
	templateStore "crmmail/internal/adapters/storage/template"
	"crmmail/internal/application/orchestrators"
	"crmmail/internal/config"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_invalid", "error", err)
		os.Exit(1)
	}
	setupLogging(cfg.Server)

	if err := run(cfg); err != nil {
		slog.Error("server_failed", "error", err)
		os.Exit(1)
	}
}

func setupLogging(s config.ServerConfig) {
	opts := &slog.HandlerOptions{Level: s.LogLevel}
	var h slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if s.LogJSON {
		h = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(h))
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dialect, err := storage.ParseDialect(cfg.Database.Driver)
	if err != nil {
		return err
	}
	db, err := storage.Open(dialect, cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer db.Close()

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	if err := db.PingContext(ctx); err != nil {
		return err
	}
	if err := storage.MigrateDB(db, dialect); err != nil {
		return err
	}

	// Performance instrumentation: wrap DB with timing, create collector
	collector := perf.NewCollector(perf.DefaultRingSize)
	timedDB := storage.NewTimedDB(db, collector).WithDialect(dialect)

	stores := &web.Stores{
		Customers: customerStore.NewSQLiteStore(timedDB),
		Templates: templateStore.NewSQLiteStore(timedDB),
		Schedules: scheduleStore.NewSQLiteStore(timedDB),
		Campaigns: campaignStore.NewSQLiteStore(timedDB),
		Outbox:    outboxStore.NewSQLiteStore(timedDB),
	}
	generateID := func() string { return uuid.New().String() }

	if cfg.Server.SeedFile != "" && !cfg.IsProduction() {
		_, err := orchestrators.ExecuteSeedFromFile(ctx, orchestrators.SeedFromFileInput{Path: cfg.Server.SeedFile},
			orchestrators.SeedFromFileDeps{
				Customers:  stores.Customers,
				Templates:  stores.Templates,
				Now:        time.Now,
				GenerateID: generateID,
			})
		if err != nil {
			return err
		}
	}

	sender := email.NewTimedSender(newSender(cfg.Email), cfg.Email.Provider, collector)

	var deduper orchestrators.Deduper
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		d := cache.NewRedisDeduper(rdb, cfg.Redis.DedupTTL)
		if err := d.Ping(ctx); err != nil {
			slog.Warn("redis_unreachable", "addr", cfg.Redis.Address, "error", err)
		}
		deduper = d
	}

	var publisher mq.Publisher = mq.LogPublisher{}
	if cfg.AMQP.URL != "" {
		p, err := mq.NewAMQPPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			return err
		}
		publisher = p
	}
	defer publisher.Close()

	workersStop := make(chan struct{})
	defer close(workersStop)

	relay := orchestrators.NewOutboxRelay(stores.Outbox, publisher)
	orchestrators.StartBackgroundWorker("outbox_relay", cfg.Scheduler.OutboxInterval, workersStop, relay.ProcessPending)

	processDeps := orchestrators.ProcessSchedulesDeps{
		Schedules:  stores.Schedules,
		Templates:  stores.Templates,
		Customers:  stores.Customers,
		Campaigns:  stores.Campaigns,
		Sender:     sender,
		Events:     stores.Outbox,
		Location:   cfg.Server.Location,
		Now:        time.Now,
		GenerateID: generateID,
	}
	if cfg.Scheduler.DueInterval > 0 {
		orchestrators.StartBackgroundWorker("due_schedules", cfg.Scheduler.DueInterval, workersStop, func(ctx context.Context) error {
			_, err := orchestrators.ExecuteProcessDueSchedules(ctx, processDeps)
			return err
		})
	}

	mux, err := web.NewMux(stores, web.Options{
		Sender:         sender,
		Deduper:        deduper,
		CronAuth:       orchestrators.CronAuth{Secret: cfg.Cron.Secret, SecretHash: cfg.Cron.SecretHash},
		Location:       cfg.Server.Location,
		CSRFKey:        cfg.Server.CSRFKey,
		Production:     cfg.IsProduction(),
		RateLimit:      cfg.Server.RateLimit,
		ExposeInternal: cfg.Server.ExposeInternal,
		Collector:      collector,
		Now:            time.Now,
		GenerateID:     generateID,
		Stop:           workersStop,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server_starting", "version", version, "addr", cfg.Server.Address, "env", cfg.Server.Env,
			"db", dialect, "schema", storage.LatestSchemaVersion(), "provider", cfg.Email.Provider)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		slog.Info("server_stopping")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
	}
	return nil
}

// newSender picks the delivery provider. Missing credentials were already
// rejected by config validation.
func newSender(c config.EmailConfig) email.Sender {
	from := email.Address{Email: c.SenderEmail, Name: c.SenderName}
	switch c.Provider {
	case config.ProviderMailjet:
		return email.NewMailjetSender(c.MailjetBaseURL, c.MailjetKey, c.MailjetSecret, from)
	case config.ProviderResend:
		return email.NewResendSender(c.ResendKey, from)
	}
	slog.Warn("email_delivery_disabled", "hint", "set CRM_EMAIL_PROVIDER=mailjet or resend for real delivery")
	return email.NewNoopSender()
}
