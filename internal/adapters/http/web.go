package web

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"crmmail/internal/adapters/email"
	"crmmail/internal/adapters/http/middleware"
	"crmmail/internal/adapters/http/perf"
	campaignStore "crmmail/internal/adapters/storage/campaign"
	customerStore "crmmail/internal/adapters/storage/customer"
	outboxStore "crmmail/internal/adapters/storage/outbox"
	scheduleStore "crmmail/internal/adapters/storage/schedule"
	templateStore "crmmail/internal/adapters/storage/template"
	"crmmail/internal/application/orchestrators"
)

// Stores holds all storage dependencies.
type Stores struct {
	Customers customerStore.Store
	Templates templateStore.Store
	Schedules scheduleStore.Store
	Campaigns campaignStore.Store
	Outbox    outboxStore.Store
}

// Options configures the handler set. Zero values fall back to development
// defaults.
type Options struct {
	Sender         email.Sender
	Deduper        orchestrators.Deduper // nil disables webhook dedup
	CronAuth       orchestrators.CronAuth
	Location       *time.Location
	CSRFKey        string // hex; random per start outside production
	Production     bool
	RateLimit      int
	ExposeInternal bool
	Collector      *perf.Collector
	Now            func() time.Time
	GenerateID     func() string
	Stop           <-chan struct{}
}

// server carries the wired dependencies into the handlers.
type server struct {
	stores *Stores
	opts   Options
}

// loadCSRFKey decodes CRM_CSRF_KEY (hex-encoded, 32 bytes). Production must
// set it; development falls back to a random key per startup.
func loadCSRFKey(keyHex string, production bool) ([]byte, error) {
	if keyHex != "" {
		key, err := hex.DecodeString(keyHex)
		if err != nil || len(key) != 32 {
			return nil, errors.New("CRM_CSRF_KEY must be 64 hex characters (32 bytes)")
		}
		return key, nil
	}
	if production {
		return nil, errors.New("CRM_CSRF_KEY is required in production")
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate CSRF key: %w", err)
	}
	slog.Warn("csrf_key_random", "hint", "set CRM_CSRF_KEY so form tokens survive restarts")
	return key, nil
}

// NewMux wires HTTP handlers for the service.
// PRE: s has every store set; opts.Sender is non-nil
// POST: Returns the routed handler, or an error for an unusable CSRF key
func NewMux(s *Stores, opts Options) (http.Handler, error) {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.GenerateID == nil {
		opts.GenerateID = func() string { return uuid.New().String() }
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 20
	}
	csrfKey, err := loadCSRFKey(opts.CSRFKey, opts.Production)
	if err != nil {
		return nil, err
	}
	srv := &server{stores: s, opts: opts}
	limiter := middleware.NewRateLimiter(opts.RateLimit, time.Second, opts.Stop)

	r := chi.NewRouter()
	r.Use(
		chimw.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Timing(opts.Collector),
		middleware.SecurityHeaders,
		middleware.CSRF(csrfKey, opts.Production, []string{"localhost:8080", "127.0.0.1:8080"}),
	)

	r.Get("/healthz", srv.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		// Provider callbacks arrive in bursts from a few addresses and must
		// always be acknowledged, so the webhook skips the per-IP limiter.
		r.Post("/mailjet-webhook", srv.handleMailjetWebhook)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(limiter))
			srv.mountAPI(r)
		})
	})

	return r, nil
}

// mountAPI registers the rate-limited API routes.
func (srv *server) mountAPI(r chi.Router) {
	r.Get("/cron/process-emails", srv.handleCronProcessEmails)
	r.Post("/email/send", srv.handleSendEmail)

	r.Route("/templates", func(r chi.Router) {
		r.Get("/", srv.handleListTemplates)
		r.Post("/", srv.handleCreateTemplate)
		r.Get("/{id}", srv.handleGetTemplate)
		r.Put("/{id}", srv.handleUpdateTemplate)
		r.Delete("/{id}", srv.handleDeleteTemplate)
	})
	r.Route("/schedules", func(r chi.Router) {
		r.Get("/", srv.handleListSchedules)
		r.Post("/", srv.handleCreateSchedule)
		r.Get("/{id}", srv.handleGetSchedule)
		r.Delete("/{id}", srv.handleDeleteSchedule)
	})
	r.Get("/campaigns", srv.handleListCampaigns)
	r.Get("/campaigns/{id}", srv.handleGetCampaign)
	r.Get("/customers", srv.handleListCustomers)

	if srv.opts.ExposeInternal {
		r.Get("/email/process-scheduled", srv.handleProcessScheduled)
		r.Get("/outbox", srv.handleListOutbox)
		r.Post("/outbox/{id}/retry", srv.handleRequeueOutbox)
		r.Get("/perf", srv.handlePerf)
		r.Get("/stale-claims", srv.handleStaleClaims)
	}
}

// processDeps builds the due-dispatch dependencies from the wired stores.
func (srv *server) processDeps() orchestrators.ProcessSchedulesDeps {
	return orchestrators.ProcessSchedulesDeps{
		Schedules:  srv.stores.Schedules,
		Templates:  srv.stores.Templates,
		Customers:  srv.stores.Customers,
		Campaigns:  srv.stores.Campaigns,
		Sender:     srv.opts.Sender,
		Events:     srv.stores.Outbox,
		Location:   srv.opts.Location,
		Now:        srv.opts.Now,
		GenerateID: srv.opts.GenerateID,
	}
}
