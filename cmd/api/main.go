package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"memorial_intake_backend/internal/crm"
	"memorial_intake_backend/internal/email"
	apphttp "memorial_intake_backend/internal/http"
	"memorial_intake_backend/internal/http/router"
	"memorial_intake_backend/internal/intake"
	"memorial_intake_backend/internal/paymenthook"
	"memorial_intake_backend/internal/payments"
	"memorial_intake_backend/internal/recordstore"
	"memorial_intake_backend/internal/siteconfig"
	"memorial_intake_backend/internal/taskboard"
	"memorial_intake_backend/migrations"
	"memorial_intake_backend/platform/config"
	"memorial_intake_backend/platform/db"
	"memorial_intake_backend/platform/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	// The record store is optional. Without DATABASE_URL the pipeline runs
	// with bookkeeping disabled and the matching steps skip as no-ops.
	var pool *pgxpool.Pool
	if cfg.IsRecordStoreEnabled() {
		if err := db.RunMigrations(ctx, cfg, migrations.FS); err != nil {
			log.Error("failed to run database migrations", "error", err)
			panic("failed to run database migrations: " + err.Error())
		}
		log.Info("database migrations complete")

		pool, err = db.NewPool(ctx, cfg)
		if err != nil {
			log.Error("failed to connect to database", "error", err)
			panic("failed to connect to database: " + err.Error())
		}
		defer pool.Close()
		log.Info("database connection established")
	} else {
		log.Warn("DATABASE_URL not configured; record store disabled")
	}

	business, err := intake.NewBusiness(cfg)
	if err != nil {
		log.Error("failed to load business config", "error", err)
		panic("failed to load business config: " + err.Error())
	}

	// ========================================================================
	// Integration Capabilities
	// ========================================================================

	// Email is the one integration the pipeline cannot run without, but a
	// missing credential is surfaced per-request so health and site config
	// stay up. Resend takes precedence; SMTP is the fallback.
	var sender intake.EmailSender
	switch {
	case !cfg.IsEmailEnabled():
		log.Warn("email not configured; submissions will be rejected")
	case cfg.GetResendAPIKey() != "":
		sender = email.NewResendSender(cfg)
		log.Info("email sender initialized", "provider", "resend")
	default:
		sender = email.NewSMTPSender(cfg)
		log.Info("email sender initialized", "provider", "smtp", "host", cfg.GetSMTPHost())
	}

	var tasks intake.TaskCreator
	if cfg.IsTaskBoardEnabled() {
		tasks = taskboard.NewClient(cfg)
		log.Info("task board initialized", "list_id", cfg.GetTaskBoardListID())
	} else {
		log.Warn("task board not configured; task creation disabled")
	}

	var records *recordstore.Repository
	if pool != nil {
		records = recordstore.New(pool)
	}

	var contacts intake.ContactUpserter
	if cfg.IsCRMEnabled() {
		contacts = crm.NewClient(cfg)
		log.Info("crm initialized", "location_id", cfg.GetCRMLocationID())
	} else {
		log.Warn("CRM not configured; contact upserts disabled")
	}

	var issuer intake.InvoiceIssuer
	if cfg.IsInvoiceIssuerEnabled() {
		issuer = payments.NewClient(cfg)
		log.Info("invoice issuer initialized")
	} else {
		log.Warn("payment processor not configured; invoice issuance disabled")
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	var intakeRecords intake.RecordStore
	var depositRecords paymenthook.DepositMarker
	if records != nil {
		intakeRecords = records
		depositRecords = records
	}

	intakeSvc := intake.NewService(log, business, sender, tasks, intakeRecords, contacts, issuer)
	intakeModule := intake.NewModule(intakeSvc)

	var hookSender paymenthook.EmailSender
	if sender != nil {
		hookSender = sender
	}
	hookSvc := paymenthook.NewService(log, business.Name, business.NotifyAddress,
		cfg.GetStripeWebhookSecret(), hookSender, depositRecords)
	hookModule := paymenthook.NewModule(hookSvc)

	siteconfigModule := siteconfig.NewModule(cfg)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config: cfg,
		Logger: log,
		Modules: []apphttp.Module{
			intakeModule,
			hookModule,
			siteconfigModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = shutdownCtx
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}
