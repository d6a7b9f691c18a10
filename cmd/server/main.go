package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"worklink/internal/audit"
	auditworker "worklink/internal/audit/worker"
	"worklink/internal/authz"
	authzhandler "worklink/internal/authz/handler"
	"worklink/internal/document"
	httpapi "worklink/internal/http"
	"worklink/internal/platform/config"
	"worklink/internal/platform/httpserver"
	"worklink/internal/platform/logger"
	platformredis "worklink/internal/platform/redis"
	"worklink/internal/platform/token"
	"worklink/internal/ratelimit"
	verifhandler "worklink/internal/verification/handler"
	vmetrics "worklink/internal/verification/metrics"
	"worklink/internal/verification/service"
	"worklink/internal/verification/store/submission"
)

// main wires dependencies and owns the process lifecycle. Without
// DATABASE_URL everything runs on in-memory stores, which is enough for
// local development and demos.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	health := make(map[string]httpapi.HealthChecker)

	// Storage.
	var (
		db         *sql.DB
		subStore   service.SubmissionStore
		auditStore audit.Store
		storeTx    service.StoreTx
	)
	if cfg.DatabaseURL != "" {
		var err error
		db, err = sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return err
		}
		subStore = submission.NewPostgres(db)
		auditStore = audit.NewPostgresStore(db)
		storeTx = service.NewSQLStoreTx(db)
		health["database"] = dbHealth{db}
		log.Info("using postgres store")
	} else {
		subStore = submission.NewInMemory()
		auditStore = audit.NewInMemoryStore()
		log.Warn("DATABASE_URL not set, using in-memory stores")
	}

	blobs, err := document.NewFSStore(cfg.UploadDir)
	if err != nil {
		return err
	}

	// Rate limiting, shared across instances when Redis is configured.
	var limiter ratelimit.Limiter = ratelimit.NewInMemory()
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		limiter = ratelimit.NewRedis(redisClient.Client)
		health["redis"] = redisClient
		log.Info("using redis rate limiter")
	}

	// Domain services.
	emitter := audit.NewEmitter(auditStore, log)
	svcOpts := []service.Option{
		service.WithAuditEmitter(emitter),
		service.WithMetrics(vmetrics.New()),
		service.WithLogger(log),
		service.WithMaxBlobBytes(cfg.MaxUploadBytes),
	}
	if storeTx != nil {
		svcOpts = append(svcOpts, service.WithStoreTx(storeTx))
	}
	svc := service.New(subStore, blobs, cfg.AcceptedDocTypes, svcOpts...)

	gate := authz.New(svc, cfg.RequiredDocTypes, log)
	tokens := token.NewService(cfg.JWTSigningKey, "worklink", "worklink-api")

	throttle := ratelimit.New(limiter, cfg.SubmitRateLimit, cfg.SubmitRateWindow, log,
		ratelimit.WithDisabled(cfg.RateLimitOff))

	router := httpapi.NewRouter(httpapi.Deps{
		Verification:   verifhandler.New(svc, log, verifhandler.WithMaxUploadBytes(cfg.MaxUploadBytes)),
		Authz:          authzhandler.New(gate, log),
		Throttle:       throttle,
		TokenValidator: tokens,
		InternalToken:  cfg.InternalToken,
		Health:         health,
		Logger:         log,
	})

	// Audit outbox publisher, only when both postgres and kafka are present.
	if db != nil && len(cfg.Kafka.Brokers) > 0 {
		worker, err := auditworker.New(db, cfg.Kafka.Brokers, cfg.Kafka.AuditTopic, log)
		if err != nil {
			return err
		}
		defer worker.Close()
		go worker.Run(ctx)
		log.Info("audit outbox publisher started", "topic", cfg.Kafka.AuditTopic)
	}

	srv := httpserver.New(cfg.Addr, router)

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting worklink verification service", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info("server stopped")
	return nil
}

type dbHealth struct {
	db *sql.DB
}

func (h dbHealth) Health(ctx context.Context) error {
	return h.db.PingContext(ctx)
}
