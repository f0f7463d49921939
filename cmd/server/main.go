package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"landledger/internal/advisory"
	"landledger/internal/audit"
	auditstore "landledger/internal/audit/store"
	"landledger/internal/docstore"
	"landledger/internal/history"
	"landledger/internal/platform/config"
	"landledger/internal/platform/httpserver"
	"landledger/internal/platform/logger"
	platmetrics "landledger/internal/platform/metrics"
	"landledger/internal/platform/middleware"
	"landledger/internal/platform/postgres"
	platredis "landledger/internal/platform/redis"
	profilehandler "landledger/internal/profile/handler"
	profileservice "landledger/internal/profile/service"
	profilestore "landledger/internal/profile/store"
	registryhandler "landledger/internal/registry/handler"
	registrymetrics "landledger/internal/registry/metrics"
	registryservice "landledger/internal/registry/service"
	"landledger/internal/registry/store/ledger"
	"landledger/pkg/domain"
)

// main wires configuration into stores, services, and the HTTP surface.
// Every external dependency is optional: with no Postgres, Redis, or Kafka
// configured the ledger runs entirely in memory, which is the development
// and test posture.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	admin, err := domain.ParseAddress(cfg.Admin.Address)
	if err != nil {
		log.Error("LEDGER_ADMIN_ADDRESS is required and must be a wallet address", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(ctx, cfg.Postgres)
	if err != nil {
		log.Error("postgres connection failed", "error", err)
		os.Exit(1)
	}

	var ledgerStore registryservice.LedgerStore
	var profileStore profileservice.Store
	var auditSink audit.Store
	if db != nil {
		pgLedger := ledger.NewPostgres(db)
		pgProfiles := profilestore.NewPostgres(db)
		pgAudit := auditstore.NewPostgres(db)
		for _, ensure := range []func(context.Context) error{
			pgLedger.EnsureSchema, pgProfiles.EnsureSchema, pgAudit.EnsureSchema,
		} {
			if err := ensure(ctx); err != nil {
				log.Error("schema migration failed", "error", err)
				os.Exit(1)
			}
		}
		ledgerStore = pgLedger
		profileStore = pgProfiles
		auditSink = pgAudit
		log.Info("using postgres ledger store")
	} else {
		ledgerStore = ledger.NewInMemory()
		profileStore = profilestore.NewInMemory()
		auditSink = auditstore.NewMemory()
		log.Info("postgres not configured, using in-memory stores")
	}

	redisClient, err := platredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	var index history.Index
	if redisClient != nil {
		index = history.NewRedis(redisClient.Client)
		log.Info("using redis history index")
	} else {
		index = history.NewInMemory()
	}

	if len(cfg.Kafka.Brokers) > 0 {
		sink, err := audit.NewKafkaSink(ctx, auditSink, cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		if err != nil {
			log.Error("kafka connection failed", "error", err)
			os.Exit(1)
		}
		defer sink.Close(context.Background())
		auditSink = sink
		log.Info("mirroring audit events to kafka", "topic", cfg.Kafka.Topic)
	}
	inbox := make(chan audit.Event, 1024)
	auditWorker := audit.NewWorker(auditSink, inbox, log)
	auditor := audit.NewAsyncPublisher(inbox)

	regMetrics := registrymetrics.New()
	httpMetrics := platmetrics.New()

	registrySvc := registryservice.New(admin, ledgerStore, index, log,
		registryservice.WithAudit(auditor),
		registryservice.WithMetrics(regMetrics),
	)
	if err := registrySvc.RebuildIndex(ctx); err != nil {
		log.Error("history index rebuild failed", "error", err)
		os.Exit(1)
	}

	profileSvc := profileservice.New(profileStore, log, profileservice.WithAudit(auditor))

	var completer advisory.TextCompleter = advisory.Unconfigured{}
	if cfg.Advisory.Endpoint != "" {
		completer = advisory.NewHTTPClient(cfg.Advisory.Endpoint, cfg.Advisory.APIKey, cfg.Advisory.Timeout)
	}
	advisorySvc := advisory.NewService(registrySvc, completer, log)

	var documents docstore.Store
	if cfg.Pinning.Endpoint != "" {
		documents = docstore.NewPinningClient(cfg.Pinning.Endpoint, cfg.Pinning.GatewayURL, cfg.Pinning.APIKey, cfg.Pinning.Timeout)
		log.Info("pinning documents to external storage")
	} else {
		documents = docstore.NewInMemory()
	}

	registryHandler := registryhandler.New(registrySvc, log)
	if cfg.Server.RequireKYC {
		registryHandler = registryHandler.WithKYCGate(profileSvc)
		log.Info("transfers require a KYC profile")
	}

	verifier := middleware.NewJWTVerifier(cfg.Server.JWTSigningKey)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RequestTime)
	router.Use(middleware.Recovery(log))
	router.Use(middleware.Logger(log))
	router.Use(middleware.ClientMetadata)
	router.Use(middleware.Latency(httpMetrics))
	router.Use(middleware.Timeout(60 * time.Second))

	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", healthz(db, redisClient))

	// Anyone may browse the registry; only mutations and the KYC, document,
	// and advisory surfaces require a verified identity.
	registryHandler.RegisterReads(router)

	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireIdentity(verifier, log))
		r.Use(middleware.ContentTypeJSON)
		registryHandler.RegisterWrites(r)
		profilehandler.New(profileSvc, admin, log).Register(r)
		advisory.NewHandler(advisorySvc, admin, log).Register(r)
		docstore.NewHandler(documents, auditor, log).Register(r)
	})

	srv := httpserver.New(cfg.Server.Addr, router)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return auditWorker.Run(ctx)
	})
	g.Go(func() error {
		log.Info("landledger listening", "addr", cfg.Server.Addr, "admin", admin.Checksum())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("shutdown with error", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}

func healthz(db *sql.DB, redisClient *platredis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if db != nil {
			if err := db.PingContext(ctx); err != nil {
				http.Error(w, "postgres unhealthy", http.StatusServiceUnavailable)
				return
			}
		}
		if redisClient != nil {
			if err := redisClient.Health(ctx); err != nil {
				http.Error(w, "redis unhealthy", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}
}
