// Command server runs the tokenops compliance API.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"github.com/mirroredkube/tokenops-sub001/internal/directory"
	"github.com/mirroredkube/tokenops-sub001/internal/issuance"
	issuancehandler "github.com/mirroredkube/tokenops-sub001/internal/issuance/handler"
	"github.com/mirroredkube/tokenops-sub001/internal/jwtauth"
	"github.com/mirroredkube/tokenops-sub001/internal/ledger"
	"github.com/mirroredkube/tokenops-sub001/internal/platform/config"
	"github.com/mirroredkube/tokenops-sub001/internal/platform/httpserver"
	"github.com/mirroredkube/tokenops-sub001/internal/platform/logger"
	"github.com/mirroredkube/tokenops-sub001/internal/platform/metrics"
	platformredis "github.com/mirroredkube/tokenops-sub001/internal/platform/redis"
	"github.com/mirroredkube/tokenops-sub001/internal/policy"
	"github.com/mirroredkube/tokenops-sub001/internal/policy/catalog"
	policyhandler "github.com/mirroredkube/tokenops-sub001/internal/policy/handler"
	policymetrics "github.com/mirroredkube/tokenops-sub001/internal/policy/metrics"
	"github.com/mirroredkube/tokenops-sub001/internal/requirement"
	requirementhandler "github.com/mirroredkube/tokenops-sub001/internal/requirement/handler"
	"github.com/mirroredkube/tokenops-sub001/internal/snapshot"
	transporthttp "github.com/mirroredkube/tokenops-sub001/internal/transport/http"
	"github.com/mirroredkube/tokenops-sub001/pkg/platform/audit"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Stores: PostgreSQL when configured, in-memory for development.
	var (
		db             *sql.DB
		directoryStore directory.Store
		catalogStore   catalog.Store
		instanceStore  requirement.Store
		snapshotStore  snapshot.Store
		issuanceStore  issuance.Store
		auditStore     audit.Store
	)
	if cfg.DatabaseURL != "" {
		var err error
		db, err = sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()
		db.SetMaxOpenConns(25)
		db.SetConnMaxIdleTime(5 * time.Minute)
		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("ping database: %w", err)
		}

		directoryStore = directory.NewPostgres(db)
		catalogStore = catalog.NewPostgres(db)
		instanceStore = requirement.NewPostgres(db)
		snapshotStore = snapshot.NewPostgres(db)
		issuanceStore = issuance.NewPostgres(db)
		auditStore = audit.NewPostgresStore(db)
		log.Info("using postgresql stores")
	} else {
		dirStore := directory.NewInMemoryStore()
		seedDevDirectory(ctx, dirStore)
		directoryStore = dirStore
		memCatalog := catalog.NewInMemoryStore()
		if err := catalog.SeedMiCAV1(ctx, memCatalog); err != nil {
			return fmt.Errorf("seed catalog: %w", err)
		}
		catalogStore = memCatalog
		instanceStore = requirement.NewInMemoryStore()
		snapshotStore = snapshot.NewInMemoryStore()
		issuanceStore = issuance.NewInMemoryStore()
		auditStore = audit.NewInMemoryStore()
		log.Info("using in-memory stores with seeded dev data")
	}

	redisClient, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
		catalogStore = catalog.NewRedisCache(catalogStore, redisClient.Client, time.Hour)
		log.Info("template catalog cache enabled")
	}

	// Audit: fail-closed outbox writes, async drain to the sink.
	var sink audit.Sink
	if len(cfg.KafkaBrokers) > 0 {
		kafkaSink, err := audit.NewKafkaSink(cfg.KafkaBrokers, cfg.AuditTopic)
		if err != nil {
			return fmt.Errorf("connect kafka: %w", err)
		}
		defer kafkaSink.Close()
		sink = kafkaSink
		log.Info("audit events flow to kafka", "topic", cfg.AuditTopic)
	} else {
		sink = audit.NewLogSink(log)
		log.Warn("no kafka brokers configured, audit events flow to the log sink")
	}
	publisher := audit.NewPublisher(auditStore, audit.WithLogger(log))
	worker := audit.NewWorker(auditStore, sink, log)
	go func() {
		if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("audit worker stopped", "error", err)
		}
	}()

	m := metrics.New()
	pm := policymetrics.New()

	evaluator := policy.NewEvaluator(catalogStore, policy.WithMetrics(pm))
	factBuilder := directory.NewFactBuilder(directoryStore)

	instanceSvc := requirement.NewService(evaluator, instanceStore, publisher, log, pm)
	snapshotSvc := snapshot.NewService(instanceStore, snapshotStore)
	anchorer := ledger.NewMemoryAnchorer()
	var readinessCache *redis.Client
	if redisClient != nil {
		readinessCache = redisClient.Client
	}
	readiness := ledger.NewReadinessChecker(ledger.NewStaticTrustlineReader(), readinessCache,
		cfg.ReadinessCacheTTL, log)
	issuanceSvc := issuance.NewService(issuanceStore, directoryStore, snapshotSvc, anchorer,
		publisher, log, m, cfg.AnchorMemoPrefix, issuance.WithReadiness(readiness))

	router := transporthttp.New(transporthttp.Deps{
		Logger:      log,
		Metrics:     m,
		JWT:         jwtauth.NewValidator(cfg.JWTSigningKey),
		Policy:      policyhandler.New(evaluator, catalogStore, factBuilder, directoryStore, instanceSvc, log),
		Requirement: requirementhandler.New(instanceSvc, factBuilder, log),
		Issuance:    issuancehandler.New(issuanceSvc, log),
		Health: func() error {
			if db != nil {
				return db.Ping()
			}
			return nil
		},
	})

	srv := httpserver.New(cfg.Addr, router)
	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// seedDevDirectory loads one org/product/asset so the API is exercisable
// without external setup. IDs are fixed for curl-ability.
func seedDevDirectory(ctx context.Context, store *directory.InMemoryStore) {
	now := time.Now()
	orgID := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	productID := uuid.MustParse("00000000-0000-0000-0000-000000000002")
	assetID := uuid.MustParse("00000000-0000-0000-0000-000000000003")

	_ = store.PutOrganization(ctx, &directory.Organization{
		ID: orgID, Name: "Demo Issuer GmbH", Country: "DE",
		LegalName: "Demo Issuer GmbH", CreatedAt: now,
	})
	_ = store.PutProduct(ctx, &directory.Product{
		ID: productID, OrganizationID: orgID, Name: "Demo ART Token",
		AssetClass: policy.AssetClassART, TargetMarkets: []string{"DE", "FR"},
		DistributionType: policy.DistributionOffer, InvestorAudience: policy.AudienceRetail,
		CreatedAt: now,
	})
	_ = store.PutAsset(ctx, &directory.Asset{
		ID: assetID, ProductID: productID, OrganizationID: orgID,
		Code: "DEMO", Ledger: policy.LedgerXRPL,
		IssuerAddress:  "rDemoIssuerAddress",
		IsCaspInvolved: true, TransferType: policy.TransferCaspToCasp,
		CreatedAt: now,
	})
}
