package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/gstech/itc-compliance/internal/api"
	"github.com/gstech/itc-compliance/internal/config"
	"github.com/gstech/itc-compliance/internal/crypto"
	"github.com/gstech/itc-compliance/internal/engine"
	"github.com/gstech/itc-compliance/internal/events"
	"github.com/gstech/itc-compliance/internal/mockdata"
	"github.com/gstech/itc-compliance/internal/repository/elasticsearch"
	"github.com/gstech/itc-compliance/internal/repository/file"
	"github.com/gstech/itc-compliance/internal/repository/postgres"
	"github.com/gstech/itc-compliance/internal/repository/s3"
	"github.com/gstech/itc-compliance/internal/service"
)

func main() {
	// 1. Config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()
	sugar := logger.Sugar()

	sugar.Info("Starting ITC Compliance Graph Engine...")

	// 3. Audit signer
	secret := cfg.Signing.AuditHMACSecret
	if secret == "" {
		// Dev fallback; real deployments set ITC_SIGNING_AUDIT_HMAC_SECRET.
		secret = base64.StdEncoding.EncodeToString([]byte("itc-dev-secret"))
		sugar.Warn("No audit HMAC secret configured, using dev fallback")
	}
	signer, err := crypto.NewSigner(secret)
	if err != nil {
		sugar.Fatalf("Failed to initialize signer: %v", err)
	}

	// 4. Snapshot repository
	snapRepo, cleanup, err := buildSnapshotRepository(cfg, logger)
	if err != nil {
		sugar.Fatalf("Failed to initialize snapshot loader: %v", err)
	}
	if cleanup != nil {
		defer cleanup()
	}

	// 5. Audit index (optional)
	var indexer service.AuditIndexer
	if cfg.Elasticsearch.Enabled {
		esRepo, err := elasticsearch.NewAuditRepository(cfg.Elasticsearch)
		if err != nil {
			sugar.Warnf("Failed to connect to Elasticsearch: %v (query audits will not be indexed)", err)
		} else {
			indexer = esRepo
		}
	}

	// 6. Graph service + initial build
	engineCfg := engine.Config{
		PaymentWindowDays:  cfg.Compliance.PaymentWindowDays,
		WarningWindowDays:  cfg.Compliance.WarningWindowDays,
		AnnualInterestRate: cfg.Compliance.AnnualInterestRate,
		DefaultMaxHops:     cfg.Compliance.DefaultMaxHops,
	}
	graphService := service.NewGraphService(snapRepo, indexer, signer, engineCfg, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := graphService.Rebuild(ctx); err != nil {
		sugar.Fatalf("Initial graph build failed: %v", err)
	}

	// 7. Kafka rebuild trigger (optional)
	if cfg.Kafka.Enabled {
		consumer, err := events.NewRebuildConsumer(cfg.Kafka, graphService, logger)
		if err != nil {
			sugar.Fatalf("Failed to create Kafka consumer: %v", err)
		}
		go func() {
			sugar.Info("Starting Kafka consumer loop...")
			if err := consumer.Start(ctx); err != nil {
				sugar.Errorf("Kafka consumer failed: %v", err)
			}
		}()
		defer consumer.Close()
	}

	// 8. API Server
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	graphHandler := api.NewGraphHandler(graphService)
	apiGroup := e.Group("/api")

	// Security: JWT authentication when a public key is configured
	if signingKey := loadJWTKey(cfg, sugar); signingKey != nil {
		jwtConfig := echojwt.Config{
			SigningKey:    signingKey,
			SigningMethod: "RS256",
			NewClaimsFunc: func(c echo.Context) jwt.Claims {
				return new(jwt.MapClaims)
			},
			Skipper: func(c echo.Context) bool {
				return c.Path() == "/api/health"
			},
		}
		apiGroup.Use(echojwt.WithConfig(jwtConfig))
		sugar.Info("JWT Authentication enabled for /api/*")
	} else {
		sugar.Warn("JWT Authentication DISABLED - Missing Public Key")
	}

	graphHandler.RegisterRoutes(apiGroup)

	// Start Server
	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			sugar.Fatalf("Shutting down the server: %v", err)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	sugar.Info("Shutting down service...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		sugar.Fatal(err)
	}
}

// buildSnapshotRepository selects the loader configured for this deployment.
func buildSnapshotRepository(cfg *config.Config, logger *zap.Logger) (service.SnapshotRepository, func(), error) {
	switch cfg.Loader.Source {
	case "file":
		return file.NewSnapshotRepository(cfg.Loader.Dir, logger), nil, nil
	case "postgres":
		repo, err := postgres.NewSnapshotRepository(cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		return repo, repo.Close, nil
	case "s3":
		repo, err := s3.NewSnapshotRepository(context.Background(), cfg.S3, logger)
		if err != nil {
			return nil, nil, err
		}
		return repo, nil, nil
	case "mock":
		opts := mockdata.DefaultOptions()
		opts.Seed = cfg.Loader.MockSeed
		return mockdata.NewSnapshotRepository(opts), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown loader source %q", cfg.Loader.Source)
	}
}

func loadJWTKey(cfg *config.Config, sugar *zap.SugaredLogger) interface{} {
	if cfg.Auth.JWTPublicKeyPath == "" {
		return nil
	}
	keyData, err := os.ReadFile(cfg.Auth.JWTPublicKeyPath)
	if err != nil {
		sugar.Warnf("JWT public key not found at %s: %v", cfg.Auth.JWTPublicKeyPath, err)
		return nil
	}
	signingKey, err := jwt.ParseRSAPublicKeyFromPEM(keyData)
	if err != nil {
		sugar.Warnf("Failed to parse JWT public key: %v", err)
		return nil
	}
	return signingKey
}
