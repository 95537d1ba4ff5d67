package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/priyanshu-3/SkinCare/internal/adapters/geocoding"
	"github.com/priyanshu-3/SkinCare/internal/adapters/http"
	"github.com/priyanshu-3/SkinCare/internal/adapters/kafka"
	"github.com/priyanshu-3/SkinCare/internal/adapters/minio"
	natsadapter "github.com/priyanshu-3/SkinCare/internal/adapters/nats"
	"github.com/priyanshu-3/SkinCare/internal/adapters/postgres"
	"github.com/priyanshu-3/SkinCare/internal/adapters/valkey"
	"github.com/priyanshu-3/SkinCare/internal/core/domain"
	"github.com/priyanshu-3/SkinCare/internal/core/ports"
	"github.com/priyanshu-3/SkinCare/internal/core/usecases"
	"github.com/priyanshu-3/SkinCare/internal/pkg/config"
	"github.com/priyanshu-3/SkinCare/internal/pkg/logging"
	"github.com/priyanshu-3/SkinCare/internal/pkg/metrics"
	"github.com/priyanshu-3/SkinCare/internal/pkg/telemetry"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load("skincare-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logging.Setup(cfg.Telemetry.ServiceName, cfg.Logging.Level, cfg.Logging.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Database (optional)
	var (
		db   *postgres.DB
		repo ports.ResolutionRepository
	)
	if cfg.Database.Enabled() {
		db, err = postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		defer db.Close()
		repo = postgres.NewResolutionRepo(db)
		go reportPoolStats(ctx, db)
	} else {
		slog.Info("database not configured, resolution history disabled")
	}

	// Cache
	var cacheSvc ports.CacheService
	cache, err := valkey.New(cfg.Valkey.Addr, cfg.Valkey.Prefix)
	if err != nil {
		slog.Warn("valkey unavailable", "error", err)
		cache = nil
	} else {
		defer cache.Close()
		cacheSvc = cache
	}

	// Geocoding collaborators
	var ipLookup ports.IPGeolocator = geocoding.NewIPAPIClient(cfg.Geocoding.IPAPIURL, cfg.Geocoding.UserAgent, cfg.Geocoding.Timeout)
	var reverse ports.ReverseGeocoder = geocoding.NewNominatimClient(cfg.Geocoding.NominatimURL, cfg.Geocoding.UserAgent, cfg.Geocoding.Language, cfg.Geocoding.Timeout)
	if cacheSvc != nil && cfg.Geocoding.CacheTTL > 0 {
		ttl := int(cfg.Geocoding.CacheTTL.Seconds())
		ipLookup = usecases.NewCachedIPGeolocator(ipLookup, cacheSvc, ttl)
		reverse = usecases.NewCachedReverseGeocoder(reverse, cacheSvc, cfg.Geocoding.CacheCellMeters, ttl)
	}

	// Events
	publisher, closePublisher := newPublisher(cfg)
	defer closePublisher()

	// Raw NATS connection for WebSocket relay
	natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
		natsConn = nil
	} else {
		defer natsConn.Close()
	}

	// Report storage (optional)
	var store ports.ReportStore
	if cfg.Storage.Endpoint != "" {
		rs, err := minio.NewReportStore(minio.Options{
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			Bucket:    cfg.Storage.Bucket,
			Region:    cfg.Storage.Region,
			UseSSL:    cfg.Storage.UseSSL,
		})
		if err != nil {
			log.Fatalf("storage: %v", err)
		}
		if err := rs.EnsureBucket(ctx); err != nil {
			slog.Warn("report bucket unavailable", "bucket", cfg.Storage.Bucket, "error", err)
		}
		store = rs
	}

	// Use cases
	opts := ports.DefaultPositionOptions()
	opts.Timeout = cfg.Resolver.PositionTimeout
	resolver := usecases.NewLocationResolver(ipLookup, reverse, opts)

	deps := &http.Dependencies{
		Resolutions:     usecases.NewResolutionService(resolver, reverse, repo, publisher),
		Exports:         usecases.NewExportService(repo, store),
		IP:              ipLookup,
		Reverse:         reverse,
		ForwardClientIP: cfg.Resolver.ForwardClientIP,
		DefaultOrder:    domain.Order(cfg.Resolver.Order),
		Version:         version,
		NATS:            natsConn,
		DB:              db,
		Cache:           cache,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "SkinCare Location API",
		ProxyHeader:  cfg.Server.ProxyHeader,
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowOrigins,
		AllowMethods:     "GET,POST,PUT,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		ExposeHeaders:    "Link, X-Resolution-ID, X-Request-ID",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr, "version", version)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	// Give in-flight requests up to 10s to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}

// newPublisher connects the configured event driver. A broker that cannot
// be reached disables events instead of failing startup.
func newPublisher(cfg *config.Config) (ports.EventPublisher, func()) {
	switch cfg.Events.Driver {
	case "kafka":
		p := kafka.NewPublisher(cfg.Events.KafkaBrokers, cfg.Events.KafkaTopic)
		return p, func() { _ = p.Close() }
	case "nats":
		p, err := natsadapter.NewPublisher(cfg.NATS.URL, cfg.NATS.MaxAge)
		if err != nil {
			slog.Warn("nats unavailable, resolution events disabled", "error", err)
			return nil, func() {}
		}
		return p, p.Close
	default:
		return nil, func() {}
	}
}

func reportPoolStats(ctx context.Context, db *postgres.DB) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.UpdateDBPoolMetrics(db.Pool.Stat())
		}
	}
}
