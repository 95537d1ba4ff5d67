// Command refiner retries reverse geocoding for resolutions that fell back
// to bare coordinates. It listens for resolution events and runs one
// Temporal refine workflow per numeric fallback.
package main

import (
	"context"
	"log"
	"log/slog"
	"os/signal"
	"syscall"

	"go.temporal.io/sdk/client"
	temporallog "go.temporal.io/sdk/log"
	"go.temporal.io/sdk/worker"

	"github.com/priyanshu-3/SkinCare/internal/adapters/geocoding"
	"github.com/priyanshu-3/SkinCare/internal/adapters/kafka"
	natsadapter "github.com/priyanshu-3/SkinCare/internal/adapters/nats"
	"github.com/priyanshu-3/SkinCare/internal/adapters/postgres"
	"github.com/priyanshu-3/SkinCare/internal/adapters/valkey"
	"github.com/priyanshu-3/SkinCare/internal/core/domain"
	"github.com/priyanshu-3/SkinCare/internal/core/ports"
	"github.com/priyanshu-3/SkinCare/internal/core/usecases"
	"github.com/priyanshu-3/SkinCare/internal/pkg/config"
	"github.com/priyanshu-3/SkinCare/internal/pkg/logging"
	"github.com/priyanshu-3/SkinCare/internal/workflows"
)

func main() {
	cfg, err := config.Load("skincare-refiner")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Telemetry.ServiceName, cfg.Logging.Level, cfg.Logging.Format)

	if !cfg.Database.Enabled() {
		log.Fatal("refiner requires database.host")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	var reverse ports.ReverseGeocoder = geocoding.NewNominatimClient(cfg.Geocoding.NominatimURL, cfg.Geocoding.UserAgent, cfg.Geocoding.Language, cfg.Geocoding.Timeout)
	if cache, err := valkey.New(cfg.Valkey.Addr, cfg.Valkey.Prefix); err != nil {
		slog.Warn("valkey unavailable", "error", err)
	} else {
		defer cache.Close()
		if cfg.Geocoding.CacheTTL > 0 {
			reverse = usecases.NewCachedReverseGeocoder(reverse, cache, cfg.Geocoding.CacheCellMeters, int(cfg.Geocoding.CacheTTL.Seconds()))
		}
	}

	// Refined resolutions are published back so WebSocket clients see the new text.
	var (
		publisher  ports.EventPublisher
		subscriber ports.EventSubscriber
	)
	switch cfg.Events.Driver {
	case "kafka":
		p := kafka.NewPublisher(cfg.Events.KafkaBrokers, cfg.Events.KafkaTopic)
		defer p.Close()
		s := kafka.NewSubscriber(cfg.Events.KafkaBrokers, cfg.Events.KafkaTopic, cfg.Events.KafkaGroupID)
		defer s.Close()
		publisher, subscriber = p, s
	case "nats":
		p, err := natsadapter.NewPublisher(cfg.NATS.URL, cfg.NATS.MaxAge)
		if err != nil {
			log.Fatalf("nats publisher: %v", err)
		}
		defer p.Close()
		s, err := natsadapter.NewSubscriber(cfg.NATS.URL, cfg.NATS.Durable)
		if err != nil {
			log.Fatalf("nats subscriber: %v", err)
		}
		defer s.Close()
		publisher, subscriber = p, s
	default:
		slog.Warn("events disabled, refinement only runs for workflows started elsewhere")
	}

	ipLookup := geocoding.NewIPAPIClient(cfg.Geocoding.IPAPIURL, cfg.Geocoding.UserAgent, cfg.Geocoding.Timeout)
	resolutions := usecases.NewResolutionService(
		usecases.NewLocationResolver(ipLookup, reverse, ports.DefaultPositionOptions()),
		reverse,
		postgres.NewResolutionRepo(db),
		publisher,
	)

	// Connect to Temporal
	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    temporallog.NewStructuredLogger(slog.Default()),
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.RefineWorkflow)
	w.RegisterActivity(&workflows.RefineActivities{Refiner: resolutions})

	if subscriber != nil {
		err := subscriber.SubscribeResolutions(ctx, func(ctx context.Context, ev domain.ResolutionEvent) error {
			return workflows.StartRefine(ctx, c, cfg.Temporal.TaskQueue, cfg.Temporal.RefineDelay, ev)
		})
		if err != nil {
			log.Fatalf("subscribe: %v", err)
		}
	}

	slog.Info("refiner worker started", "task_queue", cfg.Temporal.TaskQueue, "events", cfg.Events.Driver)
	if err := w.Run(workerInterrupt(ctx)); err != nil {
		log.Fatalf("worker: %v", err)
	}
	stop()
	slog.Info("refiner stopped")
}

// workerInterrupt adapts ctx cancellation to the worker's interrupt channel.
func workerInterrupt(ctx context.Context) <-chan interface{} {
	ch := make(chan interface{}, 1)
	go func() {
		<-ctx.Done()
		ch <- struct{}{}
	}()
	return ch
}
