package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/priyanshu-3/SkinCare/internal/pkg/metrics"
)

const (
	requestTimeout = 15 * time.Second
	// Resolution may wait for the device position and two collaborators.
	resolveTimeout = 30 * time.Second
)

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	app.Use(requestid.New())
	app.Use(RequestIDLogMiddleware())
	app.Use(AccessLogMiddleware())

	// Rate limiting: 120 requests per minute per IP
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, fiber.StatusTooManyRequests, "rate_limited", "too many requests, please try again later")
		},
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	app.Use(ETagMiddleware())
	app.Use(CachingMiddleware())

	// Health & readiness (no timeout)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	v1 := app.Group("/v1")
	loc := v1.Group("/location")
	loc.Post("/resolve", timeout.NewWithContext(ResolveLocationHandler(deps), resolveTimeout))
	loc.Get("/reverse", timeout.NewWithContext(ReverseGeocodeHandler(deps), requestTimeout))
	loc.Get("/ip", timeout.NewWithContext(IPLookupHandler(deps), requestTimeout))

	// export.csv must be registered before :id.
	loc.Get("/resolutions/export.csv", timeout.NewWithContext(ExportCSVHandler(deps), resolveTimeout))
	loc.Post("/resolutions/export", timeout.NewWithContext(ExportReportHandler(deps), resolveTimeout))
	loc.Get("/resolutions", timeout.NewWithContext(ListResolutionsHandler(deps), requestTimeout))
	loc.Get("/resolutions/:id", timeout.NewWithContext(GetResolutionHandler(deps), requestTimeout))
	loc.Post("/resolutions/:id/refine", timeout.NewWithContext(RefineResolutionHandler(deps), requestTimeout))

	v1.Put("/forms/:id/location", FormLocationHandler(deps))

	// GraphQL
	app.Post("/graphql", GraphQLHandler(deps))

	// API documentation (Swagger UI)
	SetupDocs(app)

	// WebSocket relay of resolution events
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(WebSocketHandler(deps.NATS)))
}
