package main

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"dossierapi/docs"
	"dossierapi/internal/config"
	"dossierapi/internal/database"
	"dossierapi/internal/database/migration"
	handlers "dossierapi/internal/http/handler"
	"dossierapi/internal/http/middleware"
	"dossierapi/internal/identity"
	"dossierapi/internal/notify"
	"dossierapi/internal/otel"
	"dossierapi/internal/repository/postgres"
	"dossierapi/internal/service"
	"dossierapi/internal/storage"
)

// @title Dossier API
// @version 1.0
// @BasePath /
func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()
	loc := time.UTC
	ctx := context.Background()

	// OpenTelemetry tracing (OTLP); degrades to noop when the exporter is unreachable
	shutdownTracing, err := otel.Init(ctx, loc)
	if err != nil {
		log.Fatalf("failed to initialize tracing: %v", err)
	}
	defer shutdownTracing(context.Background())

	// Initialize PostgreSQL connection (with pooling via database/sql)
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := migration.EnsureMigrated(ctx, db, loc, cfg.Database.Host); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	// Initialize reusable S3-compatible object storage client (MinIO-supported)
	objStore, err := storage.NewMinIO(cfg.MinIO)
	if err != nil {
		log.Fatalf("failed to initialize object storage: %v", err)
	}

	// Notifications go to Redis pub/sub when configured, JSON logs otherwise
	var dispatcher notify.Dispatcher
	if cfg.Redis.Addr != "" {
		dispatcher, err = notify.NewRedisDispatcher(cfg.Redis)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
	} else {
		dispatcher = notify.NewLogDispatcher()
	}

	var resolver identity.Resolver
	if cfg.Auth.JWTSecret != "" {
		resolver, err = identity.NewJWTResolver(cfg.Auth)
		if err != nil {
			log.Fatalf("failed to initialize identity resolver: %v", err)
		}
	} else {
		log.Println("JWT_SECRET is empty; running without authentication")
	}

	registry := prometheus.NewRegistry()
	promMw, err := middleware.NewPrometheusMiddleware(registry)
	if err != nil {
		log.Fatalf("failed to register http metrics: %v", err)
	}
	metrics, err := service.NewMetrics(registry)
	if err != nil {
		log.Fatalf("failed to register domain metrics: %v", err)
	}

	// Initialize repositories and services
	dossierRepo := postgres.NewDossierPostgres(db)
	dossierSvc := service.NewDossierService(dossierRepo, objStore, dispatcher, metrics)

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
	})

	// Register global middleware
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	// JSON Logger middleware for structured request logs
	app.Use(middleware.Logger(loc))
	app.Use(promMw.Handler())
	app.Use(otelfiber.Middleware())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	// Register HTTP routes with injected service
	handlers.RegisterRoutes(app, db, dossierSvc, resolver)

	// Swagger UI with dynamic host and scheme
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.Split(proto, ",")[0]
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	})

	addr := ":" + cfg.Port

	if err := app.Listen(addr); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}
