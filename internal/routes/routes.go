package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/example/certrenew/internal/config"
	"github.com/example/certrenew/internal/handlers"
	"github.com/example/certrenew/internal/metrics"
	"github.com/example/certrenew/internal/middleware"
	"github.com/example/certrenew/internal/models"
)

// Dependencies are the collaborators shared by all route handlers.
type Dependencies struct {
	DB       *gorm.DB
	Config   *config.Config
	Payments handlers.PaymentVerifier
	Notifier handlers.RenewalNotifier
	Metrics  *metrics.RenewalMetrics
	// Gatherer backs GET /metrics; nil disables the endpoint.
	Gatherer prometheus.Gatherer
	Logger   zerolog.Logger
	Clock    handlers.Clock
}

// Register wires up all HTTP routes.
func Register(app *fiber.App, deps Dependencies) {
	db, cfg := deps.DB, deps.Config

	authHandler := handlers.NewAuthHandler(db, cfg)
	certificateHandler := handlers.NewCertificateHandler(db, deps.Clock)
	renewalHandler := handlers.NewRenewalHandler(db, deps.Payments, deps.Notifier, deps.Metrics, deps.Logger, deps.Clock)
	adminHandler := handlers.NewAdminHandler(db, cfg, deps.Metrics, deps.Clock)

	authenticated := middleware.Authenticate(cfg, db)
	adminOnly := middleware.Authenticate(cfg, db, models.RoleAdmin)

	app.Use(cors.New(corsConfig(cfg)))

	app.Get("/", handlers.Health)
	if deps.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	api := app.Group("/api")

	user := api.Group("/user")
	user.Post("/register", authHandler.Register)
	user.Post("/login", authHandler.Login)
	user.Post("/logout", authHandler.Logout)

	certificates := api.Group("/certificate")
	certificates.Get("/", authenticated, certificateHandler.ListCertificates)
	certificates.Get("/:id", authenticated, certificateHandler.GetCertificate)
	certificates.Post("/", authenticated, certificateHandler.CreateCertificate)

	renewals := api.Group("/renewal")
	renewals.Post("/", authenticated, renewalHandler.CreateRenewal)
	renewals.Get("/", authenticated, renewalHandler.ListRenewals)
	renewals.Get("/:id", authenticated, renewalHandler.GetRenewal)

	admin := api.Group("/admin")
	admin.Post("/users", adminOnly, adminHandler.RegisterUser)
	admin.Post("/login", adminHandler.Login)
	admin.Get("/renewals", adminOnly, adminHandler.ListRenewals)
	admin.Post("/renewals/:id/approve", adminOnly, adminHandler.ApproveRenewal)
	admin.Post("/renewals/:id/reject", adminOnly, adminHandler.RejectRenewal)
	admin.Get("/statistics", adminOnly, adminHandler.Statistics)

	app.Use(handlers.NotFound)
}

// corsConfig allows credentialed requests from the configured origins, or
// from any origin by echoing it back when none are configured.
func corsConfig(cfg *config.Config) cors.Config {
	c := cors.Config{
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization",
		AllowCredentials: true,
	}
	if cfg.CORSAllowOrigins != "" {
		c.AllowOrigins = cfg.CORSAllowOrigins
	} else {
		c.AllowOriginsFunc = func(string) bool { return true }
	}
	return c
}
