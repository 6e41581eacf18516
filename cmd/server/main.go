package main

import (
	"context"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	gormlogger "gorm.io/gorm/logger"

	"github.com/example/certrenew/internal/config"
	"github.com/example/certrenew/internal/database"
	"github.com/example/certrenew/internal/handlers"
	"github.com/example/certrenew/internal/logger"
	"github.com/example/certrenew/internal/metrics"
	"github.com/example/certrenew/internal/middleware"
	"github.com/example/certrenew/internal/routes"
	"github.com/example/certrenew/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logger.New(logger.Options{ServiceName: "certrenew"})
		boot.Fatal().Err(err).Msg("load config")
	}

	log := logger.New(logger.Options{
		ServiceName: "certrenew",
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		Output:      os.Stdout,
	})

	gormLevel := gormlogger.Warn
	if log.GetLevel() <= zerolog.DebugLevel {
		gormLevel = gormlogger.Info
	}
	db, err := database.Connect(context.Background(), cfg.DatabaseURL, gormLevel)
	if err != nil {
		log.Fatal().Err(err).Msg("database")
	}

	if created, err := database.EnsureAdmin(db, cfg.Admin); err != nil {
		log.Fatal().Err(err).Msg("bootstrap admin")
	} else if created {
		log.Info().Str("email", cfg.Admin.Email).Msg("bootstrap admin created")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	var notifier handlers.RenewalNotifier
	if telegram := services.NewTelegramService(cfg.Telegram.BotToken, cfg.Telegram.AdminChatID); telegram.Enabled() {
		notifier = telegram
	}

	app := fiber.New(fiber.Config{
		AppName:      "Certificate Renewal Backend",
		ErrorHandler: handlers.ErrorHandler(log),
	})

	app.Use(requestid.New())
	app.Use(middleware.RequestLogger(log))
	app.Use(recover.New())

	routes.Register(app, routes.Dependencies{
		DB:       db,
		Config:   cfg,
		Payments: services.NewKhaltiService(cfg.Khalti.VerifyURL, cfg.Khalti.SecretKey, cfg.Khalti.Timeout),
		Notifier: notifier,
		Metrics:  metrics.NewRenewalMetrics(registry),
		Gatherer: registry,
		Logger:   log,
	})

	log.Info().Str("port", cfg.AppPort).Msg("starting server")
	if err := app.Listen(":" + cfg.AppPort); err != nil {
		log.Fatal().Err(err).Msg("fiber.Listen error")
	}
}
