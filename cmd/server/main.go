package main

import (
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"stockledger-backend/internal/audit"
	"stockledger-backend/internal/auth"
	"stockledger-backend/internal/config"
	"stockledger-backend/internal/database"
	"stockledger-backend/internal/inventory"
	"stockledger-backend/internal/ledger"
	"stockledger-backend/internal/logging"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	for _, w := range cfg.Warnings() {
		logger.Warn(w)
	}

	db, err := database.Open(cfg, logger)
	if err != nil {
		logger.Fatal("Database connection failed", zap.Error(err))
	}

	store := ledger.NewGormStore(db, ledger.GormOptions{
		TxTimeout:   cfg.TxTimeout,
		LockTimeout: cfg.AcquireTimeout,
	})
	audits := audit.NewService(db)
	svc := inventory.NewService(store, logger.Named("inventory"), inventory.WithAuditor(audits))

	app := fiber.New(fiber.Config{
		ErrorHandler: inventory.ErrorHandler(logger),
		BodyLimit:    16 * 1024 * 1024,
	})

	corsOrigins := strings.Split(cfg.CORSOrigins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(corsOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))
	app.Use(logging.RequestLogger(logger))

	api := app.Group("/api")

	// Public
	api.Post("/auth/login", auth.LoginHandler(cfg, db, audits))

	// Protected
	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(cfg))

	protected.Get("/auth/me", auth.MeHandler(db))
	protected.Get("/audit-logs", audit.ListAuditLogsHandler(audits))
	inventory.RegisterRoutes(protected, svc)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		logger.Info("Shutting down")
		_ = app.Shutdown()
	}()

	addr := ":" + cfg.HTTPPort
	logger.Info("Server listening", zap.String("addr", addr), zap.String("driver", cfg.DatabaseDriver))
	if err := app.Listen(addr); err != nil {
		logger.Fatal("Server stopped", zap.Error(err))
	}
}
