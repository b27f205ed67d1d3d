package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "requestflow/api/swagger" // swagger docs
	"requestflow/internal/app"
	"requestflow/internal/config"
	"requestflow/internal/database"
	"requestflow/internal/storage"
	"requestflow/internal/websocket"
	"requestflow/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// @title           Request Flow API
// @version         1.0
// @description     Purchase and travel requests with sequential approval chains.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to an optional YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = zapLogger.Sync() }()

	gin.SetMode(cfg.Server.GinMode)

	db, err := database.NewConnection(database.Options{
		Driver: cfg.Database.Driver,
		DSN:    cfg.Database.DSN(),
		Debug:  cfg.Database.Debug,
	}, zapLogger)
	if err != nil {
		zapLogger.Fatal("Database connection failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Set up WebSocket Hub
	hub := websocket.NewHub(zapLogger)
	go hub.Run(ctx)

	application := app.New(app.Options{
		DB:             db,
		Storage:        storage.NewLocalDocumentStorage(cfg.Storage.BaseDir, zapLogger),
		Hub:            hub,
		JWTSecret:      []byte(cfg.Auth.JWTSecret),
		TokenTTL:       cfg.Auth.TokenTTL,
		SecureCookies:  cfg.Server.GinMode == gin.ReleaseMode,
		LogoLibrary:    cfg.Storage.LogoLibrary,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Logger:         zapLogger,
	})

	seeded, err := application.Users.SeedAdmin(ctx, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword)
	if err != nil {
		zapLogger.Fatal("Failed to seed admin account", zap.Error(err))
	}
	if seeded {
		zapLogger.Info("Seeded admin account", zap.String("email", cfg.Auth.AdminEmail))
	}

	srv := &http.Server{
		Addr:              cfg.Server.Address(),
		Handler:           application.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zapLogger.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zapLogger.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}
}
