package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"recuerdamed/internal/access"
	"recuerdamed/internal/account"
	"recuerdamed/internal/care"
	"recuerdamed/internal/config"
	"recuerdamed/internal/database"
	"recuerdamed/internal/telemetry"
	"recuerdamed/internal/token"
	"recuerdamed/internal/web"

	"github.com/gofiber/fiber/v2"
)

func main() {
	cfg := config.NewConfig()

	tel, err := telemetry.New(cfg.Telemetry)
	if err != nil {
		slog.Error("failed to initialize telemetry", slog.Any("error", err))
		os.Exit(1)
	}
	logger := tel.Logger()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db := database.NewDatabase()
	if err := db.Connect(ctx, cfg.Database.ConnString()); err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Ping(ctx); err != nil {
		logger.Error("failed to ping database", slog.Any("error", err))
		os.Exit(1)
	}

	issuer := token.NewIssuer(cfg.Token)
	authenticator := account.NewAuthenticator(logger, &db, issuer)
	accessManager := access.NewManager(logger, &db)
	careManager := care.NewManager(logger, &db, &accessManager)

	handler := web.NewHandler(logger, &authenticator, &accessManager, &careManager, issuer, &db)

	var middlewares []fiber.Handler
	if tel.IsEnabled() {
		middlewares = append(middlewares, telemetry.FiberMiddleware(cfg.Telemetry.ServiceName))
	}
	app := handler.Router(middlewares...)

	go func() {
		addr := cfg.Server.Host + ":" + cfg.Server.Port
		logger.Info("starting server", slog.String("addr", addr))
		if err := app.Listen(addr); err != nil {
			logger.Error("server stopped", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("failed to shut down server", slog.Any("error", err))
	}
	if err := tel.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shut down telemetry", slog.Any("error", err))
	}
}
