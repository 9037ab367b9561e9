package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/wappahq/wappa/internal/collab"
	"github.com/wappahq/wappa/internal/config"
	"github.com/wappahq/wappa/internal/domain"
	"github.com/wappahq/wappa/internal/runtime"
	"github.com/wappahq/wappa/internal/server"
	"github.com/wappahq/wappa/internal/telemetry"
)

// echoHandler is the reference handler wired by the standalone binary.
// Real bots import pkg/wappa and supply their own.
type echoHandler struct{}

func (echoHandler) OnMessage(ctx context.Context, ev *domain.MessageEvent, b *collab.Bundle) error {
	text, ok := ev.Text()
	if !ok {
		return nil
	}
	if err := b.Messenger.MarkRead(ctx, ev.MessageID); err != nil {
		return err
	}
	_, err := b.Messenger.SendText(ctx, ev.From, text)
	return err
}

func main() {
	// Best effort; a missing .env just means env vars come from elsewhere.
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	shutdownTracer, err := telemetry.InitTracer("wappa", logger)
	if err != nil {
		log.Fatalf("Failed to initialize tracing: %v", err)
	}

	app, err := runtime.New(cfg, echoHandler{}, runtime.WithLogger(logger))
	if err != nil {
		log.Fatalf("Failed to build runtime: %v", err)
	}

	srv := server.New(cfg.Server.Port, logger)
	server.NewWebhookHandler(app, logger).Mount(srv.Router)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Start(ctx); err != nil {
		logger.Error("server exited", slog.String("error", err.Error()))
	}

	if err := app.Close(); err != nil {
		logger.Error("shutdown error", slog.String("error", err.Error()))
	}
	if err := shutdownTracer(context.Background()); err != nil {
		logger.Error("tracer shutdown error", slog.String("error", err.Error()))
	}
}
