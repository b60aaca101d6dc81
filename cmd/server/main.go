package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/user/whatsapp-assistant/internal/ai"
	"github.com/user/whatsapp-assistant/internal/assistant"
	"github.com/user/whatsapp-assistant/internal/db"
	"github.com/user/whatsapp-assistant/internal/relay"
	"github.com/user/whatsapp-assistant/internal/server"
	"github.com/user/whatsapp-assistant/internal/telegram"
	"github.com/user/whatsapp-assistant/internal/whatsapp"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	logger, err := newLogger()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	dbManager, err := db.NewManager()
	if err != nil {
		sugar.Fatalw("Failed to initialize database", "error", err)
	}
	defer dbManager.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := dbManager.InitSchema(ctx); err != nil {
		cancel()
		sugar.Fatalw("Failed to initialize database schema", "error", err)
	}
	cancel()

	oracle, err := ai.NewClient(sugar)
	if err != nil {
		sugar.Fatalw("Failed to create AI client", "error", err)
	}

	asst := assistant.New(oracle, dbManager, sugar)

	hub := relay.NewHub(sugar)
	rly := relay.New(dbManager, asst, hub, sugar)
	rly.RegisterSender("WhatsApp", whatsapp.NewClient(sugar))

	if token := os.Getenv("TELEGRAM_BOT_TOKEN"); token != "" {
		bot, err := telegram.New(token, rly, sugar)
		if err != nil {
			sugar.Fatalw("Failed to create Telegram bot", "error", err)
		}
		bot.Start()
		defer bot.Stop()
		sugar.Infow("Telegram channel enabled")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "5000"
	}

	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := server.New(rly, sugar)
	sugar.Infow("Starting server", "port", port)
	if err := srv.Start(runCtx, ":"+port); err != nil {
		sugar.Fatalw("Server stopped", "error", err)
	}
	sugar.Infow("Server stopped")
}

func newLogger() (*zap.Logger, error) {
	if strings.EqualFold(os.Getenv("DEBUG"), "true") {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
