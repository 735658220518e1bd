package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/WyattLin001/invest-tournament-engine/src/app/business"
	"github.com/WyattLin001/invest-tournament-engine/src/app/rankings"
	"github.com/WyattLin001/invest-tournament-engine/src/app/tournaments"
	"github.com/WyattLin001/invest-tournament-engine/src/app/trading"
	"github.com/WyattLin001/invest-tournament-engine/src/app/wallets"
	"github.com/WyattLin001/invest-tournament-engine/src/app/workflow"
	"github.com/WyattLin001/invest-tournament-engine/src/domain/notification"
	domainpricing "github.com/WyattLin001/invest-tournament-engine/src/domain/pricing"
	"github.com/WyattLin001/invest-tournament-engine/src/domain/ranking"
	"github.com/WyattLin001/invest-tournament-engine/src/domain/shared"
	"github.com/WyattLin001/invest-tournament-engine/src/domain/tournament"
	"github.com/WyattLin001/invest-tournament-engine/src/domain/wallet"
	notificationinfra "github.com/WyattLin001/invest-tournament-engine/src/infra/notification"
	pricinginfra "github.com/WyattLin001/invest-tournament-engine/src/infra/pricing"
	rankinginfra "github.com/WyattLin001/invest-tournament-engine/src/infra/ranking"
	"github.com/WyattLin001/invest-tournament-engine/src/infra/storage"
	tournamentinfra "github.com/WyattLin001/invest-tournament-engine/src/infra/tournament"
	walletinfra "github.com/WyattLin001/invest-tournament-engine/src/infra/wallet"
)

type Config struct {
	HTTPAddress   string
	DatabaseDSN   string
	QuoteBaseURL  string
	WebhookURL    string
	WebhookAPIKey string
}

func loadConfig() Config {
	return Config{
		HTTPAddress:   getEnv("ITE_HTTP_ADDR", ":8080"),
		DatabaseDSN:   getEnv("ITE_DATABASE_DSN", ""),
		QuoteBaseURL:  getEnv("ITE_QUOTE_BASE_URL", ""),
		WebhookURL:    getEnv("ITE_WEBHOOK_URL", ""),
		WebhookAPIKey: getEnv("ITE_WEBHOOK_API_KEY", ""),
	}
}

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	cfg := loadConfig()

	baseCtx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	shutdownTelemetry, err := setupTelemetry(baseCtx, "invest-tournament-api")
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	} else {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdownTelemetry(ctx)
		}()
	}

	var (
		tournamentRepo tournament.Repository
		walletRepo     wallet.Repository
		settlementRepo ranking.SettlementRepository
	)
	if cfg.DatabaseDSN != "" {
		db, err := storage.Open(cfg.DatabaseDSN)
		if err != nil {
			logger.Fatal("failed to open database", zap.Error(err))
		}
		tournamentRepo = storage.NewTournamentRepository(db)
		walletRepo = storage.NewWalletRepository(db)
		settlementRepo = storage.NewSettlementRepository(db)
		logger.Info("using postgres storage")
	} else {
		tournamentRepo = tournamentinfra.NewMemoryRepository()
		walletRepo = walletinfra.NewMemoryRepository()
		settlementRepo = rankinginfra.NewMemorySettlementRepository()
		logger.Info("using in-memory storage")
	}

	var feed domainpricing.PriceFeed
	if cfg.QuoteBaseURL != "" {
		feed = pricinginfra.NewHTTPFeed(cfg.QuoteBaseURL)
	} else {
		feed = pricinginfra.NewStaticFeed(map[shared.Symbol]decimal.Decimal{})
	}

	notifier := buildNotifier(cfg)
	walletService := wallets.NewService(walletRepo, feed)
	tournamentService := tournaments.NewService(tournamentRepo)
	tradingService := trading.NewService(tournamentRepo, walletService, notifier)
	rankingService := rankings.NewService(tournamentRepo, walletRepo, notifier)
	businessService := business.NewService(tournamentRepo, walletService, walletRepo, settlementRepo, rankingService, notifier)

	engine := workflow.NewService(tournamentService, businessService, tradingService, rankingService, walletService)

	server := NewServer(ServerConfig{
		Logger: logger,
		Engine: engine,
	})

	httpServer := &http.Server{
		Addr:         cfg.HTTPAddress,
		Handler:      server.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("tournament engine API listening", zap.String("addr", cfg.HTTPAddress))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-baseCtx.Done()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func buildNotifier(cfg Config) notification.Notifier {
	if cfg.WebhookURL != "" {
		return notificationinfra.NewWebhookNotifier(cfg.WebhookAPIKey, cfg.WebhookURL)
	}
	return notificationinfra.NewMemoryNotifier()
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
