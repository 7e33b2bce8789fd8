package main

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/whiskypay/gateway/internal/application/dispatcher"
	"github.com/whiskypay/gateway/internal/application/sessionservice"
	"github.com/whiskypay/gateway/internal/application/tokens"
	"github.com/whiskypay/gateway/internal/application/verificationservice"
	"github.com/whiskypay/gateway/internal/infrastructure/chains"
	"github.com/whiskypay/gateway/internal/infrastructure/database"
	"github.com/whiskypay/gateway/internal/repositories/jobrepo"
	"github.com/whiskypay/gateway/internal/repositories/merchantrepo"
	"github.com/whiskypay/gateway/internal/repositories/sessionrepo"
	"github.com/whiskypay/gateway/internal/server"
	"github.com/whiskypay/gateway/internal/server/wshub"
	"github.com/whiskypay/gateway/pkg/config"
	"github.com/whiskypay/gateway/pkg/logger"
)

func main() {
	logger := logger.New()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	db, err := database.New(&cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.ShutDown()

	if err := db.Migrate(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to apply database schema")
	}

	sessionRepo := sessionrepo.New(db, logger)
	merchantRepo := merchantrepo.New(db, logger)
	jobRepo := jobrepo.New(db, logger)

	registry := chains.NewRegistry(
		chains.NewSolanaAdapter(cfg.Solana, cfg.MintAddresses, logger),
		chains.NewMoneroAdapter(cfg.Monero, cfg.Verification.MinConfirmations, logger),
	)

	hub := wshub.NewWsHub(logger)
	go hub.Run()

	tokenSvc := tokens.New(cfg.JWT)

	sessionSvc := sessionservice.New(
		sessionRepo,
		merchantRepo,
		registry,
		tokenSvc,
		cfg.Session,
		logger,
	)

	verificationSvc := verificationservice.New(
		sessionRepo,
		jobRepo,
		registry,
		db,
		hub,
		cfg.Verification,
		cfg.Notifications,
		logger,
	)

	webhookSender := dispatcher.NewWebhookSender(merchantRepo, cfg.Notifications.DeliveryTimeout, logger)
	emailSender := dispatcher.NewEmailSender(cfg.SMTP, logger)

	disp, err := dispatcher.New(jobRepo, webhookSender, emailSender, cfg.Notifications, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to build notification dispatcher")
	}
	disp.Start()

	sweeper := gocron.NewScheduler(time.UTC)
	sweeper.Every(cfg.Session.SweepInterval).SingletonMode().Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := sessionSvc.ExpireStale(ctx); err != nil {
			logger.Error().Err(err).Msg("Session expiry sweep failed")
		}
	})
	sweeper.StartAsync()

	srv := server.New(cfg, sessionSvc, verificationSvc, tokenSvc, jobRepo, logger, hub)
	srv.OnShutdown = append(srv.OnShutdown, func() {
		sweeper.Stop()
		disp.Stop()
	})
	srv.Start()
}
