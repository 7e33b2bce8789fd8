package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/whiskypay/gateway/internal/application/sessionservice"
	"github.com/whiskypay/gateway/internal/application/tokens"
	"github.com/whiskypay/gateway/internal/application/verificationservice"
	"github.com/whiskypay/gateway/internal/repositories/jobrepo"
	"github.com/whiskypay/gateway/internal/server/handlers"
	"github.com/whiskypay/gateway/internal/server/wshub"
	"github.com/whiskypay/gateway/pkg/config"
)

type Server struct {
	SessionSvc      sessionservice.ISessionService
	VerificationSvc verificationservice.IVerificationService
	TokenSvc        tokens.ITokenService
	JobRepo         jobrepo.IJobRepository
	Cfg             *config.Config
	Logger          zerolog.Logger
	Router          *gin.Engine
	httpServer      *http.Server
	WsHub           *wshub.WsHub

	// OnShutdown hooks run after the HTTP server drains, before exit.
	OnShutdown []func()
}

func New(
	cfg *config.Config,
	sessionSvc sessionservice.ISessionService,
	verificationSvc verificationservice.IVerificationService,
	tokenSvc tokens.ITokenService,
	jobRepo jobrepo.IJobRepository,
	logger zerolog.Logger,
	hub *wshub.WsHub,
) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	return &Server{
		Cfg:             cfg,
		SessionSvc:      sessionSvc,
		VerificationSvc: verificationSvc,
		TokenSvc:        tokenSvc,
		JobRepo:         jobRepo,
		Logger:          logger,
		Router:          router,
		WsHub:           hub,
	}
}

func (s *Server) SetupRouter() {
	handler := handlers.New(
		s.SessionSvc,
		s.VerificationSvc,
		s.TokenSvc,
		s.JobRepo,
		s.Logger,
		s.Cfg,
		s.WsHub,
	)
	handler.SetupHandlers(s.Router)
}

func (s *Server) Start() {
	s.SetupRouter()

	s.httpServer = &http.Server{
		Addr:         s.Cfg.Server.Host + ":" + s.Cfg.Server.Port,
		Handler:      s.Router,
		ReadTimeout:  20 * time.Second,
		WriteTimeout: 20 * time.Second,
	}

	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, syscall.SIGINT, syscall.SIGTERM)

	s.Logger.Info().Msgf("Starting server on %s", s.httpServer.Addr)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.Logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-stopChan
	s.Logger.Info().Msg("Shutdown signal received, shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.Logger.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	for _, hook := range s.OnShutdown {
		hook()
	}

	s.Logger.Info().Msg("Server exited gracefully")
}
