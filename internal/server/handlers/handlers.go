package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/whiskypay/gateway/internal/application/sessionservice"
	"github.com/whiskypay/gateway/internal/application/tokens"
	"github.com/whiskypay/gateway/internal/application/verificationservice"
	"github.com/whiskypay/gateway/internal/repositories/jobrepo"
	"github.com/whiskypay/gateway/internal/server/middleware"
	"github.com/whiskypay/gateway/internal/server/wshub"
	"github.com/whiskypay/gateway/pkg/config"
)

type Handlers struct {
	SessionSvc      sessionservice.ISessionService
	VerificationSvc verificationservice.IVerificationService
	TokenSvc        tokens.ITokenService
	JobRepo         jobrepo.IJobRepository
	Logger          zerolog.Logger
	Config          *config.Config
	WsHub           *wshub.WsHub
}

func New(
	sessionSvc sessionservice.ISessionService,
	verificationSvc verificationservice.IVerificationService,
	tokenSvc tokens.ITokenService,
	jobRepo jobrepo.IJobRepository,
	logger zerolog.Logger,
	config *config.Config,
	hub *wshub.WsHub,
) *Handlers {
	return &Handlers{
		SessionSvc:      sessionSvc,
		VerificationSvc: verificationSvc,
		TokenSvc:        tokenSvc,
		JobRepo:         jobRepo,
		Logger:          logger,
		Config:          config,
		WsHub:           hub,
	}
}

func (h *Handlers) SetupHandlers(router *gin.Engine) {
	mw := middleware.NewMiddleware(h.TokenSvc, h.Config, h.Logger)
	mw.SetupMiddleware(router)

	sessionHandler := NewSessionHandler(h.SessionSvc, h.Logger)
	proofHandler := NewProofHandler(h.VerificationSvc, h.Logger)
	webhookHandler := NewWebhookHandler(h.Config.Security.InboundWebhookSecret, h.Logger)
	watchHandler := NewWatchHandler(h.WsHub, h.Config.WebSocket, h.Logger)
	jobsHandler := NewJobsHandler(h.JobRepo, h.Logger)
	healthHandler := NewHealthHandler()

	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	v1 := router.Group("/v1")
	{
		sessions := v1.Group("/sessions")
		{
			sessions.POST("", sessionHandler.CreateSession)
			sessions.GET("/:id", sessionHandler.GetSession)
			sessions.POST("/:id/proof", mw.SessionTokenMiddleware(), proofHandler.SubmitProof)
			sessions.GET("/:id/watch", mw.SessionTokenMiddleware(), watchHandler.Watch)
		}

		webhooks := v1.Group("/webhooks")
		{
			webhooks.POST("/price", webhookHandler.HandlePriceWebhook)
		}

		jobs := v1.Group("/jobs", mw.APIKeyMiddleware())
		{
			jobs.GET("/dead", jobsHandler.ListDead)
		}
	}
}
