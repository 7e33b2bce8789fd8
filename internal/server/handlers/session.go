package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/whiskypay/gateway/internal/application/sessionservice"
	"github.com/whiskypay/gateway/internal/domain"
)

type SessionHandler struct {
	sessionSvc sessionservice.ISessionService
	logger     zerolog.Logger
}

func NewSessionHandler(sessionSvc sessionservice.ISessionService, logger zerolog.Logger) *SessionHandler {
	return &SessionHandler{
		sessionSvc: sessionSvc,
		logger:     logger,
	}
}

func (h *SessionHandler) CreateSession(c *gin.Context) {
	var req domain.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, domain.ApiResponse{
			Message: "Invalid request body: " + err.Error(),
			Success: false,
			Status:  http.StatusBadRequest,
		})
		return
	}

	result, err := h.sessionSvc.CreateSession(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidMerchant):
			c.JSON(http.StatusNotFound, domain.ApiResponse{
				Message: "Merchant not found or inactive",
				Success: false,
				Status:  http.StatusNotFound,
			})
		case errors.Is(err, domain.ErrInvalidInput):
			c.JSON(http.StatusBadRequest, domain.ApiResponse{
				Message: err.Error(),
				Success: false,
				Status:  http.StatusBadRequest,
			})
		default:
			h.logger.Error().Err(err).Msg("Failed to create session")
			c.JSON(http.StatusInternalServerError, domain.ApiResponse{
				Message: "Failed to create session",
				Success: false,
				Status:  http.StatusInternalServerError,
			})
		}
		return
	}

	c.JSON(http.StatusCreated, domain.CreateSessionResponse{
		SessionID:    result.Session.ID,
		PayAddress:   result.Session.PayAddress,
		ExpiresAt:    result.Session.ExpiresAt.Unix(),
		SessionToken: result.Token,
	})
}

func (h *SessionHandler) GetSession(c *gin.Context) {
	session, err := h.sessionSvc.GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, domain.ApiResponse{
				Message: "Session not found",
				Success: false,
				Status:  http.StatusNotFound,
			})
			return
		}
		h.logger.Error().Err(err).Str("session_id", c.Param("id")).Msg("Failed to get session")
		c.JSON(http.StatusInternalServerError, domain.ApiResponse{
			Message: "Failed to get session",
			Success: false,
			Status:  http.StatusInternalServerError,
		})
		return
	}

	c.JSON(http.StatusOK, session)
}
