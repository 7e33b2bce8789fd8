package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/whiskypay/gateway/internal/application/verificationservice"
	"github.com/whiskypay/gateway/internal/domain"
)

type ProofHandler struct {
	verificationSvc verificationservice.IVerificationService
	logger          zerolog.Logger
}

func NewProofHandler(verificationSvc verificationservice.IVerificationService, logger zerolog.Logger) *ProofHandler {
	return &ProofHandler{
		verificationSvc: verificationSvc,
		logger:          logger,
	}
}

func (h *ProofHandler) SubmitProof(c *gin.Context) {
	var req domain.SubmitProofRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, domain.ApiResponse{
			Message: "Invalid request body: " + err.Error(),
			Success: false,
			Status:  http.StatusBadRequest,
		})
		return
	}

	sessionID := c.Param("id")
	outcome, err := h.verificationSvc.SubmitProof(c.Request.Context(), sessionID, req.Proof)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrSessionNotFound):
			c.JSON(http.StatusNotFound, domain.ApiResponse{
				Message: "Session not found",
				Success: false,
				Status:  http.StatusNotFound,
			})
		case errors.Is(err, domain.ErrAlreadyProcessing):
			c.JSON(http.StatusConflict, domain.ApiResponse{
				Message: "Verification already in progress",
				Success: false,
				Status:  http.StatusConflict,
			})
		case errors.Is(err, domain.ErrSessionClosed):
			c.JSON(http.StatusGone, domain.ApiResponse{
				Message: "Session is closed",
				Success: false,
				Status:  http.StatusGone,
			})
		default:
			h.logger.Error().Err(err).Str("session_id", sessionID).Msg("Failed to verify proof")
			c.JSON(http.StatusBadGateway, domain.ApiResponse{
				Message: "Verification temporarily unavailable, retry later",
				Success: false,
				Status:  http.StatusBadGateway,
			})
		}
		return
	}

	c.JSON(http.StatusOK, domain.SubmitProofResponse{
		SessionID: outcome.SessionID,
		Status:    string(outcome.Status),
		Retryable: outcome.Retryable,
	})
}
