package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/whiskypay/gateway/internal/application/dispatcher"
	"github.com/whiskypay/gateway/internal/domain"
	"github.com/whiskypay/gateway/pkg/signing"
)

// WebhookHandler validates inbound payloads against the deployment-scoped
// secret before trusting anything in them.
type WebhookHandler struct {
	secret string
	logger zerolog.Logger
}

func NewWebhookHandler(secret string, logger zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{
		secret: secret,
		logger: logger,
	}
}

func (h *WebhookHandler) HandlePriceWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, domain.ApiResponse{
			Message: "Failed to read request body",
			Success: false,
			Status:  http.StatusBadRequest,
		})
		return
	}

	signature := c.GetHeader(dispatcher.SignatureHeader)
	if signature == "" {
		c.JSON(http.StatusUnauthorized, domain.ApiResponse{
			Message: "Missing signature header",
			Success: false,
			Status:  http.StatusUnauthorized,
		})
		return
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		c.JSON(http.StatusBadRequest, domain.ApiResponse{
			Message: "Invalid JSON body",
			Success: false,
			Status:  http.StatusBadRequest,
		})
		return
	}

	if !signing.Verify(payload, signature, h.secret) {
		h.logger.Warn().Str("client_ip", c.ClientIP()).Msg("Rejected webhook with bad signature")
		c.JSON(http.StatusUnauthorized, domain.ApiResponse{
			Message: "Invalid signature",
			Success: false,
			Status:  http.StatusUnauthorized,
		})
		return
	}

	h.logger.Info().Msg("Accepted signed inbound webhook")
	c.JSON(http.StatusOK, domain.ApiResponse{
		Message: "Accepted",
		Success: true,
		Status:  http.StatusOK,
	})
}
