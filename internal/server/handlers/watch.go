package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	gws "github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/whiskypay/gateway/internal/domain"
	"github.com/whiskypay/gateway/internal/server/wshub"
	"github.com/whiskypay/gateway/pkg/config"
)

type WatchHandler struct {
	wsHub    *wshub.WsHub
	upgrader gws.Upgrader
	logger   zerolog.Logger
}

func NewWatchHandler(hub *wshub.WsHub, cfg config.WebSocketConfig, logger zerolog.Logger) *WatchHandler {
	readBuf := cfg.ReadBufferSize
	if readBuf == 0 {
		readBuf = 1024
	}
	writeBuf := cfg.WriteBufferSize
	if writeBuf == 0 {
		writeBuf = 1024
	}
	upgrader := gws.Upgrader{
		ReadBufferSize:  readBuf,
		WriteBufferSize: writeBuf,
	}
	if !cfg.CheckOrigin {
		upgrader.CheckOrigin = func(r *http.Request) bool { return true }
	}
	return &WatchHandler{
		wsHub:    hub,
		upgrader: upgrader,
		logger:   logger,
	}
}

// Watch subscribes the caller to live status updates for one session.
func (h *WatchHandler) Watch(c *gin.Context) {
	sessionID := c.Param("id")

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Err(err).
			Str("session_id", sessionID).
			Msg("Failed to upgrade to WebSocket")
		c.JSON(http.StatusInternalServerError, domain.ApiResponse{
			Message: "Failed to establish WebSocket connection",
			Success: false,
			Status:  http.StatusInternalServerError,
		})
		return
	}

	client := &wshub.WsClient{
		SessionID: sessionID,
		Conn:      conn,
	}
	h.wsHub.Register <- client

	go func() {
		defer func() {
			h.wsHub.Unregister <- client
		}()

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}
