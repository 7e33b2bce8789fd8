// Package wshub pushes session status snapshots to subscribed SDK clients,
// keyed by session id. The status query endpoint remains the source of
// truth; the hub only saves clients from polling.
package wshub

import (
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/whiskypay/gateway/internal/domain"
)

type WsHub struct {
	Clients    map[string]map[*websocket.Conn]bool
	Broadcast  chan WsMessage
	Register   chan *WsClient
	Unregister chan *WsClient
	Logger     zerolog.Logger
}

type WsClient struct {
	SessionID string
	Conn      *websocket.Conn
}

type WsMessage struct {
	Type    string                 `json:"type"`
	Session *domain.PaymentSession `json:"session,omitempty"`
}

func NewWsHub(logger zerolog.Logger) *WsHub {
	return &WsHub{
		Clients:    make(map[string]map[*websocket.Conn]bool),
		Broadcast:  make(chan WsMessage, 100),
		Register:   make(chan *WsClient, 100),
		Unregister: make(chan *WsClient, 100),
		Logger:     logger,
	}
}

func (h *WsHub) Run() {
	for {
		select {
		case client := <-h.Register:
			if h.Clients[client.SessionID] == nil {
				h.Clients[client.SessionID] = make(map[*websocket.Conn]bool)
			}
			h.Clients[client.SessionID][client.Conn] = true
			h.Logger.Info().
				Str("session_id", client.SessionID).
				Int("connection_count", len(h.Clients[client.SessionID])).
				Msg("WebSocket client registered")

		case client := <-h.Unregister:
			if clients, ok := h.Clients[client.SessionID]; ok {
				delete(clients, client.Conn)
				if len(clients) == 0 {
					delete(h.Clients, client.SessionID)
				}
				client.Conn.Close()
			}

		case message := <-h.Broadcast:
			if message.Session == nil {
				continue
			}
			sessionID := message.Session.ID

			clients, ok := h.Clients[sessionID]
			if !ok {
				continue
			}
			for conn := range clients {
				if err := conn.WriteJSON(message); err != nil {
					h.Logger.Err(err).
						Str("session_id", sessionID).
						Msg("Failed to send WebSocket message")
					conn.Close()
					delete(clients, conn)
				}
			}
			if len(clients) == 0 {
				delete(h.Clients, sessionID)
			}
		}
	}
}

func (h *WsHub) BroadcastSession(session domain.PaymentSession) {
	h.Broadcast <- WsMessage{
		Type:    "session",
		Session: &session,
	}
}
