// Package ws upgrades the host attach endpoint and pumps inbound frames
// into the message router.
package ws

import (
	"log"
	nethttp "net/http"

	"github.com/gorilla/websocket"

	"scenebridge/internal/bridge"
)

type HandlerConfig struct {
	Logger *log.Logger
}

// Handler accepts the single host connection. A second attach replaces the
// first; the hub handles the replacement semantics.
type Handler struct {
	hub      *bridge.Hub
	router   *bridge.Router
	logger   *log.Logger
	upgrader websocket.Upgrader
}

func NewHandler(hub *bridge.Hub, router *bridge.Router, cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *nethttp.Request) bool {
			return true
		},
	}

	return &Handler{
		hub:      hub,
		router:   router,
		logger:   logger,
		upgrader: upgrader,
	}
}

func (h *Handler) Handle(w nethttp.ResponseWriter, r *nethttp.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("host upgrade failed: %v", err)
		return
	}

	if replaced := h.hub.Attach(conn); replaced {
		h.logger.Printf("host reattached from %s", conn.RemoteAddr())
	} else {
		h.logger.Printf("host attached from %s", conn.RemoteAddr())
	}

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			h.logger.Printf("host connection closed: %v", err)
			h.hub.Detach(conn)
			return
		}
		// Routing never fails upward; malformed frames are logged and
		// dropped so the connection survives them.
		h.router.Route(payload)
	}
}
