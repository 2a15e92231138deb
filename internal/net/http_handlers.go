// Package net assembles the control daemon's HTTP surface: health and
// diagnostics endpoints, the prometheus scrape target, and the websocket
// attach path for the host.
package net

import (
	"encoding/json"
	nethttp "net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"scenebridge/internal/bridge"
	"scenebridge/internal/logbuffer"
	"scenebridge/internal/mirror"
	"scenebridge/internal/net/ws"
	"scenebridge/internal/telemetry"
)

type HTTPHandlerConfig struct {
	Metrics *telemetry.Metrics
}

// NewHTTPHandler builds the chi router for the control daemon.
func NewHTTPHandler(hub *bridge.Hub, buffer *logbuffer.Buffer, state *mirror.Mirror, wsHandler *ws.Handler, cfg HTTPHandlerConfig) nethttp.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w nethttp.ResponseWriter, _ *nethttp.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})

	r.Get("/diagnostics", func(w nethttp.ResponseWriter, _ *nethttp.Request) {
		lastSnapshot := int64(0)
		if at, ok := state.LastPublished(); ok {
			lastSnapshot = at.UnixMilli()
		}
		payload := struct {
			Status         string `json:"status"`
			ServerTime     int64  `json:"serverTime"`
			HostConnected  bool   `json:"hostConnected"`
			BufferLength   int    `json:"bufferLength"`
			BufferCapacity int    `json:"bufferCapacity"`
			LastSnapshot   int64  `json:"lastSnapshot,omitempty"`
		}{
			Status:         "ok",
			ServerTime:     time.Now().UnixMilli(),
			HostConnected:  hub.Connected(),
			BufferLength:   buffer.Len(),
			BufferCapacity: buffer.Cap(),
			LastSnapshot:   lastSnapshot,
		}

		data, err := json.Marshal(payload)
		if err != nil {
			nethttp.Error(w, "failed to encode", nethttp.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	})

	if cfg.Metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Metrics.Registry, promhttp.HandlerOpts{}))
	}

	r.Get("/ws", wsHandler.Handle)

	return r
}
