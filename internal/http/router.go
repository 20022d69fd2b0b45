package httpx

import (
	"net/http"

	"chat-relay/internal/app"
	"chat-relay/internal/relay"
	"chat-relay/internal/ws"
	"chat-relay/pkg/metrics"
)

// NewRouter wires up the websocket endpoints, health checks, and metrics
func NewRouter(cfg app.Config, hub *ws.Hub, chat *relay.Chat, notify *relay.Notifications) http.Handler {
	mw := NewMiddleware(cfg)

	mux := http.NewServeMux()

	// Health / readiness / metrics
	mux.Handle("/healthz", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(200) }))
	mux.Handle("/readyz", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(200) }))
	mux.Handle("/metrics", metrics.Handler())

	// One websocket endpoint per session handler, same hub underneath
	mux.Handle("/ws/chat", hub.Handler(chat))
	mux.Handle("/ws/notifications", hub.Handler(notify))

	return mw.Wrap(mux) // CORS + rate limit applied globally
}
