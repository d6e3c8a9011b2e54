package ws

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"scrumpoker/internal/app"
)

// Options configures the WebSocket endpoint
type Options struct {
	Connection app.ConnectionOptions

	// AllowOrigin reports whether a browser origin may connect; nil allows all
	AllowOrigin func(origin string) bool
}

// Handler upgrades HTTP requests to room protocol connections
type Handler struct {
	store    *app.RoomStore
	opts     Options
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewHandler creates a WebSocket handler serving rooms from store
func NewHandler(store *app.RoomStore, opts Options, logger *slog.Logger) *Handler {
	h := &Handler{
		store:  store,
		opts:   opts,
		logger: logger,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// checkOrigin admits non-browser clients, which send no Origin header
func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || h.opts.AllowOrigin == nil {
		return true
	}
	return h.opts.AllowOrigin(origin)
}

// ServeHTTP upgrades the request. The connection starts unbound and joins a
// room with a join_room message.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	connID := uuid.New().String()
	client := NewClient(conn, connID, h.logger)
	client.handler = app.NewConnection(client, h.store, h.opts.Connection, h.logger)

	start := time.Now()
	h.logger.Info("websocket connected", "connID", connID, "remote", r.RemoteAddr)

	client.Run(r.Context())

	h.logger.Info("websocket disconnected", "connID", connID, "duration", time.Since(start))
}
