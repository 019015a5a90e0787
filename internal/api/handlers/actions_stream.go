package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/remedyops/remedy/internal/ledger"
	"github.com/remedyops/remedy/internal/models"
)

// ActionFeed is the subscription surface of the action ledger.
type ActionFeed interface {
	OnAction(fn ledger.Observer) string
	RemoveListener(id string)
}

// ActionStreamHandler streams action transitions over a websocket.
type ActionStreamHandler struct {
	feed     ActionFeed
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewActionStreamHandler creates an action stream handler.
func NewActionStreamHandler(feed ActionFeed, logger *slog.Logger) *ActionStreamHandler {
	return &ActionStreamHandler{
		feed: feed,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger.With("component", "api"),
	}
}

// Stream handles GET /v1/actions/stream. It upgrades the connection and
// forwards every action transition as a JSON message until the client
// disconnects.
func (h *ActionStreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	// Buffered so a slow client drops messages instead of blocking the
	// ledger's fan-out goroutine.
	events := make(chan models.AutomatedAction, 64)
	subID := h.feed.OnAction(func(a models.AutomatedAction) {
		select {
		case events <- a:
		default:
		}
	})
	defer h.feed.RemoveListener(subID)

	// Reader goroutine: detect client disconnect.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	pingTicker := time.NewTicker(30 * time.Second)
	defer pingTicker.Stop()

	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case a := <-events:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(a); err != nil {
				h.logger.Debug("websocket write failed", "error", err)
				return
			}
		case <-pingTicker.C:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
