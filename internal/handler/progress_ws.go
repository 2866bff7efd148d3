// ==============================================================================
// PROGRESS WEBSOCKET - internal/handler/progress_ws.go
// ==============================================================================
package handler

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"kycflow/pkg/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The review UI and the API are served from different origins in dev.
	CheckOrigin: func(r *http.Request) bool { return true },
}

const wsWriteTimeout = 10 * time.Second

// StreamProgress pushes processing-step snapshots over a websocket until the
// session turns terminal. This is the live counterpart of GetSessionState.
// GET /api/v1/verify/{id}/progress/ws
func (h *KYCHandler) StreamProgress(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionIDFromPath(w, r)
	if !ok {
		return
	}

	updates, cancel, err := h.service.Subscribe(id)
	if err != nil {
		h.respondError(w, http.StatusNotFound, "Session not found")
		return
	}
	defer cancel()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Websocket upgrade failed", logger.Fields{
			"error":      err.Error(),
			"session_id": id.String(),
		})
		return
	}
	defer conn.Close()

	// Reader goroutine: we ignore client messages but must drain the
	// connection to notice when the peer goes away.
	clientGone := make(chan struct{})
	go func() {
		defer close(clientGone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-clientGone:
			return
		case snapshot, open := <-updates:
			if !open {
				// Session finished; say goodbye cleanly.
				deadline := time.Now().Add(wsWriteTimeout)
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session complete"),
					deadline)
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(snapshot); err != nil {
				return
			}
		}
	}
}
