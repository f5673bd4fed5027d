package websocket

import (
	"log/slog"
	"net/http"
	"slices"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/mding5692/videre-server/domain"
)

// NewHandler upgrades requests to websocket connections served by h.
// An empty allowedOrigins accepts every origin.
func NewHandler(h domain.MessageHandler, allowedOrigins []string) http.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			return slices.Contains(allowedOrigins, r.Header.Get("Origin"))
		},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Error("upgrade error", "error", err)
			return
		}

		conn := NewConn(uuid.New().String(), ws, h)
		slog.Debug("connection opened", "clientId", conn.ID(), "remote", r.RemoteAddr)
		conn.Start()
	}
}
