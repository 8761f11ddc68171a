package websocket

import (
	"net/http"

	"github.com/gorilla/websocket"

	"gameroom-backend/internal/middleware"
	"gameroom-backend/pkg/utils"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// HandleWebSocket upgrades an authenticated request. Browsers cannot set
// headers on the handshake, so the token may also come as ?token=.
func HandleWebSocket(hub *Hub, verifier middleware.TokenVerifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tokenString := r.URL.Query().Get("token")
		if tokenString == "" {
			tokenString, _ = middleware.BearerToken(r)
		}
		if tokenString == "" {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		claims, err := verifier.Verify(r.Context(), tokenString)
		if err != nil {
			hub.log.WithError(err).Warn("❌ Invalid websocket token")
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			hub.log.WithError(err).Error("❌ WebSocket upgrade failed")
			return
		}

		client := NewClient(claims.UserID, conn, hub)
		if !hub.addClient(client) {
			conn.Close()
			return
		}

		go client.WritePump()
		go client.ReadPump()
	}
}
