// File: handlers/ws.go
package handlers

import (
	"net/http"

	"slotwise/config"
	"slotwise/realtime"
	"slotwise/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Cross-origin policy is enforced by the CORS layer; the portal
		// frontend and the API share a trust boundary.
		return true
	},
}

// tokenLive is the Redis-backed revocation check; overridable in tests.
var tokenLive = utils.IsAuthTokenLive

// WSHandler upgrades the connection and binds it to a new session.
// Browsers cannot set headers on websocket dials, so the JWT rides the
// query string here; it goes through the same validation and revocation
// checks as a bearer header.
func WSHandler(hub *realtime.Hub, authCache *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := c.Query("token")
		userID, err := utils.ExtractIDFromToken(tokenString)
		if err != nil {
			utils.JSONError(c, http.StatusUnauthorized, "unauthorized", "invalid or missing token")
			return
		}

		if authCache != nil {
			live, err := tokenLive(authCache, utils.HashToken(tokenString))
			if err != nil {
				utils.JSONError(c, http.StatusServiceUnavailable, "auth_unavailable", "token liveness check failed")
				return
			}
			if !live {
				utils.JSONError(c, http.StatusUnauthorized, "token_revoked", "token has been revoked")
				return
			}
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			utils.GetLogger().Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		session := realtime.NewSession(uuid.New().String(), userID, hub, conn, config.AppConfig.SessionSendBuffer)
		hub.Register(session)

		go session.WritePump()
		go session.ReadPump()
	}
}
