package ws

import (
	"context"
	"errors"
	"net/http"
	"time"

	apperrors "github.com/juicy-forest/server/pkg/errors"
	jwtpkg "github.com/juicy-forest/server/pkg/jwt"
	"github.com/juicy-forest/server/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const authCookieName = "auth-token"

var upgrader = websocket.Upgrader{
	HandshakeTimeout: 10 * time.Second,
	ReadBufferSize:   1024,
	WriteBufferSize:  1024,
	// Origin enforcement lives at the gateway; browser clients connect
	// through it with credentials
	CheckOrigin: func(r *http.Request) bool { return true },
}

// authenticate resolves identity claims from the upgrade request's session
// cookie. It distinguishes a missing credential from a bad one so the close
// reason can say which.
func authenticate(r *http.Request, tokens *jwtpkg.Service) (*jwtpkg.UserClaims, error) {
	cookie, err := r.Cookie(authCookieName)
	if err != nil || cookie.Value == "" {
		return nil, apperrors.ErrMissingCredential
	}

	claims, err := tokens.ValidateToken(cookie.Value)
	if err != nil {
		return nil, apperrors.ErrInvalidCredential
	}
	return claims, nil
}

// ServeWS upgrades the request and attaches the connection to the hub. The
// upgrade happens before authentication so a rejection can be delivered as
// a proper close frame (policy violation, 1008) instead of an HTTP status.
func ServeWS(hub *Hub, tokens *jwtpkg.Service, sendBuffer int, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.LogError(err, "websocket upgrade failed")
			return
		}

		claims, err := authenticate(c.Request, tokens)
		if err != nil {
			reason := "Invalid token"
			if errors.Is(err, apperrors.ErrMissingCredential) {
				reason = "Authentication required"
			}
			rejectedHandshakesTotal.WithLabelValues(reason).Inc()
			log.Warn("rejected websocket handshake", "reason", reason)

			msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason)
			conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
			conn.Close()
			return
		}

		client := NewClient(hub, conn, claims, sendBuffer, log)
		hub.Register(client)

		go client.WritePump()
		go client.ReadPump()

		// Every accepted connection gets exactly one snapshot up front
		event, err := client.buildInitialLoad(context.Background(), claims.GardenID)
		if err != nil {
			log.LogError(err, "failed to build initial snapshot", "garden_id", claims.GardenID)
			return
		}
		client.sendEvent(event)
	}
}
