package realtime

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"poll-service/internal/middleware"
)

// presenceListInterval is how often connected clients receive a fresh
// online list
const presenceListInterval = 5 * time.Second

// PresenceFrame is the frame pushed to presence viewers
type PresenceFrame struct {
	Type      string         `json:"type"`
	Users     []PresenceUser `json:"users"`
	Count     int            `json:"count"`
	Connected bool           `json:"connected"`
	Error     string         `json:"error,omitempty"`
}

// HandlePresenceWebSocket godoc
// @Summary      Presence WebSocket
// @Description  Registers the caller as online and streams the online list
// @Tags         websocket
// @Param        token query string true "JWT Access Token"
// @Success      101 {string} string "Switching Protocols"
// @Failure      401 {object} map[string]string
// @Router       /ws/presence [get]
func HandlePresenceWebSocket(tracker *Tracker, validator middleware.TokenValidator, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Browsers cannot set headers on WebSocket upgrades, so the
		// token travels as a query parameter.
		token := c.Query("token")
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Token required"})
			return
		}

		userID, _, err := validator.ValidateToken(token)
		if err != nil {
			logger.Warn("invalid token for presence", zap.Error(err))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Error("failed to upgrade presence connection", zap.Error(err))
			return
		}

		logger.Info("presence connected", zap.String("user_id", userID.String()))

		tracker.Heartbeat(userID)

		go presenceWritePump(conn, tracker, logger)
		presenceReadPump(conn, tracker, userID, logger)
	}
}

func presenceReadPump(conn *websocket.Conn, tracker *Tracker, userID uuid.UUID, logger *zap.Logger) {
	defer func() {
		conn.Close()
		logger.Info("presence disconnected", zap.String("user_id", userID.String()))
	}()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		tracker.Heartbeat(userID)
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("presence websocket error", zap.Error(err))
			}
			break
		}
		// Any client frame counts as activity.
		tracker.Heartbeat(userID)
	}
}

func presenceWritePump(conn *websocket.Conn, tracker *Tracker, logger *zap.Logger) {
	listTicker := time.NewTicker(presenceListInterval)
	pingTicker := time.NewTicker(pingPeriod)
	defer func() {
		listTicker.Stop()
		pingTicker.Stop()
		conn.Close()
	}()

	for {
		select {
		case <-listTicker.C:
			frame := PresenceFrame{
				Type:      "PRESENCE_LIST",
				Users:     tracker.OnlineUsers(),
				Count:     tracker.OnlineCount(),
				Connected: tracker.IsConnected(),
				Error:     tracker.ConnectionError(),
			}
			payload, err := json.Marshal(frame)
			if err != nil {
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-pingTicker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
