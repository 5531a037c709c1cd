package realtime

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"poll-service/internal/domain"
	"poll-service/internal/middleware"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192
)

var upgrader = websocket.Upgrader{
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// WSMessage is the frame pushed to result viewers
type WSMessage struct {
	Type     string                   `json:"type"`
	PollID   string                   `json:"pollId,omitempty"`
	Snapshot *domain.PollWithResults  `json:"snapshot,omitempty"`
	Polls    []*domain.PollWithResults `json:"polls,omitempty"`
	Status   string                   `json:"status,omitempty"`
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans poll snapshot updates out to every connected viewer. One
// hub per process; connections register on upgrade and are dropped
// when their send queue backs up.
type Hub struct {
	clients    map[*wsClient]bool
	register   chan *wsClient
	unregister chan *wsClient
	broadcast  chan []byte
	logger     *zap.Logger
}

// NewHub creates the hub and starts its run loop
func NewHub(logger *zap.Logger) *Hub {
	hub := &Hub{
		clients:    make(map[*wsClient]bool),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		broadcast:  make(chan []byte, 256),
		logger:     logger,
	}

	go hub.run()

	return hub
}

func (h *Hub) run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			middleware.RecordWebSocketConnection()

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				middleware.RecordWebSocketDisconnection()
			}

		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Slow consumer; drop it rather than block the hub.
					delete(h.clients, client)
					close(client.send)
					middleware.RecordWebSocketDisconnection()
				}
			}
		}
	}
}

// BroadcastSnapshot pushes one poll's refreshed snapshot to all viewers
func (h *Hub) BroadcastSnapshot(snapshot *domain.PollWithResults) {
	payload, err := json.Marshal(WSMessage{
		Type:     "POLL_UPDATE",
		PollID:   snapshot.Poll.ID.String(),
		Snapshot: snapshot,
	})
	if err != nil {
		h.logger.Error("failed to marshal snapshot", zap.Error(err))
		return
	}
	h.broadcast <- payload
}

// BroadcastPollRemoved tells viewers to drop a poll from display
func (h *Hub) BroadcastPollRemoved(pollID uuid.UUID) {
	payload, _ := json.Marshal(WSMessage{
		Type:   "POLL_REMOVED",
		PollID: pollID.String(),
	})
	h.broadcast <- payload
}

// HandleResultsWebSocket godoc
// @Summary      Live results WebSocket
// @Description  Streams per-poll snapshot updates as votes are cast
// @Tags         websocket
// @Success      101 {string} string "Switching Protocols"
// @Router       /ws/polls [get]
func (h *Hub) HandleResultsWebSocket(feed *FeedClient) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			h.logger.Error("failed to upgrade connection", zap.Error(err))
			return
		}

		client := &wsClient{
			conn: conn,
			send: make(chan []byte, 256),
		}
		h.register <- client

		// New viewers get the current cached list immediately so they
		// are not blank until the next vote lands.
		if feed != nil {
			state, _ := feed.State()
			if payload, err := json.Marshal(WSMessage{
				Type:   "POLL_LIST",
				Polls:  feed.Snapshots(),
				Status: string(state),
			}); err == nil {
				client.send <- payload
			}
		}

		go h.writePump(client)
		go h.readPump(client)
	}
}

func (h *Hub) readPump(client *wsClient) {
	defer func() {
		h.unregister <- client
		client.conn.Close()
	}()

	client.conn.SetReadLimit(maxMessageSize)
	client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		client.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn("websocket error", zap.Error(err))
			}
			break
		}
	}
}

func (h *Hub) writePump(client *wsClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
