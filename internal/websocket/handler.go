package websocket

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"pharmachat/internal/relay"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Connections authenticate in-band with a token before any
		// routing happens, so the upgrade itself is open.
		return true
	},
	HandshakeTimeout: 10 * time.Second,
}

// Handler upgrades HTTP requests on the relay endpoint and feeds frames
// from each connection into the relay service.
type Handler struct {
	relay        *relay.Service
	bufferSize   int
	writeTimeout time.Duration
}

// NewHandler creates a websocket handler bound to a relay service.
func NewHandler(relayService *relay.Service, bufferSize int, writeTimeout time.Duration) *Handler {
	return &Handler{
		relay:        relayService,
		bufferSize:   bufferSize,
		writeTimeout: writeTimeout,
	}
}

// HandleWebSocket upgrades the request and hands the connection to the
// relay. Authentication happens afterwards over the socket itself.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	wsConn := NewConnection(conn, h.bufferSize, h.writeTimeout)
	h.relay.Accept(wsConn)

	// Pong receipt is the liveness acknowledgment for the heartbeat
	// protocol; it arrives on the read goroutine.
	conn.SetPongHandler(func(string) error {
		h.relay.MarkAlive(wsConn)
		return nil
	})

	go h.readPump(wsConn)
}

// readPump forwards inbound frames to the relay until the transport
// closes, then runs disconnection handling exactly once from this side.
func (h *Handler) readPump(c *Connection) {
	defer func() {
		h.relay.HandleDisconnect(c)
		_ = c.Close()
	}()

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket read error on %s: %v", c.ID(), err)
			}
			return
		}

		if messageType == websocket.TextMessage {
			h.relay.HandleInbound(c, data)
		}
	}
}
