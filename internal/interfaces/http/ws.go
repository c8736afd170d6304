package http

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/pulsefeed/coinpulse/internal/fetch"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// Read-only broadcast; any origin may subscribe.
		return true
	},
}

// Hub broadcasts fresh market data to all connected WebSocket clients on a
// fixed poll interval. Clients are fan-out only; inbound messages are
// discarded.
type Hub struct {
	orchestrator *fetch.Orchestrator
	interval     time.Duration

	mu      sync.Mutex
	clients map[*wsClient]bool

	broadcast  chan []byte
	register   chan *wsClient
	unregister chan *wsClient
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates a broadcast hub polling the orchestrator at interval.
func NewHub(orchestrator *fetch.Orchestrator, interval time.Duration) *Hub {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Hub{
		orchestrator: orchestrator,
		interval:     interval,
		clients:      make(map[*wsClient]bool),
		broadcast:    make(chan []byte, 8),
		register:     make(chan *wsClient),
		unregister:   make(chan *wsClient),
	}
}

// Run drives the hub until ctx is canceled: it distributes broadcast frames
// and polls for fresh prices while anyone is connected.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()
			log.Debug().Int("clients", count).Msg("websocket client connected")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()
			log.Debug().Int("clients", count).Msg("websocket client disconnected")

		case message := <-h.broadcast:
			h.distribute(message)

		case <-ticker.C:
			h.pollAndBroadcast(ctx)
		}
	}
}

// pollAndBroadcast fetches current prices and pushes them to subscribers.
// Skipped when nobody is connected so an idle hub costs no upstream calls.
func (h *Hub) pollAndBroadcast(ctx context.Context) {
	h.mu.Lock()
	idle := len(h.clients) == 0
	h.mu.Unlock()
	if idle {
		return
	}

	result := h.orchestrator.GetMarketPrices(ctx, nil, 50)

	frame, err := json.Marshal(map[string]interface{}{
		"type":    "prices",
		"payload": result,
	})
	if err != nil {
		log.Error().Err(err).Msg("websocket frame encoding failed")
		return
	}

	select {
	case h.broadcast <- frame:
	default:
		log.Warn().Msg("websocket broadcast queue full, dropping frame")
	}
}

func (h *Hub) distribute(message []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		select {
		case client.send <- message:
		default:
			// Slow consumer; drop it rather than blocking the hub.
			delete(h.clients, client)
			close(client.send)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
}

// ServeWS handles GET /ws, upgrading the connection and subscribing it to
// the broadcast stream.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := &wsClient{
		conn: conn,
		send: make(chan []byte, 16),
	}
	h.register <- client

	go client.writeLoop()
	go client.readLoop(h)
}

func (c *wsClient) writeLoop() {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readLoop drains inbound frames to keep pong handling alive.
func (c *wsClient) readLoop(h *Hub) {
	defer func() {
		h.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
