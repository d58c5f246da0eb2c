// Package preview streams transmitted frames to websocket clients.
//
// A Hub is registered as a scheduler observer. Every frame that reached the
// transport is converted to packed RGB (3 bytes per LED, wiring order) and
// sent as one binary message to each connected client.
package preview

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/ws2812spi/internal/model"
)

const (
	writeWait = 200 * time.Millisecond
	// sendQueue is how many messages a client may lag behind before frames
	// are skipped for it.
	sendQueue = 4
)

// Health is the /health response.
type Health struct {
	Frame   uint64  `json:"frame_id"`
	Frames  uint64  `json:"frames"`
	Count   int     `json:"count"`
	Uptime  float64 `json:"uptime_s"`
	Dropped uint64  `json:"dropped"`
	Clients int     `json:"clients"`
	Driver  string  `json:"driver,omitempty"`
}

// client is one websocket connection. Only its write pump writes to conn.
type client struct {
	conn *websocket.Conn
	kind int
	send chan []byte
}

type Hub struct {
	mu     sync.RWMutex
	clock  clockwork.Clock
	start  time.Time
	driver string

	rgb         []byte
	frameID     uint64
	frames      uint64
	dropped     uint64
	clients     map[*client]bool
	diagClients map[*client]bool

	up websocket.Upgrader
}

// NewHub returns a hub for a strip of n LEDs. driver is only reported by
// the health endpoint.
func NewHub(n int, driver string, c clockwork.Clock) *Hub {
	return &Hub{
		clock:       c,
		start:       c.Now(),
		driver:      driver,
		rgb:         make([]byte, n*3),
		clients:     map[*client]bool{},
		diagClients: map[*client]bool{},
		up:          websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
	}
}

// Observe records the frame and queues it for every client. It never waits
// on a connection.
func (h *Hub) Observe(frame uint64, colors []model.ColorVal) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, c := range colors {
		if i*3+2 >= len(h.rgb) {
			break
		}
		h.rgb[i*3+0] = c.R()
		h.rgb[i*3+1] = c.G()
		h.rgb[i*3+2] = c.B()
	}
	h.frameID = frame
	h.frames++
	h.publish(h.clients, append([]byte{}, h.rgb...))
}

// Last returns a copy of the last frame as packed RGB.
func (h *Hub) Last() []byte {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]byte{}, h.rgb...)
}

// Clients is the number of connected websocket clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Handler mounts the frame and diagnostics websockets and the health
// endpoint.
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.HandleFramesWS)
	mux.HandleFunc("/diag", h.HandleDiagWS)
	mux.HandleFunc("/health", h.HandleHealth)
	return mux
}

// HandleFramesWS streams frames as binary RGB messages, starting with the
// last frame.
func (h *Hub) HandleFramesWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.up.Upgrade(w, r, nil)
	if err != nil {
		log.Debug().Err(err).Msg("websocket upgrade")
		return
	}
	h.mu.Lock()
	c := h.register(conn, websocket.BinaryMessage, h.clients)
	c.send <- append([]byte{}, h.rgb...)
	h.mu.Unlock()
	h.serve(c, h.clients)
}

func (h *Hub) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	resp := Health{
		Frame:   h.frameID,
		Frames:  h.frames,
		Count:   len(h.rgb) / 3,
		Uptime:  h.clock.Since(h.start).Seconds(),
		Dropped: h.dropped,
		Clients: len(h.clients),
		Driver:  h.driver,
	}
	h.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// Close disconnects every client.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, set := range []map[*client]bool{h.clients, h.diagClients} {
		for c := range set {
			h.remove(c, set)
		}
	}
	return nil
}

// register adds conn to set. h.mu must be held.
func (h *Hub) register(conn *websocket.Conn, kind int, set map[*client]bool) *client {
	c := &client{conn: conn, kind: kind, send: make(chan []byte, sendQueue)}
	set[c] = true
	return c
}

// serve starts the write pump and a reader that notices the peer going away.
func (h *Hub) serve(c *client, set map[*client]bool) {
	go h.writePump(c, set)
	go func() {
		defer h.drop(c, set)
		for {
			if _, _, err := c.conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *Hub) writePump(c *client, set map[*client]bool) {
	defer h.drop(c, set)
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(c.kind, msg); err != nil {
			log.Debug().Err(err).Msg("write to client")
			return
		}
	}
}

// publish queues msg for every client in set, skipping clients whose queue
// is full. h.mu must be held.
func (h *Hub) publish(set map[*client]bool, msg []byte) {
	for c := range set {
		select {
		case c.send <- msg:
		default:
			log.Debug().Msg("client lagging; message skipped")
		}
	}
}

func (h *Hub) drop(c *client, set map[*client]bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.remove(c, set)
}

// remove unregisters c once. h.mu must be held.
func (h *Hub) remove(c *client, set map[*client]bool) {
	if !set[c] {
		return
	}
	delete(set, c)
	close(c.send)
	c.conn.Close()
}
