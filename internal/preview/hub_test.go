package preview

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/ws2812spi/internal/model"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func read(t *testing.T, c *websocket.Conn) []byte {
	t.Helper()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
	kind, data, err := c.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.BinaryMessage, kind)
	return data
}

func TestObserveConvertsToRGB(t *testing.T) {
	h := NewHub(3, "sim", clockwork.NewFakeClock())
	h.Observe(7, []model.ColorVal{
		model.NewColor(1, 2, 3),
		model.NewColor(0xFF, 0, 0),
		model.NewColor(0, 0, 0x80),
	})
	assert.Equal(t, []byte{2, 1, 3, 0, 0xFF, 0, 0, 0, 0x80}, h.Last())
}

func TestObserveIgnoresExtraColors(t *testing.T) {
	h := NewHub(1, "sim", clockwork.NewFakeClock())
	h.Observe(0, []model.ColorVal{model.NewColor(9, 8, 7), model.NewColor(1, 1, 1)})
	assert.Equal(t, []byte{8, 9, 7}, h.Last())
}

func TestFramesWebsocket(t *testing.T) {
	h := NewHub(2, "sim", clockwork.NewFakeClock())
	h.Observe(0, []model.ColorVal{model.NewColor(10, 20, 30), 0})

	srv := httptest.NewServer(h.Handler())
	defer srv.Close()
	c := dial(t, srv)

	assert.Equal(t, []byte{20, 10, 30, 0, 0, 0}, read(t, c), "last frame on connect")

	h.Observe(1, []model.ColorVal{0, model.NewColor(0, 0, 5)})
	assert.Equal(t, []byte{0, 0, 0, 0, 0, 5}, read(t, c))
	assert.Equal(t, 1, h.Clients())

	c.Close()
	assert.Eventually(t, func() bool { return h.Clients() == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestHealth(t *testing.T) {
	fc := clockwork.NewFakeClock()
	h := NewHub(144, "spi", fc)
	h.Observe(0, make([]model.ColorVal, 144))
	h.Observe(1, make([]model.ColorVal, 144))
	fc.Advance(5 * time.Second)

	rec := httptest.NewRecorder()
	h.HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got Health
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, Health{Frame: 1, Frames: 2, Count: 144, Uptime: 5, Dropped: 0, Clients: 0, Driver: "spi"}, got)
}

func TestCloseDropsClients(t *testing.T) {
	h := NewHub(1, "sim", clockwork.NewFakeClock())
	srv := httptest.NewServer(h.Handler())
	defer srv.Close()
	c := dial(t, srv)
	read(t, c)

	require.NoError(t, h.Close())
	assert.Equal(t, 0, h.Clients())
	require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := c.ReadMessage()
	assert.Error(t, err)
}

func TestObserveDoesNotWaitForLaggingClients(t *testing.T) {
	h := NewHub(2, "sim", clockwork.NewFakeClock())
	srv := httptest.NewServer(h.Handler())
	defer srv.Close()
	dial(t, srv) // never reads
	require.Eventually(t, func() bool { return h.Clients() == 1 }, 2*time.Second, 5*time.Millisecond)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			h.Observe(uint64(i), []model.ColorVal{model.NewColor(byte(i), 0, 0), 0})
		}
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Observe blocked on a client")
	}
	assert.Equal(t, []byte{0, 0xE7, 0, 0, 0, 0}, h.Last())
}

func TestBrokenClientIsRemoved(t *testing.T) {
	h := NewHub(1, "sim", clockwork.NewFakeClock())
	srv := httptest.NewServer(h.Handler())
	defer srv.Close()
	c := dial(t, srv)
	read(t, c)

	require.NoError(t, c.UnderlyingConn().Close())
	for i := 0; i < 10 && h.Clients() > 0; i++ {
		h.Observe(uint64(i), []model.ColorVal{0x010203})
		time.Sleep(10 * time.Millisecond)
	}
	assert.Eventually(t, func() bool { return h.Clients() == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestFullQueueSkipsMessages(t *testing.T) {
	h := NewHub(1, "sim", clockwork.NewFakeClock())
	c := &client{send: make(chan []byte, 1)}
	c.send <- []byte{1}
	h.clients[c] = true

	h.mu.Lock()
	h.publish(h.clients, []byte{2})
	h.mu.Unlock()

	assert.Equal(t, []byte{1}, <-c.send)
	assert.Empty(t, c.send)
}
