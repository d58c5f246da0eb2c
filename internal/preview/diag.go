package preview

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/ws2812spi/internal/transport"
)

type Severity string

const (
	Info Severity = "info"
	Warn Severity = "warning"
	Err  Severity = "error"
)

// Diagnostic is one event pushed to /diag clients as JSON.
type Diagnostic struct {
	Severity       Severity       `json:"severity"`
	Code           string         `json:"code"`
	Summary        string         `json:"summary"`
	Detail         string         `json:"detail,omitempty"`
	LikelyCauses   []string       `json:"likely_causes,omitempty"`
	SuggestedFixes []string       `json:"suggested_fixes,omitempty"`
	Evidence       map[string]any `json:"evidence,omitempty"`
}

// Dropped reports a frame the transport refused.
func (h *Hub) Dropped(frame uint64, err error) {
	h.mu.Lock()
	h.dropped++
	h.mu.Unlock()
	h.pushDiag(diagnose(frame, err))
}

func diagnose(frame uint64, err error) Diagnostic {
	d := Diagnostic{
		Severity: Err,
		Code:     "TRANSFER.FAILED",
		Summary:  "Frame dropped",
		Detail:   err.Error(),
		Evidence: map[string]any{"frame": frame},
	}
	var te *transport.TransportError
	if errors.As(err, &te) {
		d.Evidence["op"] = te.Op
	}
	switch {
	case errors.Is(err, transport.ErrTooLarge):
		d.Code = "TRANSFER.TOO_LARGE"
		d.LikelyCauses = []string{"frame larger than the SPI driver buffer"}
		d.SuggestedFixes = []string{"raise spidev bufsiz", "use a denser variant", "drive fewer LEDs"}
	case errors.Is(err, transport.ErrClosed), errors.Is(err, transport.ErrNotStarted):
		d.Code = "TRANSFER.NOT_READY"
		d.Severity = Warn
	}
	return d
}

func (h *Hub) HandleDiagWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.up.Upgrade(w, r, nil)
	if err != nil {
		log.Debug().Err(err).Msg("websocket upgrade")
		return
	}
	h.mu.Lock()
	c := h.register(conn, websocket.TextMessage, h.diagClients)
	h.mu.Unlock()
	h.serve(c, h.diagClients)
}

// DiagClients is the number of connected diagnostics clients.
func (h *Hub) DiagClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.diagClients)
}

func (h *Hub) pushDiag(d Diagnostic) {
	b, _ := json.Marshal(d)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.publish(h.diagClients, b)
}
