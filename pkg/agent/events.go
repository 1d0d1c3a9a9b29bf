package agent

import (
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	apphttp "github.com/topdeveloper55/ether-pulse-bridge/pkg/app/http"
	"github.com/topdeveloper55/ether-pulse-bridge/pkg/orchestrator"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 512
)

// Stream message types.
const (
	MessageSnapshot   = "snapshot"
	MessageTransition = "transition"
)

// StreamMessage is one frame of a flow's event stream. The first frame is
// a snapshot; a final snapshot follows once the flow stops publishing.
type StreamMessage struct {
	Type       string                   `json:"type"`
	Snapshot   *orchestrator.Snapshot   `json:"snapshot,omitempty"`
	Transition *orchestrator.Transition `json:"transition,omitempty"`
}

func (h *HTTP) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		CheckOrigin: h.checkOrigin,
	}
}

func (h *HTTP) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(h.origins) == 0 || slices.Contains(h.origins, "*") {
		return true
	}
	return slices.Contains(h.origins, origin)
}

// flowEvents streams a flow's transitions over a WebSocket.
func (h *HTTP) flowEvents(w http.ResponseWriter, r *http.Request) {
	f, err := h.deps.Flows.Flow(chi.URLParam(r, "id"))
	if err != nil {
		apphttp.WriteError(w, err, orchestrator.KindOf)
		return
	}

	// Subscribe before the snapshot so no transition falls between them.
	events, unsubscribe := f.Subscribe()
	defer unsubscribe()

	conn, err := h.upgrader().Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.String("flow_id", f.ID()), zap.Error(err))
		return
	}
	defer func() { _ = conn.Close() }()

	h.logger.Debug("Flow stream opened", zap.String("flow_id", f.ID()))

	closed := make(chan struct{})
	go readPump(conn, closed)

	snap := f.Snapshot()
	if err := writeMessage(conn, StreamMessage{Type: MessageSnapshot, Snapshot: &snap}); err != nil {
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case <-h.deps.BaseContext.Done():
			writeClose(conn, websocket.CloseGoingAway)
			return
		case t, ok := <-events:
			if !ok {
				final := f.Snapshot()
				if err := writeMessage(conn, StreamMessage{Type: MessageSnapshot, Snapshot: &final}); err != nil {
					return
				}
				writeClose(conn, websocket.CloseNormalClosure)
				h.logger.Debug("Flow stream finished", zap.String("flow_id", f.ID()), zap.String("state", string(final.State)))
				return
			}
			if err := writeMessage(conn, StreamMessage{Type: MessageTransition, Transition: &t}); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains client frames so pongs and close frames are processed.
func readPump(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func writeMessage(conn *websocket.Conn, msg StreamMessage) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(msg)
}

func writeClose(conn *websocket.Conn, code int) {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, ""))
}
