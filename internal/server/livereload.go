package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/yklcs/areum/internal/logging"
)

// ReloadPath is the websocket endpoint dev pages connect to for reload
// notifications.
const ReloadPath = "/_areum/reload"

// reloadClient is injected into every dev page. It reloads on any message
// and keeps retrying the connection so the page survives server restarts.
const reloadClient = `(() => {
  const connect = () => {
    const ws = new WebSocket("ws://" + location.host + "` + ReloadPath + `");
    ws.onmessage = () => location.reload();
    ws.onclose = () => setTimeout(connect, 1000);
  };
  connect();
})();`

// reloadHub tracks live reload connections and broadcasts to all of them.
type reloadHub struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
	log   logging.Logger
}

func newReloadHub(log logging.Logger) *reloadHub {
	return &reloadHub{
		conns: make(map[*websocket.Conn]struct{}),
		log:   log,
	}
}

func (h *reloadHub) handle(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // dev server only, any local origin is fine
	})
	if err != nil {
		h.log.Warn(r.Context(), err, "websocket accept failed")
		return
	}

	h.mu.Lock()
	h.conns[conn] = struct{}{}
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.conns, conn)
		h.mu.Unlock()
		conn.Close(websocket.StatusNormalClosure, "")
	}()

	// The client never sends; reading just detects the close.
	for {
		if _, _, err := conn.Read(r.Context()); err != nil {
			return
		}
	}
}

// broadcast tells every connected page to reload. Connections that fail
// to take the message are dropped.
func (h *reloadHub) broadcast(ctx context.Context) {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := c.Write(writeCtx, websocket.MessageText, []byte("reload"))
		cancel()
		if err != nil {
			h.mu.Lock()
			delete(h.conns, c)
			h.mu.Unlock()
			c.Close(websocket.StatusGoingAway, "write failed")
		}
	}
}

// closeAll disconnects every client, used on shutdown.
func (h *reloadHub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.conns {
		c.Close(websocket.StatusGoingAway, "server shutting down")
	}
	h.conns = make(map[*websocket.Conn]struct{})
}
