package hub

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/gogpu/heatmap/wire"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Viewers are served from any origin, like the browser page's CORS "*".
	CheckOrigin: func(*http.Request) bool { return true },
}

// client is one websocket connection. send is closed by the Run goroutine
// when the client is removed.
type client struct {
	id   uuid.UUID
	conn *websocket.Conn
	send chan []byte
}

// ServeHTTP upgrades the request to a websocket and serves the client until
// it disconnects. The client first receives signal_update, then
// all_points.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("websocket upgrade failed", "err", err)
		return
	}
	c := &client{id: uuid.New(), conn: conn, send: make(chan []byte, h.sendBuffer)}

	if err := h.do(r.Context(), func(st *state) {
		st.clients[c] = struct{}{}
		h.metrics.SetClients(len(st.clients))
		h.log.Info("client connected", "client", c.id, "remote", r.RemoteAddr, "clients", len(st.clients))
		h.sendTo(st, c, wire.EventSignalUpdate, st.status)
		h.sendTo(st, c, wire.EventAllPoints, allPoints(st.store))
	}); err != nil {
		_ = conn.Close()
		return
	}

	go h.writePump(c)
	h.readPump(c)
}

// readPump decodes inbound messages until the connection fails.
func (h *Hub) readPump(c *client) {
	defer func() {
		_ = h.do(context.Background(), func(st *state) {
			if _, ok := st.clients[c]; ok {
				h.disconnect(st, c)
				h.log.Info("client disconnected", "client", c.id, "clients", len(st.clients))
			}
		})
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("websocket read", "client", c.id, "err", err)
			}
			return
		}
		h.handle(c, msg)
	}
}

// handle dispatches one inbound message. Malformed messages are dropped.
func (h *Hub) handle(c *client, msg []byte) {
	env, err := wire.Decode(msg)
	if err != nil {
		h.metrics.Drop("envelope")
		h.log.Debug("dropping message", "client", c.id, "err", err)
		return
	}
	switch env.Event {
	case wire.EventAddPoint:
		p, ok := wire.DecodeAddPoint(env.Data)
		if !ok {
			h.metrics.Drop(env.Event)
			h.log.Debug("dropping malformed add_point", "client", c.id)
			return
		}
		_ = h.do(context.Background(), func(st *state) {
			sample, err := h.addPoint(context.Background(), st, p)
			if err != nil {
				h.metrics.Drop(env.Event)
				h.log.Debug("rejecting add_point", "client", c.id, "err", err)
				return
			}
			h.sendTo(st, c, wire.EventPointAdded, sample)
		})
	default:
		h.metrics.Drop("unknown")
		h.log.Debug("ignoring event", "client", c.id, "event", env.Event)
	}
}

// writePump drains c.send onto the connection and keeps it alive with
// pings.
func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// broadcast queues event for every client.
func (h *Hub) broadcast(st *state, event string, data any) {
	msg, err := wire.Encode(event, data)
	if err != nil {
		h.log.Error("encode broadcast", "event", event, "err", err)
		return
	}
	for c := range st.clients {
		h.enqueue(st, c, msg)
	}
}

// sendTo queues event for c alone.
func (h *Hub) sendTo(st *state, c *client, event string, data any) {
	msg, err := wire.Encode(event, data)
	if err != nil {
		h.log.Error("encode message", "event", event, "err", err)
		return
	}
	h.enqueue(st, c, msg)
}

// enqueue drops c when its queue is full.
func (h *Hub) enqueue(st *state, c *client, msg []byte) {
	if _, ok := st.clients[c]; !ok {
		return
	}
	select {
	case c.send <- msg:
	default:
		h.log.Warn("dropping slow client", "client", c.id)
		h.disconnect(st, c)
	}
}

func (h *Hub) disconnect(st *state, c *client) {
	delete(st.clients, c)
	close(c.send)
	h.metrics.SetClients(len(st.clients))
}
