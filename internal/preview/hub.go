package preview

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// HubOptions tune connection liveness.
type HubOptions struct {
	PingInterval time.Duration
	WriteTimeout time.Duration
	// CheckOrigin overrides the upgrader's origin check. Nil allows any origin.
	CheckOrigin func(r *http.Request) bool
}

func (o HubOptions) withDefaults() HubOptions {
	if o.PingInterval <= 0 {
		o.PingInterval = 20 * time.Second
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 10 * time.Second
	}
	if o.CheckOrigin == nil {
		o.CheckOrigin = func(*http.Request) bool { return true }
	}
	return o
}

// pongWait is how long a peer may stay silent.
func (o HubOptions) pongWait() time.Duration {
	return o.PingInterval * 10 / 9
}

type peer struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	// pong carries probe replies from readPump; only send is closed by the hub.
	pong chan []byte
}

// Hub fans the latest published build out to every connected client. A
// client that connects late is sent the current state first.
type Hub struct {
	log      *slog.Logger
	opts     HubOptions
	upgrader websocket.Upgrader

	clients    map[*peer]bool
	broadcast  chan [][]byte
	register   chan *peer
	unregister chan *peer
	done       chan struct{}
	connected  atomic.Int64

	mu    sync.RWMutex
	state [][]byte
}

func NewHub(opts HubOptions, log *slog.Logger) *Hub {
	opts = opts.withDefaults()
	return &Hub{
		log:  log,
		opts: opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     opts.CheckOrigin,
		},
		clients:    make(map[*peer]bool),
		broadcast:  make(chan [][]byte, 16),
		register:   make(chan *peer),
		unregister: make(chan *peer),
		done:       make(chan struct{}),
	}
}

// Run serves registrations and broadcasts until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	defer h.connected.Store(0)
	for {
		h.connected.Store(int64(len(h.clients)))
		select {
		case <-ctx.Done():
			for p := range h.clients {
				delete(h.clients, p)
				close(p.send)
			}
			return

		case p := <-h.register:
			h.clients[p] = true
			for _, frame := range h.snapshot() {
				h.deliver(p, frame)
			}
			h.log.Info("preview client connected", "clients", len(h.clients))

		case p := <-h.unregister:
			if _, ok := h.clients[p]; ok {
				delete(h.clients, p)
				close(p.send)
			}
			h.log.Info("preview client disconnected", "clients", len(h.clients))

		case frames := <-h.broadcast:
			for p := range h.clients {
				for _, frame := range frames {
					if !h.deliver(p, frame) {
						break
					}
				}
			}
		}
	}
}

// deliver queues frame for p, dropping p when its queue is full.
func (h *Hub) deliver(p *peer, frame []byte) bool {
	select {
	case p.send <- frame:
		return true
	default:
		h.log.Warn("preview client too slow, disconnecting")
		delete(h.clients, p)
		close(p.send)
		return false
	}
}

func (h *Hub) snapshot() [][]byte {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.state
}

// Publish replaces the current state with msgs and sends them to every client.
func (h *Hub) Publish(msgs []Message) error {
	frames, err := encode(msgs)
	if err != nil {
		return err
	}
	h.mu.Lock()
	h.state = frames
	h.mu.Unlock()

	select {
	case h.broadcast <- frames:
	default:
		h.log.Warn("preview broadcast channel full, clients will catch up on reconnect")
	}
	return nil
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	return int(h.connected.Load())
}

// ServeWS upgrades the request and attaches the connection to the hub.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("websocket upgrade failed", "error", err)
		return
	}
	p := &peer{hub: h, conn: conn, send: make(chan []byte, 256), pong: make(chan []byte, 4)}
	select {
	case h.register <- p:
	case <-h.done:
		conn.Close()
		return
	}

	go p.writePump()
	go p.readPump()
}

// readPump answers liveness probes until the connection fails.
func (p *peer) readPump() {
	defer func() {
		select {
		case p.hub.unregister <- p:
		case <-p.hub.done:
		}
		p.conn.Close()
	}()

	wait := p.hub.opts.pongWait()
	p.conn.SetReadDeadline(time.Now().Add(wait))
	p.conn.SetPongHandler(func(string) error {
		p.conn.SetReadDeadline(time.Now().Add(wait))
		return nil
	})

	for {
		_, data, err := p.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				p.hub.log.Warn("preview connection closed", "error", err)
			}
			return
		}
		p.conn.SetReadDeadline(time.Now().Add(wait))

		if reply := pingReply(data); reply != nil {
			select {
			case p.pong <- reply:
			default:
			}
		}
	}
}

// pingReply answers "__ping__" and {"kind":"ping"}; other input is ignored.
func pingReply(data []byte) []byte {
	if string(data) == PingText {
		return []byte(PongText)
	}
	var m Message
	if err := json.Unmarshal(data, &m); err == nil && m.Kind == KindPing {
		out, _ := json.Marshal(Message{Kind: KindPong})
		return out
	}
	return nil
}

func (p *peer) writePump() {
	ticker := time.NewTicker(p.hub.opts.PingInterval)
	defer func() {
		ticker.Stop()
		p.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-p.send:
			p.conn.SetWriteDeadline(time.Now().Add(p.hub.opts.WriteTimeout))
			if !ok {
				p.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := p.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}

		case reply := <-p.pong:
			p.conn.SetWriteDeadline(time.Now().Add(p.hub.opts.WriteTimeout))
			if err := p.conn.WriteMessage(websocket.TextMessage, reply); err != nil {
				return
			}

		case <-ticker.C:
			p.conn.SetWriteDeadline(time.Now().Add(p.hub.opts.WriteTimeout))
			if err := p.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
