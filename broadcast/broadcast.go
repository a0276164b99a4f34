// Package broadcast republishes controller events to websocket clients.
package broadcast

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/robertof/go-gearvr-controller/device"
	"github.com/robertof/go-gearvr-controller/session"
	"github.com/rs/zerolog/log"
)

const clientBufferSize = 64

type client struct {
	conn *websocket.Conn
	send chan []byte
}

func newClient(conn *websocket.Conn) *client {
	c := &client{
		conn: conn,
		send: make(chan []byte, clientBufferSize),
	}
	go c.writePump()
	return c
}

func (c *client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// Broadcaster fans controller events out to every connected websocket client.
// New clients first receive a snapshot of the current session state. Clients
// that cannot keep up are disconnected rather than slowing down event delivery.
type Broadcaster struct {
	mu       sync.RWMutex
	clients  map[*client]bool
	snapshot func() session.Snapshot
	upgrader websocket.Upgrader
}

func New(snapshot func() session.Snapshot) *Broadcaster {
	return &Broadcaster{
		clients:  make(map[*client]bool),
		snapshot: snapshot,
		upgrader: websocket.Upgrader{
			// events are read-only; any origin may watch them.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

func (b *Broadcaster) addClient(conn *websocket.Conn) *client {
	c := newClient(conn)

	b.mu.Lock()
	b.clients[c] = true
	b.mu.Unlock()

	if data, err := json.Marshal(snapshotMessage(b.snapshot())); err == nil {
		select {
		case c.send <- data:
		default:
		}
	}

	return c
}

func (b *Broadcaster) removeClient(c *client) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.clients[c]; ok {
		delete(b.clients, c)
		close(c.send)
	}
}

// Listen is a device.Listener forwarding e to all clients.
func (b *Broadcaster) Listen(e device.Event) {
	data, err := json.Marshal(eventMessage(e))
	if err != nil {
		log.Error().Err(err).Stringer("Event", e).Msg("broadcast: failed to marshal event")
		return
	}

	var slow []*client

	// sends happen under the read lock so removeClient cannot close a channel
	// we are about to write to.
	b.mu.RLock()
	for c := range b.clients {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	b.mu.RUnlock()

	for _, c := range slow {
		log.Warn().
			Stringer("RemoteAddr", c.conn.RemoteAddr()).
			Msg("broadcast: websocket client too slow, disconnecting")
		b.removeClient(c)
	}
}

func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

func (b *Broadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debug().Err(err).Str("RemoteAddr", r.RemoteAddr).Msg("broadcast: websocket upgrade failed")
		return
	}

	log.Debug().Str("RemoteAddr", r.RemoteAddr).Msg("broadcast: websocket client connected")
	c := b.addClient(conn)

	// drain (and discard) client messages so control frames get processed and
	// we notice when the client goes away.
	go func() {
		defer func() {
			b.removeClient(c)
			log.Debug().Str("RemoteAddr", r.RemoteAddr).Msg("broadcast: websocket client disconnected")
		}()

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
