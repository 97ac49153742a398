// Package relaybridge forwards drained engine events (spec C10) to remote
// observers over a websocket, grounded on
// kernel/core/mesh/transport/transport_native.go's gorilla/websocket
// dial/serve pattern and kernel/core/mesh/transport/transport_test.go's
// httptest upgrader. Frames are brotli-compressed JSON, mirroring the
// mesh layer's "brotli" resource compression path.
package relaybridge

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/gorilla/websocket"

	"github.com/elementary-rt/elementary/internal/engine"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// frame is the wire shape of one forwarded event batch.
type frame struct {
	Events    []engine.Event `json:"events"`
	Overflow  bool           `json:"overflow"`
	Timestamp int64          `json:"timestamp"`
}

// Bridge serves a websocket endpoint that fans out event batches pulled
// from an EventRelay at a fixed tick rate.
type Bridge struct {
	relay *engine.EventRelay
	log   *slog.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

// NewBridge returns a bridge pulling from relay. Call ServeHTTP from an
// http.ServeMux route, and Run in its own goroutine to start the tick
// loop that drains and broadcasts.
func NewBridge(relay *engine.EventRelay, log *slog.Logger) *Bridge {
	if log == nil {
		log = slog.Default()
	}
	return &Bridge{relay: relay, log: log, clients: make(map[*websocket.Conn]struct{})}
}

// ServeHTTP upgrades an incoming request to a websocket and registers it
// as a broadcast target until the connection closes.
func (b *Bridge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.log.Warn("relaybridge: upgrade failed", "err", err)
		return
	}
	b.mu.Lock()
	b.clients[conn] = struct{}{}
	b.mu.Unlock()

	// Drain reads to detect client-initiated close; this bridge is
	// one-directional (engine -> observer), so incoming frames are
	// discarded.
	go func() {
		defer b.removeClient(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (b *Bridge) removeClient(conn *websocket.Conn) {
	b.mu.Lock()
	delete(b.clients, conn)
	b.mu.Unlock()
	conn.Close()
}

// Run drains relay every tick and broadcasts a compressed frame to every
// connected client, until stop is closed. timestamp is supplied by the
// caller since workflow scripts and this package both avoid wall-clock
// calls in hot paths; the host loop passes time.Now().UnixMilli() once
// per tick from outside.
func (b *Bridge) Run(tick time.Duration, stop <-chan struct{}, now func() int64) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			events, overflow := b.relay.Drain()
			if len(events) == 0 && !overflow {
				continue
			}
			b.broadcast(frame{Events: events, Overflow: overflow, Timestamp: now()})
		}
	}
}

func (b *Bridge) broadcast(f frame) {
	payload, err := json.Marshal(f)
	if err != nil {
		b.log.Warn("relaybridge: marshal failed", "err", err)
		return
	}
	compressed, err := compress(payload)
	if err != nil {
		b.log.Warn("relaybridge: compress failed", "err", err)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for conn := range b.clients {
		if err := conn.WriteMessage(websocket.BinaryMessage, compressed); err != nil {
			b.log.Debug("relaybridge: write failed, dropping client", "err", err)
			go b.removeClient(conn)
		}
	}
}

func compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := brotli.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decompress reverses compress, exported for client-side tooling/tests.
func Decompress(data []byte) ([]byte, error) {
	r := brotli.NewReader(bytes.NewReader(data))
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
