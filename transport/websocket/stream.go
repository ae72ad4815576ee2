package websocket

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	gorilla "github.com/gorilla/websocket"

	"github.com/rocketscienceinc/multisig-tictactoe/internal/entity"
)

const (
	ActionSnapshot = "game:snapshot"

	writeWait = 10 * time.Second
)

type snapshotSource interface {
	Snapshot() entity.Snapshot
}

// Message is the only frame the stream sends.
type Message struct {
	Action   string          `json:"action"`
	Snapshot entity.Snapshot `json:"snapshot"`
}

type client struct {
	conn *gorilla.Conn
	send chan entity.Snapshot
}

// Stream pushes game snapshots to every connected websocket client.
type Stream struct {
	logger   *slog.Logger
	source   snapshotSource
	upgrader gorilla.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
}

func New(logger *slog.Logger, source snapshotSource) *Stream {
	return &Stream{
		logger: logger,
		source: source,
		upgrader: gorilla.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// embedding UIs are served from other origins
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
}

// Run broadcasts every snapshot received on updates until ctx is done, then
// disconnects all clients.
func (that *Stream) Run(ctx context.Context, updates <-chan entity.Snapshot) {
	defer that.closeAll()

	for {
		select {
		case <-ctx.Done():
			return
		case snapshot, ok := <-updates:
			if !ok {
				return
			}

			that.Broadcast(snapshot)
		}
	}
}

// Broadcast queues snapshot for every client. A slow client only keeps the latest one.
func (that *Stream) Broadcast(snapshot entity.Snapshot) {
	that.mu.Lock()
	defer that.mu.Unlock()

	for c := range that.clients {
		offer(c.send, snapshot)
	}
}

func (that *Stream) Clients() int {
	that.mu.Lock()
	defer that.mu.Unlock()

	return len(that.clients)
}

func (that *Stream) ServeHTTP(writer http.ResponseWriter, req *http.Request) {
	log := that.logger.With("method", "ServeHTTP")

	conn, err := that.upgrader.Upgrade(writer, req, nil)
	if err != nil {
		log.Info("failed to upgrade connection", "error", err)
		return
	}

	c := &client{conn: conn, send: make(chan entity.Snapshot, 1)}

	that.mu.Lock()
	that.clients[c] = struct{}{}
	offer(c.send, that.source.Snapshot())
	that.mu.Unlock()

	log.Debug("websocket client connected", "remote", conn.RemoteAddr().String())

	go that.write(c)

	// Incoming frames are ignored; reading only notices close and control frames.
	for {
		if _, _, err = conn.ReadMessage(); err != nil {
			break
		}
	}

	that.remove(c)

	log.Debug("websocket client disconnected", "remote", conn.RemoteAddr().String(), "error", err)
}

func (that *Stream) write(c *client) {
	defer c.conn.Close()

	for snapshot := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))

		if err := c.conn.WriteJSON(Message{Action: ActionSnapshot, Snapshot: snapshot}); err != nil {
			that.logger.Info("failed to write snapshot", "method", "write", "error", err)
			return
		}
	}

	_ = c.conn.WriteControl(
		gorilla.CloseMessage,
		gorilla.FormatCloseMessage(gorilla.CloseNormalClosure, ""),
		time.Now().Add(writeWait),
	)
}

func (that *Stream) remove(c *client) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if _, ok := that.clients[c]; !ok {
		return
	}

	delete(that.clients, c)
	close(c.send)
}

func (that *Stream) closeAll() {
	that.mu.Lock()
	defer that.mu.Unlock()

	for c := range that.clients {
		delete(that.clients, c)
		close(c.send)
	}
}

func offer(send chan entity.Snapshot, snapshot entity.Snapshot) {
	select {
	case <-send:
	default:
	}

	select {
	case send <- snapshot:
	default:
	}
}
