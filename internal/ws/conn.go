package ws

import (
	"context"
	"net/http"
	"time"

	"nhooyr.io/websocket"
)

// Conn wraps one live websocket with its identifier and outbound queue.
// Frames are pushed onto out by the hub and drained by WriteLoop; a full
// queue drops frames rather than blocking a broadcast.
type Conn struct {
	id  string
	ws  *websocket.Conn
	out chan []byte
}

// Accept upgrades HTTP to websocket (allow all origins)
func Accept(w http.ResponseWriter, r *http.Request) (*websocket.Conn, error) {
	return websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:  []string{"*"},
		CompressionMode: websocket.CompressionDisabled,
	})
}

// NewConn wraps an accepted websocket under a connection ID
func NewConn(id string, ws *websocket.Conn, buffer int) *Conn {
	if buffer <= 0 {
		buffer = 256
	}
	return &Conn{id: id, ws: ws, out: make(chan []byte, buffer)}
}

// ID returns the transport-assigned connection identifier
func (c *Conn) ID() string { return c.id }

// Read blocks until it receives a text/binary message
// Returns false if connection is closed
func (c *Conn) Read(ctx context.Context) ([]byte, bool) {
	for {
		typ, data, err := c.ws.Read(ctx)
		if err != nil {
			return nil, false
		}
		if typ == websocket.MessageText || typ == websocket.MessageBinary {
			return data, true
		}
	}
}

// WriteLoop sends outbound frames + periodic pings
// Exits when ctx is cancelled
func (c *Conn) WriteLoop(ctx context.Context, ping time.Duration) {
	if ping <= 0 {
		ping = 20 * time.Second
	}
	t := time.NewTicker(ping)
	defer t.Stop()

	for {
		select {
		case b := <-c.out:
			_ = c.ws.Write(ctx, websocket.MessageText, b)
		case <-t.C:
			_ = c.ws.Ping(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// send queues a frame without blocking; reports whether it was accepted
func (c *Conn) send(b []byte) bool {
	select {
	case c.out <- b:
		return true
	default:
		return false
	}
}

// Close closes the websocket normally
func (c *Conn) Close() error { return c.ws.Close(websocket.StatusNormalClosure, "bye") }

// closeBadFrame terminates a connection that sent an undecodable frame
func (c *Conn) closeBadFrame() error {
	return c.ws.Close(websocket.StatusUnsupportedData, "bad frame")
}
