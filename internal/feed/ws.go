package feed

import (
	"context"
	"fmt"
	"net/http"

	"nhooyr.io/websocket"
)

// ReadLimit caps the size of a single push message.
const ReadLimit = 1 << 20

// Conn is an open push channel.
type Conn interface {
	// Read blocks until the next message arrives or the connection ends.
	Read(ctx context.Context) ([]byte, error)
	Close() error
}

// Dialer opens push channel connections.
type Dialer interface {
	Dial(ctx context.Context, url, token string) (Conn, error)
}

// WSDialer dials the push channel over WebSocket, authenticating with a
// bearer token.
type WSDialer struct {
	HTTPClient *http.Client
}

// Dial opens a WebSocket connection to url.
func (d WSDialer) Dial(ctx context.Context, url, token string) (Conn, error) {
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	c, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{
		HTTPClient: d.HTTPClient,
		HTTPHeader: header,
	})
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", url, err)
	}
	c.SetReadLimit(ReadLimit)
	return &wsConn{c: c}, nil
}

type wsConn struct {
	c *websocket.Conn
}

func (w *wsConn) Read(ctx context.Context) ([]byte, error) {
	_, data, err := w.c.Read(ctx)
	return data, err
}

func (w *wsConn) Close() error {
	return w.c.Close(websocket.StatusNormalClosure, "")
}
