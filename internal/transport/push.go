package transport

import (
	"context"
	"net/http"

	"github.com/fasthttp/websocket"
)

// PushConn is one open push-channel connection.
type PushConn interface {
	ReadMessage() ([]byte, error)
	Close() error
}

// Dialer opens a push connection. Injectable so tests can run without a
// server.
type Dialer func(ctx context.Context, url string, header http.Header) (PushConn, error)

type wsConn struct {
	conn *websocket.Conn
}

func (c *wsConn) ReadMessage() ([]byte, error) {
	_, payload, err := c.conn.ReadMessage()
	return payload, err
}

func (c *wsConn) Close() error {
	return c.conn.Close()
}

// DialWebsocket is the production dialer for the workflow engine's stream
// endpoint.
func DialWebsocket(ctx context.Context, url string, header http.Header) (PushConn, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	return &wsConn{conn: conn}, nil
}
