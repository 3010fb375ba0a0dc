package transport

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/icebox/internal/logging"
)

const (
	// Time allowed to write a frame to the gateway
	writeWait = 10 * time.Second

	// DefaultHandshakeTimeout bounds the WebSocket upgrade
	DefaultHandshakeTimeout = 10 * time.Second
)

// WebSocketOptions configures DialWebSocket
type WebSocketOptions struct {
	// Username and Password enable HTTP Basic auth when both are set
	Username string
	Password string

	// SkipTLSVerify disables certificate checks for wss:// gateways
	SkipTLSVerify bool

	// HandshakeTimeout defaults to DefaultHandshakeTimeout
	HandshakeTimeout time.Duration
}

// WebSocket talks to a BLE gateway that relays the fridge's characteristics
// over a WebSocket: each binary message from the gateway is one
// notification, and each frame sent becomes one binary message. Text
// messages are treated as gateway chatter and ignored.
type WebSocket struct {
	conn *websocket.Conn
	url  string
	log  *zap.Logger

	writeMu sync.Mutex

	notify    chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// DialWebSocket connects to a gateway at wsURL (ws:// or wss://)
func DialWebSocket(ctx context.Context, wsURL string, opts WebSocketOptions) (*WebSocket, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	switch u.Scheme {
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("unsupported URL scheme: %s (use ws:// or wss://)", u.Scheme)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: opts.HandshakeTimeout,
	}
	if dialer.HandshakeTimeout <= 0 {
		dialer.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if u.Scheme == "wss" {
		dialer.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: opts.SkipTLSVerify, //nolint:gosec // opt-in for self-signed gateways
		}
	}

	headers := http.Header{}
	if opts.Username != "" && opts.Password != "" {
		credentials := base64.StdEncoding.EncodeToString([]byte(opts.Username + ":" + opts.Password))
		headers.Set("Authorization", "Basic "+credentials)
	}

	conn, resp, err := dialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("WebSocket connection failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("WebSocket connection failed: %w", err)
	}

	return newWebSocket(conn, wsURL), nil
}

func newWebSocket(conn *websocket.Conn, name string) *WebSocket {
	w := &WebSocket{
		conn:   conn,
		url:    name,
		log:    logging.Named("transport").With(zap.String("link", name)),
		notify: make(chan []byte, notifyBuffer),
		done:   make(chan struct{}),
	}
	go w.readLoop()
	return w
}

// Send writes frame as one binary message
func (w *WebSocket) Send(ctx context.Context, frame []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-w.done:
		return ErrClosed
	default:
	}

	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	if err := w.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	if err := w.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		return fmt.Errorf("write to %s: %w", w.url, err)
	}
	return nil
}

// Notifications returns the frame channel, closed when the connection ends
func (w *WebSocket) Notifications() <-chan []byte {
	return w.notify
}

// Describe returns a human-readable name for the link
func (w *WebSocket) Describe() string {
	return "websocket " + w.url
}

// Close sends a close message and closes the connection
func (w *WebSocket) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		w.writeMu.Lock()
		_ = w.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		w.writeMu.Unlock()
		err = w.conn.Close()
	})
	return err
}

func (w *WebSocket) readLoop() {
	defer close(w.notify)

	for {
		messageType, data, err := w.conn.ReadMessage()
		if err != nil {
			select {
			case <-w.done:
			default:
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					w.log.Info("Gateway closed the connection")
				} else {
					w.log.Warn("Gateway read failed", zap.Error(err))
				}
			}
			return
		}

		if messageType != websocket.BinaryMessage {
			w.log.Debug("Ignoring non-binary message", zap.Int("type", messageType), zap.Int("length", len(data)))
			continue
		}

		select {
		case w.notify <- data:
		case <-w.done:
			return
		}
	}
}
