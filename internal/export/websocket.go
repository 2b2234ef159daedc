package export

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/monify-labs/procwatch/internal/config"
	"github.com/monify-labs/procwatch/pkg/models"
)

// WSExporter writes each payload as a JSON text message. One connection is
// kept per target and redialed after a failed write.
type WSExporter struct {
	token     string
	writeWait time.Duration
	dialer    websocket.Dialer

	mu    sync.Mutex
	conns map[string]*websocket.Conn
}

// NewWSExporter creates a websocket exporter
func NewWSExporter(token string) *WSExporter {
	return &WSExporter{
		token:     token,
		writeWait: config.ExportTimeout,
		dialer: websocket.Dialer{
			HandshakeTimeout: config.ExportTimeout,
		},
		conns: make(map[string]*websocket.Conn),
	}
}

// Export sends payload to the websocket at target
func (w *WSExporter) Export(ctx context.Context, target string, payload *models.ExportPayload) error {
	if payload == nil {
		return nil
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	conn, err := w.connLocked(ctx, target)
	if err != nil {
		return err
	}

	deadline := time.Now().Add(w.writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetWriteDeadline(deadline)

	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		conn.Close()
		delete(w.conns, target)
		return fmt.Errorf("websocket write failed: %w", err)
	}
	return nil
}

// connLocked returns the cached connection for target, dialing if needed
func (w *WSExporter) connLocked(ctx context.Context, target string) (*websocket.Conn, error) {
	if conn, ok := w.conns[target]; ok {
		return conn, nil
	}

	header := http.Header{}
	header.Set("User-Agent", fmt.Sprintf("procwatch/%s", config.Version))
	if w.token != "" {
		header.Set("Authorization", fmt.Sprintf("Bearer %s", w.token))
	}

	conn, resp, err := w.dialer.DialContext(ctx, target, header)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("websocket dial %s: %w", target, err)
	}
	w.conns[target] = conn
	return conn, nil
}

// Close sends a close frame on every open connection
func (w *WSExporter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for target, conn := range w.conns {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		conn.Close()
		delete(w.conns, target)
	}
	return nil
}
