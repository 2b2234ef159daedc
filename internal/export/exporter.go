// Package export delivers watchdog payloads to external endpoints over HTTP,
// websocket or an append-only file.
package export

import (
	"context"
	"errors"

	"github.com/monify-labs/procwatch/pkg/models"
)

// ErrUnauthorized is returned when the endpoint rejects the token (401)
var ErrUnauthorized = errors.New("authentication failed: invalid or expired token")

// Exporter sends a payload to target
type Exporter interface {
	// Export delivers one payload to target
	Export(ctx context.Context, target string, payload *models.ExportPayload) error

	// Close releases connections and open files
	Close() error
}
