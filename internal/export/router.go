package export

import (
	"context"
	"errors"
	"strings"

	"github.com/monify-labs/procwatch/pkg/models"
)

// Router picks an exporter from the target's scheme: http(s) URLs go over
// HTTP, ws(s) URLs over websocket, and anything else is a file path.
type Router struct {
	http *HTTPExporter
	ws   *WSExporter
	file *FileExporter
}

// NewRouter creates a router whose network exporters send token
func NewRouter(token string) *Router {
	return &Router{
		http: NewHTTPExporter(token),
		ws:   NewWSExporter(token),
		file: NewFileExporter(),
	}
}

// Export forwards payload to the exporter matching target
func (r *Router) Export(ctx context.Context, target string, payload *models.ExportPayload) error {
	return r.route(target).Export(ctx, target, payload)
}

func (r *Router) route(target string) Exporter {
	lower := strings.ToLower(target)
	switch {
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		return r.http
	case strings.HasPrefix(lower, "ws://"), strings.HasPrefix(lower, "wss://"):
		return r.ws
	default:
		return r.file
	}
}

// Close closes every exporter
func (r *Router) Close() error {
	return errors.Join(r.http.Close(), r.ws.Close(), r.file.Close())
}

var (
	_ Exporter = (*Router)(nil)
	_ Exporter = (*HTTPExporter)(nil)
	_ Exporter = (*WSExporter)(nil)
	_ Exporter = (*FileExporter)(nil)
)
