package export

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/monify-labs/procwatch/pkg/models"
)

// FileExporter appends one JSON line per payload to the target path
type FileExporter struct {
	mu sync.Mutex
}

// NewFileExporter creates a file exporter
func NewFileExporter() *FileExporter {
	return &FileExporter{}
}

// Export appends payload to the file at target, creating it if needed
func (f *FileExporter) Export(ctx context.Context, target string, payload *models.ExportPayload) error {
	if payload == nil {
		return nil
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}
	data = append(data, '\n')

	f.mu.Lock()
	defer f.mu.Unlock()

	if dir := filepath.Dir(target); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	file, err := os.OpenFile(target, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", target, err)
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		return fmt.Errorf("failed to write %s: %w", target, err)
	}
	return file.Close()
}

// Close is a no-op; files are closed after every write
func (f *FileExporter) Close() error {
	return nil
}
