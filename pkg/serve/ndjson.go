package serve

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// searchLogName is the audit log written under the state directory.
const searchLogName = "searches.ndjson"

type ndjsonWriter struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

func openSearchLog(stateDir string) (*ndjsonWriter, error) {
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state dir %q: %w", stateDir, err)
	}
	return newNDJSONWriter(filepath.Join(stateDir, searchLogName))
}

func newNDJSONWriter(path string) (*ndjsonWriter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open ndjson file %q: %w", path, err)
	}
	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	return &ndjsonWriter{file: f, enc: enc}, nil
}

// Write appends one record. A nil writer discards it.
func (w *ndjsonWriter) Write(v interface{}) error {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.enc.Encode(v); err != nil {
		return fmt.Errorf("failed to write ndjson entry: %w", err)
	}
	return nil
}

func (w *ndjsonWriter) Close() error {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("failed to close ndjson file: %w", err)
	}
	return nil
}
