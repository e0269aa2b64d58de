// ABOUTME: JSON file backend for the session store
// ABOUTME: Keeps all keys in one document under the XDG config directory

package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// FileName is the document written inside the config directory
const FileName = "session.json"

// FileBackend stores keys in a single JSON file
type FileBackend struct {
	mu   sync.Mutex
	path string
}

// NewFileBackend creates a file backend rooted at configDir
func NewFileBackend(configDir string) *FileBackend {
	return &FileBackend{path: filepath.Join(configDir, FileName)}
}

// Path returns the backing file path
func (f *FileBackend) Path() string {
	return f.path
}

// read loads the document. Must be called while holding f.mu.
func (f *FileBackend) read() (map[string]string, error) {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, err
	}

	values := map[string]string{}
	if err := json.Unmarshal(data, &values); err != nil {
		// unparsable documents are dropped so later reads start clean
		slog.Warn("Removing corrupt session file", "path", f.path, "error", err)
		if rmErr := os.Remove(f.path); rmErr != nil && !os.IsNotExist(rmErr) {
			slog.Warn("Failed to remove corrupt session file", "path", f.path, "error", rmErr)
		}
		return map[string]string{}, nil
	}
	return values, nil
}

// write replaces the document via temp file and rename. Must be called while holding f.mu.
func (f *FileBackend) write(values map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".session-*.json")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0600); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, f.path)
}

// Get implements Backend
func (f *FileBackend) Get(key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.read()
	if err != nil {
		return "", false, err
	}
	v, ok := values[key]
	return v, ok, nil
}

// Set implements Backend
func (f *FileBackend) Set(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.read()
	if err != nil {
		return err
	}
	values[key] = value
	return f.write(values)
}

// Delete implements Backend
func (f *FileBackend) Delete(keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.read()
	if err != nil {
		return err
	}
	changed := false
	for _, k := range keys {
		if _, ok := values[k]; ok {
			delete(values, k)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return f.write(values)
}

// Close implements Backend
func (f *FileBackend) Close() error {
	return nil
}
