// ABOUTME: Backend selection for the session store
// ABOUTME: Maps the configured store kind to a Backend implementation

package store

import (
	"fmt"
	"path/filepath"
)

// Kind names a Backend implementation
type Kind string

const (
	KindFile   Kind = "file"
	KindSQLite Kind = "sqlite"
	KindMemory Kind = "memory"
)

// Open creates the backend of the given kind rooted at configDir
func Open(kind Kind, configDir string) (Backend, error) {
	switch kind {
	case KindFile, "":
		return NewFileBackend(configDir), nil
	case KindSQLite:
		return NewSQLiteBackend(filepath.Join(configDir, SQLiteFileName))
	case KindMemory:
		return NewMemoryBackend(), nil
	default:
		return nil, fmt.Errorf("unknown store %q (must be file, sqlite, or memory)", kind)
	}
}
