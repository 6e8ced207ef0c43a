package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Supported backend names.
const (
	BackendMemory  = "memory"
	BackendLevelDB = "leveldb"
	BackendBolt    = "bolt"
	BackendSQLite  = "sqlite"
)

// Open constructs the backend selected by name rooted at dataDir.
func Open(backend, dataDir string) (Database, error) {
	name := strings.ToLower(strings.TrimSpace(backend))
	if name == "" {
		name = BackendLevelDB
	}
	if name == BackendMemory {
		return NewMemDB(), nil
	}
	if strings.TrimSpace(dataDir) == "" {
		return nil, fmt.Errorf("storage: data dir required for %s backend", name)
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create data dir: %w", err)
	}
	switch name {
	case BackendLevelDB:
		return NewLevelDB(filepath.Join(dataDir, "ledger"))
	case BackendBolt:
		return NewBoltDB(filepath.Join(dataDir, "ledger.bolt"))
	case BackendSQLite:
		return NewSQLiteDB(filepath.Join(dataDir, "ledger.sqlite"))
	default:
		return nil, fmt.Errorf("storage: unsupported backend %q", backend)
	}
}
