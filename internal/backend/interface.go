package backend

import (
	"context"
	"time"

	"pocketbook/internal/storage"
)

// CleanupFunc releases the resources held by a backend.
type CleanupFunc func() error

// BackendResult contains the repositories and an optional cleanup function.
type BackendResult struct {
	Repositories *storage.Repositories
	Cleanup      CleanupFunc
	// Shared reports whether other processes can see the same data.
	Shared bool
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// Postgres
	DatabaseURL string

	// SQLite
	SQLiteDBPath string

	// Pool sizing, shared by both SQL dialects.
	MaxConnections int
	MinConnections int
	AcquireTimeout time.Duration
	IdleTimeout    time.Duration
	MaxLifetime    time.Duration
}

// BackendType represents the type of backend
type BackendType string

const (
	PostgresBackend BackendType = "postgres"
	SQLiteBackend   BackendType = "sqlite"
	MemoryBackend   BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case PostgresBackend, SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
