package backend

import (
	"context"
	"fmt"
	"log/slog"

	applog "pocketbook/internal/log"
	"pocketbook/internal/storage"
	"pocketbook/internal/storage/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger.With(applog.FieldComponent, applog.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case PostgresBackend:
		return f.createSQLBackend(ctx, storage.Postgres, config.DatabaseURL, config)
	case SQLiteBackend:
		return f.createSQLBackend(ctx, storage.SQLite, storage.SQLiteDSN(config.SQLiteDBPath), config)
	case MemoryBackend:
		return f.createMemoryBackend()
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLBackend(ctx context.Context, dialect storage.Dialect, dsn string, config Config) (*BackendResult, error) {
	db, err := storage.Open(ctx, storage.Options{
		Dialect:         dialect,
		DSN:             dsn,
		MaxOpenConns:    config.MaxConnections,
		MinIdleConns:    config.MinConnections,
		AcquireTimeout:  config.AcquireTimeout,
		ConnMaxIdleTime: config.IdleTimeout,
		ConnMaxLifetime: config.MaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s backend: %w", dialect, err)
	}

	f.logger.Info("Initialized SQL backend",
		"dialect", dialect.String(),
		"max_connections", config.MaxConnections)

	return &BackendResult{
		Repositories: storage.NewRepositories(db),
		Cleanup:      db.Close,
		Shared:       true,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend() (*BackendResult, error) {
	f.logger.Warn("Initialized memory backend, data is lost on restart")

	return &BackendResult{
		Repositories: memory.New().Repositories(),
		Cleanup:      func() error { return nil },
	}, nil
}
