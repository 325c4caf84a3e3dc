package catalog

import (
	"context"
	"fmt"

	config "mediasync/internal/config/server"
	"mediasync/pkg/catalog"
	"mediasync/pkg/db/migrations"
	"mediasync/pkg/db/store"
	"mediasync/pkg/log"
)

// openEngine loads the server configuration and opens the catalog engine
// on top of the configured metadata store. The caller closes the store.
func openEngine(ctx context.Context) (*catalog.Engine, *store.SQLiteStore, error) {
	cfg, err := config.LoadServerConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load server configuration: %w", err)
	}

	s, err := store.NewSQLiteStore(store.SQLiteConfig{
		Path: cfg.Metadata.SQLite.Path,
	})
	if err != nil {
		return nil, nil, err
	}
	if err := s.Connect(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to connect metadata store: %w", err)
	}
	if err := migrations.NewMigrator(s.DB()).Migrate(ctx); err != nil {
		s.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logger := log.NewLoggerService("cli", cfg.Log)
	return catalog.NewEngine(s, nil, logger), s, nil
}
