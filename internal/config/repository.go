package config

import (
	"fmt"
	"os"

	"todo-sync/internal/repository/sqlite"
)

// CreateRepository creates the device key/value store using the configuration system
func CreateRepository(config *Config) (sqlite.Repository, error) {
	if err := os.MkdirAll(config.Cache.Dir, os.FileMode(config.Cache.DirPermissions)); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	repo, err := sqlite.NewWithTimeout(config.GetDatabasePath(), config.Cache.QueryTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return repo, nil
}

// CreateTestRepository creates an in-memory repository for testing
func CreateTestRepository() (sqlite.Repository, error) {
	repo, err := sqlite.New(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to initialize test database: %w", err)
	}

	return repo, nil
}
