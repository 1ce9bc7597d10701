package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRepository(t *testing.T) {
	// Nested directory must be created on demand
	cacheDir := filepath.Join(t.TempDir(), "nested", "cache")
	t.Setenv("TODO_CACHE_DIR", cacheDir)

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	repo, err := CreateRepository(cfg)
	require.NoError(t, err)
	defer repo.Close()

	ctx := context.Background()
	require.NoError(t, repo.Set(ctx, "@autoSync", "true"))

	value, err := repo.Get(ctx, "@autoSync")
	require.NoError(t, err)
	assert.Equal(t, "true", value)

	_, err = os.Stat(filepath.Join(cacheDir, "todo.db"))
	assert.NoError(t, err)
}

func TestCreateRepository_AppliesQueryTimeout(t *testing.T) {
	t.Setenv("TODO_CACHE_DIR", t.TempDir())
	t.Setenv("TODO_CACHE_QUERY_TIMEOUT", "1ns")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	repo, err := CreateRepository(cfg)
	require.NoError(t, err)
	defer repo.Close()

	err = repo.Set(context.Background(), "@autoSync", "true")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestCreateTestRepository(t *testing.T) {
	repo, err := CreateTestRepository()
	require.NoError(t, err)
	defer repo.Close()

	ctx := context.Background()
	require.NoError(t, repo.Set(ctx, "k", "v"))

	keys, err := repo.Keys(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"k"}, keys)
}
