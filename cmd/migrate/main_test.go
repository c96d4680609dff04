package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscoverMigrations(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"002_shipments.sql", "001_orders.sql", "README.md"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("SELECT 1;"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "003_dir.sql"), 0o755))

	files, err := discoverMigrations(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"001_orders.sql", "002_shipments.sql"}, files)
}

func TestDiscoverMigrations_RejectsDuplicatesAndBadNames(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "001_a.sql"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "001_b.sql"), nil, 0o644))
	_, err := discoverMigrations(dir)
	assert.ErrorContains(t, err, "duplicate version 001")

	dir = t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nounderscore.sql"), nil, 0o644))
	_, err = discoverMigrations(dir)
	assert.ErrorContains(t, err, "invalid migration filename")
}

func TestRepositoryMigrationsAreDiscoverable(t *testing.T) {
	files, err := discoverMigrations(filepath.Join("..", "..", "migrations"))
	require.NoError(t, err)
	assert.Contains(t, files, "001_order_amendments.sql")
}
