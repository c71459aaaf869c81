package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("SELECT 1;"), 0o644))
}

func TestListMigrations_OrdersAndFilters(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "010_add_index.sql")
	touch(t, dir, "001_initial_schema.sql")
	touch(t, dir, "002_settings.sql")
	touch(t, dir, "README.md")
	touch(t, dir, "notes.sql")
	touch(t, dir, "000_zero.sql")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "003_dir"), 0o755))

	got, err := ListMigrations(dir)
	require.NoError(t, err)

	require.Len(t, got, 3)
	assert.Equal(t, []int{1, 2, 10}, []int{got[0].Version, got[1].Version, got[2].Version})
	assert.Equal(t, "001_initial_schema.sql", got[0].Name)
}

func TestListMigrations_DuplicateVersion(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "001_a.sql")
	touch(t, dir, "1_b.sql")

	_, err := ListMigrations(dir)
	assert.Error(t, err)
}

func TestListMigrations_MissingDir(t *testing.T) {
	_, err := ListMigrations(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestListMigrations_ShippedSchema(t *testing.T) {
	got, err := ListMigrations(filepath.Join("..", "..", "migrations"))
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, 1, got[0].Version)
}
