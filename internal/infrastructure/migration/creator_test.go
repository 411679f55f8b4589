package migration

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add payment index", "add_payment_index"},
		{"Add-Payment-Index", "add_payment_index"},
		{"ADD_PAYMENT_INDEX", "add_payment_index"},
		{"add__payment__index", "add_payment_index"},
		{"Invoices 2", "invoices_2"},
		{"   spaces   ", "spaces"},
		{"special!@#$chars", "specialchars"},
		{"_leading", "leading"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func TestCreateMigration(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "sql")

	first, err := CreateMigration(dir, "add payment index", "Speeds up customer history")
	require.NoError(t, err)
	assert.Equal(t, uint(1), first.Version)
	assert.Equal(t, filepath.Join(dir, "000001_add_payment_index.up.sql"), first.UpPath)
	assert.Equal(t, filepath.Join(dir, "000001_add_payment_index.down.sql"), first.DownPath)

	up, err := os.ReadFile(first.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(up), "Migration: add_payment_index")
	assert.Contains(t, string(up), "Speeds up customer history")

	down, err := os.ReadFile(first.DownPath)
	require.NoError(t, err)
	assert.Contains(t, string(down), "Rollback: add_payment_index")

	second, err := CreateMigration(dir, "drop legacy column", "")
	require.NoError(t, err)
	assert.Equal(t, uint(2), second.Version)

	t.Run("rejects an empty name", func(t *testing.T) {
		_, err := CreateMigration(dir, "!!!", "")
		assert.Error(t, err)
	})
}

func TestListMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"000002_add_index.up.sql": {Data: []byte("--")},
		"000001_init.up.sql":      {Data: []byte("--")},
		"000001_init.down.sql":    {Data: []byte("--")},
		"000010_later.up.sql":     {Data: []byte("--")},
		"README.md":               {Data: []byte("docs")},
		"notes.sql":               {Data: []byte("--")},
		"abc_bad_version.up.sql":  {Data: []byte("--")},
		"000003_dir.up.sql/x.sql": {Data: []byte("--")},
	}

	migrations, err := ListMigrations(fsys)
	require.NoError(t, err)
	require.Len(t, migrations, 3)

	assert.Equal(t, Migration{Version: 1, Name: "init", HasDown: true}, migrations[0])
	assert.Equal(t, Migration{Version: 2, Name: "add_index"}, migrations[1])
	assert.Equal(t, uint(10), migrations[2].Version)
}

func TestListMigrations_Missing(t *testing.T) {
	migrations, err := ListMigrations(os.DirFS("/nonexistent/path/to/migrations"))
	require.NoError(t, err)
	assert.Empty(t, migrations)
}

func TestEmbedded(t *testing.T) {
	migrations, err := ListMigrations(Embedded())
	require.NoError(t, err)
	require.NotEmpty(t, migrations)

	assert.Equal(t, uint(1), migrations[0].Version)
	for _, m := range migrations {
		assert.True(t, m.HasDown, "migration %d has no down file", m.Version)
	}
}
