package migrate_test

import (
	"io/fs"
	"os"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/introcar/introcar-backend/pkg/migrate"
)

func TestEmbeddedMigrationsAreValid(t *testing.T) {
	require.NoError(t, migrate.Validate(migrate.Files()))
}

func TestEmbeddedMigrationsCreateSchema(t *testing.T) {
	files := migrate.Files()
	names, err := fs.Glob(files, "*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, names)

	var all strings.Builder
	for _, name := range names {
		body, err := fs.ReadFile(files, name)
		require.NoError(t, err)
		all.Write(body)
	}
	sql := all.String()

	for _, want := range []string{
		"CREATE TABLE IF NOT EXISTS vehicle_models",
		"CHECK (year_start <= year_end)",
		"CREATE TABLE IF NOT EXISTS fitment_records",
		"CREATE INDEX IF NOT EXISTS idx_fitment_records_make_model",
		"CREATE TABLE IF NOT EXISTS chassis_year_boundaries",
		"PRIMARY KEY (make, model, year)",
		"CREATE TABLE IF NOT EXISTS supersessions",
		"CREATE TABLE IF NOT EXISTS products",
		"CREATE TABLE IF NOT EXISTS product_tags",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_tenants_slug",
		"CREATE TABLE IF NOT EXISTS cms_pages",
		"CREATE TABLE IF NOT EXISTS cms_videos",
		"CREATE TABLE IF NOT EXISTS orders",
		"CREATE TABLE IF NOT EXISTS order_lines",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_outbox_events_event_aggregate",
		"CREATE TABLE IF NOT EXISTS outbox_dlq",
	} {
		assert.Contains(t, sql, want)
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	fsys := fstest.MapFS{
		"20260101000000_ok.sql":       {Data: []byte("-- +goose Up\nSELECT 1;\n-- +goose Down\nSELECT 1;\n")},
		"20260101000000_dup.sql":      {Data: []byte("-- +goose Up\n-- +goose Down\n")},
		"2026_bad_name.sql":           {Data: []byte("-- +goose Up\n-- +goose Down\n")},
		"20260101000001_no_down.sql":  {Data: []byte("-- +goose Up\nSELECT 1;\n")},
		"20260101000002_reversed.sql": {Data: []byte("-- +goose Down\n-- +goose Up\n")},
		"README.md":                   {Data: []byte("ignored")},
	}

	err := migrate.Validate(fsys)
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "already used by")
	assert.Contains(t, msg, "2026_bad_name.sql")
	assert.Contains(t, msg, "missing \"-- +goose Down\"")
	assert.Contains(t, msg, "Down section precedes Up")
	assert.NotContains(t, msg, "README")
}

func TestMigrationFilename(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 5, 0, 0, time.UTC)

	name, err := migrate.MigrationFilename("  Add Fitment Notes! ", now)
	require.NoError(t, err)
	assert.Equal(t, "20260301090500_add_fitment_notes.sql", name)

	_, err = migrate.MigrationFilename("!!!", now)
	assert.Error(t, err)
}

func TestCreateSQLMigrationRefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 1, 9, 5, 0, 0, time.UTC)

	path, err := migrate.CreateSQLMigration(dir, "add supersession notes", now)
	require.NoError(t, err)

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(body), "-- +goose Up")
	assert.Contains(t, string(body), "-- undo add_supersession_notes")

	_, err = migrate.CreateSQLMigration(dir, "add supersession notes", now)
	assert.Error(t, err)

	require.NoError(t, migrate.Validate(os.DirFS(dir)))
}
