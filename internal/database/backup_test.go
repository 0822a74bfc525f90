package database

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackupService_PerformBackup(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "callbook.db")
	require.NoError(t, os.WriteFile(dbPath, []byte("sqlite payload"), 0o644))

	storage := filepath.Join(dir, "backups")
	s := NewBackupService(dbPath, storage, time.Hour, 7, zerolog.New(io.Discard))

	require.NoError(t, s.PerformBackup())

	entries, err := os.ReadDir(storage)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	data, err := os.ReadFile(filepath.Join(storage, entries[0].Name()))
	require.NoError(t, err)
	assert.Equal(t, "sqlite payload", string(data))
}

func TestBackupService_CleanupOldBackups(t *testing.T) {
	dir := t.TempDir()
	storage := filepath.Join(dir, "backups")
	require.NoError(t, os.MkdirAll(storage, 0o755))

	old := filepath.Join(storage, "callbook_20200101_000000.db")
	require.NoError(t, os.WriteFile(old, []byte("old"), 0o644))
	stale := time.Now().AddDate(0, 0, -30)
	require.NoError(t, os.Chtimes(old, stale, stale))

	fresh := filepath.Join(storage, "callbook_fresh.db")
	require.NoError(t, os.WriteFile(fresh, []byte("fresh"), 0o644))

	s := NewBackupService(filepath.Join(dir, "callbook.db"), storage, time.Hour, 7, zerolog.New(io.Discard))
	s.CleanupOldBackups()

	assert.NoFileExists(t, old)
	assert.FileExists(t, fresh)
}

func TestBackupService_RetentionDisabled(t *testing.T) {
	dir := t.TempDir()
	storage := filepath.Join(dir, "backups")
	require.NoError(t, os.MkdirAll(storage, 0o755))

	old := filepath.Join(storage, "callbook_old.db")
	require.NoError(t, os.WriteFile(old, []byte("old"), 0o644))
	stale := time.Now().AddDate(0, 0, -365)
	require.NoError(t, os.Chtimes(old, stale, stale))

	s := NewBackupService(filepath.Join(dir, "callbook.db"), storage, time.Hour, 0, zerolog.New(io.Discard))
	s.CleanupOldBackups()

	assert.FileExists(t, old)
}
