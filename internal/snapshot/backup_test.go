package snapshot

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inspectsync/internal/config"
)

func TestBackupService(t *testing.T) {
	dir := t.TempDir()
	snapshotPath := filepath.Join(dir, "bookings.csv")
	backupDir := filepath.Join(dir, "backups")
	logger := zerolog.Nop()

	svc := NewBackupService(snapshotPath, config.BackupConfig{
		Enabled:       true,
		StoragePath:   backupDir,
		RetentionDays: 3,
	}, &logger)
	svc.now = func() time.Time { return time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC) }

	t.Run("NoSnapshotYet", func(t *testing.T) {
		path, err := svc.PerformBackup()
		require.NoError(t, err)
		assert.Empty(t, path)
	})

	t.Run("CopiesSnapshot", func(t *testing.T) {
		require.NoError(t, os.WriteFile(snapshotPath, []byte("Booking ID\r\nb1\r\n"), 0o644))

		path, err := svc.PerformBackup()
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(backupDir, "bookings_20240506_070809.csv"), path)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "Booking ID\r\nb1\r\n", string(data))
	})

	t.Run("CleanupOldBackups", func(t *testing.T) {
		old := filepath.Join(backupDir, "bookings_20240101_000000.csv")
		require.NoError(t, os.WriteFile(old, []byte("x"), 0o644))
		oldTime := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		require.NoError(t, os.Chtimes(old, oldTime, oldTime))

		unrelated := filepath.Join(backupDir, "notes.txt")
		require.NoError(t, os.WriteFile(unrelated, []byte("keep"), 0o644))
		require.NoError(t, os.Chtimes(unrelated, oldTime, oldTime))

		assert.Equal(t, 1, svc.CleanupOldBackups())
		_, err := os.Stat(old)
		assert.True(t, os.IsNotExist(err))
		_, err = os.Stat(unrelated)
		assert.NoError(t, err)
	})
}

func TestBackupService_Disabled(t *testing.T) {
	logger := zerolog.Nop()
	svc := NewBackupService("x.csv", config.BackupConfig{}, &logger)
	assert.False(t, svc.Enabled())

	path, err := svc.PerformBackup()
	assert.NoError(t, err)
	assert.Empty(t, path)
	assert.Equal(t, 0, svc.CleanupOldBackups())

	var nilSvc *BackupService
	assert.False(t, nilSvc.Enabled())
}

func TestBackupService_FailedCopyLeavesNoFile(t *testing.T) {
	dir := t.TempDir()
	// A directory opens fine but cannot be read as a file.
	snapshotPath := filepath.Join(dir, "bookings.csv")
	require.NoError(t, os.Mkdir(snapshotPath, 0o755))
	backupDir := filepath.Join(dir, "backups")

	logger := zerolog.Nop()
	svc := NewBackupService(snapshotPath, config.BackupConfig{Enabled: true, StoragePath: backupDir}, &logger)

	path, err := svc.PerformBackup()
	assert.Error(t, err)
	assert.Empty(t, path)

	entries, err := os.ReadDir(backupDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
