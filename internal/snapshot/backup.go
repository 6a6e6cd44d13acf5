package snapshot

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"inspectsync/internal/config"
)

const backupPrefix = "bookings_"

// BackupService keeps timestamped copies of the snapshot file.
type BackupService struct {
	snapshotPath string
	config       config.BackupConfig
	logger       *zerolog.Logger
	now          func() time.Time
}

func NewBackupService(snapshotPath string, cfg config.BackupConfig, logger *zerolog.Logger) *BackupService {
	return &BackupService{
		snapshotPath: snapshotPath,
		config:       cfg,
		logger:       logger,
		now:          time.Now,
	}
}

// Enabled reports whether backups are configured.
func (s *BackupService) Enabled() bool {
	return s != nil && s.config.Enabled && s.config.StoragePath != ""
}

// PerformBackup copies the current snapshot file into the storage directory.
// It returns an empty path when there is no snapshot file yet.
func (s *BackupService) PerformBackup() (string, error) {
	if !s.Enabled() {
		return "", nil
	}

	source, err := os.Open(s.snapshotPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", err
	}
	defer source.Close()

	if err := os.MkdirAll(s.config.StoragePath, 0o755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	timestamp := s.now().Format("20060102_150405")
	backupPath := filepath.Join(s.config.StoragePath, fmt.Sprintf("%s%s.csv", backupPrefix, timestamp))

	destination, err := os.Create(backupPath)
	if err != nil {
		return "", err
	}

	if _, err := io.Copy(destination, source); err != nil {
		destination.Close()
		_ = os.Remove(backupPath)
		return "", fmt.Errorf("copy snapshot to backup: %w", err)
	}
	if err := destination.Close(); err != nil {
		_ = os.Remove(backupPath)
		return "", fmt.Errorf("close backup: %w", err)
	}

	s.logger.Debug().Str("path", backupPath).Msg("snapshot backup written")
	return backupPath, nil
}

// CleanupOldBackups removes backups older than the retention window and
// returns how many were deleted.
func (s *BackupService) CleanupOldBackups() int {
	if !s.Enabled() || s.config.RetentionDays <= 0 {
		return 0
	}

	files, err := os.ReadDir(s.config.StoragePath)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to read backup directory for cleanup")
		return 0
	}

	cutoff := s.now().AddDate(0, 0, -s.config.RetentionDays)
	deleted := 0
	for _, file := range files {
		if file.IsDir() || !strings.HasPrefix(file.Name(), backupPrefix) {
			continue
		}

		info, err := file.Info()
		if err != nil {
			continue
		}

		if info.ModTime().Before(cutoff) {
			s.logger.Info().Str("file", file.Name()).Msg("deleting old backup")
			if err := os.Remove(filepath.Join(s.config.StoragePath, file.Name())); err == nil {
				deleted++
			}
		}
	}
	return deleted
}
