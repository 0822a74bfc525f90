package database

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// BackupService periodically copies the sqlite file aside. The copy is
// taken from the live file; sqlite keeps it consistent as long as no
// writer is mid-transaction for longer than the copy takes, which holds
// for this workload.
type BackupService struct {
	dbPath        string
	storagePath   string
	interval      time.Duration
	retentionDays int
	logger        zerolog.Logger

	stopCh chan struct{}
	done   chan struct{}
}

func NewBackupService(dbPath, storagePath string, interval time.Duration, retentionDays int, logger zerolog.Logger) *BackupService {
	return &BackupService{
		dbPath:        dbPath,
		storagePath:   storagePath,
		interval:      interval,
		retentionDays: retentionDays,
		logger:        logger.With().Str("component", "backup").Logger(),
		stopCh:        make(chan struct{}),
		done:          make(chan struct{}),
	}
}

// Start runs the backup loop until Stop is called. The first backup is
// taken immediately.
func (s *BackupService) Start() {
	go func() {
		defer close(s.done)

		s.logger.Info().Dur("interval", s.interval).Msg("backup service started")
		if err := s.PerformBackup(); err != nil {
			s.logger.Error().Err(err).Msg("initial backup failed")
		}

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-s.stopCh:
				return
			case <-ticker.C:
				if err := s.PerformBackup(); err != nil {
					s.logger.Error().Err(err).Msg("scheduled backup failed")
				}
				s.CleanupOldBackups()
			}
		}
	}()
}

func (s *BackupService) Stop() {
	close(s.stopCh)
	<-s.done
}

// PerformBackup writes a timestamped copy of the database file into the
// storage directory.
func (s *BackupService) PerformBackup() error {
	if err := os.MkdirAll(s.storagePath, 0o755); err != nil {
		return fmt.Errorf("create backup directory: %w", err)
	}

	backupPath := filepath.Join(s.storagePath,
		fmt.Sprintf("callbook_%s.db", time.Now().Format("20060102_150405")))

	source, err := os.Open(s.dbPath)
	if err != nil {
		return err
	}
	defer source.Close()

	destination, err := os.Create(backupPath)
	if err != nil {
		return err
	}
	defer destination.Close()

	if _, err := io.Copy(destination, source); err != nil {
		return err
	}

	s.logger.Info().Str("path", backupPath).Msg("backup completed")
	return nil
}

// CleanupOldBackups removes copies older than the retention window.
func (s *BackupService) CleanupOldBackups() {
	if s.retentionDays <= 0 {
		return
	}

	files, err := os.ReadDir(s.storagePath)
	if err != nil {
		s.logger.Error().Err(err).Msg("read backup directory")
		return
	}

	cutoff := time.Now().AddDate(0, 0, -s.retentionDays)
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		info, err := file.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			s.logger.Info().Str("file", file.Name()).Msg("deleting old backup")
			_ = os.Remove(filepath.Join(s.storagePath, file.Name()))
		}
	}
}
