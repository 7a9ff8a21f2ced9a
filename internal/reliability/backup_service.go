// Package reliability provides database backup and recovery services.
package reliability

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/aristath/folio/internal/events"
	"github.com/rs/zerolog"
)

const (
	backupFilePrefix = "folio-backup-"
	backupFileSuffix = ".db.gz"
	backupTimeLayout = "2006-01-02-150405"
)

// Snapshotter writes a consistent copy of a database to a file
type Snapshotter interface {
	SnapshotTo(ctx context.Context, dest string) error
}

// Publisher receives backup events
type Publisher interface {
	Emit(module string, data events.EventData)
}

// BackupInfo describes one backup stored off-site
type BackupInfo struct {
	Timestamp time.Time `json:"timestamp"`
	Key       string    `json:"key"`
	SizeBytes int64     `json:"size_bytes"`
}

// BackupResult summarizes one backup run
type BackupResult struct {
	Key       string        `json:"key"`
	SizeBytes int64         `json:"size_bytes"`
	Pruned    int           `json:"pruned"`
	Duration  time.Duration `json:"duration"`
}

// BackupService snapshots the database, compresses it and uploads it to an
// object store, keeping the newest `retention` backups
type BackupService struct {
	db        Snapshotter
	store     ObjectStore
	publisher Publisher
	now       func() time.Time
	prefix    string
	retention int
	log       zerolog.Logger
}

// NewBackupService creates a backup service. retention <= 0 keeps every backup.
func NewBackupService(db Snapshotter, store ObjectStore, publisher Publisher, prefix string, retention int, log zerolog.Logger) *BackupService {
	return &BackupService{
		db:        db,
		store:     store,
		publisher: publisher,
		now:       time.Now,
		prefix:    prefix,
		retention: retention,
		log:       log.With().Str("service", "backup").Logger(),
	}
}

// CreateAndUpload takes a snapshot, uploads it and prunes old backups.
// Pruning failures are logged and do not fail the run.
func (s *BackupService) CreateAndUpload(ctx context.Context) (*BackupResult, error) {
	start := s.now()
	s.log.Info().Msg("Starting database backup")

	stagingDir, err := os.MkdirTemp("", "folio-backup-")
	if err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(stagingDir)

	snapshotPath := filepath.Join(stagingDir, "folio.db")
	if err := s.db.SnapshotTo(ctx, snapshotPath); err != nil {
		return nil, fmt.Errorf("failed to snapshot database: %w", err)
	}

	archivePath := snapshotPath + ".gz"
	size, err := compressFile(snapshotPath, archivePath)
	if err != nil {
		return nil, fmt.Errorf("failed to compress snapshot: %w", err)
	}

	key := s.prefix + backupFilePrefix + start.UTC().Format(backupTimeLayout) + backupFileSuffix

	archive, err := os.Open(archivePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	defer archive.Close()

	if err := s.store.Upload(ctx, key, archive); err != nil {
		return nil, fmt.Errorf("failed to upload backup: %w", err)
	}

	pruned, err := s.RotateOldBackups(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("Backup rotation failed")
	}

	result := &BackupResult{
		Key:       key,
		SizeBytes: size,
		Pruned:    pruned,
		Duration:  s.now().Sub(start),
	}

	if s.publisher != nil {
		s.publisher.Emit("reliability", &events.BackupCompletedData{
			Key:       key,
			SizeBytes: size,
			Pruned:    pruned,
		})
	}

	s.log.Info().
		Str("key", key).
		Int64("size_bytes", size).
		Int("pruned", pruned).
		Dur("duration", result.Duration).
		Msg("Database backup completed")

	return result, nil
}

// ListBackups returns stored backups, newest first. Objects whose names do
// not carry a backup timestamp are ignored.
func (s *BackupService) ListBackups(ctx context.Context) ([]BackupInfo, error) {
	objects, err := s.store.List(ctx, s.prefix+backupFilePrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}

	backups := make([]BackupInfo, 0, len(objects))
	for _, obj := range objects {
		name := strings.TrimPrefix(obj.Key, s.prefix)
		if !strings.HasPrefix(name, backupFilePrefix) || !strings.HasSuffix(name, backupFileSuffix) {
			continue
		}

		stamp := strings.TrimSuffix(strings.TrimPrefix(name, backupFilePrefix), backupFileSuffix)
		ts, err := time.Parse(backupTimeLayout, stamp)
		if err != nil {
			s.log.Warn().Str("key", obj.Key).Msg("Failed to parse timestamp from backup name")
			continue
		}

		backups = append(backups, BackupInfo{Timestamp: ts, Key: obj.Key, SizeBytes: obj.Size})
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].Timestamp.After(backups[j].Timestamp)
	})
	return backups, nil
}

// RotateOldBackups deletes backups beyond the newest `retention` and returns
// how many were removed
func (s *BackupService) RotateOldBackups(ctx context.Context) (int, error) {
	if s.retention <= 0 {
		return 0, nil
	}

	backups, err := s.ListBackups(ctx)
	if err != nil {
		return 0, err
	}
	if len(backups) <= s.retention {
		return 0, nil
	}

	deleted := 0
	for _, backup := range backups[s.retention:] {
		if err := s.store.Delete(ctx, backup.Key); err != nil {
			s.log.Error().Err(err).Str("key", backup.Key).Msg("Failed to delete old backup")
			continue
		}
		s.log.Info().Str("key", backup.Key).Time("timestamp", backup.Timestamp).Msg("Deleted old backup")
		deleted++
	}
	return deleted, nil
}

// compressFile gzips src into dest and returns the compressed size
func compressFile(src, dest string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return 0, err
	}
	defer out.Close()

	gz := gzip.NewWriter(out)
	if _, err := io.Copy(gz, in); err != nil {
		return 0, err
	}
	if err := gz.Close(); err != nil {
		return 0, err
	}

	info, err := out.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
