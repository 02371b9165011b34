package service

import (
	"context"
	"fmt"
	"path"
	"time"

	"go.uber.org/zap"

	"github.com/campusworks/timetable-api/internal/dto"
	"github.com/campusworks/timetable-api/internal/models"
	"github.com/campusworks/timetable-api/pkg/export"
	appErrors "github.com/campusworks/timetable-api/pkg/errors"
	"github.com/campusworks/timetable-api/pkg/jobs"
	"github.com/campusworks/timetable-api/pkg/storage"
)

const taskKindSnapshot = "schedule_snapshot"

// ArchiveServiceConfig tunes snapshot archiving.
type ArchiveServiceConfig struct {
	Workers   int
	Retention time.Duration
}

// ArchiveService persists a CSV and PDF snapshot of every accepted grid in
// the background, and serves the stored files through signed download
// tokens so history survives the single-document store.
type ArchiveService struct {
	store     *storage.LocalStorage
	signer    *storage.SignedURLSigner
	queue     *jobs.Queue
	logger    *zap.Logger
	retention time.Duration
}

// NewArchiveService wires the snapshot pipeline. Start must be called
// before snapshots are accepted.
func NewArchiveService(store *storage.LocalStorage, signer *storage.SignedURLSigner, logger *zap.Logger, cfg ArchiveServiceConfig) *ArchiveService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 30 * 24 * time.Hour
	}
	s := &ArchiveService{
		store:     store,
		signer:    signer,
		logger:    logger,
		retention: cfg.Retention,
	}
	s.queue = jobs.NewQueue("schedule-archive", s.process, jobs.Config{
		Workers: cfg.Workers,
		Logger:  logger,
	})
	return s
}

// Start launches the background workers. Safe on a nil receiver so a
// disabled archiver can be wired through without guards.
func (s *ArchiveService) Start(ctx context.Context) {
	if s == nil {
		return
	}
	s.queue.Start(ctx)
}

// Stop drains the workers.
func (s *ArchiveService) Stop() {
	if s == nil {
		return
	}
	s.queue.Stop()
}

// Snapshot queues the record for archiving. Records without a grid are
// skipped; uploads without generation have nothing worth keeping.
func (s *ArchiveService) Snapshot(record *models.ScheduleRecord) error {
	if s == nil || record == nil || record.Grid == nil {
		return nil
	}
	return s.queue.Enqueue(jobs.Task{ID: record.ID, Kind: taskKindSnapshot, Payload: record})
}

func (s *ArchiveService) process(_ context.Context, task jobs.Task) error {
	record, ok := task.Payload.(*models.ScheduleRecord)
	if !ok {
		return fmt.Errorf("unexpected payload for task %s", task.ID)
	}

	csvPayload, err := export.NewCSVExporter().Render(gridCSVDataset(record.Grid))
	if err != nil {
		return fmt.Errorf("render csv snapshot: %w", err)
	}
	if err := s.store.Save(path.Join(record.ID, "timetable.csv"), csvPayload); err != nil {
		return err
	}

	pdfPayload, err := export.NewPDFExporter().Render(gridPDFDataset(record.Grid), "Weekly Timetable")
	if err != nil {
		return fmt.Errorf("render pdf snapshot: %w", err)
	}
	if err := s.store.Save(path.Join(record.ID, "timetable.pdf"), pdfPayload); err != nil {
		return err
	}

	if deleted, err := s.store.CleanupOlderThan(s.retention); err != nil {
		s.logger.Warn("archive cleanup failed", zap.Error(err))
	} else if len(deleted) > 0 {
		s.logger.Info("archive cleanup removed snapshots", zap.Int("count", len(deleted)))
	}

	s.logger.Info("schedule snapshot archived", zap.String("record_id", record.ID))
	return nil
}

// List returns the stored snapshots, newest first, each with a signed
// download token.
func (s *ArchiveService) List() ([]dto.ArchiveEntry, error) {
	entries, err := s.store.List()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list archive")
	}

	result := make([]dto.ArchiveEntry, 0, len(entries))
	for _, entry := range entries {
		token, expiresAt, err := s.signer.Generate(entry.Name)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download token")
		}
		result = append(result, dto.ArchiveEntry{
			Name:       entry.Name,
			Size:       entry.Size,
			ModifiedAt: entry.ModTime,
			Token:      token,
			ExpiresAt:  expiresAt,
		})
	}
	return result, nil
}

// Resolve validates a download token and returns the file contents with
// its content type and base filename.
func (s *ArchiveService) Resolve(token string) ([]byte, string, string, error) {
	relPath, _, err := s.signer.Parse(token)
	if err != nil {
		return nil, "", "", appErrors.Clone(appErrors.ErrUnauthorized, "invalid download token")
	}
	data, err := s.store.Read(relPath)
	if err != nil {
		return nil, "", "", appErrors.Clone(appErrors.ErrNotFound, "snapshot not found")
	}
	return data, snapshotContentType(relPath), path.Base(relPath), nil
}

func snapshotContentType(name string) string {
	switch path.Ext(name) {
	case ".pdf":
		return "application/pdf"
	case ".csv":
		return "text/csv"
	default:
		return "application/octet-stream"
	}
}
