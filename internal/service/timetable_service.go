package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campusworks/timetable-api/internal/dto"
	"github.com/campusworks/timetable-api/internal/models"
	appErrors "github.com/campusworks/timetable-api/pkg/errors"
	"github.com/campusworks/timetable-api/pkg/export"
)

const (
	cacheKeyInsights = "timetable:insights"
	cacheKeyStats    = "timetable:stats"
	cachePattern     = "timetable:*"
)

type scheduleStore interface {
	Replace(ctx context.Context, record *models.ScheduleRecord) error
	Latest(ctx context.Context) (*models.ScheduleRecord, error)
}

type gridAllocator interface {
	Generate(ctx context.Context, input models.ScheduleInput) (models.WeeklyGrid, []string, error)
}

type scheduleArchiver interface {
	Snapshot(record *models.ScheduleRecord) error
}

// TimetableServiceConfig tunes the orchestration layer.
type TimetableServiceConfig struct {
	CacheTTL    time.Duration
	MaxSubjects int
}

// TimetableService coordinates a scheduling run end to end: boundary
// validation, allocation, persistence of the accepted document and the
// derived views served from it. The store holds exactly one document; each
// accepted run supersedes the previous one in full.
type TimetableService struct {
	store     scheduleStore
	allocator gridAllocator
	archiver  scheduleArchiver
	insights  *InsightsService
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       TimetableServiceConfig
}

// NewTimetableService wires the orchestration dependencies.
func NewTimetableService(
	store scheduleStore,
	allocator gridAllocator,
	archiver scheduleArchiver,
	insights *InsightsService,
	cache *CacheService,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg TimetableServiceConfig,
) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxSubjects <= 0 {
		cfg.MaxSubjects = 128
	}
	return &TimetableService{
		store:     store,
		allocator: allocator,
		archiver:  archiver,
		insights:  insights,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
}

// Generate validates the input bundle, runs the allocation engine, persists
// the accepted document and returns the grid with conflicts and metrics.
// A run with conflicts is still a success; only malformed input fails.
func (s *TimetableService) Generate(ctx context.Context, input models.ScheduleInput) (*dto.GenerateScheduleResponse, error) {
	if err := s.validateInput(ctx, input); err != nil {
		return nil, err
	}

	grid, conflicts, err := s.allocator.Generate(ctx, input)
	if err != nil {
		return nil, err
	}

	record := &models.ScheduleRecord{
		ID:        uuid.NewString(),
		Input:     input,
		Grid:      grid,
		Conflicts: conflicts,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.Replace(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist schedule")
	}
	s.invalidateCache(ctx)

	if s.archiver != nil {
		if err := s.archiver.Snapshot(record); err != nil {
			s.logger.Warn("failed to queue schedule snapshot", zap.Error(err))
		}
	}

	metrics, err := s.insights.ComputeMetrics(input, grid)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveGeneration(len(conflicts), metrics.OverallUtilization)

	message := "Schedule generated successfully"
	if len(conflicts) > 0 {
		message = fmt.Sprintf("Schedule generated with %d conflicts", len(conflicts))
	}
	return &dto.GenerateScheduleResponse{
		Message:   message,
		Grid:      grid,
		Conflicts: conflicts,
		Metrics:   metrics,
	}, nil
}

// Upload stores a validated input bundle without generating, superseding
// any previous document.
func (s *TimetableService) Upload(ctx context.Context, input models.ScheduleInput) (*models.ScheduleRecord, error) {
	if err := s.validateInput(ctx, input); err != nil {
		return nil, err
	}
	record := &models.ScheduleRecord{
		ID:        uuid.NewString(),
		Input:     input,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.Replace(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist schedule")
	}
	s.invalidateCache(ctx)
	return record, nil
}

// Current returns the last accepted document, or nil when none exists.
func (s *TimetableService) Current(ctx context.Context) (*models.ScheduleRecord, error) {
	record, err := s.store.Latest(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	return record, nil
}

// Rooms lists the declared room identifiers of the stored document.
func (s *TimetableService) Rooms(ctx context.Context) ([]string, error) {
	record, err := s.Current(ctx)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return []string{}, nil
	}
	return record.Input.Rooms, nil
}

// RoomSchedule materializes the weekly view for one room.
func (s *TimetableService) RoomSchedule(ctx context.Context, roomID string) (*models.RoomSchedule, error) {
	record, err := s.Current(ctx)
	if err != nil {
		return nil, err
	}
	return s.insights.RoomSchedule(record, roomID)
}

// Faculty lists each faculty member once across all subjects.
func (s *TimetableService) Faculty(ctx context.Context) ([]models.FacultyRef, error) {
	record, err := s.Current(ctx)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return []models.FacultyRef{}, nil
	}
	return facultyRoster(record.Input), nil
}

// FacultySchedule materializes the weekly view for one faculty member.
func (s *TimetableService) FacultySchedule(ctx context.Context, facultyID string) (*models.FacultySchedule, error) {
	record, err := s.Current(ctx)
	if err != nil {
		return nil, err
	}
	return s.insights.FacultySchedule(record, facultyID)
}

// Insights returns the analytics payload, served from cache when warm.
// The boolean reports a cache hit.
func (s *TimetableService) Insights(ctx context.Context) (*models.ScheduleInsights, bool, error) {
	var cached models.ScheduleInsights
	if hit, _ := s.cache.Get(ctx, cacheKeyInsights, &cached); hit {
		return &cached, true, nil
	}

	record, err := s.Current(ctx)
	if err != nil {
		return nil, false, err
	}
	insights, err := s.insights.Insights(record)
	if err != nil {
		return nil, false, err
	}
	_ = s.cache.Set(ctx, cacheKeyInsights, insights, s.cfg.CacheTTL)
	return insights, false, nil
}

// Stats returns the dashboard summary, served from cache when warm.
func (s *TimetableService) Stats(ctx context.Context) (*models.ScheduleStats, bool, error) {
	var cached models.ScheduleStats
	if hit, _ := s.cache.Get(ctx, cacheKeyStats, &cached); hit {
		return &cached, true, nil
	}

	record, err := s.Current(ctx)
	if err != nil {
		return nil, false, err
	}
	stats, err := s.insights.Stats(record)
	if err != nil {
		return nil, false, err
	}
	_ = s.cache.Set(ctx, cacheKeyStats, stats, s.cfg.CacheTTL)
	return stats, false, nil
}

// Export renders the committed grid as CSV or PDF.
func (s *TimetableService) Export(ctx context.Context, format string) ([]byte, string, error) {
	record, err := s.Current(ctx)
	if err != nil {
		return nil, "", err
	}
	if record == nil || record.Grid == nil {
		return nil, "", appErrors.ErrNoSchedule
	}

	switch format {
	case "", "csv":
		payload, err := export.NewCSVExporter().Render(gridCSVDataset(record.Grid))
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return payload, "text/csv", nil
	case "pdf":
		payload, err := export.NewPDFExporter().Render(gridPDFDataset(record.Grid), "Weekly Timetable")
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return payload, "application/pdf", nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
}

func (s *TimetableService) validateInput(ctx context.Context, input models.ScheduleInput) error {
	if err := s.validator.StructCtx(ctx, input); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule data format")
	}
	if len(input.Subjects) > s.cfg.MaxSubjects {
		return appErrors.Clone(appErrors.ErrValidation, "subjects exceeds supported limit")
	}
	for _, period := range input.BreakPeriods {
		if period.Day != models.AllDays && !models.IsWeekday(period.Day) {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown break day %q", period.Day))
		}
	}
	return nil
}

func (s *TimetableService) invalidateCache(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, cachePattern); err != nil {
		s.logger.Warn("failed to invalidate timetable cache", zap.Error(err))
	}
}

var exportHeaders = []string{"Day", "Start", "End", "Subject", "Faculty", "Room", "Duration"}

func gridCSVDataset(grid models.WeeklyGrid) export.Dataset {
	dataset := export.Dataset{Headers: exportHeaders}
	for _, day := range models.Weekdays {
		for _, assignment := range grid[day] {
			dataset.Rows = append(dataset.Rows, assignmentRow(assignment))
		}
	}
	return dataset
}

func gridPDFDataset(grid models.WeeklyGrid) export.SectionedDataset {
	dataset := export.SectionedDataset{
		Headers:      exportHeaders[1:],
		SectionOrder: models.Weekdays,
		Sections:     make(map[string][]map[string]string, len(models.Weekdays)),
	}
	for _, day := range models.Weekdays {
		rows := make([]map[string]string, 0, len(grid[day]))
		for _, assignment := range grid[day] {
			rows = append(rows, assignmentRow(assignment))
		}
		dataset.Sections[day] = rows
	}
	return dataset
}

func assignmentRow(assignment models.Assignment) map[string]string {
	return map[string]string{
		"Day":      assignment.Day,
		"Start":    assignment.StartTime,
		"End":      assignment.EndTime,
		"Subject":  assignment.Subject,
		"Faculty":  assignment.Faculty,
		"Room":     assignment.Room,
		"Duration": fmt.Sprintf("%d", assignment.Duration),
	}
}
