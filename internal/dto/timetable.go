package dto

import (
	"time"

	"github.com/campusworks/timetable-api/internal/models"
)

// GenerateScheduleResponse carries the committed grid with its conflict
// list and derived metrics. A run with conflicts is still a success; the
// message distinguishes the two outcomes for the caller.
type GenerateScheduleResponse struct {
	Message   string                  `json:"message"`
	Grid      models.WeeklyGrid       `json:"schedule"`
	Conflicts []string                `json:"conflicts,omitempty"`
	Metrics   *models.ScheduleMetrics `json:"metrics,omitempty"`
}

// UploadScheduleResponse acknowledges stored input.
type UploadScheduleResponse struct {
	Message  string                 `json:"message"`
	Schedule *models.ScheduleRecord `json:"schedule"`
}

// ArchiveEntry describes one stored snapshot file with its signed
// download token.
type ArchiveEntry struct {
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modified_at"`
	Token      string    `json:"token"`
	ExpiresAt  time.Time `json:"expires_at"`
}
