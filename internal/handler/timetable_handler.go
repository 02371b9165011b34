package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campusworks/timetable-api/internal/dto"
	"github.com/campusworks/timetable-api/internal/models"
	appErrors "github.com/campusworks/timetable-api/pkg/errors"
	"github.com/campusworks/timetable-api/pkg/response"
)

type timetableService interface {
	Generate(ctx context.Context, input models.ScheduleInput) (*dto.GenerateScheduleResponse, error)
	Upload(ctx context.Context, input models.ScheduleInput) (*models.ScheduleRecord, error)
	Current(ctx context.Context) (*models.ScheduleRecord, error)
	Rooms(ctx context.Context) ([]string, error)
	RoomSchedule(ctx context.Context, roomID string) (*models.RoomSchedule, error)
	Faculty(ctx context.Context) ([]models.FacultyRef, error)
	FacultySchedule(ctx context.Context, facultyID string) (*models.FacultySchedule, error)
	Insights(ctx context.Context) (*models.ScheduleInsights, bool, error)
	Stats(ctx context.Context) (*models.ScheduleStats, bool, error)
	Export(ctx context.Context, format string) ([]byte, string, error)
}

// TimetableHandler exposes scheduling, roster and insight endpoints.
type TimetableHandler struct {
	service timetableService
}

// NewTimetableHandler creates a new handler.
func NewTimetableHandler(svc timetableService) *TimetableHandler {
	return &TimetableHandler{service: svc}
}

// Generate godoc
// @Summary Generate weekly timetable
// @Description Run the allocation engine over the submitted input bundle and store the result
// @Tags Scheduler
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.ScheduleInput true "Scheduling input bundle"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /scheduler/generate [post]
func (h *TimetableHandler) Generate(c *gin.Context) {
	var input models.ScheduleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid schedule payload"))
		return
	}

	res, err := h.service.Generate(c.Request.Context(), input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, res)
}

// Upload godoc
// @Summary Upload schedule input
// @Description Store an input bundle without running the allocation engine
// @Tags Scheduler
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.ScheduleInput true "Scheduling input bundle"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /scheduler/upload [post]
func (h *TimetableHandler) Upload(c *gin.Context) {
	var input models.ScheduleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid schedule payload"))
		return
	}

	record, err := h.service.Upload(c.Request.Context(), input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, record)
}

// Current godoc
// @Summary Get current schedule
// @Description Return the last stored schedule document
// @Tags Scheduler
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /scheduler [get]
func (h *TimetableHandler) Current(c *gin.Context) {
	record, err := h.service.Current(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	if record == nil {
		response.Error(c, appErrors.ErrNoSchedule)
		return
	}

	response.JSON(c, http.StatusOK, record)
}

// Rooms godoc
// @Summary List rooms
// @Description Return the rooms declared by the stored schedule input
// @Tags Rooms
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /rooms [get]
func (h *TimetableHandler) Rooms(c *gin.Context) {
	rooms, err := h.service.Rooms(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, rooms)
}

// RoomSchedule godoc
// @Summary Get room schedule
// @Description Return the slot-level weekly view for one room
// @Tags Rooms
// @Produce json
// @Security BearerAuth
// @Param id path string true "Room identifier"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /rooms/{id} [get]
func (h *TimetableHandler) RoomSchedule(c *gin.Context) {
	view, err := h.service.RoomSchedule(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, view)
}

// Faculty godoc
// @Summary List faculty
// @Description Return the distinct faculty roster declared by the stored input
// @Tags Faculty
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /faculty [get]
func (h *TimetableHandler) Faculty(c *gin.Context) {
	roster, err := h.service.Faculty(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, roster)
}

// FacultySchedule godoc
// @Summary Get faculty schedule
// @Description Return the weekly workload view for one faculty member
// @Tags Faculty
// @Produce json
// @Security BearerAuth
// @Param id path string true "Faculty identifier"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /faculty/{id} [get]
func (h *TimetableHandler) FacultySchedule(c *gin.Context) {
	view, err := h.service.FacultySchedule(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, view)
}

// Insights godoc
// @Summary Get schedule insights
// @Description Return utilization, peak time and recommendations for the stored schedule
// @Tags Insights
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /insights [get]
func (h *TimetableHandler) Insights(c *gin.Context) {
	insights, cacheHit, err := h.service.Insights(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, insights, map[string]interface{}{"cache_hit": cacheHit})
}

// Stats godoc
// @Summary Get schedule statistics
// @Description Return headline counters for the stored schedule
// @Tags Insights
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /stats [get]
func (h *TimetableHandler) Stats(c *gin.Context) {
	stats, cacheHit, err := h.service.Stats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, stats, map[string]interface{}{"cache_hit": cacheHit})
}

// Export godoc
// @Summary Export schedule
// @Description Download the stored schedule as CSV or PDF
// @Tags Scheduler
// @Produce octet-stream
// @Security BearerAuth
// @Param format query string false "Export format: csv or pdf" default(csv)
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /export [get]
func (h *TimetableHandler) Export(c *gin.Context) {
	format := c.DefaultQuery("format", "csv")

	payload, contentType, err := h.service.Export(c.Request.Context(), format)
	if err != nil {
		response.Error(c, err)
		return
	}

	filename := fmt.Sprintf("timetable-%s.%s", time.Now().UTC().Format("20060102"), format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, payload)
}
