package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusworks/timetable-api/internal/dto"
	appErrors "github.com/campusworks/timetable-api/pkg/errors"
	"github.com/campusworks/timetable-api/pkg/response"
)

type archiveService interface {
	List() ([]dto.ArchiveEntry, error)
	Resolve(token string) ([]byte, string, string, error)
}

// ArchiveHandler exposes stored schedule snapshots.
type ArchiveHandler struct {
	service archiveService
}

// NewArchiveHandler creates a new handler.
func NewArchiveHandler(svc archiveService) *ArchiveHandler {
	return &ArchiveHandler{service: svc}
}

// List godoc
// @Summary List archived snapshots
// @Description Return stored schedule snapshots with signed download tokens
// @Tags Archive
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /archives [get]
func (h *ArchiveHandler) List(c *gin.Context) {
	entries, err := h.service.List()
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, entries)
}

// Download godoc
// @Summary Download an archived snapshot
// @Description Stream a snapshot file identified by a signed token
// @Tags Archive
// @Produce octet-stream
// @Param token query string true "Signed download token"
// @Success 200 {file} binary
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /archives/download [get]
func (h *ArchiveHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "missing download token"))
		return
	}

	payload, contentType, filename, err := h.service.Resolve(token)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, payload)
}
