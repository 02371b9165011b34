package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusworks/timetable-api/internal/dto"
	appErrors "github.com/campusworks/timetable-api/pkg/errors"
)

type archiveServiceMock struct {
	entries     []dto.ArchiveEntry
	listErr     error
	payload     []byte
	contentType string
	filename    string
	resolveErr  error
	token       string
}

func (m *archiveServiceMock) List() ([]dto.ArchiveEntry, error) {
	return m.entries, m.listErr
}

func (m *archiveServiceMock) Resolve(token string) ([]byte, string, string, error) {
	m.token = token
	return m.payload, m.contentType, m.filename, m.resolveErr
}

func TestArchiveHandlerList(t *testing.T) {
	mock := &archiveServiceMock{entries: []dto.ArchiveEntry{
		{Name: "rec-1/timetable.csv", Size: 42, ModifiedAt: time.Now(), Token: "tok-1"},
	}}
	h := NewArchiveHandler(mock)

	c, w := newJSONContext(t, http.MethodGet, "/archives", nil)
	h.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "rec-1/timetable.csv")
	assert.Contains(t, w.Body.String(), "tok-1")
}

func TestArchiveHandlerDownload(t *testing.T) {
	mock := &archiveServiceMock{
		payload:     []byte("Day,Start,End\n"),
		contentType: "text/csv",
		filename:    "timetable.csv",
	}
	h := NewArchiveHandler(mock)

	c, w := newJSONContext(t, http.MethodGet, "/archives/download?token=tok-1", nil)
	h.Download(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "tok-1", mock.token)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), `filename="timetable.csv"`)
	assert.Equal(t, "Day,Start,End\n", w.Body.String())
}

func TestArchiveHandlerDownloadMissingToken(t *testing.T) {
	h := NewArchiveHandler(&archiveServiceMock{})

	c, w := newJSONContext(t, http.MethodGet, "/archives/download", nil)
	h.Download(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "VALIDATION_ERROR")
}

func TestArchiveHandlerDownloadInvalidToken(t *testing.T) {
	mock := &archiveServiceMock{resolveErr: appErrors.Clone(appErrors.ErrUnauthorized, "invalid download token")}
	h := NewArchiveHandler(mock)

	c, w := newJSONContext(t, http.MethodGet, "/archives/download?token=bad", nil)
	h.Download(c)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "UNAUTHORIZED")
}
