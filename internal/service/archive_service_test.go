package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/campusworks/timetable-api/pkg/errors"
	"github.com/campusworks/timetable-api/pkg/storage"
)

func newTestArchive(t *testing.T) *ArchiveService {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	svc := NewArchiveService(store, signer, nil, ArchiveServiceConfig{Workers: 1})
	svc.Start(context.Background())
	t.Cleanup(svc.Stop)
	return svc
}

func waitForSnapshots(t *testing.T, svc *ArchiveService, count int) {
	t.Helper()
	require.Eventually(t, func() bool {
		entries, err := svc.List()
		return err == nil && len(entries) == count
	}, 2*time.Second, 10*time.Millisecond)
}

func TestArchiveSnapshotWritesBothFormats(t *testing.T) {
	svc := newTestArchive(t)

	require.NoError(t, svc.Snapshot(insightsRecord()))
	waitForSnapshots(t, svc, 2)

	entries, err := svc.List()
	require.NoError(t, err)

	names := []string{entries[0].Name, entries[1].Name}
	assert.Contains(t, names, "rec-1/timetable.csv")
	assert.Contains(t, names, "rec-1/timetable.pdf")
	for _, entry := range entries {
		assert.NotEmpty(t, entry.Token)
		assert.Greater(t, entry.Size, int64(0))
	}
}

func TestArchiveResolveRoundTrip(t *testing.T) {
	svc := newTestArchive(t)

	require.NoError(t, svc.Snapshot(insightsRecord()))
	waitForSnapshots(t, svc, 2)

	entries, err := svc.List()
	require.NoError(t, err)

	for _, entry := range entries {
		data, contentType, filename, err := svc.Resolve(entry.Token)
		require.NoError(t, err)
		if strings.HasSuffix(entry.Name, ".pdf") {
			assert.Equal(t, "application/pdf", contentType)
			assert.Equal(t, "timetable.pdf", filename)
			assert.True(t, strings.HasPrefix(string(data), "%PDF"))
		} else {
			assert.Equal(t, "text/csv", contentType)
			assert.Equal(t, "timetable.csv", filename)
			assert.Contains(t, string(data), "Day,Start,End,Subject,Faculty,Room,Duration")
			assert.Contains(t, string(data), "MONDAY,09:00,09:50,Math,Dr. Rao,R1,50")
		}
	}
}

func TestArchiveResolveRejectsBadToken(t *testing.T) {
	svc := newTestArchive(t)

	_, _, _, err := svc.Resolve("not-a-valid-token")
	require.Error(t, err)
	assert.Equal(t, "UNAUTHORIZED", appErrors.FromError(err).Code)
}

func TestArchiveSnapshotSkipsGridlessRecords(t *testing.T) {
	svc := newTestArchive(t)

	record := insightsRecord()
	record.Grid = nil
	require.NoError(t, svc.Snapshot(record))
	require.NoError(t, svc.Snapshot(nil))

	entries, err := svc.List()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestArchiveNilReceiverIsSafe(t *testing.T) {
	var svc *ArchiveService
	svc.Start(context.Background())
	assert.NoError(t, svc.Snapshot(insightsRecord()))
	svc.Stop()
}
