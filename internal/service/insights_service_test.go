package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusworks/timetable-api/internal/models"
	appErrors "github.com/campusworks/timetable-api/pkg/errors"
)

func newTestInsights() *InsightsService {
	return NewInsightsService(nil, InsightsConfig{})
}

// Three 50-minute slots per day over a 09:00-12:00 window, six weekdays.
func insightsRecord() *models.ScheduleRecord {
	return &models.ScheduleRecord{
		ID: "rec-1",
		Input: models.ScheduleInput{
			InstitutionWindow: models.InstitutionWindow{StartTime: "09:00", EndTime: "12:00"},
			Rooms:             []string{"R1", "R2"},
			Subjects: []models.Subject{
				{
					Name:           "Math",
					Duration:       50,
					ClassesPerWeek: 2,
					Faculty: []models.Faculty{
						{ID: "F1", Name: "Dr. Rao", Availability: []models.AvailabilityWindow{
							{Day: "MONDAY", StartTime: "09:00", EndTime: "12:00"},
						}},
					},
				},
			},
		},
		Grid: models.WeeklyGrid{
			"MONDAY": {
				{Day: "MONDAY", StartTime: "09:00", EndTime: "09:50", Subject: "Math", Faculty: "Dr. Rao", FacultyID: "F1", Room: "R1", Duration: 50},
				{Day: "MONDAY", StartTime: "09:50", EndTime: "10:40", Subject: "Math", Faculty: "Dr. Rao", FacultyID: "F1", Room: "R1", Duration: 50},
			},
		},
		Conflicts: []string{"Only scheduled 2/3 classes for Math with Dr. Rao"},
		CreatedAt: time.Now(),
	}
}

func TestComputeMetricsObservedRoomsOnly(t *testing.T) {
	svc := newTestInsights()
	record := insightsRecord()

	metrics, err := svc.ComputeMetrics(record.Input, record.Grid)
	require.NoError(t, err)

	// R2 never appears in the grid, so only R1 is reported.
	require.Len(t, metrics.RoomUtilization, 1)
	assert.Equal(t, "R1", metrics.RoomUtilization[0].RoomID)
	assert.Equal(t, 2, metrics.OccupiedSlots)
	assert.Equal(t, 18, metrics.TotalSlots)
	assert.InDelta(t, 11.11, metrics.OverallUtilization, 0.01)
	assert.InDelta(t, 11.11, metrics.RoomUtilization[0].Utilization, 0.01)
}

func TestComputeMetricsEmptyGrid(t *testing.T) {
	svc := newTestInsights()
	record := insightsRecord()

	metrics, err := svc.ComputeMetrics(record.Input, models.WeeklyGrid{})
	require.NoError(t, err)

	assert.Zero(t, metrics.OverallUtilization)
	assert.Empty(t, metrics.RoomUtilization)
	assert.Zero(t, metrics.TotalSlots)
	assert.Zero(t, metrics.OccupiedSlots)
}

func TestComputeMetricsMalformedWindow(t *testing.T) {
	svc := newTestInsights()
	record := insightsRecord()
	record.Input.InstitutionWindow.StartTime = "9am"

	_, err := svc.ComputeMetrics(record.Input, record.Grid)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrTimeFormat.Code, appErrors.FromError(err).Code)
}

func TestInsightsCoversDeclaredRooms(t *testing.T) {
	svc := newTestInsights()
	record := insightsRecord()

	insights, err := svc.Insights(record)
	require.NoError(t, err)

	// Declared but unused rooms are reported at zero.
	require.Len(t, insights.RoomUtilization, 2)
	assert.Equal(t, "R1", insights.RoomUtilization[0].RoomID)
	assert.Equal(t, "R2", insights.RoomUtilization[1].RoomID)
	assert.Zero(t, insights.RoomUtilization[1].Utilization)

	assert.InDelta(t, 5.56, insights.AvgUtilization, 0.01)
	assert.Equal(t, 1, insights.Conflicts)
	assert.Equal(t, 1, insights.ActiveFaculty)
	assert.Equal(t, "09:00-09:50", insights.PeakTime)

	require.Len(t, insights.Recommendations, 1)
	assert.Equal(t, models.RecommendationEfficiency, insights.Recommendations[0].Type)
	assert.Equal(t, "Underutilized Rooms", insights.Recommendations[0].Title)
}

func TestInsightsNilRecord(t *testing.T) {
	svc := newTestInsights()

	insights, err := svc.Insights(nil)
	require.NoError(t, err)

	assert.Zero(t, insights.AvgUtilization)
	assert.Zero(t, insights.Conflicts)
	assert.Zero(t, insights.ActiveFaculty)
	assert.Equal(t, "N/A", insights.PeakTime)
	assert.Empty(t, insights.RoomUtilization)
	assert.Empty(t, insights.Recommendations)
}

func TestInsightsEmptyGridPeakTime(t *testing.T) {
	svc := newTestInsights()
	record := insightsRecord()
	record.Grid = models.WeeklyGrid{}
	record.Conflicts = nil

	insights, err := svc.Insights(record)
	require.NoError(t, err)
	assert.Equal(t, "N/A", insights.PeakTime)
}

func TestInsightsHighUtilizationRecommendation(t *testing.T) {
	svc := newTestInsights()
	record := insightsRecord()
	record.Input.InstitutionWindow = models.InstitutionWindow{StartTime: "09:00", EndTime: "09:50"}
	record.Input.Rooms = []string{"R1"}
	grid := models.WeeklyGrid{}
	for _, day := range models.Weekdays {
		grid[day] = []models.Assignment{
			{Day: day, StartTime: "09:00", EndTime: "09:50", Subject: "Math", Faculty: "Dr. Rao", FacultyID: "F1", Room: "R1", Duration: 50},
		}
	}
	record.Grid = grid

	insights, err := svc.Insights(record)
	require.NoError(t, err)

	assert.InDelta(t, 100, insights.AvgUtilization, 0.01)
	require.Len(t, insights.Recommendations, 1)
	assert.Equal(t, models.RecommendationOptimization, insights.Recommendations[0].Type)
	assert.Equal(t, "Optimize Peak Hours", insights.Recommendations[0].Title)
}

func TestStats(t *testing.T) {
	svc := newTestInsights()
	record := insightsRecord()

	stats, err := svc.Stats(record)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.TotalRooms)
	assert.Equal(t, 1, stats.ActiveFaculty)
	assert.Equal(t, 2, stats.WeeklyClasses)
	assert.InDelta(t, 5.56, stats.AvgUtilization, 0.01)
}

func TestStatsNilRecord(t *testing.T) {
	svc := newTestInsights()

	stats, err := svc.Stats(nil)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalRooms)
	assert.Zero(t, stats.WeeklyClasses)
}

func TestRoomSchedule(t *testing.T) {
	svc := newTestInsights()
	record := insightsRecord()

	view, err := svc.RoomSchedule(record, "R1")
	require.NoError(t, err)

	assert.Equal(t, "R1", view.RoomID)
	assert.InDelta(t, 11.11, view.Utilization, 0.01)
	assert.Zero(t, view.Conflicts)

	monday := view.Schedule["MONDAY"]
	require.Len(t, monday, 3)
	assert.Equal(t, "Math", monday[0].Subject)
	assert.Equal(t, "Math", monday[1].Subject)
	assert.Empty(t, monday[2].Subject)

	tuesday := view.Schedule["TUESDAY"]
	require.Len(t, tuesday, 3)
	for _, slot := range tuesday {
		assert.Empty(t, slot.Subject)
	}
}

func TestRoomScheduleFlagsBreaks(t *testing.T) {
	svc := newTestInsights()
	record := insightsRecord()
	record.Input.BreakPeriods = []models.BreakPeriod{
		{Day: models.AllDays, StartTime: "09:50", EndTime: "10:40"},
	}
	record.Grid = models.WeeklyGrid{
		"MONDAY": {
			{Day: "MONDAY", StartTime: "09:00", EndTime: "09:50", Subject: "Math", Faculty: "Dr. Rao", FacultyID: "F1", Room: "R1", Duration: 50},
		},
	}

	view, err := svc.RoomSchedule(record, "R1")
	require.NoError(t, err)

	monday := view.Schedule["MONDAY"]
	require.Len(t, monday, 3)
	assert.False(t, monday[0].IsBreak)
	assert.True(t, monday[1].IsBreak)
	// One occupied of twelve non-break slots across the week.
	assert.InDelta(t, 8.33, view.Utilization, 0.01)
}

func TestRoomScheduleUnknownRoom(t *testing.T) {
	svc := newTestInsights()

	_, err := svc.RoomSchedule(insightsRecord(), "R9")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestRoomScheduleNoRecord(t *testing.T) {
	svc := newTestInsights()

	_, err := svc.RoomSchedule(nil, "R1")
	assert.ErrorIs(t, err, appErrors.ErrNoSchedule)
}

func TestFacultySchedule(t *testing.T) {
	svc := newTestInsights()
	record := insightsRecord()

	view, err := svc.FacultySchedule(record, "F1")
	require.NoError(t, err)

	assert.Equal(t, "F1", view.FacultyID)
	assert.Equal(t, "Dr. Rao", view.Name)
	assert.Equal(t, []string{"Math"}, view.Subjects)
	assert.InDelta(t, 1.67, view.TeachingHours, 0.01)

	monday := view.Schedule["MONDAY"]
	require.Len(t, monday, 3)
	assert.Equal(t, "Math", monday[0].Subject)
	assert.Equal(t, "R1", monday[0].Room)
}

func TestFacultyScheduleUnknownMember(t *testing.T) {
	svc := newTestInsights()

	_, err := svc.FacultySchedule(insightsRecord(), "F9")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestFacultyRosterDeduplicates(t *testing.T) {
	input := insightsRecord().Input
	input.Subjects = append(input.Subjects, models.Subject{
		Name:           "Physics",
		Duration:       50,
		ClassesPerWeek: 1,
		Faculty: []models.Faculty{
			{ID: "F1", Name: "Dr. Rao"},
			{ID: "F2", Name: "Dr. Iyer"},
		},
	})

	roster := facultyRoster(input)
	require.Len(t, roster, 2)
	assert.Equal(t, "F1", roster[0].ID)
	assert.Equal(t, "F2", roster[1].ID)
}
