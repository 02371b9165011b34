package models

// RoomUtilization is the occupancy ratio for a single room across the
// non-break slot grid.
type RoomUtilization struct {
	RoomID      string  `json:"roomId"`
	Utilization float64 `json:"utilization"`
}

// ScheduleMetrics summarises occupancy for a committed grid.
type ScheduleMetrics struct {
	OverallUtilization float64           `json:"overallUtilization"`
	RoomUtilization    []RoomUtilization `json:"roomUtilization"`
	TotalSlots         int               `json:"totalSlots"`
	OccupiedSlots      int               `json:"occupiedSlots"`
}

// Recommendation types mirror the insight categories surfaced to the UI.
const (
	RecommendationEfficiency   = "efficiency"
	RecommendationOptimization = "optimization"
)

// Recommendation is advisory text derived from utilization ratios. It is
// never fed back into the engine.
type Recommendation struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// ScheduleInsights aggregates analytics over the last committed grid.
type ScheduleInsights struct {
	AvgUtilization  float64           `json:"avgUtilization"`
	Conflicts       int               `json:"conflicts"`
	PeakTime        string            `json:"peakTime"`
	ActiveFaculty   int               `json:"activeFaculty"`
	RoomUtilization []RoomUtilization `json:"roomUtilization"`
	Recommendations []Recommendation  `json:"recommendations"`
}

// ScheduleStats feeds the dashboard summary cards.
type ScheduleStats struct {
	TotalRooms     int     `json:"totalRooms"`
	ActiveFaculty  int     `json:"activeFaculty"`
	WeeklyClasses  int     `json:"weeklyClasses"`
	AvgUtilization float64 `json:"avgUtilization"`
}

// GridSlot is one cell of a materialized per-room or per-faculty weekly
// view. Empty cells keep Subject blank; break cells set IsBreak.
type GridSlot struct {
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Subject   string `json:"subject,omitempty"`
	Faculty   string `json:"faculty,omitempty"`
	Room      string `json:"room,omitempty"`
	IsBreak   bool   `json:"isBreak,omitempty"`
}

// DaySchedule maps weekday names to materialized slot rows.
type DaySchedule map[string][]GridSlot

// RoomSchedule is the weekly view for one room.
type RoomSchedule struct {
	RoomID      string      `json:"roomId"`
	Schedule    DaySchedule `json:"schedule"`
	Utilization float64     `json:"utilization"`
	Conflicts   int         `json:"conflicts"`
}

// FacultySchedule is the weekly view for one faculty member.
type FacultySchedule struct {
	FacultyID     string      `json:"facultyId"`
	Name          string      `json:"name"`
	Schedule      DaySchedule `json:"schedule"`
	TeachingHours float64     `json:"teachingHours"`
	Subjects      []string    `json:"subjects"`
}
