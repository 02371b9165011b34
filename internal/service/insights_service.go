package service

import (
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/campusworks/timetable-api/internal/models"
	"github.com/campusworks/timetable-api/internal/timegrid"
	appErrors "github.com/campusworks/timetable-api/pkg/errors"
)

// InsightsConfig names the utilization thresholds that drive
// recommendation text.
type InsightsConfig struct {
	SlotMinutes     int
	LowUtilization  float64
	HighUtilization float64
}

// InsightsService derives occupancy metrics, weekly views and advisory
// recommendations from a committed grid. It never feeds anything back into
// the allocation engine.
type InsightsService struct {
	logger *zap.Logger
	cfg    InsightsConfig
}

// NewInsightsService constructs the derivation service.
func NewInsightsService(logger *zap.Logger, cfg InsightsConfig) *InsightsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SlotMinutes <= 0 {
		cfg.SlotMinutes = 50
	}
	if cfg.LowUtilization <= 0 {
		cfg.LowUtilization = 50
	}
	if cfg.HighUtilization <= 0 {
		cfg.HighUtilization = 90
	}
	return &InsightsService{logger: logger, cfg: cfg}
}

// slotContext is the materialized non-break slot grid shared by every
// derivation.
type slotContext struct {
	slots    []timegrid.Interval
	breakMap map[string][]bool
	nonBreak map[string]int
}

func (s *InsightsService) newSlotContext(input models.ScheduleInput) (*slotContext, error) {
	winStart, err := parseClock(input.InstitutionWindow.StartTime)
	if err != nil {
		return nil, err
	}
	winEnd, err := parseClock(input.InstitutionWindow.EndTime)
	if err != nil {
		return nil, err
	}

	type parsedBreak struct {
		day      string
		interval timegrid.Interval
	}
	breaks := make([]parsedBreak, 0, len(input.BreakPeriods))
	for _, period := range input.BreakPeriods {
		start, err := parseClock(period.StartTime)
		if err != nil {
			return nil, err
		}
		end, err := parseClock(period.EndTime)
		if err != nil {
			return nil, err
		}
		breaks = append(breaks, parsedBreak{day: period.Day, interval: timegrid.Interval{Start: start, End: end}})
	}

	slots := timegrid.Slots(winStart, winEnd, s.cfg.SlotMinutes)
	breakMap := make(map[string][]bool, len(models.Weekdays))
	nonBreak := make(map[string]int, len(models.Weekdays))
	for _, day := range models.Weekdays {
		flags := make([]bool, len(slots))
		count := 0
		for i, slot := range slots {
			for _, period := range breaks {
				if period.day != models.AllDays && period.day != day {
					continue
				}
				if timegrid.Overlaps(slot.Start, slot.End, period.interval.Start, period.interval.End) {
					flags[i] = true
					break
				}
			}
			if !flags[i] {
				count++
			}
		}
		breakMap[day] = flags
		nonBreak[day] = count
	}

	return &slotContext{slots: slots, breakMap: breakMap, nonBreak: nonBreak}, nil
}

// ComputeMetrics reports occupancy over every room observed in the grid:
// occupied non-break slots over total non-break slots. An empty grid
// yields zero utilization and an empty per-room list.
func (s *InsightsService) ComputeMetrics(input models.ScheduleInput, grid models.WeeklyGrid) (*models.ScheduleMetrics, error) {
	sc, err := s.newSlotContext(input)
	if err != nil {
		return nil, err
	}

	rooms := observedRooms(grid)
	metrics := &models.ScheduleMetrics{RoomUtilization: make([]models.RoomUtilization, 0, len(rooms))}
	for _, room := range rooms {
		occupied, total := s.roomOccupancy(sc, grid, room)
		metrics.OccupiedSlots += occupied
		metrics.TotalSlots += total
		metrics.RoomUtilization = append(metrics.RoomUtilization, models.RoomUtilization{
			RoomID:      room,
			Utilization: ratio(occupied, total),
		})
	}
	metrics.OverallUtilization = ratio(metrics.OccupiedSlots, metrics.TotalSlots)
	return metrics, nil
}

// Insights aggregates dashboard analytics over the last committed run.
// A nil record yields a zeroed payload, matching a store with no schedule.
func (s *InsightsService) Insights(record *models.ScheduleRecord) (*models.ScheduleInsights, error) {
	if record == nil {
		return &models.ScheduleInsights{
			PeakTime:        "N/A",
			RoomUtilization: []models.RoomUtilization{},
			Recommendations: []models.Recommendation{},
		}, nil
	}

	sc, err := s.newSlotContext(record.Input)
	if err != nil {
		return nil, err
	}

	utilization := make([]models.RoomUtilization, 0, len(record.Input.Rooms))
	var sum float64
	for _, room := range record.Input.Rooms {
		occupied, total := s.roomOccupancy(sc, record.Grid, room)
		value := ratio(occupied, total)
		sum += value
		utilization = append(utilization, models.RoomUtilization{RoomID: room, Utilization: value})
	}
	avg := 0.0
	if len(utilization) > 0 {
		avg = round2(sum / float64(len(utilization)))
	}

	return &models.ScheduleInsights{
		AvgUtilization:  avg,
		Conflicts:       len(record.Conflicts),
		PeakTime:        s.peakTime(sc, record.Grid),
		ActiveFaculty:   len(facultyRoster(record.Input)),
		RoomUtilization: utilization,
		Recommendations: s.recommendations(utilization),
	}, nil
}

// Stats summarises the stored schedule for the dashboard cards.
func (s *InsightsService) Stats(record *models.ScheduleRecord) (*models.ScheduleStats, error) {
	if record == nil {
		return &models.ScheduleStats{}, nil
	}
	insights, err := s.Insights(record)
	if err != nil {
		return nil, err
	}
	weekly := 0
	for _, subject := range record.Input.Subjects {
		weekly += subject.ClassesPerWeek
	}
	return &models.ScheduleStats{
		TotalRooms:     len(record.Input.Rooms),
		ActiveFaculty:  insights.ActiveFaculty,
		WeeklyClasses:  weekly,
		AvgUtilization: insights.AvgUtilization,
	}, nil
}

// RoomSchedule materializes the full weekly slot grid for one room, with
// break slots flagged and committed assignments filled in.
func (s *InsightsService) RoomSchedule(record *models.ScheduleRecord, roomID string) (*models.RoomSchedule, error) {
	if record == nil {
		return nil, appErrors.ErrNoSchedule
	}
	if !containsString(record.Input.Rooms, roomID) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "room not found")
	}
	sc, err := s.newSlotContext(record.Input)
	if err != nil {
		return nil, err
	}

	schedule := make(models.DaySchedule, len(models.Weekdays))
	occupied, total := 0, 0
	for _, day := range models.Weekdays {
		rows := s.slotRows(sc, day)
		for i, slot := range sc.slots {
			if rows[i].IsBreak {
				continue
			}
			total++
			if assignment, ok := overlappingAssignment(record.Grid[day], slot, func(a models.Assignment) bool {
				return a.Room == roomID
			}); ok {
				rows[i].Subject = assignment.Subject
				rows[i].Faculty = assignment.Faculty
				rows[i].Room = roomID
				occupied++
			}
		}
		schedule[day] = rows
	}

	return &models.RoomSchedule{
		RoomID:      roomID,
		Schedule:    schedule,
		Utilization: ratio(occupied, total),
		Conflicts:   countRoomOverlaps(record.Grid, roomID),
	}, nil
}

// FacultySchedule materializes the weekly view for one faculty member.
func (s *InsightsService) FacultySchedule(record *models.ScheduleRecord, facultyID string) (*models.FacultySchedule, error) {
	if record == nil {
		return nil, appErrors.ErrNoSchedule
	}
	name, subjects := facultyDetails(record.Input, facultyID)
	if name == "" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "faculty not found")
	}
	sc, err := s.newSlotContext(record.Input)
	if err != nil {
		return nil, err
	}

	schedule := make(models.DaySchedule, len(models.Weekdays))
	minutes := 0
	for _, day := range models.Weekdays {
		rows := s.slotRows(sc, day)
		for i, slot := range sc.slots {
			if rows[i].IsBreak {
				continue
			}
			if assignment, ok := overlappingAssignment(record.Grid[day], slot, func(a models.Assignment) bool {
				return a.FacultyID == facultyID
			}); ok {
				rows[i].Subject = assignment.Subject
				rows[i].Faculty = assignment.Faculty
				rows[i].Room = assignment.Room
			}
		}
		schedule[day] = rows
		for _, assignment := range record.Grid[day] {
			if assignment.FacultyID == facultyID {
				minutes += assignment.Duration
			}
		}
	}

	return &models.FacultySchedule{
		FacultyID:     facultyID,
		Name:          name,
		Schedule:      schedule,
		TeachingHours: round2(float64(minutes) / 60),
		Subjects:      subjects,
	}, nil
}

func (s *InsightsService) slotRows(sc *slotContext, day string) []models.GridSlot {
	rows := make([]models.GridSlot, len(sc.slots))
	for i, slot := range sc.slots {
		rows[i] = models.GridSlot{
			StartTime: timegrid.ToClock(slot.Start),
			EndTime:   timegrid.ToClock(slot.End),
			IsBreak:   sc.breakMap[day][i],
		}
	}
	return rows
}

func (s *InsightsService) roomOccupancy(sc *slotContext, grid models.WeeklyGrid, room string) (occupied, total int) {
	for _, day := range models.Weekdays {
		total += sc.nonBreak[day]
		for i, slot := range sc.slots {
			if sc.breakMap[day][i] {
				continue
			}
			if _, ok := overlappingAssignment(grid[day], slot, func(a models.Assignment) bool {
				return a.Room == room
			}); ok {
				occupied++
			}
		}
	}
	return occupied, total
}

// peakTime is the discretization slot with the most simultaneous
// assignments across all rooms; "N/A" for an empty grid. Earlier slots win
// ties.
func (s *InsightsService) peakTime(sc *slotContext, grid models.WeeklyGrid) string {
	best, bestCount := -1, 0
	for i, slot := range sc.slots {
		count := 0
		for _, day := range models.Weekdays {
			for _, assignment := range grid[day] {
				start, err := timegrid.ToMinutes(assignment.StartTime)
				if err != nil {
					continue
				}
				if timegrid.Overlaps(slot.Start, slot.End, start, start+assignment.Duration) {
					count++
				}
			}
		}
		if count > bestCount {
			best, bestCount = i, count
		}
	}
	if best < 0 {
		return "N/A"
	}
	return fmt.Sprintf("%s-%s", timegrid.ToClock(sc.slots[best].Start), timegrid.ToClock(sc.slots[best].End))
}

func (s *InsightsService) recommendations(utilization []models.RoomUtilization) []models.Recommendation {
	recommendations := make([]models.Recommendation, 0, 2)

	under := 0
	over := 0
	for _, room := range utilization {
		if room.Utilization < s.cfg.LowUtilization {
			under++
		}
		if room.Utilization > s.cfg.HighUtilization {
			over++
		}
	}

	if under > 0 {
		recommendations = append(recommendations, models.Recommendation{
			Type:        models.RecommendationEfficiency,
			Title:       "Underutilized Rooms",
			Description: fmt.Sprintf("%d rooms have low utilization. Consider reassigning classes or reviewing schedule.", under),
		})
	}
	if over > 0 {
		recommendations = append(recommendations, models.Recommendation{
			Type:        models.RecommendationOptimization,
			Title:       "Optimize Peak Hours",
			Description: "Some rooms are overutilized. Consider redistributing classes to balance load.",
		})
	}
	return recommendations
}

// --- Roster helpers ---

// facultyRoster lists each faculty member once, in first-appearance order.
func facultyRoster(input models.ScheduleInput) []models.FacultyRef {
	seen := make(map[string]struct{})
	roster := make([]models.FacultyRef, 0)
	for _, subject := range input.Subjects {
		for _, faculty := range subject.Faculty {
			if _, ok := seen[faculty.ID]; ok {
				continue
			}
			seen[faculty.ID] = struct{}{}
			roster = append(roster, models.FacultyRef{ID: faculty.ID, Name: faculty.Name})
		}
	}
	return roster
}

func facultyDetails(input models.ScheduleInput, facultyID string) (name string, subjects []string) {
	subjects = make([]string, 0)
	for _, subject := range input.Subjects {
		for _, faculty := range subject.Faculty {
			if faculty.ID != facultyID {
				continue
			}
			if name == "" {
				name = faculty.Name
			}
			if !containsString(subjects, subject.Name) {
				subjects = append(subjects, subject.Name)
			}
		}
	}
	return name, subjects
}

func observedRooms(grid models.WeeklyGrid) []string {
	seen := make(map[string]struct{})
	rooms := make([]string, 0)
	for _, day := range models.Weekdays {
		for _, assignment := range grid[day] {
			if _, ok := seen[assignment.Room]; ok {
				continue
			}
			seen[assignment.Room] = struct{}{}
			rooms = append(rooms, assignment.Room)
		}
	}
	sort.Strings(rooms)
	return rooms
}

func overlappingAssignment(assignments []models.Assignment, slot timegrid.Interval, match func(models.Assignment) bool) (models.Assignment, bool) {
	for _, assignment := range assignments {
		if !match(assignment) {
			continue
		}
		start, err := timegrid.ToMinutes(assignment.StartTime)
		if err != nil {
			continue
		}
		if timegrid.Overlaps(slot.Start, slot.End, start, start+assignment.Duration) {
			return assignment, true
		}
	}
	return models.Assignment{}, false
}

func countRoomOverlaps(grid models.WeeklyGrid, room string) int {
	conflicts := 0
	for _, day := range models.Weekdays {
		var intervals []timegrid.Interval
		for _, assignment := range grid[day] {
			if assignment.Room != room {
				continue
			}
			start, err := timegrid.ToMinutes(assignment.StartTime)
			if err != nil {
				continue
			}
			intervals = append(intervals, timegrid.Interval{Start: start, End: start + assignment.Duration})
		}
		for i := 0; i < len(intervals); i++ {
			for j := i + 1; j < len(intervals); j++ {
				if timegrid.Overlaps(intervals[i].Start, intervals[i].End, intervals[j].Start, intervals[j].End) {
					conflicts++
				}
			}
		}
	}
	return conflicts
}

func containsString(items []string, target string) bool {
	for _, item := range items {
		if item == target {
			return true
		}
	}
	return false
}

func ratio(occupied, total int) float64 {
	if total == 0 {
		return 0
	}
	return round2(float64(occupied) / float64(total) * 100)
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}
