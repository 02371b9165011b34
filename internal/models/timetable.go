package models

import "time"

// Weekdays is the fixed iteration order of the allocation engine. Sunday is
// never scheduled.
var Weekdays = []string{"MONDAY", "TUESDAY", "WEDNESDAY", "THURSDAY", "FRIDAY", "SATURDAY"}

// AllDays marks a break period that recurs on every weekday.
const AllDays = "ALL_DAYS"

// IsWeekday reports whether name is one of the schedulable weekdays.
func IsWeekday(name string) bool {
	for _, day := range Weekdays {
		if day == name {
			return true
		}
	}
	return false
}

// InstitutionWindow holds the daily operating bounds shared by all rooms.
type InstitutionWindow struct {
	StartTime string `json:"startTime" validate:"required"`
	EndTime   string `json:"endTime" validate:"required"`
}

// BreakPeriod is a recurring interval during which no class may be
// scheduled. Day may be a weekday name or AllDays.
type BreakPeriod struct {
	Day       string `json:"day" validate:"required"`
	StartTime string `json:"startTime" validate:"required"`
	EndTime   string `json:"endTime" validate:"required"`
}

// AvailabilityWindow is a faculty member's declared free interval on a
// given weekday.
type AvailabilityWindow struct {
	Day       string `json:"day" validate:"required"`
	StartTime string `json:"startTime" validate:"required"`
	EndTime   string `json:"endTime" validate:"required"`
}

// Faculty teaches one or more subjects. The same member may appear under
// multiple subjects with the same ID.
type Faculty struct {
	ID           string               `json:"id" validate:"required"`
	Name         string               `json:"name" validate:"required"`
	Availability []AvailabilityWindow `json:"availability" validate:"dive"`
}

// Subject captures one subject's weekly demand. Each listed faculty member
// independently pursues ClassesPerWeek placements.
type Subject struct {
	Name           string    `json:"name" validate:"required"`
	Duration       int       `json:"duration" validate:"required,min=1"`
	ClassesPerWeek int       `json:"no_of_classes_per_week" validate:"required,min=1"`
	Faculty        []Faculty `json:"faculty" validate:"required,min=1,dive"`
}

// ScheduleInput is the immutable bundle a scheduling run consumes.
type ScheduleInput struct {
	InstitutionWindow InstitutionWindow `json:"college_time" validate:"required"`
	BreakPeriods      []BreakPeriod     `json:"break_periods" validate:"dive"`
	Rooms             []string          `json:"rooms" validate:"required,min=1"`
	Subjects          []Subject         `json:"subjects" validate:"required,min=1,dive"`
}

// Assignment is one committed (subject, faculty, room, day, time) placement.
// Immutable once written into the grid.
type Assignment struct {
	Day       string `json:"day"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Subject   string `json:"subject"`
	Faculty   string `json:"faculty"`
	FacultyID string `json:"facultyId"`
	Room      string `json:"room"`
	Duration  int    `json:"duration"`
}

// WeeklyGrid maps weekday names to assignments sorted ascending by start
// time.
type WeeklyGrid map[string][]Assignment

// FacultyRef identifies a faculty member in roster listings.
type FacultyRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ScheduleRecord is the persisted document: the last accepted input bundle
// together with the grid and conflicts generated from it. Superseded in
// full by the next accepted run.
type ScheduleRecord struct {
	ID        string        `json:"id"`
	Input     ScheduleInput `json:"input"`
	Grid      WeeklyGrid    `json:"grid,omitempty"`
	Conflicts []string      `json:"conflicts,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}
