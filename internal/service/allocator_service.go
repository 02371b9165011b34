package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campusworks/timetable-api/internal/models"
	"github.com/campusworks/timetable-api/internal/timegrid"
	appErrors "github.com/campusworks/timetable-api/pkg/errors"
)

// AllocatorConfig names the engine's discretization constants so tests can
// vary them. SlotMinutes is the probe granularity of the weekly grid; a
// subject's own duration decides each committed interval.
type AllocatorConfig struct {
	SlotMinutes int
	Days        []string
}

// AllocatorService is the greedy timetable allocation engine. Each run is
// a pure function of its input bundle: no state survives between calls and
// concurrent runs never share a grid.
type AllocatorService struct {
	validator *validator.Validate
	logger    *zap.Logger
	cfg       AllocatorConfig
}

// NewAllocatorService wires the engine with its discretization constants.
func NewAllocatorService(validate *validator.Validate, logger *zap.Logger, cfg AllocatorConfig) *AllocatorService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SlotMinutes <= 0 {
		cfg.SlotMinutes = 50
	}
	if len(cfg.Days) == 0 {
		cfg.Days = models.Weekdays
	}
	return &AllocatorService{validator: validate, logger: logger, cfg: cfg}
}

// Generate runs the greedy first-fit allocation over the input bundle and
// returns the committed grid grouped by weekday together with the recorded
// conflicts. Malformed time strings anywhere in the input abort the whole
// run; unmet targets and room exhaustion are reported as conflicts beside
// a best-effort grid.
func (s *AllocatorService) Generate(ctx context.Context, input models.ScheduleInput) (models.WeeklyGrid, []string, error) {
	if err := s.validator.StructCtx(ctx, input); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule input")
	}

	run, err := s.newRun(input)
	if err != nil {
		return nil, nil, err
	}

	for _, subject := range input.Subjects {
		for _, faculty := range subject.Faculty {
			run.allocate(subject, faculty)
		}
	}

	grid := run.grid(s.cfg.Days)
	s.logger.Info("schedule generated",
		zap.Int("assignments", len(run.assignments)),
		zap.Int("conflicts", len(run.conflicts)),
	)
	return grid, run.conflicts, nil
}

// allocationRun holds the mutable state of a single engine invocation.
type allocationRun struct {
	days        []string
	slots       []timegrid.Interval
	rooms       []string
	breaks      []dayInterval
	windows     map[string]map[string][]timegrid.Interval
	roomBusy    occupancyIndex
	facultyBusy occupancyIndex
	assignments []committedAssignment
	conflicts   []string
}

type dayInterval struct {
	Day      string
	Interval timegrid.Interval
}

type committedAssignment struct {
	models.Assignment
	startMin int
}

func (s *AllocatorService) newRun(input models.ScheduleInput) (*allocationRun, error) {
	winStart, err := parseClock(input.InstitutionWindow.StartTime)
	if err != nil {
		return nil, err
	}
	winEnd, err := parseClock(input.InstitutionWindow.EndTime)
	if err != nil {
		return nil, err
	}

	breaks := make([]dayInterval, 0, len(input.BreakPeriods))
	for _, period := range input.BreakPeriods {
		start, err := parseClock(period.StartTime)
		if err != nil {
			return nil, err
		}
		end, err := parseClock(period.EndTime)
		if err != nil {
			return nil, err
		}
		breaks = append(breaks, dayInterval{Day: period.Day, Interval: timegrid.Interval{Start: start, End: end}})
	}

	// Every availability window is parsed up front so a malformed time
	// string is a single terminal failure rather than a mid-run surprise.
	windows := make(map[string]map[string][]timegrid.Interval)
	for _, subject := range input.Subjects {
		for _, faculty := range subject.Faculty {
			if _, ok := windows[faculty.ID]; ok {
				continue
			}
			perDay := make(map[string][]timegrid.Interval)
			for _, window := range faculty.Availability {
				start, err := parseClock(window.StartTime)
				if err != nil {
					return nil, err
				}
				end, err := parseClock(window.EndTime)
				if err != nil {
					return nil, err
				}
				perDay[window.Day] = append(perDay[window.Day], timegrid.Interval{Start: start, End: end})
			}
			windows[faculty.ID] = perDay
		}
	}

	return &allocationRun{
		days:        s.cfg.Days,
		slots:       timegrid.Slots(winStart, winEnd, s.cfg.SlotMinutes),
		rooms:       input.Rooms,
		breaks:      breaks,
		windows:     windows,
		roomBusy:    make(occupancyIndex),
		facultyBusy: make(occupancyIndex),
	}, nil
}

// allocate walks days and candidate slots in fixed order for one
// (subject, faculty) pair, committing first-fit placements until the
// weekly target is met.
func (r *allocationRun) allocate(subject models.Subject, faculty models.Faculty) {
	target := subject.ClassesPerWeek
	scheduled := 0

	for _, day := range r.days {
		if scheduled >= target {
			break
		}
		windows := r.windows[faculty.ID][day]
		if len(windows) == 0 {
			continue
		}
		for _, slot := range r.slots {
			if scheduled >= target {
				break
			}
			slotEnd := slot.Start + subject.Duration

			if !withinAvailability(windows, slot.Start, slotEnd) {
				continue
			}
			if r.isBreak(day, slot.Start, slotEnd) {
				continue
			}
			// A slot where the faculty is already committed is skipped
			// silently: the shortfall, if any, is reported once against
			// the weekly target rather than per probe.
			if !r.facultyBusy.free(day, faculty.ID, slot.Start, slotEnd) {
				continue
			}

			room, ok := r.firstFreeRoom(day, slot.Start, slotEnd)
			if !ok {
				r.conflicts = append(r.conflicts, fmt.Sprintf(
					"Cannot schedule %s with %s on %s at %s - no available room",
					subject.Name, faculty.Name, day, timegrid.ToClock(slot.Start),
				))
				continue
			}

			r.commit(day, slot.Start, slotEnd, subject, faculty, room)
			scheduled++
		}
	}

	if scheduled < target {
		r.conflicts = append(r.conflicts, fmt.Sprintf(
			"Only scheduled %d/%d classes for %s with %s",
			scheduled, target, subject.Name, faculty.Name,
		))
	}
}

func (r *allocationRun) isBreak(day string, start, end int) bool {
	for _, period := range r.breaks {
		if period.Day != models.AllDays && period.Day != day {
			continue
		}
		if timegrid.Overlaps(start, end, period.Interval.Start, period.Interval.End) {
			return true
		}
	}
	return false
}

func (r *allocationRun) firstFreeRoom(day string, start, end int) (string, bool) {
	for _, room := range r.rooms {
		if r.roomBusy.free(day, room, start, end) {
			return room, true
		}
	}
	return "", false
}

func (r *allocationRun) commit(day string, start, end int, subject models.Subject, faculty models.Faculty, room string) {
	r.roomBusy.reserve(day, room, start, end)
	r.facultyBusy.reserve(day, faculty.ID, start, end)
	r.assignments = append(r.assignments, committedAssignment{
		Assignment: models.Assignment{
			Day:       day,
			StartTime: timegrid.ToClock(start),
			EndTime:   timegrid.ToClock(end),
			Subject:   subject.Name,
			Faculty:   faculty.Name,
			FacultyID: faculty.ID,
			Room:      room,
			Duration:  subject.Duration,
		},
		startMin: start,
	})
}

// grid groups the committed assignments by weekday, sorted ascending by
// start time within each day. Every weekday is present even when empty.
func (r *allocationRun) grid(days []string) models.WeeklyGrid {
	grid := make(models.WeeklyGrid, len(days))
	for _, day := range days {
		grid[day] = []models.Assignment{}
	}
	byDay := make(map[string][]committedAssignment)
	for _, committed := range r.assignments {
		byDay[committed.Day] = append(byDay[committed.Day], committed)
	}
	for day, committed := range byDay {
		sort.SliceStable(committed, func(i, j int) bool {
			return committed[i].startMin < committed[j].startMin
		})
		assignments := make([]models.Assignment, len(committed))
		for i, item := range committed {
			assignments[i] = item.Assignment
		}
		grid[day] = assignments
	}
	return grid
}

// withinAvailability reports whether some window fully contains
// [start, end].
func withinAvailability(windows []timegrid.Interval, start, end int) bool {
	for _, window := range windows {
		if window.Start <= start && end <= window.End {
			return true
		}
	}
	return false
}

// occupancyIndex tracks committed intervals keyed by (day, identity) so
// freedom checks are a lookup plus an interval scan over that key only.
type occupancyIndex map[occupancyKey][]timegrid.Interval

type occupancyKey struct {
	Day string
	ID  string
}

func (idx occupancyIndex) free(day, id string, start, end int) bool {
	for _, busy := range idx[occupancyKey{Day: day, ID: id}] {
		if timegrid.Overlaps(start, end, busy.Start, busy.End) {
			return false
		}
	}
	return true
}

func (idx occupancyIndex) reserve(day, id string, start, end int) {
	key := occupancyKey{Day: day, ID: id}
	intervals := idx[key]
	pos := sort.Search(len(intervals), func(i int) bool {
		return intervals[i].Start >= start
	})
	intervals = append(intervals, timegrid.Interval{})
	copy(intervals[pos+1:], intervals[pos:])
	intervals[pos] = timegrid.Interval{Start: start, End: end}
	idx[key] = intervals
}

func parseClock(clock string) (int, error) {
	minutes, err := timegrid.ToMinutes(clock)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrTimeFormat.Code, appErrors.ErrTimeFormat.Status, err.Error())
	}
	return minutes, nil
}
