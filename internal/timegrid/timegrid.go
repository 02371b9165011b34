// Package timegrid converts between HH:MM clock strings and minute offsets
// and enumerates fixed-duration slots over a daily operating window.
package timegrid

import (
	"fmt"
	"strconv"
	"strings"
)

// MinutesPerDay bounds valid minute offsets.
const MinutesPerDay = 24 * 60

// FormatError reports a malformed clock time. It is fatal for a scheduling
// run: no partial grid is produced when any input time fails to parse.
type FormatError struct {
	Value string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("malformed time %q: expected HH:MM", e.Value)
}

// ToMinutes parses an HH:MM clock string into minutes since midnight.
func ToMinutes(clock string) (int, error) {
	parts := strings.Split(clock, ":")
	if len(parts) != 2 {
		return 0, &FormatError{Value: clock}
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, &FormatError{Value: clock}
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, &FormatError{Value: clock}
	}
	if hours < 0 || hours > 23 || minutes < 0 || minutes > 59 {
		return 0, &FormatError{Value: clock}
	}
	return hours*60 + minutes, nil
}

// ToClock renders minutes since midnight as zero-padded HH:MM. The caller
// guarantees 0 <= minutes < MinutesPerDay; no wrapping is performed.
func ToClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// Interval is a half-open [Start, End) range in minutes since midnight.
type Interval struct {
	Start int
	End   int
}

// Overlaps reports whether two half-open intervals intersect. Touching
// endpoints do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd int) bool {
	return aStart < bEnd && aEnd > bStart
}

// Slots enumerates consecutive non-overlapping intervals of exactly
// duration minutes starting at start. A slot is emitted only when its end
// does not exceed end; a partial trailing slot is dropped, not truncated.
func Slots(start, end, duration int) []Interval {
	if duration <= 0 {
		return nil
	}
	var slots []Interval
	for current := start; current+duration <= end; current += duration {
		slots = append(slots, Interval{Start: current, End: current + duration})
	}
	return slots
}
