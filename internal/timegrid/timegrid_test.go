package timegrid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToMinutes(t *testing.T) {
	cases := []struct {
		clock string
		want  int
	}{
		{"00:00", 0},
		{"09:30", 570},
		{"13:05", 785},
		{"23:59", 1439},
	}
	for _, tc := range cases {
		got, err := ToMinutes(tc.clock)
		require.NoError(t, err, tc.clock)
		assert.Equal(t, tc.want, got, tc.clock)
	}
}

func TestToMinutesRejectsMalformedInput(t *testing.T) {
	for _, clock := range []string{"", "930", "9:3:0", "ab:cd", "24:00", "12:60", "-1:00"} {
		_, err := ToMinutes(clock)
		require.Error(t, err, clock)
		var formatErr *FormatError
		assert.ErrorAs(t, err, &formatErr, clock)
	}
}

func TestClockRoundTrip(t *testing.T) {
	for m := 0; m < MinutesPerDay; m++ {
		got, err := ToMinutes(ToClock(m))
		require.NoError(t, err)
		require.Equal(t, m, got)
	}
}

func TestOverlaps(t *testing.T) {
	assert.True(t, Overlaps(570, 620, 600, 650))
	assert.True(t, Overlaps(600, 650, 570, 620))
	assert.True(t, Overlaps(570, 650, 600, 620))
	// Touching endpoints do not overlap.
	assert.False(t, Overlaps(570, 620, 620, 670))
	assert.False(t, Overlaps(620, 670, 570, 620))
	assert.False(t, Overlaps(570, 620, 700, 750))
}

func TestSlots(t *testing.T) {
	slots := Slots(570, 990, 50)

	require.Len(t, slots, (990-570)/50)
	for i, slot := range slots {
		assert.Equal(t, 50, slot.End-slot.Start)
		if i > 0 {
			assert.Equal(t, slots[i-1].End, slot.Start)
		}
	}
	// The partial trailing slot is dropped rather than truncated.
	assert.LessOrEqual(t, slots[len(slots)-1].End, 990)
}

func TestSlotsEmptyAndDegenerateRanges(t *testing.T) {
	assert.Empty(t, Slots(570, 570, 50))
	assert.Empty(t, Slots(570, 600, 50))
	assert.Empty(t, Slots(600, 570, 50))
	assert.Empty(t, Slots(570, 990, 0))
}
