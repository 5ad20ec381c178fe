package tariff

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allSchedules = map[string]Schedule{
	"weekday/higher": WeekdayScheduleHigher,
	"weekday/lower":  WeekdayScheduleLower,
	"weekend/higher": WeekendHolidayScheduleHigher,
	"weekend/lower":  WeekendHolidayScheduleLower,
}

func TestSchedules_ContiguousFullDay(t *testing.T) {
	for name, s := range allSchedules {
		require.NotEmpty(t, s, name)
		assert.Equal(t, "00:00", s[0].Start, name)
		assert.Equal(t, "24:00", s[len(s)-1].End, name)
		for i := 1; i < len(s); i++ {
			assert.Equal(t, s[i-1].End, s[i].Start, "%s: slot %d must start where slot %d ends", name, i, i-1)
		}
	}
}

func TestSchedules_EveryMinuteResolves(t *testing.T) {
	for name, s := range allSchedules {
		for minute := 0; minute < 24*60; minute++ {
			b, ok := s.BlockAt(minute)
			require.True(t, ok, "%s: minute %d unmatched", name, minute)
			require.True(t, b.Valid(), "%s: minute %d block %d", name, minute, b)
		}
	}
}

func TestSchedules_BlockFiveOnlyInLowerWeekend(t *testing.T) {
	for name, s := range allSchedules {
		seen := map[Block]bool{}
		for minute := 0; minute < 24*60; minute++ {
			b, _ := s.BlockAt(minute)
			seen[b] = true
		}
		if name == "weekend/lower" {
			assert.True(t, seen[5], name)
		} else {
			assert.False(t, seen[5], name)
		}
	}
}

func TestScheduleFor(t *testing.T) {
	assert.Equal(t, WeekdayScheduleHigher, ScheduleFor(SeasonHigher, Weekday))
	assert.Equal(t, WeekdayScheduleLower, ScheduleFor(SeasonLower, Weekday))
	assert.Equal(t, WeekendHolidayScheduleHigher, ScheduleFor(SeasonHigher, WeekendOrHoliday))
	assert.Equal(t, WeekendHolidayScheduleLower, ScheduleFor(SeasonLower, WeekendOrHoliday))
}

func TestCurrentBlock_WeekdayHigherBoundaries(t *testing.T) {
	wed := func(hh, mm int) time.Time { return date(2025, 1, 15, hh, mm) }
	cases := []struct {
		at   time.Time
		want Block
	}{
		{wed(0, 0), 3},
		{wed(6, 0), 3}, // boundary minute stays with the earlier slot
		{wed(6, 1), 2},
		{wed(7, 0), 2},
		{wed(7, 1), 1},
		{wed(10, 0), 1},
		{wed(14, 0), 1},
		{wed(15, 0), 2},
		{wed(18, 30), 1},
		{wed(22, 0), 2},
		{wed(22, 1), 3},
		{wed(23, 59), 3},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, CurrentBlock(c.at), c.at.Format("15:04"))
	}
}

func TestCurrentBlock_IgnoresSeconds(t *testing.T) {
	ts := time.Date(2025, 1, 15, 23, 59, 59, 999, time.UTC)
	assert.Equal(t, Block(3), CurrentBlock(ts))
}

func TestCurrentBlock_LowerWeekendNight(t *testing.T) {
	// July 1, 2018 was a Sunday.
	assert.Equal(t, Block(5), CurrentBlock(date(2018, 7, 1, 23, 30)))
	assert.Equal(t, Block(5), CurrentBlock(date(2018, 7, 1, 3, 0)))
}

func TestCurrentBlock_WeekdayHolidayUsesWeekendSchedule(t *testing.T) {
	// Christmas 2025, Thursday, higher season.
	assert.Equal(t, Block(2), CurrentBlock(date(2025, 12, 25, 10, 0)))
	// Regular Thursday the week before.
	assert.Equal(t, Block(1), CurrentBlock(date(2025, 12, 18, 10, 0)))
}

func TestResolveBlock_FallsBackToDefault(t *testing.T) {
	partial := Schedule{{Start: "08:00", End: "09:00", Block: 1}}
	assert.Equal(t, Block(1), ResolveBlock(partial, date(2025, 1, 15, 8, 30)))
	assert.Equal(t, DefaultBlock, ResolveBlock(partial, date(2025, 1, 15, 10, 0)))

	malformed := Schedule{{Start: "8am", End: "9pm", Block: 1}, {Start: "25:00", End: "26:00", Block: 2}}
	assert.Equal(t, DefaultBlock, ResolveBlock(malformed, date(2025, 1, 15, 10, 0)))

	assert.Equal(t, DefaultBlock, ResolveBlock(nil, date(2025, 1, 15, 10, 0)))
}

func TestParseClock(t *testing.T) {
	for in, want := range map[string]int{"00:00": 0, "06:30": 390, "23:59": 1439, "24:00": 1439} {
		got, ok := parseClock(in)
		require.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	for _, bad := range []string{"", "6:00", "24:01", "12:60", "ab:cd", "1200"} {
		_, ok := parseClock(bad)
		assert.False(t, ok, bad)
	}
}
