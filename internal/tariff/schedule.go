package tariff

import (
	"strconv"
	"strings"
	"time"
)

// Slot maps an inclusive "HH:MM" range to a network block. An End of
// "24:00" is compared as "23:59" since the clock has minute granularity.
type Slot struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Block Block  `json:"block"`
}

// Schedule is an ordered, full-day sequence of slots. Adjacent slots share
// their boundary minute; the earlier slot wins because lookup stops at the
// first match.
type Schedule []Slot

var WeekdayScheduleHigher = Schedule{
	{Start: "00:00", End: "06:00", Block: 3},
	{Start: "06:00", End: "07:00", Block: 2},
	{Start: "07:00", End: "14:00", Block: 1},
	{Start: "14:00", End: "16:00", Block: 2},
	{Start: "16:00", End: "20:00", Block: 1},
	{Start: "20:00", End: "22:00", Block: 2},
	{Start: "22:00", End: "24:00", Block: 3},
}

var WeekdayScheduleLower = Schedule{
	{Start: "00:00", End: "06:00", Block: 4},
	{Start: "06:00", End: "07:00", Block: 3},
	{Start: "07:00", End: "14:00", Block: 2},
	{Start: "14:00", End: "16:00", Block: 3},
	{Start: "16:00", End: "20:00", Block: 2},
	{Start: "20:00", End: "22:00", Block: 3},
	{Start: "22:00", End: "24:00", Block: 4},
}

var WeekendHolidayScheduleHigher = Schedule{
	{Start: "00:00", End: "06:00", Block: 4},
	{Start: "06:00", End: "07:00", Block: 3},
	{Start: "07:00", End: "14:00", Block: 2},
	{Start: "14:00", End: "16:00", Block: 3},
	{Start: "16:00", End: "20:00", Block: 2},
	{Start: "20:00", End: "22:00", Block: 3},
	{Start: "22:00", End: "24:00", Block: 4},
}

var WeekendHolidayScheduleLower = Schedule{
	{Start: "00:00", End: "06:00", Block: 5},
	{Start: "06:00", End: "07:00", Block: 4},
	{Start: "07:00", End: "14:00", Block: 3},
	{Start: "14:00", End: "16:00", Block: 4},
	{Start: "16:00", End: "20:00", Block: 3},
	{Start: "20:00", End: "22:00", Block: 4},
	{Start: "22:00", End: "24:00", Block: 5},
}

// ScheduleFor selects one of the four compiled schedules.
func ScheduleFor(season Season, dayType DayType) Schedule {
	if dayType == WeekendOrHoliday {
		if season == SeasonHigher {
			return WeekendHolidayScheduleHigher
		}
		return WeekendHolidayScheduleLower
	}
	if season == SeasonHigher {
		return WeekdayScheduleHigher
	}
	return WeekdayScheduleLower
}

// BlockAt returns the block of the first slot containing minute (minutes
// since midnight). Slots whose bounds do not parse are skipped.
func (s Schedule) BlockAt(minute int) (Block, bool) {
	for _, slot := range s {
		start, ok := parseClock(slot.Start)
		if !ok {
			continue
		}
		end, ok := parseClock(slot.End)
		if !ok {
			continue
		}
		if start <= minute && minute <= end {
			return slot.Block, true
		}
	}
	return 0, false
}

// ResolveBlock looks t's wall-clock minute up in s, falling back to
// DefaultBlock when no slot matches.
func ResolveBlock(s Schedule, t time.Time) Block {
	if b, ok := s.BlockAt(MinuteOfDay(t)); ok {
		return b
	}
	return DefaultBlock
}

// CurrentBlock returns the network block active at t.
func CurrentBlock(t time.Time) Block {
	return ResolveBlock(ScheduleFor(SeasonOf(t), DayTypeOf(t)), t)
}

// MinuteOfDay truncates t to its HH:MM and returns minutes since midnight.
func MinuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

const lastMinute = 23*60 + 59

func parseClock(s string) (int, bool) {
	if s == "24:00" {
		return lastMinute, true
	}
	hh, mm, found := strings.Cut(s, ":")
	if !found || len(hh) != 2 || len(mm) != 2 {
		return 0, false
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, false
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}
