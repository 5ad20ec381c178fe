package tariff

import "time"

// SeasonOf depends on the month only: November to February is the higher season.
func SeasonOf(t time.Time) Season {
	switch t.Month() {
	case time.November, time.December, time.January, time.February:
		return SeasonHigher
	default:
		return SeasonLower
	}
}

// DayTypeOf classifies Saturdays, Sundays and holidays as WeekendOrHoliday,
// including holidays that fall on a working day.
func DayTypeOf(t time.Time) DayType {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return WeekendOrHoliday
	}
	if IsHoliday(t) {
		return WeekendOrHoliday
	}
	return Weekday
}

// EnergyTariffOf returns Peak on working days from 06:00 up to but not
// including 22:00, and OffPeak otherwise.
func EnergyTariffOf(t time.Time) EnergyTariff {
	if DayTypeOf(t) == WeekendOrHoliday {
		return OffPeak
	}
	if h := t.Hour(); h >= 6 && h < 22 {
		return Peak
	}
	return OffPeak
}
