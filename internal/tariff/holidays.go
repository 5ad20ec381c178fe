package tariff

import "time"

const holidayLayout = "01-02"

// FixedHolidays are the Slovenian public holidays with a fixed calendar date.
var FixedHolidays = []string{
	"01-01", // New Year's Day
	"01-02", // New Year's Day, second day
	"02-08", // Prešeren Day
	"04-27", // Day of Uprising Against Occupation
	"05-01", // Labour Day
	"05-02", // Labour Day, second day
	"06-25", // Statehood Day
	"08-15", // Assumption Day
	"10-31", // Reformation Day
	"11-01", // Remembrance Day
	"12-25", // Christmas Day
	"12-26", // Independence and Unity Day
}

// EasterSunday returns the Gregorian Easter Sunday of year, at midnight UTC.
func EasterSunday(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	n := h + l - 7*m + 114
	month := n / 31
	day := n%31 + 1
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// HolidaysForYear returns the fixed holidays followed by Easter Monday and
// Whit Sunday of year, formatted as "MM-DD". The moving dates depend on
// the year, so the result must not be reused across years.
func HolidaysForYear(year int) []string {
	out := make([]string, 0, len(FixedHolidays)+2)
	out = append(out, FixedHolidays...)

	easter := EasterSunday(year)
	out = append(out, easter.AddDate(0, 0, 1).Format(holidayLayout))
	out = append(out, easter.AddDate(0, 0, 49).Format(holidayLayout))
	return out
}

// IsHoliday reports whether t's calendar date, in t's own location, is a
// holiday of t's own year.
func IsHoliday(t time.Time) bool {
	key := t.Format(holidayLayout)
	for _, h := range HolidaysForYear(t.Year()) {
		if h == key {
			return true
		}
	}
	return false
}
