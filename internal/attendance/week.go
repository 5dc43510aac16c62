package attendance

import (
	"strings"
	"time"

	"schoolrecords/internal/shared"
)

// WeekSelector names the week window a summary is computed over,
// relative to today.
type WeekSelector string

const (
	WeekCurrent       WeekSelector = "current"
	WeekPrevious      WeekSelector = "previous"
	WeekTwoWeeksAgo   WeekSelector = "twoWeeksAgo"
	WeekThreeWeeksAgo WeekSelector = "threeWeeksAgo"
	WeekFourWeeksAgo  WeekSelector = "fourWeeksAgo"
)

// Valid returns true when the selector is a supported value.
func (w WeekSelector) Valid() bool {
	switch w {
	case WeekCurrent, WeekPrevious, WeekTwoWeeksAgo, WeekThreeWeeksAgo, WeekFourWeeksAgo:
		return true
	default:
		return false
	}
}

// offsetDays returns how many days before the current week the selected
// window starts.
func (w WeekSelector) offsetDays() int {
	switch w {
	case WeekPrevious:
		return 7
	case WeekTwoWeeksAgo:
		return 14
	case WeekThreeWeeksAgo:
		return 21
	case WeekFourWeeksAgo:
		return 28
	default:
		return 0
	}
}

// dayBuckets maps stored weekday codes to the summary's canonical buckets.
var dayBuckets = map[string]string{
	"M": "mon", "T": "tue", "W": "wed", "TH": "thu", "F": "fri", "S": "sat",
}

// WeekNumberInMonth buckets a date into week 1-5 of its month. Weeks run
// Monday through Sunday: the offset of the month's first day is taken
// from Monday, so a month starting midweek keeps its opening days in
// week 1. Callers rely on this exact bucketing; do not change it.
func WeekNumberInMonth(date time.Time) int {
	first := time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, date.Location())
	firstWeekday := (int(first.Weekday()) + 6) % 7 // Monday = 0
	adjustedDay := date.Day() + firstWeekday - 1
	return adjustedDay/7 + 1
}

// WeekWindow resolves the Monday-to-Sunday window for a selector relative
// to today. A Sunday "today" resolves to the Monday that follows it.
func WeekWindow(today time.Time, selector WeekSelector) (start, end time.Time) {
	day := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, today.Location())
	start = day.AddDate(0, 0, 1-int(day.Weekday()))
	start = start.AddDate(0, 0, -selector.offsetDays())
	end = start.AddDate(0, 0, 6)
	return start, end
}

// Recount rescans all five weeks of a student's attendance and recomputes
// the absent/tardy totals from the day-by-day data. It is re-run on every
// save so the stored totals can never drift from the underlying cells.
func Recount(record *shared.StudentWeekAttendance) {
	absent, tardy := 0, 0
	for _, week := range record.Weeks() {
		for _, code := range shared.DayCodes {
			switch {
			case strings.EqualFold(week[code], shared.AttendanceAbsent):
				absent++
			case strings.EqualFold(week[code], shared.AttendanceTardy):
				tardy++
			}
		}
	}
	record.Absent = absent
	record.Tardy = tardy
}
