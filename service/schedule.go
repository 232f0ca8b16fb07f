package service

import (
	"time"
	_ "time/tzdata"
)

// DefaultScheduleTimezone is the reference zone for deferred sends
const DefaultScheduleTimezone = "America/Chicago"

const scheduledSendHour = 9

// NextWeekdayMorning returns 09:00 in loc on the first weekday after now's
// date in loc, expressed in UTC. Saturdays and Sundays are skipped.
func NextWeekdayMorning(now time.Time, loc *time.Location) time.Time {
	local := now.In(loc)
	day := time.Date(local.Year(), local.Month(), local.Day()+1, scheduledSendHour, 0, 0, 0, loc)
	for day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
		day = time.Date(day.Year(), day.Month(), day.Day()+1, scheduledSendHour, 0, 0, 0, loc)
	}
	return day.UTC()
}

// LoadScheduleLocation resolves name, falling back to the default zone
func LoadScheduleLocation(name string) (*time.Location, error) {
	if name == "" {
		name = DefaultScheduleTimezone
	}
	return time.LoadLocation(name)
}
