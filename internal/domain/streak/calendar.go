package streak

import (
	"time"
)

// DayLayout is the calendar-day key format.
const DayLayout = "2006-01-02"

// Clock returns the current time.
type Clock func() time.Time

// Calendar turns instants into calendar-day keys in a fixed location.
type Calendar struct {
	loc *time.Location
	now Clock
}

// NewCalendar returns a calendar for loc. A nil loc means time.Local and a
// nil clock means time.Now.
func NewCalendar(loc *time.Location, now Clock) Calendar {
	if loc == nil {
		loc = time.Local
	}
	if now == nil {
		now = time.Now
	}
	return Calendar{loc: loc, now: now}
}

// Now returns the clock's time in the calendar location.
func (c Calendar) Now() time.Time {
	return c.now().In(c.loc)
}

// Today returns today's key.
func (c Calendar) Today() string {
	return c.Now().Format(DayLayout)
}

// Days returns today's and yesterday's keys.
func (c Calendar) Days() (today, yesterday string) {
	now := c.Now()
	return now.Format(DayLayout), now.AddDate(0, 0, -1).Format(DayLayout)
}

// Location returns the calendar location.
func (c Calendar) Location() *time.Location {
	return c.loc
}
