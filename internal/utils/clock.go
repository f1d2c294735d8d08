package utils

import "time"

// Cabinets run on the Japanese calendar regardless of where the server
// lives, so schedule boundaries are computed in JST.
var jst = time.FixedZone("JST", 9*60*60)

// Clock supplies the current time and calendar boundary helpers. The
// zero value uses the wall clock; tests swap NowFunc.
type Clock struct {
	NowFunc func() time.Time
}

func (c Clock) Now() time.Time {
	if c.NowFunc != nil {
		return c.NowFunc()
	}
	return time.Now()
}

// BeginningOfDay returns local (JST) midnight at or before now.
func (c Clock) BeginningOfDay() time.Time {
	now := c.Now().In(jst)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, jst)
}

// EndOfDay returns the next local midnight after now.
func (c Clock) EndOfDay() time.Time {
	return c.BeginningOfDay().AddDate(0, 0, 1)
}

// BeginningOfWeek returns the most recent Monday midnight (JST) at or
// before now.
func (c Clock) BeginningOfWeek() time.Time {
	day := c.BeginningOfDay()
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// EndOfWeek returns the next Monday midnight after now.
func (c Clock) EndOfWeek() time.Time {
	return c.BeginningOfWeek().AddDate(0, 0, 7)
}

// SameDay reports whether two instants fall on the same JST calendar
// day.
func SameDay(a, b time.Time) bool {
	aj, bj := a.In(jst), b.In(jst)
	return aj.Year() == bj.Year() && aj.YearDay() == bj.YearDay()
}

// DaysApart returns the number of JST calendar-day boundaries between
// two instants (0 for same day, 1 for adjacent days).
func DaysApart(earlier, later time.Time) int {
	e := earlier.In(jst)
	l := later.In(jst)
	eday := time.Date(e.Year(), e.Month(), e.Day(), 0, 0, 0, 0, jst)
	lday := time.Date(l.Year(), l.Month(), l.Day(), 0, 0, 0, 0, jst)
	return int(lday.Sub(eday) / (24 * time.Hour))
}
