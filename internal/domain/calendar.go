package domain

import "time"

// DayWindow is one weekday's working window, in minutes from local
// midnight. A zero window (Open == Close) means the day is closed.
type DayWindow struct {
	Open  int
	Close int
}

// IsZero reports whether the window carries no working time.
func (w DayWindow) IsZero() bool {
	return w.Close <= w.Open
}

// BusinessCalendarConfig is the per-company working-time configuration:
// one window per weekday (indexed by time.Weekday), full-day holidays, and
// the single business time zone all windows are anchored to.
type BusinessCalendarConfig struct {
	CompanyID string
	Week      [7]DayWindow
	Holidays  []time.Time
	Location  *time.Location
}
