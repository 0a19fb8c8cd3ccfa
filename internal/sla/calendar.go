// Package sla implements the business-time compliance engine: working
// calendars, status-derived accrual periods, policy resolution, and
// per-ticket evaluation.
package sla

import (
	"errors"
	"time"

	"github.com/spec-kit/sla-engine/internal/domain"
)

const dateLayout = "2006-01-02"

// maxCalendarScanDays bounds forward scans so a calendar with no working
// time can never spin an evaluation forever.
const maxCalendarScanDays = 366 * 5

// ErrCalendarExhausted is returned when a forward projection finds no
// working time within the scan horizon.
var ErrCalendarExhausted = errors.New("sla: no working time within calendar scan horizon")

// Calendar answers business-time questions for one company. It is
// immutable after construction and safe for concurrent use.
type Calendar struct {
	week     [7]domain.DayWindow
	holidays map[string]struct{}
	loc      *time.Location
}

// NewCalendar builds a Calendar from persisted configuration. A nil
// location falls back to UTC.
func NewCalendar(cfg domain.BusinessCalendarConfig) *Calendar {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	holidays := make(map[string]struct{}, len(cfg.Holidays))
	for _, h := range cfg.Holidays {
		holidays[h.In(loc).Format(dateLayout)] = struct{}{}
	}
	return &Calendar{week: cfg.Week, holidays: holidays, loc: loc}
}

// ElapsedBusinessTime returns the working time between start and end,
// intersecting each calendar day's window with [start, end). Instants
// outside working windows contribute nothing; end before start yields zero.
func (c *Calendar) ElapsedBusinessTime(start, end time.Time) time.Duration {
	if !end.After(start) {
		return 0
	}
	start = start.In(c.loc)
	end = end.In(c.loc)

	var total time.Duration
	y, m, d := start.Date()
	for day := time.Date(y, m, d, 0, 0, 0, 0, c.loc); day.Before(end); day = day.AddDate(0, 0, 1) {
		openAt, closeAt, ok := c.windowOn(day)
		if !ok {
			continue
		}
		if start.After(openAt) {
			openAt = start
		}
		if end.Before(closeAt) {
			closeAt = end
		}
		if closeAt.After(openAt) {
			total += closeAt.Sub(openAt)
		}
	}
	return total
}

// AddBusinessTime projects the instant at which d of working time will have
// accrued, starting from start. Time outside working windows is skipped.
// The scan is bounded; ErrCalendarExhausted signals a calendar that cannot
// absorb d within the horizon.
func (c *Calendar) AddBusinessTime(start time.Time, d time.Duration) (time.Time, error) {
	cur := start.In(c.loc)
	if d <= 0 {
		return cur, nil
	}
	remaining := d
	y, m, day := cur.Date()
	dayStart := time.Date(y, m, day, 0, 0, 0, 0, c.loc)
	for i := 0; i < maxCalendarScanDays; i++ {
		if openAt, closeAt, ok := c.windowOn(dayStart); ok {
			from := openAt
			if i == 0 && cur.After(from) {
				from = cur
			}
			if from.Before(closeAt) {
				avail := closeAt.Sub(from)
				if avail >= remaining {
					return from.Add(remaining), nil
				}
				remaining -= avail
			}
		}
		dayStart = dayStart.AddDate(0, 0, 1)
	}
	return time.Time{}, ErrCalendarExhausted
}

// windowOn resolves the working window for the day containing the given
// local midnight. Holidays and zero windows report ok=false.
func (c *Calendar) windowOn(day time.Time) (openAt, closeAt time.Time, ok bool) {
	if _, holiday := c.holidays[day.Format(dateLayout)]; holiday {
		return time.Time{}, time.Time{}, false
	}
	w := c.week[day.Weekday()]
	if w.IsZero() {
		return time.Time{}, time.Time{}, false
	}
	y, m, d := day.Date()
	openAt = time.Date(y, m, d, 0, w.Open, 0, 0, c.loc)
	closeAt = time.Date(y, m, d, 0, w.Close, 0, 0, c.loc)
	return openAt, closeAt, true
}
