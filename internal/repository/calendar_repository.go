package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/sla-engine/internal/domain"
)

// CalendarRepository assembles per-company working-time configuration from
// persisted hours and holidays. Companies with no persisted hours fall back
// to the service-wide default week.
type CalendarRepository interface {
	GetByCompany(ctx context.Context, companyID string) (*domain.BusinessCalendarConfig, error)
}

type calendarRepository struct {
	pool        *pgxpool.Pool
	loc         *time.Location
	defaultWeek [7]domain.DayWindow
}

// NewCalendarRepository constructs the repository. loc is the single
// business time zone all calendars are anchored to; defaultWeek applies to
// companies without business_hours rows.
func NewCalendarRepository(pool *pgxpool.Pool, loc *time.Location, defaultWeek [7]domain.DayWindow) CalendarRepository {
	if loc == nil {
		loc = time.UTC
	}
	return &calendarRepository{pool: pool, loc: loc, defaultWeek: defaultWeek}
}

func (r *calendarRepository) GetByCompany(ctx context.Context, companyID string) (*domain.BusinessCalendarConfig, error) {
	cfg := &domain.BusinessCalendarConfig{
		CompanyID: companyID,
		Location:  r.loc,
	}

	const hoursQuery = `
        SELECT weekday, open_minute, close_minute
        FROM business_hours WHERE company_id=$1 ORDER BY weekday`
	rows, err := r.pool.Query(ctx, hoursQuery, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	found := false
	for rows.Next() {
		var (
			weekday           int
			openMin, closeMin int
		)
		if err := rows.Scan(&weekday, &openMin, &closeMin); err != nil {
			return nil, err
		}
		if weekday < 0 || weekday > 6 {
			continue
		}
		cfg.Week[weekday] = domain.DayWindow{Open: openMin, Close: closeMin}
		found = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if !found {
		cfg.Week = r.defaultWeek
	}

	const holidaysQuery = `
        SELECT holiday FROM business_holidays WHERE company_id=$1 ORDER BY holiday`
	holidayRows, err := r.pool.Query(ctx, holidaysQuery, companyID)
	if err != nil {
		return nil, err
	}
	defer holidayRows.Close()

	for holidayRows.Next() {
		var day time.Time
		if err := holidayRows.Scan(&day); err != nil {
			return nil, err
		}
		// Re-anchor the civil date in the calendar zone; DATE columns scan
		// at UTC midnight.
		cfg.Holidays = append(cfg.Holidays,
			time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, r.loc))
	}
	if err := holidayRows.Err(); err != nil {
		return nil, err
	}

	return cfg, nil
}
