package alpacaclient

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"

	"vwapReversionBot/internal/domain"
)

const (
	// Extended-hours boundaries in exchange local time.
	preMarketOpenHour   = 4  // 4:00 AM ET
	afterHoursCloseHour = 20 // 8:00 PM ET

	// calendarLookaheadDays is how far past the current day each calendar
	// fetch extends, so the next open/close is always resolvable.
	calendarLookaheadDays = 14
)

// sessionHours is one trading day's regular session window in exchange time.
// The close is taken from the exchange calendar, so early-close days carry
// their shortened session.
type sessionHours struct {
	open  time.Time
	close time.Time
}

// SessionStatus classifies the given instant against the exchange trading
// calendar and reports the next scheduled open and close.
func (c *Client) SessionStatus(ctx context.Context, at time.Time) (*domain.SessionStatus, error) {
	if err := c.ensureCalendar(ctx, at); err != nil {
		return nil, err
	}

	c.calMu.Lock()
	days := c.calDays
	c.calMu.Unlock()

	return classifySession(at, days, c.loc), nil
}

// ensureCalendar fetches the trading calendar covering the requested instant.
// The cache is keyed to the exchange-local date, so the calendar endpoint is
// hit at most once per day.
func (c *Client) ensureCalendar(ctx context.Context, at time.Time) error {
	op := "GetCalendar"
	day := at.In(c.loc).Format("2006-01-02")

	c.calMu.Lock()
	defer c.calMu.Unlock()
	if c.calDays != nil && c.calDay == day {
		return nil
	}

	et := at.In(c.loc)
	start := time.Date(et.Year(), et.Month(), et.Day(), 0, 0, 0, 0, c.loc)
	end := start.AddDate(0, 0, calendarLookaheadDays)

	calendarDays, err := c.trading.GetCalendar(alpaca.GetCalendarRequest{Start: start, End: end})
	if err != nil {
		return c.handleError(ctx, err, op)
	}

	parsed := make(map[string]sessionHours, len(calendarDays))
	for _, d := range calendarDays {
		open, err := time.ParseInLocation("2006-01-02 15:04", d.Date+" "+d.Open, c.loc)
		if err != nil {
			return c.handleError(ctx, fmt.Errorf("could not parse calendar open '%s %s': %w", d.Date, d.Open, err), op)
		}
		closeAt, err := time.ParseInLocation("2006-01-02 15:04", d.Date+" "+d.Close, c.loc)
		if err != nil {
			return c.handleError(ctx, fmt.Errorf("could not parse calendar close '%s %s': %w", d.Date, d.Close, err), op)
		}
		parsed[d.Date] = sessionHours{open: open, close: closeAt}
	}

	c.calDays = parsed
	c.calDay = day
	c.logger.Debug(ctx, "Trading calendar refreshed", map[string]interface{}{
		"from": start.Format("2006-01-02"),
		"to":   end.Format("2006-01-02"),
		"days": len(parsed),
	})
	return nil
}

// classifySession maps an instant onto the session flags. Weekends are
// determined by weekday; a weekday absent from the trading calendar is a
// holiday. Pre-market and after-hours bracket the regular session between
// 4:00 and 20:00 exchange time.
func classifySession(at time.Time, days map[string]sessionHours, loc *time.Location) *domain.SessionStatus {
	et := at.In(loc)
	status := &domain.SessionStatus{}

	weekday := et.Weekday()
	hours, isTradingDay := days[et.Format("2006-01-02")]

	switch {
	case weekday == time.Saturday || weekday == time.Sunday:
		status.IsWeekend = true
	case !isTradingDay:
		status.IsHoliday = true
	default:
		preOpen := time.Date(et.Year(), et.Month(), et.Day(), preMarketOpenHour, 0, 0, 0, loc)
		postClose := time.Date(et.Year(), et.Month(), et.Day(), afterHoursCloseHour, 0, 0, 0, loc)
		switch {
		case !et.Before(hours.open) && et.Before(hours.close):
			status.IsOpen = true
		case !et.Before(preOpen) && et.Before(hours.open):
			status.IsPreMarket = true
		case !et.Before(hours.close) && et.Before(postClose):
			status.IsAfterHours = true
		}
	}

	status.NextOpen, status.NextClose = nextTransitions(et, days)
	return status
}

// nextTransitions finds the first session open and close after the instant.
// Date-string keys sort chronologically.
func nextTransitions(et time.Time, days map[string]sessionHours) (time.Time, time.Time) {
	keys := make([]string, 0, len(days))
	for k := range days {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var nextOpen, nextClose time.Time
	for _, k := range keys {
		hours := days[k]
		if nextOpen.IsZero() && hours.open.After(et) {
			nextOpen = hours.open
		}
		if nextClose.IsZero() && hours.close.After(et) {
			nextClose = hours.close
		}
		if !nextOpen.IsZero() && !nextClose.IsZero() {
			break
		}
	}
	return nextOpen, nextClose
}
