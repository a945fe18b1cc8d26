package alpacaclient

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func etLocation(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	return loc
}

// sessionWeek covers the week of 2025-03-10. Thursday is omitted to stand in
// for a holiday and Friday closes early at 13:00.
func sessionWeek(loc *time.Location) map[string]sessionHours {
	days := map[string]sessionHours{}
	add := func(date string, closeHour int) {
		d, _ := time.ParseInLocation("2006-01-02", date, loc)
		days[date] = sessionHours{
			open:  time.Date(d.Year(), d.Month(), d.Day(), 9, 30, 0, 0, loc),
			close: time.Date(d.Year(), d.Month(), d.Day(), closeHour, 0, 0, 0, loc),
		}
	}
	add("2025-03-10", 16)
	add("2025-03-11", 16)
	add("2025-03-12", 16)
	add("2025-03-14", 13)
	add("2025-03-17", 16)
	return days
}

func TestClassifySession(t *testing.T) {
	loc := etLocation(t)
	days := sessionWeek(loc)

	et := func(day, hour, min int) time.Time {
		return time.Date(2025, 3, day, hour, min, 0, 0, loc)
	}

	tests := []struct {
		name     string
		at       time.Time
		wantText string
		wantOpen bool
	}{
		{"regular session", et(10, 10, 30), "Market Open", true},
		{"open boundary is inside the session", et(10, 9, 30), "Market Open", true},
		{"last minute of session", et(10, 15, 59), "Market Open", true},
		{"close boundary is after hours", et(10, 16, 0), "After-Hours", false},
		{"pre-market", et(10, 8, 0), "Pre-Market", false},
		{"before pre-market", et(10, 3, 59), "Market Closed", false},
		{"after-hours cutoff", et(10, 20, 0), "Market Closed", false},
		{"saturday", et(15, 12, 0), "Market Closed (Weekend)", false},
		{"sunday", et(16, 12, 0), "Market Closed (Weekend)", false},
		{"holiday", et(13, 12, 0), "Market Closed (Holiday)", false},
		{"early close still open before the bell", et(14, 12, 59), "Market Open", true},
		{"early close afternoon", et(14, 14, 0), "After-Hours", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status := classifySession(tt.at, days, loc)
			assert.Equal(t, tt.wantText, status.StatusText())
			assert.Equal(t, tt.wantOpen, status.IsOpen)
		})
	}
}

func TestClassifySession_ConvertsToExchangeTime(t *testing.T) {
	loc := etLocation(t)
	days := sessionWeek(loc)

	// 14:30 UTC on 2025-03-10 is 10:30 EDT.
	status := classifySession(time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC), days, loc)
	assert.True(t, status.IsOpen)
	assert.Equal(t, "Market Open", status.StatusText())
}

func TestClassifySession_NextTransitions(t *testing.T) {
	loc := etLocation(t)
	days := sessionWeek(loc)

	et := func(day, hour, min int) time.Time {
		return time.Date(2025, 3, day, hour, min, 0, 0, loc)
	}

	tests := []struct {
		name      string
		at        time.Time
		wantOpen  time.Time
		wantClose time.Time
	}{
		{"pre-market points at today", et(10, 8, 0), et(10, 9, 30), et(10, 16, 0)},
		{"during session", et(10, 10, 30), et(11, 9, 30), et(10, 16, 0)},
		{"evening points at tomorrow", et(10, 18, 0), et(11, 9, 30), et(11, 16, 0)},
		{"holiday skips to friday", et(13, 12, 0), et(14, 9, 30), et(14, 13, 0)},
		{"weekend skips to monday", et(15, 12, 0), et(17, 9, 30), et(17, 16, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status := classifySession(tt.at, days, loc)
			assert.Equal(t, tt.wantOpen, status.NextOpen)
			assert.Equal(t, tt.wantClose, status.NextClose)
		})
	}
}

func TestNextTransitions_EmptyCalendar(t *testing.T) {
	loc := etLocation(t)

	status := classifySession(time.Date(2025, 3, 10, 10, 0, 0, 0, loc), map[string]sessionHours{}, loc)
	assert.True(t, status.NextOpen.IsZero())
	assert.True(t, status.NextClose.IsZero())
	assert.True(t, status.IsHoliday) // weekday absent from an empty calendar
}
