package domain

import "time"

// SessionStatus classifies a point in time against the exchange trading
// calendar. Orders are only ever submitted while IsOpen is true; the other
// flags exist for display and logging.
type SessionStatus struct {
	IsOpen       bool // Inside regular trading hours
	IsPreMarket  bool // Trading day, before the regular session
	IsAfterHours bool // Trading day, after the regular session
	IsWeekend    bool
	IsHoliday    bool // Weekday with no scheduled session
	NextOpen     time.Time
	NextClose    time.Time
}

// StatusText renders the classification as the operator-facing status line.
func (s SessionStatus) StatusText() string {
	switch {
	case s.IsHoliday:
		return "Market Closed (Holiday)"
	case s.IsWeekend:
		return "Market Closed (Weekend)"
	case s.IsOpen:
		return "Market Open"
	case s.IsPreMarket:
		return "Pre-Market"
	case s.IsAfterHours:
		return "After-Hours"
	default:
		return "Market Closed"
	}
}
