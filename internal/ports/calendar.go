package ports

import (
	"context"
	"time"

	"vwapReversionBot/internal/domain"
)

// MarketCalendar classifies instants against the exchange trading calendar.
// The polling loop consults it once per iteration and submits orders only
// while the regular session is open.
type MarketCalendar interface {
	// SessionStatus classifies the given instant (weekend, holiday,
	// pre-market, regular session, after-hours) and reports the next
	// scheduled open and close.
	SessionStatus(ctx context.Context, at time.Time) (*domain.SessionStatus, error)
}
