package ports

import (
	"context"
	"time"

	"vwapReversionBot/internal/domain"
)

// TradeLog defines the interface for the append-only trade record store.
// Records feed reporting and displays only; they are never read back into
// trading decisions.
type TradeLog interface {
	// Append saves a new trade record and returns its assigned ID.
	Append(ctx context.Context, rec *domain.TradeRecord) (int64, error)
	// RecentTrades retrieves the most recent records, newest first, up to a limit.
	RecentTrades(ctx context.Context, limit int) ([]*domain.TradeRecord, error)
	// TradesBySymbol retrieves the most recent records for a symbol, newest first.
	TradesBySymbol(ctx context.Context, symbol string, limit int) ([]*domain.TradeRecord, error)
	// TradesSince retrieves all records stamped at or after the given time,
	// newest first.
	TradesSince(ctx context.Context, since time.Time) ([]*domain.TradeRecord, error)
}

// AccountHistory defines the interface for the account balance history.
type AccountHistory interface {
	// AppendBalance saves one balance sample.
	AppendBalance(ctx context.Context, sample *domain.BalanceSample) error
	// BalanceHistory retrieves the most recent samples, newest first, up to a limit.
	BalanceHistory(ctx context.Context, limit int) ([]*domain.BalanceSample, error)
}
