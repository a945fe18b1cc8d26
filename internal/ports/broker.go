package ports

import (
	"context"

	"vwapReversionBot/internal/domain"
)

// BrokerClient defines the interface for interacting with the brokerage.
// This abstraction decouples the core bot logic from the vendor SDK: the
// engine only ever sees the narrow domain value types, and the adapter owns
// authentication, HTTP transport, timeouts and retry behavior.
type BrokerClient interface {
	// GetAccount retrieves the current account snapshot (cash, equity,
	// buying power, portfolio value).
	GetAccount(ctx context.Context) (*domain.AccountSnapshot, error)

	// GetPositions retrieves all currently open positions. An empty slice
	// means the account is flat.
	GetPositions(ctx context.Context) ([]domain.Position, error)

	// GetBars retrieves up to limit historical bars for the symbol at the
	// given timeframe, ordered by ascending timestamp.
	GetBars(ctx context.Context, symbol string, timeframe domain.Timeframe, limit int) ([]domain.Bar, error)

	// GetCurrentPrice retrieves the latest quoted price for the symbol.
	// Returns ErrPriceUnavailable when no usable quote exists.
	GetCurrentPrice(ctx context.Context, symbol string) (float64, error)

	// SubmitBracketOrder submits a market entry with attached stop-loss and
	// take-profit exits. The request must carry both bracket prices.
	SubmitBracketOrder(ctx context.Context, req domain.OrderRequest) (*domain.OrderResult, error)

	// SubmitMarketOrder submits a plain market order, used to flatten an
	// existing position.
	SubmitMarketOrder(ctx context.Context, req domain.OrderRequest) (*domain.OrderResult, error)
}
