package ports

import (
	"context"

	"vwapReversionBot/internal/domain"
)

// SignalEvaluator classifies symbols as BUY, SELL or HOLD from the latest
// indicator snapshot. Implementations keep one prior observation per symbol
// for observability but must not feed it back into the classification.
type SignalEvaluator interface {
	// Evaluate classifies the symbol from the given snapshot. A nil snapshot
	// or missing indicator inputs always classify as HOLD.
	Evaluate(ctx context.Context, symbol string, snap *domain.IndicatorSnapshot) domain.Signal

	// UpdateParameters applies a partial parameter patch; nil fields retain
	// their prior values. No cross-field validation is performed.
	UpdateParameters(ctx context.Context, patch domain.ParameterPatch)

	// Parameters returns a copy of the current parameter set.
	Parameters() domain.StrategyParams

	// States returns a copy of the per-symbol observation memory.
	States() map[string]domain.SymbolState

	// Reset clears the per-symbol observation memory.
	Reset()

	// MinBars returns the minimum bar count needed for a defined
	// classification (enough history for RSI on the latest bar).
	MinBars() int
}
