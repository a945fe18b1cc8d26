package domain

import "time"

// Position is the broker-owned record of an open holding. The engine treats
// it as read-only ground truth fetched immediately before acting; it never
// maintains its own position ledger, so local state cannot drift from the
// broker's authoritative view.
type Position struct {
	Symbol          string  // Trading symbol
	Qty             float64 // Signed quantity: positive = long, negative = short
	AvgEntryPrice   float64 // Average fill price of the open quantity
	MarketValue     float64 // Current market value of the holding
	CurrentPrice    float64 // Latest price the broker valued the holding at
	UnrealizedPL    float64 // Unrealized profit/loss in account currency
	UnrealizedPLPct float64 // Unrealized profit/loss as a fraction of cost
}

// Side derives the position side from the sign of the quantity.
func (p Position) Side() OrderSide {
	if p.Qty < 0 {
		return Sell
	}
	return Buy
}

// IsFlat reports whether the position carries no exposure.
func (p Position) IsFlat() bool {
	return p.Qty == 0
}

// AccountSnapshot is the broker account state displayed to the operator and
// recorded in the balance history.
type AccountSnapshot struct {
	Cash           float64 // Settled cash balance
	Equity         float64 // Cash plus position market value
	BuyingPower    float64 // Broker-computed purchasing capacity
	PortfolioValue float64 // Total portfolio valuation
}

// BalanceSample is one append-only row of the account balance history.
type BalanceSample struct {
	ID          int64
	Timestamp   time.Time
	Balance     float64 // Cash at sample time
	Equity      float64
	BuyingPower float64
}
