package domain

// OrderSide represents the side of an order (BUY or SELL).
type OrderSide string

const (
	Buy  OrderSide = "BUY"
	Sell OrderSide = "SELL"
)

// Opposite returns the side that flattens an exposure opened with s.
func (s OrderSide) Opposite() OrderSide {
	if s == Buy {
		return Sell
	}
	return Buy
}

// Signal is the per-symbol classification produced by the signal evaluator.
type Signal string

const (
	SignalBuy  Signal = "BUY"
	SignalSell Signal = "SELL"
	SignalHold Signal = "HOLD"
)

// TradeStatus records the outcome of an order submission attempt.
type TradeStatus string

const (
	TradeSubmitted TradeStatus = "submitted"
	TradeFailed    TradeStatus = "failed"
)

// Timeframe identifies the bar aggregation window requested from the broker.
type Timeframe string

const (
	Timeframe1Min  Timeframe = "1Min"
	Timeframe5Min  Timeframe = "5Min"
	Timeframe15Min Timeframe = "15Min"
	Timeframe1Hour Timeframe = "1Hour"
	Timeframe1Day  Timeframe = "1Day"
)

// IsValid reports whether the timeframe is one the broker adapter can serve.
func (t Timeframe) IsValid() bool {
	switch t {
	case Timeframe1Min, Timeframe5Min, Timeframe15Min, Timeframe1Hour, Timeframe1Day:
		return true
	}
	return false
}
