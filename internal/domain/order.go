package domain

import "time"

// OrderRequest describes one order submission to the broker. StopLoss and
// TakeProfit are set only for bracket entries; a plain market order (used to
// flatten a position) leaves them nil.
type OrderRequest struct {
	Symbol         string
	Side           OrderSide
	Qty            float64
	ReferencePrice float64  // Price the sizing and bracket levels were derived from
	StopLoss       *float64 // Bracket stop price (nil for market orders)
	TakeProfit     *float64 // Bracket limit price (nil for market orders)
	ClientOrderID  string   // Caller-assigned idempotency token
}

// IsBracket reports whether the request carries attached exit orders.
func (r OrderRequest) IsBracket() bool {
	return r.StopLoss != nil && r.TakeProfit != nil
}

// OrderResult is the broker's acknowledgement of an accepted order.
type OrderResult struct {
	OrderID        string // Broker-assigned order identifier
	ClientOrderID  string
	Status         string // Broker order status at acceptance (e.g., "accepted", "new")
	FilledAvgPrice *float64
	SubmittedAt    time.Time
}
