package domain

import "time"

// TradeRecord is one append-only log entry written after every order
// submission attempt, successful or not. Records are never mutated or
// deleted, and no record is written for a no-op (signal that resulted in no
// submission).
type TradeRecord struct {
	ID         int64       // Database identifier
	Timestamp  time.Time   // When the submission attempt was made
	Symbol     string      // Trading symbol
	Side       OrderSide   // Submitted side
	Price      float64     // Reference price at submission time
	Quantity   float64     // Submitted quantity
	Status     TradeStatus // submitted or failed
	OrderID    string      // Broker order ID (empty when the submission failed)
	StopLoss   *float64    // Bracket stop price (nil for flattening orders)
	TakeProfit *float64    // Bracket limit price (nil for flattening orders)
	Reason     string      // Context: entry/exit reason, or the broker rejection
}

// TradeStats aggregates the trade log for reporting. It feeds displays and
// reports only and is never an input to trading decisions.
type TradeStats struct {
	Total     int
	Buys      int
	Sells     int
	Submitted int
	Failed    int
	BySymbol  map[string]int
	Last24h   int // Records stamped within 24h of the aggregation time
}
