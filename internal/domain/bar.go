package domain

import "time"

// Bar represents a single OHLCV sample for a symbol at a timestamp.
// Bars arrive from the broker ordered by strictly increasing timestamp and
// are treated as immutable once retrieved.
type Bar struct {
	Timestamp time.Time // Bar start time
	Symbol    string    // Trading symbol (e.g., "AAPL")
	Timeframe Timeframe // Aggregation window the bar was sampled at
	Open      float64   // Opening price
	High      float64   // Highest price
	Low       float64   // Lowest price
	Close     float64   // Closing price
	Volume    float64   // Traded volume
}

// TypicalPrice returns (high+low+close)/3, the per-bar price used by VWAP.
func (b Bar) TypicalPrice() float64 {
	return (b.High + b.Low + b.Close) / 3
}

// IndicatorSnapshot carries the latest bar's prices annotated with the
// indicator values derived from the full bar window. VWAP and RSI are nil
// when insufficient history exists to define them.
type IndicatorSnapshot struct {
	Symbol    string
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	VWAP      *float64 // nil until cumulative volume > 0
	RSI       *float64 // nil for the first rsiPeriod bars
}
