package indicators

import (
	"vwapReversionBot/internal/domain"
)

// Annotate computes VWAP and RSI over the full series and returns one
// snapshot per bar, in order. Indicator values that are undefined at a bar
// remain nil in that bar's snapshot.
func Annotate(bars []domain.Bar, rsiPeriod int) []domain.IndicatorSnapshot {
	if len(bars) == 0 {
		return nil
	}

	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	vwap := VWAP(bars)
	rsi := RSI(closes, rsiPeriod)

	out := make([]domain.IndicatorSnapshot, len(bars))
	for i, b := range bars {
		out[i] = domain.IndicatorSnapshot{
			Symbol:    b.Symbol,
			Timestamp: b.Timestamp,
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			VWAP:      vwap[i],
			RSI:       rsi[i],
		}
	}
	return out
}

// Latest returns the snapshot for the most recent bar, or nil for an empty
// series.
func Latest(bars []domain.Bar, rsiPeriod int) *domain.IndicatorSnapshot {
	annotated := Annotate(bars, rsiPeriod)
	if len(annotated) == 0 {
		return nil
	}
	last := annotated[len(annotated)-1]
	return &last
}
