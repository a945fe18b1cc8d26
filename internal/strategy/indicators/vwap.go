// Package indicators computes the indicator values the signal rules consume.
// All functions are pure over the bar series they are given: the caller
// controls the window, so session scoping is the caller's concern.
package indicators

import (
	"vwapReversionBot/internal/domain"
)

// VWAP returns the cumulative volume-weighted average price per bar, using
// the typical price (high+low+close)/3 weighted by volume. The value at
// index i covers bars [0, i]. Entries are nil while the cumulative volume is
// still zero; once volume has been seen VWAP is defined for every later bar.
func VWAP(bars []domain.Bar) []*float64 {
	out := make([]*float64, len(bars))
	var cumPV, cumVol float64
	for i, b := range bars {
		cumPV += b.TypicalPrice() * b.Volume
		cumVol += b.Volume
		if cumVol > 0 {
			v := cumPV / cumVol
			out[i] = &v
		}
	}
	return out
}
