package indicators

import (
	"math"

	talib "github.com/markcheno/go-talib"
)

// RSI returns the Wilder relative strength index per closing price. The
// first period entries are nil (the lookback window is not yet filled); the
// whole result is nil-filled when the series is too short for any defined
// value. Defined values are clamped to [0, 100].
func RSI(closes []float64, period int) []*float64 {
	out := make([]*float64, len(closes))
	if period < 1 || len(closes) <= period {
		return out
	}

	raw := talib.Rsi(closes, period)
	for i := period; i < len(raw); i++ {
		v := raw[i]
		if math.IsNaN(v) {
			continue
		}
		if v > 100 {
			v = 100
		} else if v < 0 {
			v = 0
		}
		out[i] = &v
	}
	return out
}
