package indicators

import (
	"fmt"
	"math"

	"vwapReversionBot/internal/domain"
	"vwapReversionBot/internal/ports"
)

// DefaultMinBars is the minimum series length required of a symbol before it
// is analyzed on a tick.
const DefaultMinBars = 5

// Validate checks that a bar series is usable for indicator computation.
// It fails when the series is empty, shorter than minBars, carries a bar
// with missing fields (NaN or non-positive prices, NaN or negative volume),
// or has zero total volume. Callers must skip the symbol for the tick on
// failure rather than proceed with partial indicators.
func Validate(bars []domain.Bar, minBars int) error {
	if len(bars) == 0 {
		return fmt.Errorf("%w: empty bar series", ports.ErrInsufficientData)
	}
	if len(bars) < minBars {
		return fmt.Errorf("%w: have %d bars, need at least %d", ports.ErrInsufficientData, len(bars), minBars)
	}

	var totalVolume float64
	for i, b := range bars {
		if err := checkBar(b); err != nil {
			return fmt.Errorf("%w: bar %d (%s): %v", ports.ErrInvalidBarData, i, b.Timestamp.Format("2006-01-02T15:04:05"), err)
		}
		totalVolume += b.Volume
	}
	if totalVolume == 0 {
		return fmt.Errorf("%w: total volume is zero", ports.ErrInvalidBarData)
	}
	return nil
}

func checkBar(b domain.Bar) error {
	prices := [...]struct {
		name  string
		value float64
	}{
		{"open", b.Open},
		{"high", b.High},
		{"low", b.Low},
		{"close", b.Close},
	}
	for _, p := range prices {
		if math.IsNaN(p.value) {
			return fmt.Errorf("missing %s", p.name)
		}
		if p.value <= 0 {
			return fmt.Errorf("non-positive %s %f", p.name, p.value)
		}
	}
	if math.IsNaN(b.Volume) {
		return fmt.Errorf("missing volume")
	}
	if b.Volume < 0 {
		return fmt.Errorf("negative volume %f", b.Volume)
	}
	return nil
}
