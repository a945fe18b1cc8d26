package indicators

import (
	"testing"
	"time"

	"vwapReversionBot/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func barsFromCloses(closes []float64, volume float64) []domain.Bar {
	start := time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC)
	bars := make([]domain.Bar, len(closes))
	for i, c := range closes {
		bars[i] = domain.Bar{
			Timestamp: start.Add(time.Duration(i) * 5 * time.Minute),
			Symbol:    "AAPL",
			Timeframe: domain.Timeframe5Min,
			Open:      c,
			High:      c + 1,
			Low:       c - 1,
			Close:     c,
			Volume:    volume,
		}
	}
	return bars
}

func TestVWAP_ConstantPrice(t *testing.T) {
	// Constant price series: high == low == close == P makes the typical
	// price P, so VWAP must equal P at every bar.
	const price = 50.0
	start := time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC)
	bars := make([]domain.Bar, 10)
	for i := range bars {
		bars[i] = domain.Bar{
			Timestamp: start.Add(time.Duration(i) * time.Minute),
			Symbol:    "NVDA",
			Open:      price,
			High:      price,
			Low:       price,
			Close:     price,
			Volume:    100,
		}
	}

	vwap := VWAP(bars)
	require.Len(t, vwap, len(bars))
	for i, v := range vwap {
		require.NotNil(t, v, "VWAP should be defined at bar %d", i)
		assert.InDelta(t, price, *v, 1e-9, "VWAP should equal the constant price at bar %d", i)
	}
}

func TestVWAP_CumulativeWeighting(t *testing.T) {
	start := time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC)
	bars := []domain.Bar{
		{Timestamp: start, High: 12, Low: 8, Close: 10, Volume: 100},                    // typical 10, PV 1000
		{Timestamp: start.Add(5 * time.Minute), High: 16, Low: 12, Close: 14, Volume: 300}, // typical 14, PV 4200
	}

	vwap := VWAP(bars)
	require.Len(t, vwap, 2)
	require.NotNil(t, vwap[0])
	require.NotNil(t, vwap[1])
	assert.InDelta(t, 10.0, *vwap[0], 1e-9)
	assert.InDelta(t, 13.0, *vwap[1], 1e-9, "expected (1000+4200)/400")
}

func TestVWAP_ZeroVolumePrefix(t *testing.T) {
	start := time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC)
	bars := []domain.Bar{
		{Timestamp: start, High: 11, Low: 9, Close: 10, Volume: 0},
		{Timestamp: start.Add(5 * time.Minute), High: 11, Low: 9, Close: 10, Volume: 0},
		{Timestamp: start.Add(10 * time.Minute), High: 21, Low: 19, Close: 20, Volume: 50},
	}

	vwap := VWAP(bars)
	require.Len(t, vwap, 3)
	assert.Nil(t, vwap[0], "VWAP undefined while cumulative volume is zero")
	assert.Nil(t, vwap[1], "VWAP undefined while cumulative volume is zero")
	require.NotNil(t, vwap[2], "VWAP defined once volume has been seen")
	assert.InDelta(t, 20.0, *vwap[2], 1e-9)
}

func TestVWAP_AllZeroVolume(t *testing.T) {
	bars := barsFromCloses([]float64{10, 11, 12}, 0)
	for _, v := range VWAP(bars) {
		assert.Nil(t, v)
	}
}

func TestVWAP_Empty(t *testing.T) {
	assert.Empty(t, VWAP(nil))
}
