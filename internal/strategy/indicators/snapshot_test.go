package indicators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnnotate(t *testing.T) {
	bars := barsFromCloses([]float64{10, 11, 12, 11, 12, 13}, 100)

	annotated := Annotate(bars, 3)
	require.Len(t, annotated, len(bars))

	for i, snap := range annotated {
		assert.Equal(t, bars[i].Symbol, snap.Symbol)
		assert.Equal(t, bars[i].Timestamp, snap.Timestamp)
		assert.Equal(t, bars[i].Close, snap.Close)
		require.NotNil(t, snap.VWAP, "VWAP defined for every bar of a voluminous series")
		if i < 3 {
			assert.Nil(t, snap.RSI, "RSI undefined inside the lookback window")
		} else {
			assert.NotNil(t, snap.RSI)
		}
	}
}

func TestAnnotate_Empty(t *testing.T) {
	assert.Nil(t, Annotate(nil, 14))
}

func TestLatest(t *testing.T) {
	bars := barsFromCloses([]float64{10, 11, 12, 11, 12, 13}, 100)

	snap := Latest(bars, 3)
	require.NotNil(t, snap)
	assert.Equal(t, 13.0, snap.Close)
	assert.Equal(t, bars[len(bars)-1].Timestamp, snap.Timestamp)
	require.NotNil(t, snap.VWAP)
	require.NotNil(t, snap.RSI)
	assert.InDelta(t, 85.1852, *snap.RSI, 0.01)
}

func TestLatest_Empty(t *testing.T) {
	assert.Nil(t, Latest(nil, 14))
}

func TestLatest_ShortSeriesPropagatesNils(t *testing.T) {
	bars := barsFromCloses([]float64{10, 11}, 100)

	snap := Latest(bars, 14)
	require.NotNil(t, snap)
	assert.NotNil(t, snap.VWAP, "VWAP needs volume, not lookback")
	assert.Nil(t, snap.RSI, "RSI undefined with fewer bars than the period")
}
