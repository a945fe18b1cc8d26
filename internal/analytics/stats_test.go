package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"vwapReversionBot/internal/domain"
)

var statsNow = time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)

func record(age time.Duration, symbol string, side domain.OrderSide, status domain.TradeStatus) *domain.TradeRecord {
	return &domain.TradeRecord{
		Timestamp: statsNow.Add(-age),
		Symbol:    symbol,
		Side:      side,
		Status:    status,
	}
}

func TestComputeStats_Empty(t *testing.T) {
	stats := ComputeStats(nil, statsNow)

	assert.Equal(t, 0, stats.Total)
	assert.Equal(t, 0, stats.Last24h)
	assert.NotNil(t, stats.BySymbol)
	assert.Empty(t, stats.BySymbol)
}

func TestComputeStats_Counters(t *testing.T) {
	records := []*domain.TradeRecord{
		record(1*time.Hour, "AAPL", domain.Buy, domain.TradeSubmitted),
		record(2*time.Hour, "AAPL", domain.Sell, domain.TradeSubmitted),
		record(23*time.Hour+59*time.Minute, "NVDA", domain.Buy, domain.TradeFailed),
		record(25*time.Hour, "NVDA", domain.Buy, domain.TradeSubmitted),
		record(72*time.Hour, "TSLA", domain.Sell, domain.TradeFailed),
	}

	stats := ComputeStats(records, statsNow)

	assert.Equal(t, 5, stats.Total)
	assert.Equal(t, 3, stats.Buys)
	assert.Equal(t, 2, stats.Sells)
	assert.Equal(t, 3, stats.Submitted)
	assert.Equal(t, 2, stats.Failed)
	assert.Equal(t, map[string]int{"AAPL": 2, "NVDA": 2, "TSLA": 1}, stats.BySymbol)
	assert.Equal(t, 3, stats.Last24h)
}

func TestComputeStats_WindowBoundaryIsExclusive(t *testing.T) {
	records := []*domain.TradeRecord{
		record(24*time.Hour, "AAPL", domain.Buy, domain.TradeSubmitted),
	}

	stats := ComputeStats(records, statsNow)
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 0, stats.Last24h)
}

func TestSymbolCounts_SortedDescending(t *testing.T) {
	stats := &domain.TradeStats{
		BySymbol: map[string]int{"TSLA": 1, "AAPL": 3, "NVDA": 3, "META": 2},
	}

	counts := SymbolCounts(stats)

	assert.Equal(t, []SymbolCount{
		{Symbol: "AAPL", Count: 3},
		{Symbol: "NVDA", Count: 3},
		{Symbol: "META", Count: 2},
		{Symbol: "TSLA", Count: 1},
	}, counts)
}

func TestSymbolCounts_Empty(t *testing.T) {
	assert.Empty(t, SymbolCounts(&domain.TradeStats{BySymbol: map[string]int{}}))
}
