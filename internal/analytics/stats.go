package analytics

import (
	"sort"
	"time"

	"vwapReversionBot/internal/domain"
)

// ComputeStats aggregates trade records into the reporting counters. The
// trailing 24 hour window is anchored at now and is exclusive at its start,
// matching the trade log's "newer than one day ago" query.
func ComputeStats(records []*domain.TradeRecord, now time.Time) *domain.TradeStats {
	stats := &domain.TradeStats{
		BySymbol: make(map[string]int),
	}

	if len(records) == 0 {
		return stats
	}

	cutoff := now.Add(-24 * time.Hour)

	for _, rec := range records {
		stats.Total++

		switch rec.Side {
		case domain.Buy:
			stats.Buys++
		case domain.Sell:
			stats.Sells++
		}

		switch rec.Status {
		case domain.TradeSubmitted:
			stats.Submitted++
		case domain.TradeFailed:
			stats.Failed++
		}

		stats.BySymbol[rec.Symbol]++

		if rec.Timestamp.After(cutoff) {
			stats.Last24h++
		}
	}

	return stats
}

// SymbolCount pairs a symbol with its record count.
type SymbolCount struct {
	Symbol string
	Count  int
}

// SymbolCounts returns the per-symbol counts sorted by count descending,
// ties broken alphabetically.
func SymbolCounts(stats *domain.TradeStats) []SymbolCount {
	counts := make([]SymbolCount, 0, len(stats.BySymbol))
	for symbol, count := range stats.BySymbol {
		counts = append(counts, SymbolCount{Symbol: symbol, Count: count})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Symbol < counts[j].Symbol
	})
	return counts
}
