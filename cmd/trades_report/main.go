package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"vwapReversionBot/internal/adapters/logger"
	"vwapReversionBot/internal/adapters/sqlite"
	"vwapReversionBot/internal/analytics"
	"vwapReversionBot/internal/domain"
	"vwapReversionBot/internal/utils"
)

func main() {
	dbFlag := flag.String("db", "./trades.db", "Path to the trade log database")
	limitFlag := flag.Int("limit", 10, "Number of recent trades to list")
	csvFlag := flag.String("csv", "", "Optional path to export the full trade log as CSV")
	flag.Parse()

	appLogger, err := logger.New(logger.LevelWarn, "")
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLogger.Sync()

	repo, err := sqlite.NewRepository(sqlite.Config{
		DBPath: *dbFlag,
		Logger: appLogger,
	})
	if err != nil {
		log.Fatalf("Failed to open trade log %s: %v", *dbFlag, err)
	}
	defer repo.Close()

	// The whole log, newest first.
	records, err := repo.TradesSince(context.Background(), time.Time{})
	if err != nil {
		log.Fatalf("Failed to load trade records: %v", err)
	}
	if len(records) == 0 {
		fmt.Println("No trade records found. Run the bot first.")
		return
	}

	stats := analytics.ComputeStats(records, time.Now())
	printSummary(stats)
	printSymbolCounts(stats)
	printRecentTrades(records, *limitFlag)

	if *csvFlag != "" {
		if err := utils.WriteTradesToCSV(records, *csvFlag); err != nil {
			log.Fatalf("Failed to export CSV: %v", err)
		}
		fmt.Printf("\nExported %d records to %s\n", len(records), *csvFlag)
	}
}

func printSummary(stats *domain.TradeStats) {
	fmt.Println("## Trade Log Summary")
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight|tabwriter.Debug)
	fmt.Fprintln(w, "Total\tBuys\tSells\tSubmitted\tFailed\tLast 24h\t")
	fmt.Fprintf(w, "%d\t%d\t%d\t%d\t%d\t%d\t\n",
		stats.Total, stats.Buys, stats.Sells, stats.Submitted, stats.Failed, stats.Last24h)
	w.Flush()
}

func printSymbolCounts(stats *domain.TradeStats) {
	fmt.Println("\n## Records per Symbol")
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight|tabwriter.Debug)
	fmt.Fprintln(w, "Symbol\tTrades\t")
	for _, entry := range analytics.SymbolCounts(stats) {
		fmt.Fprintf(w, "%s\t%d\t\n", entry.Symbol, entry.Count)
	}
	w.Flush()
}

func printRecentTrades(records []*domain.TradeRecord, limit int) {
	if limit <= 0 || limit > len(records) {
		limit = len(records)
	}

	fmt.Printf("\n## Most Recent %d Trades\n", limit)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight|tabwriter.Debug)
	fmt.Fprintln(w, "Time\tSymbol\tSide\tPrice\tQty\tStatus\tReason\t")
	for _, rec := range records[:limit] {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%.2f\t%s\t%s\t\n",
			rec.Timestamp.Format("2006-01-02 15:04"),
			rec.Symbol, rec.Side, rec.Price, rec.Quantity, rec.Status, rec.Reason)
	}
	w.Flush()
}
