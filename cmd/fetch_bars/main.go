package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"vwapReversionBot/config"
	"vwapReversionBot/internal/adapters/alpacaclient"
	"vwapReversionBot/internal/adapters/logger"
	"vwapReversionBot/internal/domain"
	"vwapReversionBot/internal/utils"
)

func main() {
	symbolsFlag := flag.String("symbols", "", "Comma-separated symbols to fetch (default: configured symbol list)")
	timeframeFlag := flag.String("timeframe", "", "Bar timeframe: 1Min, 5Min, 15Min, 1Hour or 1Day (default: configured timeframe)")
	limitFlag := flag.Int("limit", 0, "Number of bars per symbol (default: configured bar limit)")
	outDirFlag := flag.String("out", "data", "Output directory for CSV files")
	flag.Parse()

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}

	// 2. Initialize Logger
	appLogger, err := logger.New(cfg.LogLevel, "")
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize logger: %v", err)
	}
	defer appLogger.Sync()

	// 3. Initialize Broker Client (Alpaca Adapter)
	broker, err := alpacaclient.New(alpacaclient.Config{
		APIKey:     cfg.APIKey,
		APISecret:  cfg.SecretKey,
		BaseURL:    cfg.BaseURL,
		Feed:       cfg.DataFeed,
		RetryLimit: cfg.RetryLimit,
		RetryDelay: cfg.RetryDelay,
		Logger:     appLogger,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize Alpaca client")
		log.Fatalf("FATAL: Failed to initialize Alpaca client: %v", err)
	}

	// Flags override configuration, empty flags fall back to it.
	symbols := cfg.Symbols
	if *symbolsFlag != "" {
		symbols = strings.Split(*symbolsFlag, ",")
	}
	timeframe := cfg.Timeframe
	if *timeframeFlag != "" {
		timeframe = domain.Timeframe(*timeframeFlag)
	}
	if !timeframe.IsValid() {
		log.Fatalf("FATAL: Invalid timeframe %q (want 1Min, 5Min, 15Min, 1Hour or 1Day)", timeframe)
	}
	limit := cfg.BarLimit
	if *limitFlag > 0 {
		limit = *limitFlag
	}

	if err := os.MkdirAll(*outDirFlag, 0755); err != nil {
		log.Fatalf("FATAL: Failed to create output directory %q: %v", *outDirFlag, err)
	}

	for _, symbol := range symbols {
		symbol = strings.ToUpper(strings.TrimSpace(symbol))
		if symbol == "" {
			continue
		}

		fmt.Printf("Fetching %d %s bars for %s...\n", limit, timeframe, symbol)
		bars, err := broker.GetBars(context.Background(), symbol, timeframe, limit)
		if err != nil {
			appLogger.Error(context.Background(), err, "Error fetching bars", map[string]interface{}{"symbol": symbol})
			log.Fatalf("Error fetching bars for %s: %v", symbol, err)
		}
		appLogger.Info(context.Background(), "Fetched bars", map[string]interface{}{
			"symbol": symbol,
			"count":  len(bars),
		})

		filename := filepath.Join(*outDirFlag, fmt.Sprintf("%s_%s.csv", symbol, timeframe))
		if err := utils.WriteBarsToCSV(bars, filename); err != nil {
			appLogger.Error(context.Background(), err, "Error writing CSV", map[string]interface{}{"filename": filename})
			log.Fatalf("Error writing CSV: %v", err)
		}
		fmt.Printf("Saved %d bars to %s\n", len(bars), filename)
	}
}
