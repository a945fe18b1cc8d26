package main

import (
	"context"
	"log" // Use standard log only for initial fatal errors before logger is set up
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"

	"vwapReversionBot/config"
	"vwapReversionBot/internal/adapters/alpacaclient"
	"vwapReversionBot/internal/adapters/logger"
	"vwapReversionBot/internal/adapters/profiles"
	"vwapReversionBot/internal/adapters/sqlite"
	"vwapReversionBot/internal/app"
	"vwapReversionBot/internal/execution"
	"vwapReversionBot/internal/risk"
	"vwapReversionBot/internal/strategy"
)

// shutdownTimeout bounds how long a termination signal waits for the
// in-flight polling iteration before giving up.
const shutdownTimeout = 30 * time.Second

func main() {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}

	// 2. Initialize Logger
	appLogger, err := logger.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize logger: %v", err)
	}
	defer appLogger.Sync()
	appLogger.Info(context.Background(), "Logger initialized", map[string]interface{}{"level": cfg.LogLevel.String()})

	// 3. Initialize Repository (Database Adapter)
	repo, err := sqlite.NewRepository(sqlite.Config{
		DBPath: cfg.DBPath,
		Logger: appLogger,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize database repository")
		log.Fatalf("FATAL: Failed to initialize database repository: %v", err) // Also log to stderr
	}
	defer func() {
		if err := repo.Close(); err != nil {
			appLogger.Error(context.Background(), err, "Error closing database repository")
		}
	}()
	appLogger.Info(context.Background(), "Database repository initialized")

	// 4. Initialize Profile Store
	profileStore, err := profiles.NewStore(profiles.Config{
		Dir:    cfg.ProfilesDir,
		Logger: appLogger,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize profile store")
		log.Fatalf("FATAL: Failed to initialize profile store: %v", err)
	}
	appLogger.Info(context.Background(), "Profile store initialized")

	// 5. Initialize Broker Client (Alpaca Adapter)
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
	appLogger.Info(context.Background(), "Alpaca client initialized")

	// 6. Initialize Strategy
	strat, err := strategy.New(strategy.Config{
		VWAPBuyThreshold:  cfg.VWAPBuyThreshold,
		VWAPSellThreshold: cfg.VWAPSellThreshold,
		VWAPSafetyFloor:   cfg.VWAPSafetyFloor,
		RSIOverbought:     cfg.RSIOverbought,
		RSIPeriod:         cfg.RSIPeriod,
	}, appLogger)
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize trading strategy")
		log.Fatalf("FATAL: Failed to initialize trading strategy: %v", err)
	}
	appLogger.Info(context.Background(), "Trading strategy initialized")

	// 7. Initialize Risk Manager and Execution Coordinator
	clk := clock.New()
	riskMgr, err := risk.NewManager(cfg.ExecutionSettings())
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize risk manager")
		log.Fatalf("FATAL: Failed to initialize risk manager: %v", err)
	}
	coordinator, err := execution.NewCoordinator(broker, repo, riskMgr, clk, appLogger)
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize execution coordinator")
		log.Fatalf("FATAL: Failed to initialize execution coordinator: %v", err)
	}

	// 8. Initialize Application Service
	tradingService, err := app.NewTradingService(
		cfg,
		appLogger,
		broker, // Pass the concrete implementation, service expects the interface
		broker, // Same client serves as the market calendar
		repo,   // Pass the concrete implementation, service expects the interface
		repo,   // Same repository serves as the account history
		profileStore,
		strat,
		coordinator,
		clk,
	)
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize trading service")
		log.Fatalf("FATAL: Failed to initialize trading service: %v", err)
	}
	appLogger.Info(context.Background(), "Trading service initialized")

	// 9. Verify broker connectivity before entering the polling loop
	if err := tradingService.TestConnection(context.Background()); err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Broker connection test failed")
		log.Fatalf("FATAL: Broker connection test failed: %v", err)
	}

	// 10. Start the Service and run until interrupted
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	if err := tradingService.Start(ctx); err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to start trading service")
		log.Fatalf("FATAL: Failed to start trading service: %v", err)
	}

	sig := <-sigCh
	appLogger.Info(context.Background(), "Received shutdown signal", map[string]interface{}{"signal": sig.String()})
	cancel() // Aborts broker calls still in flight

	stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stopCancel()
	if err := tradingService.Stop(stopCtx); err != nil {
		appLogger.Error(context.Background(), err, "Trading service did not stop cleanly")
	}

	appLogger.Info(context.Background(), "Application finished gracefully.")
}
