package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"vwapReversionBot/config"
	"vwapReversionBot/internal/analytics"
	"vwapReversionBot/internal/domain"
	"vwapReversionBot/internal/execution"
	"vwapReversionBot/internal/ports"
	"vwapReversionBot/internal/strategy/indicators"
	"vwapReversionBot/internal/utils"
)

// TradingService orchestrates the trading bot's operations: the polling loop
// that classifies the session, refreshes the account and runs the strategy
// over every symbol, plus the command surface a UI or CLI shell drives.
type TradingService struct {
	cfg         *config.Config
	logger      ports.Logger
	broker      ports.BrokerClient
	calendar    ports.MarketCalendar
	trades      ports.TradeLog
	history     ports.AccountHistory
	profiles    ports.ProfileStore
	evaluator   ports.SignalEvaluator
	coordinator *execution.Coordinator
	clock       clock.Clock
	events      *EventBus

	// runMu serializes loop iterations with manual RunOnce calls.
	runMu sync.Mutex

	// stateMu protects the fields below.
	stateMu      sync.Mutex
	running      bool
	stopCh       chan struct{}
	doneCh       chan struct{}
	symbols      []string
	pollInterval time.Duration
	lastAccount  *domain.AccountSnapshot
	lastSession  *domain.SessionStatus
	lastSummary  time.Time // When the last balance sample was persisted
}

// NewTradingService creates a new application service instance.
func NewTradingService(
	cfg *config.Config,
	logger ports.Logger,
	broker ports.BrokerClient,
	calendar ports.MarketCalendar,
	trades ports.TradeLog,
	history ports.AccountHistory,
	profileStore ports.ProfileStore,
	evaluator ports.SignalEvaluator,
	coordinator *execution.Coordinator,
	clk clock.Clock,
) (*TradingService, error) {

	// Validate dependencies
	if cfg == nil || logger == nil || broker == nil || calendar == nil || trades == nil ||
		history == nil || profileStore == nil || evaluator == nil || coordinator == nil || clk == nil {
		return nil, fmt.Errorf("missing required dependencies for TradingService")
	}

	// Validate config values needed by service
	if !cfg.Timeframe.IsValid() {
		return nil, fmt.Errorf("configuration Timeframe %q is not supported", cfg.Timeframe)
	}
	if cfg.BarLimit <= 0 {
		return nil, fmt.Errorf("configuration BarLimit must be positive")
	}
	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("configuration PollInterval must be positive")
	}
	if cfg.AccountSummaryInterval <= 0 {
		return nil, fmt.Errorf("configuration AccountSummaryInterval must be positive")
	}

	return &TradingService{
		cfg:          cfg,
		logger:       logger,
		broker:       broker,
		calendar:     calendar,
		trades:       trades,
		history:      history,
		profiles:     profileStore,
		evaluator:    evaluator,
		coordinator:  coordinator,
		clock:        clk,
		events:       NewEventBus(),
		symbols:      normalizeSymbols(cfg.Symbols),
		pollInterval: cfg.PollInterval,
	}, nil
}

// Start spawns the polling loop. The first iteration runs immediately; later
// ones are paced by the poll interval. Returns an error if the loop is
// already running.
func (s *TradingService) Start(ctx context.Context) error {
	s.stateMu.Lock()
	if s.running {
		s.stateMu.Unlock()
		return fmt.Errorf("trading service is already running")
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	stopCh, doneCh := s.stopCh, s.doneCh
	interval := s.pollInterval
	s.stateMu.Unlock()

	s.logger.Info(ctx, "Starting Trading Service...", map[string]interface{}{
		"symbols":      s.Symbols(),
		"timeframe":    s.cfg.Timeframe,
		"barLimit":     s.cfg.BarLimit,
		"pollInterval": interval.String(),
	})

	go s.runLoop(ctx, stopCh, doneCh)
	return nil
}

// Stop signals the polling loop and waits for the in-flight iteration to
// finish, bounded by ctx. Stopping a service that is not running is a no-op.
func (s *TradingService) Stop(ctx context.Context) error {
	s.stateMu.Lock()
	if !s.running || s.stopCh == nil {
		s.stateMu.Unlock()
		s.logger.Warn(ctx, "Stop called but the trading service is not running")
		return nil
	}
	stopCh, doneCh := s.stopCh, s.doneCh
	s.stopCh = nil // Further Stop calls become no-ops
	s.stateMu.Unlock()

	s.logger.Info(ctx, "Stopping Trading Service...")
	close(stopCh)

	select {
	case <-doneCh:
		s.logger.Info(ctx, "Trading Service stopped.")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for the trading loop to stop: %w", ctx.Err())
	}
}

// Running reports whether the polling loop is active.
func (s *TradingService) Running() bool {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.running
}

// RunOnce performs a single synchronous iteration. It shares the iteration
// lock with the background loop, so a manual refresh never overlaps a
// scheduled one.
func (s *TradingService) RunOnce(ctx context.Context) error {
	return s.runIteration(ctx)
}

func (s *TradingService) runLoop(ctx context.Context, stopCh, doneCh chan struct{}) {
	defer close(doneCh)
	defer func() {
		s.stateMu.Lock()
		s.running = false
		s.stateMu.Unlock()
	}()

	for {
		_ = s.runIteration(ctx) // Iteration failures are logged inside; the loop always continues.

		// Re-armed every pass so a profile-applied interval change takes
		// effect on the next wait.
		timer := s.clock.Timer(s.currentInterval())
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info(ctx, "Context cancelled, trading loop exiting")
			return
		case <-stopCh:
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// runIteration executes one pass: classify the session, refresh the account,
// and analyze every symbol while the regular session is open. Orders are
// never submitted outside regular hours.
func (s *TradingService) runIteration(ctx context.Context) error {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	op := "runIteration"

	now := s.clock.Now()

	// 1. Classify the session. An oracle failure is treated as closed so no
	// order can slip out while the schedule is unknown.
	status, err := s.calendar.SessionStatus(ctx, now)
	if err != nil {
		s.logger.Error(ctx, err, op+": Failed to query session status, treating market as closed")
		status = &domain.SessionStatus{}
		err = fmt.Errorf("querying session status: %w", err)
	}
	s.stateMu.Lock()
	s.lastSession = status
	s.stateMu.Unlock()
	s.events.Publish(Event{Kind: EventSession, Time: now, Session: status})

	// 2. Refresh the account snapshot regardless of session state.
	s.refreshAccount(ctx, now)

	// 3. Outside regular hours nothing is evaluated or executed.
	if !status.IsOpen {
		s.logger.Info(ctx, op+": Market is "+status.StatusText()+", skipping strategy", map[string]interface{}{
			"nextOpen": status.NextOpen,
		})
		s.publishLog(now, fmt.Sprintf("Market is %s - skipping strategy", status.StatusText()))
		return err
	}

	// 4. Analyze each symbol in turn; one symbol's failure never aborts the rest.
	s.publishLog(now, "Market is open - running strategy analysis")
	for _, symbol := range s.Symbols() {
		s.analyzeSymbol(ctx, symbol)
	}
	s.logger.Info(ctx, op+": Strategy analysis complete")
	return err
}

// analyzeSymbol runs the bars -> indicators -> signal -> execution pipeline
// for one symbol. Errors and panics are contained here so the iteration can
// continue with the remaining symbols.
func (s *TradingService) analyzeSymbol(ctx context.Context, symbol string) {
	op := "analyzeSymbol"
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error(ctx, fmt.Errorf("panic: %v", r), op+": Recovered from panic", map[string]interface{}{"symbol": symbol})
		}
	}()

	// 1. Fetch the bar window for the configured timeframe.
	bars, err := s.broker.GetBars(ctx, symbol, s.cfg.Timeframe, s.cfg.BarLimit)
	if err != nil {
		s.logger.Error(ctx, err, op+": Failed to fetch bars", map[string]interface{}{"symbol": symbol})
		return
	}

	// 2. Skip the symbol for this tick when the series is unusable.
	if err := indicators.Validate(bars, indicators.DefaultMinBars); err != nil {
		s.logger.Warn(ctx, op+": Insufficient data, skipping symbol", map[string]interface{}{
			"symbol": symbol,
			"reason": err.Error(),
		})
		return
	}

	// 3. Annotate the latest bar and classify it.
	snap := indicators.Latest(bars, s.evaluator.Parameters().RSIPeriod)
	signal := s.evaluator.Evaluate(ctx, symbol, snap)

	// 4. Hand the classification to the execution coordinator.
	rec, err := s.coordinator.OnSignal(ctx, symbol, signal, snap)
	if err != nil {
		s.logger.Error(ctx, err, op+": Signal execution failed", map[string]interface{}{
			"symbol": symbol,
			"signal": signal,
		})
		return
	}

	if rec != nil {
		s.events.Publish(Event{Kind: EventTrade, Time: rec.Timestamp, Trade: rec})
		s.publishLog(rec.Timestamp, fmt.Sprintf("%s -> %s @ $%.2f (qty %.2f)", symbol, rec.Side, rec.Price, rec.Quantity))
		return
	}
	s.publishLog(s.clock.Now(), fmt.Sprintf("%s -> %s (no order)", symbol, signal))
}

// refreshAccount pulls the latest account snapshot and, once per summary
// interval, persists a balance sample and logs the account summary.
func (s *TradingService) refreshAccount(ctx context.Context, now time.Time) {
	op := "refreshAccount"

	account, err := s.broker.GetAccount(ctx)
	if err != nil {
		s.logger.Error(ctx, err, op+": Failed to refresh account snapshot")
		return
	}

	s.stateMu.Lock()
	s.lastAccount = account
	summaryDue := now.Sub(s.lastSummary) >= s.cfg.AccountSummaryInterval
	if summaryDue {
		s.lastSummary = now
	}
	s.stateMu.Unlock()

	s.events.Publish(Event{Kind: EventAccount, Time: now, Account: account})

	if !summaryDue {
		return
	}
	sample := &domain.BalanceSample{
		Timestamp:   now.UTC(),
		Balance:     account.Cash,
		Equity:      account.Equity,
		BuyingPower: account.BuyingPower,
	}
	if err := s.history.AppendBalance(ctx, sample); err != nil {
		s.logger.Error(ctx, err, op+": Failed to persist balance sample")
	}
	s.logger.Info(ctx, op+": Account summary", map[string]interface{}{
		"equity":      account.Equity,
		"buyingPower": account.BuyingPower,
		"cash":        account.Cash,
	})
}

// --- Command surface ---

// Subscribe registers an event subscriber; see EventBus.Subscribe.
func (s *TradingService) Subscribe(buffer int) (<-chan Event, func()) {
	return s.events.Subscribe(buffer)
}

// TestConnection verifies broker connectivity and credentials with a single
// account probe and caches the snapshot on success.
func (s *TradingService) TestConnection(ctx context.Context) error {
	op := "TestConnection"

	account, err := s.broker.GetAccount(ctx)
	if err != nil {
		s.logger.Error(ctx, err, op+": Broker connection test failed")
		return fmt.Errorf("broker connection test failed: %w", err)
	}

	s.stateMu.Lock()
	s.lastAccount = account
	s.stateMu.Unlock()

	s.logger.Info(ctx, op+": Broker connection OK", map[string]interface{}{
		"equity":      account.Equity,
		"buyingPower": account.BuyingPower,
	})
	return nil
}

// Account returns a copy of the most recent account snapshot, or nil when no
// refresh has succeeded yet.
func (s *TradingService) Account() *domain.AccountSnapshot {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	if s.lastAccount == nil {
		return nil
	}
	snapshot := *s.lastAccount
	return &snapshot
}

// SessionStatus returns a copy of the most recent session classification, or
// nil before the first iteration.
func (s *TradingService) SessionStatus() *domain.SessionStatus {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	if s.lastSession == nil {
		return nil
	}
	status := *s.lastSession
	return &status
}

// UpdateStrategyParameters applies a partial strategy parameter patch; nil
// fields retain their prior values.
func (s *TradingService) UpdateStrategyParameters(ctx context.Context, patch domain.ParameterPatch) {
	s.evaluator.UpdateParameters(ctx, patch)
}

// StrategyParameters returns a copy of the current strategy parameters.
func (s *TradingService) StrategyParameters() domain.StrategyParams {
	return s.evaluator.Parameters()
}

// UpdateExecutionSettings replaces the sizing and bracket settings used for
// future entries.
func (s *TradingService) UpdateExecutionSettings(ctx context.Context, settings domain.ExecutionSettings) error {
	return s.coordinator.UpdateSettings(ctx, settings)
}

// ExecutionSettings returns a copy of the current execution settings.
func (s *TradingService) ExecutionSettings() domain.ExecutionSettings {
	return s.coordinator.Settings()
}

// SymbolStates returns the evaluator's last observation per symbol.
func (s *TradingService) SymbolStates() map[string]domain.SymbolState {
	return s.evaluator.States()
}

// Symbols returns a copy of the active symbol list.
func (s *TradingService) Symbols() []string {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	out := make([]string, len(s.symbols))
	copy(out, s.symbols)
	return out
}

// SetSymbols replaces the active symbol list. Symbols are uppercased and
// de-duplicated; the change applies from the next iteration.
func (s *TradingService) SetSymbols(ctx context.Context, symbols []string) {
	normalized := normalizeSymbols(symbols)
	s.stateMu.Lock()
	s.symbols = normalized
	s.stateMu.Unlock()
	s.logger.Info(ctx, "Symbol list replaced", map[string]interface{}{"symbols": normalized})
}

// AddSymbol adds one symbol to the active list. Returns false when the symbol
// is empty or already present.
func (s *TradingService) AddSymbol(ctx context.Context, symbol string) bool {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return false
	}

	s.stateMu.Lock()
	for _, existing := range s.symbols {
		if existing == symbol {
			s.stateMu.Unlock()
			s.logger.Warn(ctx, "Symbol already in list", map[string]interface{}{"symbol": symbol})
			return false
		}
	}
	s.symbols = append(s.symbols, symbol)
	s.stateMu.Unlock()

	s.logger.Info(ctx, "Symbol added", map[string]interface{}{"symbol": symbol})
	return true
}

// RemoveSymbol removes one symbol from the active list. Returns false when
// the symbol was not present.
func (s *TradingService) RemoveSymbol(ctx context.Context, symbol string) bool {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	s.stateMu.Lock()
	for i, existing := range s.symbols {
		if existing == symbol {
			s.symbols = append(s.symbols[:i], s.symbols[i+1:]...)
			s.stateMu.Unlock()
			s.logger.Info(ctx, "Symbol removed", map[string]interface{}{"symbol": symbol})
			return true
		}
	}
	s.stateMu.Unlock()
	return false
}

// ImportSymbolsFile reads a symbols file (one per line or comma separated)
// and replaces the active symbol list with its contents.
func (s *TradingService) ImportSymbolsFile(ctx context.Context, path string) ([]string, error) {
	symbols, err := utils.ReadSymbolsFile(path)
	if err != nil {
		s.logger.Error(ctx, err, "Failed to read symbols file", map[string]interface{}{"path": path})
		return nil, fmt.Errorf("reading symbols file: %w", err)
	}
	if len(symbols) == 0 {
		return nil, fmt.Errorf("%w: no symbols found in %s", ports.ErrInvalidRequest, path)
	}
	s.SetSymbols(ctx, symbols)
	return s.Symbols(), nil
}

// ExportSymbolsFile writes the active symbol list to a file, one per line.
func (s *TradingService) ExportSymbolsFile(ctx context.Context, path string) error {
	if err := utils.WriteSymbolsFile(s.Symbols(), path); err != nil {
		s.logger.Error(ctx, err, "Failed to write symbols file", map[string]interface{}{"path": path})
		return fmt.Errorf("writing symbols file: %w", err)
	}
	s.logger.Info(ctx, "Symbols exported", map[string]interface{}{"path": path})
	return nil
}

// SaveProfile captures the current symbols, execution settings and refresh
// interval under the given name.
func (s *TradingService) SaveProfile(ctx context.Context, name string) error {
	profile := &domain.Profile{
		Name: name,
		Data: domain.ProfileData{
			Symbols:         s.Symbols(),
			TradingSettings: s.coordinator.Settings(),
			DataSettings: domain.DataSettings{
				RefreshInterval: int(s.currentInterval() / time.Second),
				AutoRefresh:     true,
			},
		},
	}
	if err := s.profiles.Save(ctx, profile); err != nil {
		s.logger.Error(ctx, err, "Failed to save profile", map[string]interface{}{"name": name})
		return err
	}
	return nil
}

// ApplyProfile loads the named profile and applies it: execution settings
// first (so an invalid profile changes nothing), then the symbol list, then
// the refresh interval, which takes effect after the current wait.
func (s *TradingService) ApplyProfile(ctx context.Context, name string) (*domain.Profile, error) {
	profile, err := s.profiles.Load(ctx, name)
	if err != nil {
		return nil, err
	}

	if err := s.coordinator.UpdateSettings(ctx, profile.Data.TradingSettings); err != nil {
		s.logger.Error(ctx, err, "Profile carries unusable execution settings", map[string]interface{}{"name": name})
		return nil, fmt.Errorf("applying profile %q settings: %w", name, err)
	}
	s.SetSymbols(ctx, profile.Data.Symbols)
	if profile.Data.DataSettings.RefreshInterval > 0 {
		s.setInterval(time.Duration(profile.Data.DataSettings.RefreshInterval) * time.Second)
	}

	s.logger.Info(ctx, "Profile applied", map[string]interface{}{
		"name":    name,
		"symbols": profile.Data.Symbols,
	})
	return profile, nil
}

// ListProfiles returns the names of all stored profiles, sorted.
func (s *TradingService) ListProfiles(ctx context.Context) ([]string, error) {
	return s.profiles.List(ctx)
}

// DeleteProfile removes a stored profile by name.
func (s *TradingService) DeleteProfile(ctx context.Context, name string) error {
	return s.profiles.Delete(ctx, name)
}

// ExportProfile copies the named profile to an arbitrary file path.
func (s *TradingService) ExportProfile(ctx context.Context, name, path string) error {
	return s.profiles.Export(ctx, name, path)
}

// ImportProfile reads a profile file from an arbitrary path and stores it
// under the name recorded inside the file. The profile is stored, not
// applied.
func (s *TradingService) ImportProfile(ctx context.Context, path string) (*domain.Profile, error) {
	return s.profiles.Import(ctx, path)
}

// RecentTrades returns the most recent trade records, newest first.
func (s *TradingService) RecentTrades(ctx context.Context, limit int) ([]*domain.TradeRecord, error) {
	return s.trades.RecentTrades(ctx, limit)
}

// TradesBySymbol returns the most recent trade records for one symbol.
func (s *TradingService) TradesBySymbol(ctx context.Context, symbol string, limit int) ([]*domain.TradeRecord, error) {
	return s.trades.TradesBySymbol(ctx, strings.ToUpper(strings.TrimSpace(symbol)), limit)
}

// TradeStats aggregates the whole trade log into summary counters.
func (s *TradingService) TradeStats(ctx context.Context) (*domain.TradeStats, error) {
	records, err := s.trades.TradesSince(ctx, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("loading trade log: %w", err)
	}
	return analytics.ComputeStats(records, s.clock.Now()), nil
}

// ExportTrades writes the whole trade log to a CSV file.
func (s *TradingService) ExportTrades(ctx context.Context, path string) error {
	op := "ExportTrades"

	records, err := s.trades.TradesSince(ctx, time.Time{})
	if err != nil {
		s.logger.Error(ctx, err, op+": Failed to load trade log")
		return fmt.Errorf("loading trade log: %w", err)
	}
	if err := utils.WriteTradesToCSV(records, path); err != nil {
		s.logger.Error(ctx, err, op+": Failed to write CSV", map[string]interface{}{"path": path})
		return fmt.Errorf("writing trades CSV: %w", err)
	}
	s.logger.Info(ctx, op+": Trade history exported", map[string]interface{}{
		"path":  path,
		"count": len(records),
	})
	return nil
}

// BalanceHistory returns the most recent balance samples, newest first.
func (s *TradingService) BalanceHistory(ctx context.Context, limit int) ([]*domain.BalanceSample, error) {
	return s.history.BalanceHistory(ctx, limit)
}

// --- Internal helpers ---

func (s *TradingService) currentInterval() time.Duration {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.pollInterval
}

func (s *TradingService) setInterval(interval time.Duration) {
	s.stateMu.Lock()
	s.pollInterval = interval
	s.stateMu.Unlock()
}

func (s *TradingService) publishLog(at time.Time, message string) {
	s.events.Publish(Event{Kind: EventLog, Time: at, Message: message})
}

// normalizeSymbols uppercases, trims and de-duplicates while preserving
// first-seen order.
func normalizeSymbols(symbols []string) []string {
	out := make([]string, 0, len(symbols))
	seen := make(map[string]struct{}, len(symbols))
	for _, symbol := range symbols {
		symbol = strings.ToUpper(strings.TrimSpace(symbol))
		if symbol == "" {
			continue
		}
		if _, ok := seen[symbol]; ok {
			continue
		}
		seen[symbol] = struct{}{}
		out = append(out, symbol)
	}
	return out
}
