package strategy

import (
	"context"
	"fmt"
	"math"
	"sync"

	"vwapReversionBot/internal/domain"
	"vwapReversionBot/internal/ports"
)

// Config holds parameters for the VWAP reversion rules. Zero fields take the
// stock defaults.
type Config struct {
	VWAPBuyThreshold  float64 // e.g., 0.99
	VWAPSellThreshold float64 // e.g., 1.01
	VWAPSafetyFloor   float64 // e.g., 0.95
	RSIOverbought     float64 // e.g., 70.0
	RSIPeriod         int     // e.g., 14
}

// Reversion classifies symbols as BUY, SELL or HOLD around VWAP: enter when
// price dipped below the buy threshold yet closed back above VWAP, exit when
// price stretches past the sell threshold or RSI signals overbought. The
// per-symbol state it keeps is write-only observability; the rules read
// nothing but the snapshot and the current parameters.
type Reversion struct {
	logger ports.Logger

	mu     sync.RWMutex
	params domain.StrategyParams
	states map[string]domain.SymbolState
}

// New creates a new Reversion evaluator. Startup parameters must satisfy
// safetyFloor < buyThreshold < 1 < sellThreshold; later runtime patches are
// exempt from this check.
func New(cfg Config, logger ports.Logger) (*Reversion, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required for strategy")
	}

	params := withDefaults(cfg)
	if params.RSIPeriod <= 0 {
		return nil, fmt.Errorf("RSI period must be positive")
	}
	if params.RSIOverbought <= 0 || params.RSIOverbought >= 100 {
		return nil, fmt.Errorf("RSI overbought level must be within (0, 100)")
	}
	if params.VWAPSafetyFloor <= 0 || params.VWAPSafetyFloor >= params.VWAPBuyThreshold {
		return nil, fmt.Errorf("safety floor must be positive and below the buy threshold")
	}
	if params.VWAPBuyThreshold >= 1 {
		return nil, fmt.Errorf("buy threshold must be below 1")
	}
	if params.VWAPSellThreshold <= 1 {
		return nil, fmt.Errorf("sell threshold must be above 1")
	}

	return &Reversion{
		logger: logger,
		params: params,
		states: make(map[string]domain.SymbolState),
	}, nil
}

func withDefaults(cfg Config) domain.StrategyParams {
	params := domain.DefaultStrategyParams()
	if cfg.VWAPBuyThreshold != 0 {
		params.VWAPBuyThreshold = cfg.VWAPBuyThreshold
	}
	if cfg.VWAPSellThreshold != 0 {
		params.VWAPSellThreshold = cfg.VWAPSellThreshold
	}
	if cfg.VWAPSafetyFloor != 0 {
		params.VWAPSafetyFloor = cfg.VWAPSafetyFloor
	}
	if cfg.RSIOverbought != 0 {
		params.RSIOverbought = cfg.RSIOverbought
	}
	if cfg.RSIPeriod != 0 {
		params.RSIPeriod = cfg.RSIPeriod
	}
	return params
}

// Evaluate classifies the symbol from the latest snapshot. BUY is checked
// before SELL. Missing inputs never raise: a nil snapshot, undefined VWAP or
// NaN close always classify as HOLD, and an undefined RSI disables the whole
// SELL evaluation (both of its branches).
func (r *Reversion) Evaluate(ctx context.Context, symbol string, snap *domain.IndicatorSnapshot) domain.Signal {
	r.mu.Lock()
	defer r.mu.Unlock()
	params := r.params

	if snap == nil {
		r.logger.Debug(ctx, "No snapshot available, holding", map[string]interface{}{"symbol": symbol})
		return domain.SignalHold
	}
	if snap.VWAP == nil || math.IsNaN(snap.Close) {
		r.logger.Debug(ctx, "VWAP or close undefined, holding", map[string]interface{}{"symbol": symbol})
		return domain.SignalHold
	}

	closePrice := snap.Close
	vwap := *snap.VWAP

	// The entry rules also require the bar's high and low; the exit rules do
	// not, so a bar missing them can still classify as SELL.
	buyInputsPresent := !math.IsNaN(snap.High) && !math.IsNaN(snap.Low)

	signal := domain.SignalHold
	switch {
	case buyInputsPresent && r.buySignal(ctx, symbol, closePrice, vwap, params):
		signal = domain.SignalBuy
	case r.sellSignal(ctx, symbol, closePrice, vwap, snap.RSI, params):
		signal = domain.SignalSell
	default:
		r.logger.Debug(ctx, "No signal conditions met, holding", map[string]interface{}{
			"symbol": symbol,
			"close":  closePrice,
			"vwap":   vwap,
		})
	}

	// Record the observation the way the rules saw it. Skipped when the
	// entry inputs were incomplete, matching the rule evaluation above.
	if buyInputsPresent {
		r.states[symbol] = domain.SymbolState{
			Price:          closePrice,
			VWAP:           vwap,
			Classification: signal,
			At:             snap.Timestamp,
		}
	}
	return signal
}

// buySignal requires all three entry conditions on the same bar: close below
// the reversion trigger, close back above VWAP, and close above the safety
// floor (falling-knife guard). The first two cannot both hold while the
// trigger is below 1, so with stock parameters no bar classifies as BUY.
func (r *Reversion) buySignal(ctx context.Context, symbol string, closePrice, vwap float64, params domain.StrategyParams) bool {
	priceBelowTrigger := closePrice < vwap*params.VWAPBuyThreshold
	closedAboveVWAP := closePrice > vwap
	aboveSafetyFloor := closePrice > vwap*params.VWAPSafetyFloor

	if priceBelowTrigger && closedAboveVWAP && aboveSafetyFloor {
		r.logger.Info(ctx, "Buy conditions met", map[string]interface{}{
			"symbol":       symbol,
			"close":        closePrice,
			"vwap":         vwap,
			"buyThreshold": params.VWAPBuyThreshold,
			"safetyFloor":  params.VWAPSafetyFloor,
		})
		return true
	}

	r.logger.Debug(ctx, "Buy conditions not met", map[string]interface{}{
		"symbol":            symbol,
		"close":             closePrice,
		"vwap":              vwap,
		"priceBelowTrigger": priceBelowTrigger,
		"closedAboveVWAP":   closedAboveVWAP,
		"aboveSafetyFloor":  aboveSafetyFloor,
	})
	return false
}

// sellSignal fires when either exit condition holds: close above the sell
// trigger, or RSI above the overbought level. An undefined RSI disables both
// branches.
func (r *Reversion) sellSignal(ctx context.Context, symbol string, closePrice, vwap float64, rsi *float64, params domain.StrategyParams) bool {
	if rsi == nil {
		r.logger.Debug(ctx, "RSI undefined, sell rules skipped", map[string]interface{}{"symbol": symbol})
		return false
	}

	aboveSellTrigger := closePrice > vwap*params.VWAPSellThreshold
	overbought := *rsi > params.RSIOverbought

	if aboveSellTrigger || overbought {
		r.logger.Info(ctx, "Sell conditions met", map[string]interface{}{
			"symbol":           symbol,
			"close":            closePrice,
			"vwap":             vwap,
			"rsi":              *rsi,
			"aboveSellTrigger": aboveSellTrigger,
			"overbought":       overbought,
		})
		return true
	}
	return false
}

// UpdateParameters applies a partial patch; nil fields keep their prior
// values. Unlike New, no cross-field validation is performed: a combination
// that breaks the floor < buy < 1 < sell ordering is accepted and logged, not
// rejected.
func (r *Reversion) UpdateParameters(ctx context.Context, patch domain.ParameterPatch) {
	if patch.IsEmpty() {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if patch.VWAPBuyThreshold != nil {
		r.params.VWAPBuyThreshold = *patch.VWAPBuyThreshold
	}
	if patch.VWAPSellThreshold != nil {
		r.params.VWAPSellThreshold = *patch.VWAPSellThreshold
	}
	if patch.VWAPSafetyFloor != nil {
		r.params.VWAPSafetyFloor = *patch.VWAPSafetyFloor
	}
	if patch.RSIOverbought != nil {
		r.params.RSIOverbought = *patch.RSIOverbought
	}
	if patch.RSIPeriod != nil {
		r.params.RSIPeriod = *patch.RSIPeriod
	}

	if r.params.VWAPSafetyFloor >= r.params.VWAPBuyThreshold || r.params.VWAPBuyThreshold >= 1 || r.params.VWAPSellThreshold <= 1 {
		r.logger.Warn(ctx, "Parameters violate the usual threshold ordering", map[string]interface{}{
			"buyThreshold":  r.params.VWAPBuyThreshold,
			"sellThreshold": r.params.VWAPSellThreshold,
			"safetyFloor":   r.params.VWAPSafetyFloor,
		})
	}
	r.logger.Info(ctx, "Strategy parameters updated", map[string]interface{}{
		"buyThreshold":  r.params.VWAPBuyThreshold,
		"sellThreshold": r.params.VWAPSellThreshold,
		"safetyFloor":   r.params.VWAPSafetyFloor,
		"rsiOverbought": r.params.RSIOverbought,
		"rsiPeriod":     r.params.RSIPeriod,
	})
}

// Parameters returns a copy of the current parameter set.
func (r *Reversion) Parameters() domain.StrategyParams {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.params
}

// States returns a copy of the per-symbol observation memory.
func (r *Reversion) States() map[string]domain.SymbolState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]domain.SymbolState, len(r.states))
	for symbol, state := range r.states {
		out[symbol] = state
	}
	return out
}

// Reset clears the per-symbol observation memory.
func (r *Reversion) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = make(map[string]domain.SymbolState)
}

// MinBars returns the minimum bar count for a defined classification. RSI
// looks one step further back than its period.
func (r *Reversion) MinBars() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.params.RSIPeriod + 1
}
