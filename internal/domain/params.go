package domain

import "time"

// ProfileVersion is stamped into every profile file written by this build.
const ProfileVersion = "1.0"

// StrategyParams are the tunable inputs of the VWAP reversion rules.
// Startup configuration must satisfy SafetyFloor < BuyThreshold < 1 <
// SellThreshold; runtime patches are applied without cross-field validation.
type StrategyParams struct {
	VWAPBuyThreshold  float64 // Fraction < 1: entry trigger is close < vwap*threshold
	VWAPSellThreshold float64 // Fraction > 1: exit trigger is close > vwap*threshold
	VWAPSafetyFloor   float64 // Fraction < 1: reject entries with close <= vwap*floor
	RSIOverbought     float64 // Exit trigger: rsi above this level
	RSIPeriod         int     // Lookback window for RSI
}

// DefaultStrategyParams returns the stock parameter set.
func DefaultStrategyParams() StrategyParams {
	return StrategyParams{
		VWAPBuyThreshold:  0.99,
		VWAPSellThreshold: 1.01,
		VWAPSafetyFloor:   0.95,
		RSIOverbought:     70,
		RSIPeriod:         14,
	}
}

// ParameterPatch is a partial update to StrategyParams; nil fields retain
// their prior values.
type ParameterPatch struct {
	VWAPBuyThreshold  *float64
	VWAPSellThreshold *float64
	VWAPSafetyFloor   *float64
	RSIOverbought     *float64
	RSIPeriod         *int
}

// IsEmpty reports whether the patch changes nothing.
func (p ParameterPatch) IsEmpty() bool {
	return p.VWAPBuyThreshold == nil && p.VWAPSellThreshold == nil &&
		p.VWAPSafetyFloor == nil && p.RSIOverbought == nil && p.RSIPeriod == nil
}

// SymbolState is the signal evaluator's per-symbol memory: the observation it
// recorded after the most recent evaluation. It exists for observability and
// is never read back into the decision rules.
type SymbolState struct {
	Price          float64
	VWAP           float64
	Classification Signal
	At             time.Time
}

// ExecutionSettings control position sizing and bracket pricing.
type ExecutionSettings struct {
	PositionSizeDollars float64 `json:"position_size"`   // Dollar value of each entry
	StopLossPct         float64 `json:"stop_loss_pct"`   // Fraction of entry price (0 < pct < 1)
	TakeProfitPct       float64 `json:"take_profit_pct"` // Fraction of entry price (> 0)
}

// DefaultExecutionSettings returns the stock execution settings.
func DefaultExecutionSettings() ExecutionSettings {
	return ExecutionSettings{
		PositionSizeDollars: 100,
		StopLossPct:         0.03,
		TakeProfitPct:       0.08,
	}
}

// DataSettings control the polling cadence carried inside a profile.
type DataSettings struct {
	RefreshInterval int  `json:"refresh_interval"` // Seconds between polling iterations
	AutoRefresh     bool `json:"auto_refresh"`
}

// Profile is a named parameter bundle persisted by the profile store. The
// JSON layout (metadata envelope plus a data section) matches the profile
// files the bot has always written.
type Profile struct {
	Name         string      `json:"name"`
	Created      time.Time   `json:"created"`
	LastModified time.Time   `json:"last_modified"`
	Version      string      `json:"version"`
	Data         ProfileData `json:"data"`
}

// ProfileData is the payload section of a profile.
type ProfileData struct {
	Symbols         []string          `json:"symbols"`
	TradingSettings ExecutionSettings `json:"trading_settings"`
	DataSettings    DataSettings      `json:"data_settings"`
}
