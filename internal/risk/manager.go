package risk

import (
	"context"
	"fmt"
	"math"
	"sync"

	"vwapReversionBot/internal/domain"
	"vwapReversionBot/internal/ports"
)

// Manager turns execution settings into concrete order numbers: a fixed
// dollar allocation into a share quantity, and an entry price into bracket
// exit prices. All outputs are rounded to cents; quantities allow fractional
// shares.
type Manager struct {
	mu       sync.RWMutex
	settings domain.ExecutionSettings
}

// NewManager creates a new risk manager instance. Zero fields take the stock
// defaults; the resulting settings must validate.
func NewManager(settings domain.ExecutionSettings) (*Manager, error) {
	settings = withDefaults(settings)
	if err := Validate(settings); err != nil {
		return nil, err
	}
	return &Manager{settings: settings}, nil
}

func withDefaults(s domain.ExecutionSettings) domain.ExecutionSettings {
	defaults := domain.DefaultExecutionSettings()
	if s.PositionSizeDollars == 0 {
		s.PositionSizeDollars = defaults.PositionSizeDollars
	}
	if s.StopLossPct == 0 {
		s.StopLossPct = defaults.StopLossPct
	}
	if s.TakeProfitPct == 0 {
		s.TakeProfitPct = defaults.TakeProfitPct
	}
	return s
}

// Validate checks the numeric ranges of the settings.
func Validate(s domain.ExecutionSettings) error {
	if s.PositionSizeDollars <= 0 || math.IsNaN(s.PositionSizeDollars) {
		return fmt.Errorf("%w: position size must be positive, got %v", ports.ErrConfigurationError, s.PositionSizeDollars)
	}
	if s.StopLossPct <= 0 || s.StopLossPct >= 1 || math.IsNaN(s.StopLossPct) {
		return fmt.Errorf("%w: stop loss percent must be within (0, 1), got %v", ports.ErrConfigurationError, s.StopLossPct)
	}
	if s.TakeProfitPct <= 0 || math.IsNaN(s.TakeProfitPct) {
		return fmt.Errorf("%w: take profit percent must be positive, got %v", ports.ErrConfigurationError, s.TakeProfitPct)
	}
	return nil
}

// GetPositionSize calculates the share quantity a new entry at currentPrice
// should carry, rounded to two decimals. A quantity that rounds to zero is an
// error: no order should be attempted for it.
func (m *Manager) GetPositionSize(ctx context.Context, currentPrice float64) (float64, error) {
	m.mu.RLock()
	allocation := m.settings.PositionSizeDollars
	m.mu.RUnlock()

	if currentPrice <= 0 || math.IsNaN(currentPrice) {
		return 0, fmt.Errorf("%w: cannot size a position at price %v", ports.ErrInvalidQuantity, currentPrice)
	}
	qty := roundCents(allocation / currentPrice)
	if qty <= 0 {
		return 0, fmt.Errorf("%w: allocation %.2f at price %.2f rounds to zero shares", ports.ErrInvalidQuantity, allocation, currentPrice)
	}
	return qty, nil
}

// GetStopLoss calculates the bracket stop price for a long entry at entryPrice.
func (m *Manager) GetStopLoss(ctx context.Context, entryPrice float64) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return roundCents(entryPrice * (1 - m.settings.StopLossPct))
}

// GetTakeProfit calculates the bracket limit price for a long entry at entryPrice.
func (m *Manager) GetTakeProfit(ctx context.Context, entryPrice float64) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return roundCents(entryPrice * (1 + m.settings.TakeProfitPct))
}

// UpdateSettings replaces the settings wholesale after validation. Unlike
// NewManager, zero fields are not defaulted here: an update must be complete.
func (m *Manager) UpdateSettings(settings domain.ExecutionSettings) error {
	if err := Validate(settings); err != nil {
		return err
	}
	m.mu.Lock()
	m.settings = settings
	m.mu.Unlock()
	return nil
}

// Settings returns a copy of the current settings.
func (m *Manager) Settings() domain.ExecutionSettings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
