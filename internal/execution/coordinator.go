package execution

import (
	"context"
	"fmt"
	"math"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"vwapReversionBot/internal/domain"
	"vwapReversionBot/internal/ports"
	"vwapReversionBot/internal/risk"
)

// Coordinator turns signal classifications into broker orders. It keeps no
// exposure state of its own: live positions are re-queried from the broker
// before every action, which is what prevents repeated BUY signals from
// stacking entries and makes repeated SELL signals after a flatten harmless.
type Coordinator struct {
	logger ports.Logger
	broker ports.BrokerClient
	trades ports.TradeLog
	risk   *risk.Manager
	clock  clock.Clock
}

// NewCoordinator creates a new coordinator instance.
func NewCoordinator(broker ports.BrokerClient, trades ports.TradeLog, riskMgr *risk.Manager, clk clock.Clock, logger ports.Logger) (*Coordinator, error) {
	if broker == nil || trades == nil || riskMgr == nil || clk == nil || logger == nil {
		return nil, fmt.Errorf("missing required dependencies for Coordinator")
	}
	return &Coordinator{
		logger: logger,
		broker: broker,
		trades: trades,
		risk:   riskMgr,
		clock:  clk,
	}, nil
}

// OnSignal acts on one classification for one symbol. Exactly one TradeRecord
// is appended per order submission attempt and none for a no-op. A submission
// the broker rejected comes back as a failed record with a nil error; non-nil
// errors are reserved for failures that prevented any submission.
func (c *Coordinator) OnSignal(ctx context.Context, symbol string, signal domain.Signal, snap *domain.IndicatorSnapshot) (*domain.TradeRecord, error) {
	op := "OnSignal"

	switch signal {
	case domain.SignalHold:
		c.logger.Debug(ctx, op+": HOLD, nothing to do", map[string]interface{}{"symbol": symbol})
		return nil, nil
	case domain.SignalBuy:
		if snap == nil || math.IsNaN(snap.Close) || snap.Close <= 0 {
			return nil, fmt.Errorf("%w: %s classified BUY without a usable close price", ports.ErrInvalidRequest, symbol)
		}
		return c.enterPosition(ctx, symbol, snap.Close)
	case domain.SignalSell:
		return c.closePosition(ctx, symbol)
	default:
		return nil, fmt.Errorf("%w: unknown signal %q for %s", ports.ErrInvalidRequest, signal, symbol)
	}
}

func (c *Coordinator) enterPosition(ctx context.Context, symbol string, closePrice float64) (*domain.TradeRecord, error) {
	op := "enterPosition"

	// 1. Live positions are the only exposure truth consulted.
	positions, err := c.broker.GetPositions(ctx)
	if err != nil {
		c.logger.Error(ctx, err, op+": Failed to fetch positions", map[string]interface{}{"symbol": symbol})
		return nil, fmt.Errorf("fetching positions: %w", err)
	}
	if pos := findPosition(positions, symbol); pos != nil {
		c.logger.Info(ctx, op+": Position already open, skipping entry", map[string]interface{}{
			"symbol": symbol,
			"qty":    pos.Qty,
		})
		return nil, nil
	}

	// 2. Size the entry and derive the bracket prices from the same close.
	qty, err := c.risk.GetPositionSize(ctx, closePrice)
	if err != nil {
		return nil, fmt.Errorf("sizing entry for %s: %w", symbol, err)
	}
	stopLoss := c.risk.GetStopLoss(ctx, closePrice)
	takeProfit := c.risk.GetTakeProfit(ctx, closePrice)

	c.logger.Info(ctx, op+": Submitting bracket entry", map[string]interface{}{
		"symbol":     symbol,
		"qty":        qty,
		"price":      closePrice,
		"stopLoss":   stopLoss,
		"takeProfit": takeProfit,
	})

	// 3. Submit, then record the attempt whichever way it went.
	result, submitErr := c.broker.SubmitBracketOrder(ctx, domain.OrderRequest{
		Symbol:         symbol,
		Side:           domain.Buy,
		Qty:            qty,
		ReferencePrice: closePrice,
		StopLoss:       &stopLoss,
		TakeProfit:     &takeProfit,
		ClientOrderID:  uuid.NewString(),
	})

	rec := &domain.TradeRecord{
		Timestamp: c.clock.Now().UTC(),
		Symbol:    symbol,
		Side:      domain.Buy,
		Price:     closePrice,
		Quantity:  qty,
	}
	if submitErr != nil {
		rec.Status = domain.TradeFailed
		rec.Reason = fmt.Sprintf("API Error: %v", submitErr)
		c.logger.Error(ctx, submitErr, op+": Bracket order failed", map[string]interface{}{"symbol": symbol})
	} else {
		rec.Status = domain.TradeSubmitted
		rec.OrderID = result.OrderID
		rec.StopLoss = &stopLoss
		rec.TakeProfit = &takeProfit
		rec.Reason = "BUY signal"
		c.logger.Info(ctx, op+": Bracket order submitted", map[string]interface{}{
			"symbol":  symbol,
			"orderID": result.OrderID,
		})
	}

	return c.appendRecord(ctx, op, rec)
}

func (c *Coordinator) closePosition(ctx context.Context, symbol string) (*domain.TradeRecord, error) {
	op := "closePosition"

	// 1. Live positions again: a SELL after the position is gone is a no-op.
	positions, err := c.broker.GetPositions(ctx)
	if err != nil {
		c.logger.Error(ctx, err, op+": Failed to fetch positions", map[string]interface{}{"symbol": symbol})
		return nil, fmt.Errorf("fetching positions: %w", err)
	}
	pos := findPosition(positions, symbol)
	if pos == nil {
		c.logger.Info(ctx, op+": No open position, nothing to close", map[string]interface{}{"symbol": symbol})
		return nil, nil
	}

	// 2. Flatten the entire held quantity at the latest quoted price.
	currentPrice, err := c.broker.GetCurrentPrice(ctx, symbol)
	if err != nil {
		c.logger.Error(ctx, err, op+": Failed to fetch current price", map[string]interface{}{"symbol": symbol})
		return nil, fmt.Errorf("fetching current price for %s: %w", symbol, err)
	}

	qty := math.Abs(pos.Qty)
	side := pos.Side().Opposite()

	c.logger.Info(ctx, op+": Submitting market order to flatten position", map[string]interface{}{
		"symbol": symbol,
		"side":   side,
		"qty":    qty,
		"price":  currentPrice,
	})

	// 3. Submit, then record the attempt whichever way it went.
	result, submitErr := c.broker.SubmitMarketOrder(ctx, domain.OrderRequest{
		Symbol:         symbol,
		Side:           side,
		Qty:            qty,
		ReferencePrice: currentPrice,
		ClientOrderID:  uuid.NewString(),
	})

	rec := &domain.TradeRecord{
		Timestamp: c.clock.Now().UTC(),
		Symbol:    symbol,
		Side:      side,
		Price:     currentPrice,
		Quantity:  qty,
	}
	if submitErr != nil {
		rec.Status = domain.TradeFailed
		rec.Reason = fmt.Sprintf("API Error: %v", submitErr)
		c.logger.Error(ctx, submitErr, op+": Market order failed", map[string]interface{}{"symbol": symbol})
	} else {
		rec.Status = domain.TradeSubmitted
		rec.OrderID = result.OrderID
		rec.Reason = "Close position: SELL signal"
		c.logger.Info(ctx, op+": Position flattened", map[string]interface{}{
			"symbol":  symbol,
			"orderID": result.OrderID,
			"qty":     qty,
		})
	}

	return c.appendRecord(ctx, op, rec)
}

// appendRecord persists the record of a submission attempt. An append failure
// propagates even though the order itself may have gone through; the order ID
// is logged so the gap can be reconciled by hand.
func (c *Coordinator) appendRecord(ctx context.Context, op string, rec *domain.TradeRecord) (*domain.TradeRecord, error) {
	id, err := c.trades.Append(ctx, rec)
	if err != nil {
		c.logger.Error(ctx, err, op+": Failed to persist trade record", map[string]interface{}{
			"symbol":  rec.Symbol,
			"orderID": rec.OrderID,
			"status":  rec.Status,
		})
		return nil, fmt.Errorf("persisting trade record: %w", err)
	}
	rec.ID = id
	return rec, nil
}

// UpdateSettings replaces the execution settings used for future entries.
func (c *Coordinator) UpdateSettings(ctx context.Context, settings domain.ExecutionSettings) error {
	if err := c.risk.UpdateSettings(settings); err != nil {
		return err
	}
	c.logger.Info(ctx, "Execution settings updated", map[string]interface{}{
		"positionSize":  settings.PositionSizeDollars,
		"stopLossPct":   settings.StopLossPct,
		"takeProfitPct": settings.TakeProfitPct,
	})
	return nil
}

// Settings returns a copy of the current execution settings.
func (c *Coordinator) Settings() domain.ExecutionSettings {
	return c.risk.Settings()
}

func findPosition(positions []domain.Position, symbol string) *domain.Position {
	for i := range positions {
		if positions[i].Symbol == symbol && !positions[i].IsFlat() {
			return &positions[i]
		}
	}
	return nil
}
