package execution

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vwapReversionBot/internal/domain"
	"vwapReversionBot/internal/ports"
	"vwapReversionBot/internal/risk"
)

// Mock implementations
type mockLogger struct {
	debugMsgs []string
	infoMsgs  []string
	warnMsgs  []string
	errorMsgs []string
}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.debugMsgs = append(m.debugMsgs, msg)
}

func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.infoMsgs = append(m.infoMsgs, msg)
}

func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.warnMsgs = append(m.warnMsgs, msg)
}

func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
	m.errorMsgs = append(m.errorMsgs, msg)
}

type mockBroker struct {
	positions       []domain.Position
	positionsErr    error
	currentPrice    float64
	currentPriceErr error
	bracketResult   *domain.OrderResult
	bracketErr      error
	marketResult    *domain.OrderResult
	marketErr       error

	getPositionsCalls int
	priceCalls        int
	bracketCalls      int
	marketCalls       int
	lastBracketReq    domain.OrderRequest
	lastMarketReq     domain.OrderRequest
}

func (m *mockBroker) GetAccount(ctx context.Context) (*domain.AccountSnapshot, error) {
	return &domain.AccountSnapshot{}, nil
}

func (m *mockBroker) GetPositions(ctx context.Context) ([]domain.Position, error) {
	m.getPositionsCalls++
	return m.positions, m.positionsErr
}

func (m *mockBroker) GetBars(ctx context.Context, symbol string, timeframe domain.Timeframe, limit int) ([]domain.Bar, error) {
	return nil, nil
}

func (m *mockBroker) GetCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	m.priceCalls++
	return m.currentPrice, m.currentPriceErr
}

func (m *mockBroker) SubmitBracketOrder(ctx context.Context, req domain.OrderRequest) (*domain.OrderResult, error) {
	m.bracketCalls++
	m.lastBracketReq = req
	return m.bracketResult, m.bracketErr
}

func (m *mockBroker) SubmitMarketOrder(ctx context.Context, req domain.OrderRequest) (*domain.OrderResult, error) {
	m.marketCalls++
	m.lastMarketReq = req
	return m.marketResult, m.marketErr
}

type mockTradeLog struct {
	appended  []*domain.TradeRecord
	appendErr error
}

func (m *mockTradeLog) Append(ctx context.Context, rec *domain.TradeRecord) (int64, error) {
	if m.appendErr != nil {
		return 0, m.appendErr
	}
	m.appended = append(m.appended, rec)
	return int64(len(m.appended)), nil
}

func (m *mockTradeLog) RecentTrades(ctx context.Context, limit int) ([]*domain.TradeRecord, error) {
	return m.appended, nil
}

func (m *mockTradeLog) TradesBySymbol(ctx context.Context, symbol string, limit int) ([]*domain.TradeRecord, error) {
	return nil, nil
}

func (m *mockTradeLog) TradesSince(ctx context.Context, since time.Time) ([]*domain.TradeRecord, error) {
	return nil, nil
}

var testNow = time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)

func newTestCoordinator(t *testing.T, broker *mockBroker, trades *mockTradeLog, settings domain.ExecutionSettings) *Coordinator {
	t.Helper()
	riskMgr, err := risk.NewManager(settings)
	require.NoError(t, err)

	mockClock := clock.NewMock()
	mockClock.Set(testNow)

	coord, err := NewCoordinator(broker, trades, riskMgr, mockClock, &mockLogger{})
	require.NoError(t, err)
	return coord
}

func snapshotAt(closePrice float64) *domain.IndicatorSnapshot {
	vwap := closePrice
	rsi := 50.0
	return &domain.IndicatorSnapshot{
		Symbol:    "AAPL",
		Timestamp: testNow,
		Open:      closePrice,
		High:      closePrice,
		Low:       closePrice,
		Close:     closePrice,
		VWAP:      &vwap,
		RSI:       &rsi,
	}
}

func TestNewCoordinator_MissingDependencies(t *testing.T) {
	riskMgr, err := risk.NewManager(domain.ExecutionSettings{})
	require.NoError(t, err)

	_, err = NewCoordinator(nil, &mockTradeLog{}, riskMgr, clock.NewMock(), &mockLogger{})
	assert.Error(t, err)
	_, err = NewCoordinator(&mockBroker{}, nil, riskMgr, clock.NewMock(), &mockLogger{})
	assert.Error(t, err)
	_, err = NewCoordinator(&mockBroker{}, &mockTradeLog{}, nil, clock.NewMock(), &mockLogger{})
	assert.Error(t, err)
	_, err = NewCoordinator(&mockBroker{}, &mockTradeLog{}, riskMgr, nil, &mockLogger{})
	assert.Error(t, err)
	_, err = NewCoordinator(&mockBroker{}, &mockTradeLog{}, riskMgr, clock.NewMock(), nil)
	assert.Error(t, err)
}

func TestOnSignal_HoldIsNoop(t *testing.T) {
	broker := &mockBroker{}
	trades := &mockTradeLog{}
	coord := newTestCoordinator(t, broker, trades, domain.ExecutionSettings{})

	rec, err := coord.OnSignal(context.Background(), "AAPL", domain.SignalHold, snapshotAt(100))
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.Zero(t, broker.getPositionsCalls)
	assert.Zero(t, broker.bracketCalls)
	assert.Zero(t, broker.marketCalls)
	assert.Empty(t, trades.appended)
}

func TestOnSignal_BuySubmitsBracket(t *testing.T) {
	broker := &mockBroker{
		bracketResult: &domain.OrderResult{OrderID: "order-1", Status: "accepted"},
	}
	trades := &mockTradeLog{}
	coord := newTestCoordinator(t, broker, trades, domain.ExecutionSettings{})

	rec, err := coord.OnSignal(context.Background(), "AAPL", domain.SignalBuy, snapshotAt(50))
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.Equal(t, int64(1), rec.ID)
	assert.Equal(t, domain.TradeSubmitted, rec.Status)
	assert.Equal(t, domain.Buy, rec.Side)
	assert.Equal(t, 2.0, rec.Quantity)
	assert.Equal(t, 50.0, rec.Price)
	assert.Equal(t, "order-1", rec.OrderID)
	assert.Equal(t, "BUY signal", rec.Reason)
	require.NotNil(t, rec.StopLoss)
	require.NotNil(t, rec.TakeProfit)
	assert.Equal(t, 48.5, *rec.StopLoss)
	assert.Equal(t, 54.0, *rec.TakeProfit)
	assert.True(t, rec.Timestamp.Equal(testNow))

	require.Equal(t, 1, broker.bracketCalls)
	req := broker.lastBracketReq
	assert.Equal(t, domain.Buy, req.Side)
	assert.Equal(t, 2.0, req.Qty)
	assert.True(t, req.IsBracket())
	assert.NotEmpty(t, req.ClientOrderID)

	require.Len(t, trades.appended, 1)
}

func TestOnSignal_BuyWithOpenPositionIsNoop(t *testing.T) {
	broker := &mockBroker{
		positions: []domain.Position{{Symbol: "AAPL", Qty: 2}},
	}
	trades := &mockTradeLog{}
	coord := newTestCoordinator(t, broker, trades, domain.ExecutionSettings{})

	rec, err := coord.OnSignal(context.Background(), "AAPL", domain.SignalBuy, snapshotAt(50))
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.Zero(t, broker.bracketCalls)
	assert.Empty(t, trades.appended)
}

func TestOnSignal_BuyIgnoresFlatAndOtherPositions(t *testing.T) {
	// A zero-quantity leftover or a position in another symbol must not
	// block a new entry.
	broker := &mockBroker{
		positions: []domain.Position{
			{Symbol: "AAPL", Qty: 0},
			{Symbol: "NVDA", Qty: 5},
		},
		bracketResult: &domain.OrderResult{OrderID: "order-1"},
	}
	trades := &mockTradeLog{}
	coord := newTestCoordinator(t, broker, trades, domain.ExecutionSettings{})

	rec, err := coord.OnSignal(context.Background(), "AAPL", domain.SignalBuy, snapshotAt(50))
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 1, broker.bracketCalls)
}

func TestOnSignal_BuyBrokerFailureRecorded(t *testing.T) {
	broker := &mockBroker{
		bracketErr: fmt.Errorf("submitting order: %w", ports.ErrInsufficientFunds),
	}
	trades := &mockTradeLog{}
	coord := newTestCoordinator(t, broker, trades, domain.ExecutionSettings{})

	rec, err := coord.OnSignal(context.Background(), "AAPL", domain.SignalBuy, snapshotAt(50))
	require.NoError(t, err, "a recorded broker failure is not an error")
	require.NotNil(t, rec)

	assert.Equal(t, domain.TradeFailed, rec.Status)
	assert.Empty(t, rec.OrderID)
	assert.Nil(t, rec.StopLoss)
	assert.Nil(t, rec.TakeProfit)
	assert.Contains(t, rec.Reason, "API Error")
	require.Len(t, trades.appended, 1)
}

func TestOnSignal_BuyPositionsFetchErrorPropagates(t *testing.T) {
	broker := &mockBroker{
		positionsErr: fmt.Errorf("fetching: %w", ports.ErrConnectionFailed),
	}
	trades := &mockTradeLog{}
	coord := newTestCoordinator(t, broker, trades, domain.ExecutionSettings{})

	rec, err := coord.OnSignal(context.Background(), "AAPL", domain.SignalBuy, snapshotAt(50))
	assert.ErrorIs(t, err, ports.ErrConnectionFailed)
	assert.Nil(t, rec)
	assert.Zero(t, broker.bracketCalls)
	assert.Empty(t, trades.appended)
}

func TestOnSignal_BuyZeroQuantityPropagates(t *testing.T) {
	broker := &mockBroker{}
	trades := &mockTradeLog{}
	coord := newTestCoordinator(t, broker, trades, domain.ExecutionSettings{PositionSizeDollars: 0.1})

	// 0.1 dollars at price 100 rounds to zero shares
	rec, err := coord.OnSignal(context.Background(), "AAPL", domain.SignalBuy, snapshotAt(100))
	assert.ErrorIs(t, err, ports.ErrInvalidQuantity)
	assert.Nil(t, rec)
	assert.Zero(t, broker.bracketCalls)
	assert.Empty(t, trades.appended)
}

func TestOnSignal_BuyNilSnapshotRejected(t *testing.T) {
	broker := &mockBroker{}
	coord := newTestCoordinator(t, broker, &mockTradeLog{}, domain.ExecutionSettings{})

	rec, err := coord.OnSignal(context.Background(), "AAPL", domain.SignalBuy, nil)
	assert.ErrorIs(t, err, ports.ErrInvalidRequest)
	assert.Nil(t, rec)
	assert.Zero(t, broker.getPositionsCalls)
}

func TestOnSignal_SellFlattensEntirePosition(t *testing.T) {
	broker := &mockBroker{
		positions:    []domain.Position{{Symbol: "AAPL", Qty: 3.5, AvgEntryPrice: 95}},
		currentPrice: 102.5,
		marketResult: &domain.OrderResult{OrderID: "order-2"},
	}
	trades := &mockTradeLog{}
	coord := newTestCoordinator(t, broker, trades, domain.ExecutionSettings{})

	rec, err := coord.OnSignal(context.Background(), "AAPL", domain.SignalSell, snapshotAt(103))
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.Equal(t, domain.TradeSubmitted, rec.Status)
	assert.Equal(t, domain.Sell, rec.Side)
	assert.Equal(t, 3.5, rec.Quantity)
	assert.Equal(t, 102.5, rec.Price, "close uses the live quote, not the bar close")
	assert.Equal(t, "order-2", rec.OrderID)
	assert.Equal(t, "Close position: SELL signal", rec.Reason)
	assert.Nil(t, rec.StopLoss)
	assert.Nil(t, rec.TakeProfit)

	require.Equal(t, 1, broker.marketCalls)
	req := broker.lastMarketReq
	assert.Equal(t, domain.Sell, req.Side)
	assert.Equal(t, 3.5, req.Qty)
	assert.False(t, req.IsBracket())
	assert.Equal(t, 1, broker.priceCalls)
}

func TestOnSignal_SellNoPositionIsNoop(t *testing.T) {
	broker := &mockBroker{}
	trades := &mockTradeLog{}
	coord := newTestCoordinator(t, broker, trades, domain.ExecutionSettings{})

	rec, err := coord.OnSignal(context.Background(), "AAPL", domain.SignalSell, snapshotAt(103))
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.Zero(t, broker.marketCalls)
	assert.Zero(t, broker.priceCalls)
	assert.Empty(t, trades.appended)
}

func TestOnSignal_SellCoversShortPosition(t *testing.T) {
	broker := &mockBroker{
		positions:    []domain.Position{{Symbol: "AAPL", Qty: -3}},
		currentPrice: 98,
		marketResult: &domain.OrderResult{OrderID: "order-3"},
	}
	trades := &mockTradeLog{}
	coord := newTestCoordinator(t, broker, trades, domain.ExecutionSettings{})

	rec, err := coord.OnSignal(context.Background(), "AAPL", domain.SignalSell, snapshotAt(98))
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.Equal(t, domain.Buy, rec.Side, "a short position is flattened with a buy")
	assert.Equal(t, 3.0, rec.Quantity)
	assert.Equal(t, domain.Buy, broker.lastMarketReq.Side)
}

func TestOnSignal_SellPriceUnavailablePropagates(t *testing.T) {
	broker := &mockBroker{
		positions:       []domain.Position{{Symbol: "AAPL", Qty: 2}},
		currentPriceErr: fmt.Errorf("quote: %w", ports.ErrPriceUnavailable),
	}
	trades := &mockTradeLog{}
	coord := newTestCoordinator(t, broker, trades, domain.ExecutionSettings{})

	rec, err := coord.OnSignal(context.Background(), "AAPL", domain.SignalSell, snapshotAt(103))
	assert.ErrorIs(t, err, ports.ErrPriceUnavailable)
	assert.Nil(t, rec)
	assert.Zero(t, broker.marketCalls)
	assert.Empty(t, trades.appended)
}

func TestOnSignal_SellBrokerFailureRecorded(t *testing.T) {
	broker := &mockBroker{
		positions:    []domain.Position{{Symbol: "AAPL", Qty: 2}},
		currentPrice: 100,
		marketErr:    fmt.Errorf("submitting order: %w", ports.ErrOrderRejected),
	}
	trades := &mockTradeLog{}
	coord := newTestCoordinator(t, broker, trades, domain.ExecutionSettings{})

	rec, err := coord.OnSignal(context.Background(), "AAPL", domain.SignalSell, snapshotAt(103))
	require.NoError(t, err, "a recorded broker failure is not an error")
	require.NotNil(t, rec)

	assert.Equal(t, domain.TradeFailed, rec.Status)
	assert.Contains(t, rec.Reason, "API Error")
	require.Len(t, trades.appended, 1)
}

func TestOnSignal_RepeatedSellAfterFlatIsNoop(t *testing.T) {
	broker := &mockBroker{
		positions:    []domain.Position{{Symbol: "AAPL", Qty: 2}},
		currentPrice: 100,
		marketResult: &domain.OrderResult{OrderID: "order-4"},
	}
	trades := &mockTradeLog{}
	coord := newTestCoordinator(t, broker, trades, domain.ExecutionSettings{})

	rec, err := coord.OnSignal(context.Background(), "AAPL", domain.SignalSell, snapshotAt(103))
	require.NoError(t, err)
	require.NotNil(t, rec)

	// Position is now gone at the broker; the next SELL must re-query and
	// see that, not act on remembered state.
	broker.positions = nil
	rec, err = coord.OnSignal(context.Background(), "AAPL", domain.SignalSell, snapshotAt(103))
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.Equal(t, 2, broker.getPositionsCalls)
	assert.Equal(t, 1, broker.marketCalls)
	require.Len(t, trades.appended, 1)
}

func TestOnSignal_AppendFailurePropagates(t *testing.T) {
	appendErr := errors.New("disk full")
	broker := &mockBroker{
		bracketResult: &domain.OrderResult{OrderID: "order-1"},
	}
	trades := &mockTradeLog{appendErr: appendErr}
	coord := newTestCoordinator(t, broker, trades, domain.ExecutionSettings{})

	rec, err := coord.OnSignal(context.Background(), "AAPL", domain.SignalBuy, snapshotAt(50))
	assert.ErrorIs(t, err, appendErr)
	assert.Nil(t, rec)
}

func TestOnSignal_UnknownSignalRejected(t *testing.T) {
	coord := newTestCoordinator(t, &mockBroker{}, &mockTradeLog{}, domain.ExecutionSettings{})

	rec, err := coord.OnSignal(context.Background(), "AAPL", domain.Signal("WAIT"), snapshotAt(100))
	assert.ErrorIs(t, err, ports.ErrInvalidRequest)
	assert.Nil(t, rec)
}

func TestUpdateSettings(t *testing.T) {
	coord := newTestCoordinator(t, &mockBroker{}, &mockTradeLog{}, domain.ExecutionSettings{})

	updated := domain.ExecutionSettings{
		PositionSizeDollars: 250,
		StopLossPct:         0.02,
		TakeProfitPct:       0.05,
	}
	require.NoError(t, coord.UpdateSettings(context.Background(), updated))
	assert.Equal(t, updated, coord.Settings())

	err := coord.UpdateSettings(context.Background(), domain.ExecutionSettings{PositionSizeDollars: -1})
	assert.ErrorIs(t, err, ports.ErrConfigurationError)
	assert.Equal(t, updated, coord.Settings(), "failed update must not change settings")
}
