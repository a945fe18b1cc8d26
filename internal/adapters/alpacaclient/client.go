package alpacaclient

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/benbjohnson/clock"
	"github.com/shopspring/decimal"

	"vwapReversionBot/internal/domain"
	"vwapReversionBot/internal/ports"
)

const (
	// Base URLs for the trading API
	baseURLPaper = "https://paper-api.alpaca.markets"
	baseURLLive  = "https://api.alpaca.markets"

	// exchangeTimezone is the IANA zone all session arithmetic happens in.
	exchangeTimezone = "America/New_York"

	// defaultBarLimit caps a bar request when the caller passes limit <= 0.
	defaultBarLimit = 200
)

// Client implements the ports.BrokerClient and ports.MarketCalendar
// interfaces using the official Alpaca SDK. The SDK's methods do not accept a
// context, so ctx is honored for logging and error translation only.
type Client struct {
	trading    *alpaca.Client
	marketData *marketdata.Client
	logger     ports.Logger
	clock      clock.Clock
	feed       marketdata.Feed
	loc        *time.Location

	// Trading calendar cache, guarded by calMu (see calendar.go).
	calMu   sync.Mutex
	calDays map[string]sessionHours
	calDay  string
}

// Config holds configuration specific to the Alpaca client adapter.
type Config struct {
	APIKey     string
	APISecret  string
	BaseURL    string        // Trading API endpoint; empty selects the paper endpoint
	Feed       string        // Market data feed ("iex" or "sip"); empty selects IEX
	RetryLimit int           // SDK retry attempts for throttled requests
	RetryDelay time.Duration // Delay between SDK retries (e.g., 1 * time.Second)
	Logger     ports.Logger
	Clock      clock.Clock // Defaults to the real clock
}

// New creates a new Alpaca client adapter.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Alpaca client")
	}
	if cfg.APIKey == "" || cfg.APISecret == "" {
		cfg.Logger.Warn(context.Background(), "APIKey or APISecret is empty. Broker requests will fail authentication.")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = baseURLPaper
	}
	if baseURL == baseURLLive {
		cfg.Logger.Info(context.Background(), "Alpaca client configured for Live Trading", map[string]interface{}{"baseURL": baseURL})
	} else {
		cfg.Logger.Info(context.Background(), "Alpaca client configured for Paper Trading", map[string]interface{}{"baseURL": baseURL})
	}

	// Default retry settings if not provided
	retryLimit := cfg.RetryLimit
	if retryLimit <= 0 {
		retryLimit = 3
	}
	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = 1 * time.Second
	}

	feed := marketdata.Feed(cfg.Feed)
	if feed == "" {
		feed = marketdata.IEX
	}

	clk := cfg.Clock
	if clk == nil {
		clk = clock.New()
	}

	loc, err := time.LoadLocation(exchangeTimezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load exchange timezone: %w", err)
	}

	return &Client{
		trading: alpaca.NewClient(alpaca.ClientOpts{
			APIKey:     cfg.APIKey,
			APISecret:  cfg.APISecret,
			BaseURL:    baseURL,
			RetryLimit: retryLimit,
			RetryDelay: retryDelay,
		}),
		marketData: marketdata.NewClient(marketdata.ClientOpts{
			APIKey:     cfg.APIKey,
			APISecret:  cfg.APISecret,
			RetryLimit: retryLimit,
			RetryDelay: retryDelay,
		}),
		logger: cfg.Logger,
		clock:  clk,
		feed:   feed,
		loc:    loc,
	}, nil
}

// handleError translates common Alpaca API errors into standardized ports errors.
func (c *Client) handleError(ctx context.Context, err error, operation string) error {
	if err == nil {
		return nil
	}

	fields := map[string]interface{}{"operation": operation, "originalError": err.Error()}

	if status, code, message, ok := apiErrorDetails(err); ok {
		fields["apiStatusCode"] = status
		fields["apiErrorCode"] = code
		fields["apiErrorMessage"] = message

		// Map HTTP status codes to custom errors; Alpaca carries the
		// interesting detail in the status rather than the body code.
		var mappedErr error
		lowerMsg := strings.ToLower(message)
		switch {
		case status == 401:
			mappedErr = ports.ErrAuthenticationFailed
		case status == 403 && (code == 40310000 || strings.Contains(lowerMsg, "insufficient")):
			mappedErr = ports.ErrInsufficientFunds
		case status == 403:
			mappedErr = ports.ErrAuthenticationFailed
		case status == 404:
			mappedErr = ports.ErrNotFound
		case status == 400 || status == 422:
			mappedErr = ports.ErrInvalidRequest
		case status == 429:
			mappedErr = ports.ErrRateLimited
		case status >= 500:
			mappedErr = ports.ErrBrokerUnavailable
		default:
			// General classification for unmapped API errors
			mappedErr = ports.ErrUnknown
		}
		finalErr := fmt.Errorf("%s failed: %w: %w", operation, mappedErr, err)
		c.logger.Error(ctx, err, fmt.Sprintf("%s failed with API error", operation), fields)
		return finalErr
	}

	// Handle non-API errors (network, context cancellation, etc.)
	var finalErr error
	if errors.Is(err, context.DeadlineExceeded) {
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrTimeout, err)
	} else if errors.Is(err, context.Canceled) {
		finalErr = fmt.Errorf("%s operation canceled: %w: %w", operation, ports.ErrContextCanceled, err)
	} else if strings.Contains(err.Error(), "use of closed network connection") ||
		strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "connection reset by peer") {
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrConnectionFailed, err)
	} else {
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrUnknown, err)
	}

	c.logger.Error(ctx, err, fmt.Sprintf("%s failed", operation), fields)
	return finalErr
}

// apiErrorDetails extracts the status code, body code and message from either
// SDK package's API error type.
func apiErrorDetails(err error) (statusCode, code int, message string, ok bool) {
	var tradingErr *alpaca.APIError
	if errors.As(err, &tradingErr) {
		return tradingErr.StatusCode, tradingErr.Code, tradingErr.Message, true
	}
	var dataErr *alpaca.APIError
	if errors.As(err, &dataErr) {
		return dataErr.StatusCode, dataErr.Code, dataErr.Message, true
	}
	return 0, 0, "", false
}

// GetAccount retrieves the current account snapshot.
func (c *Client) GetAccount(ctx context.Context) (*domain.AccountSnapshot, error) {
	op := "GetAccount"
	acct, err := c.trading.GetAccount()
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}
	return translateAccount(acct), nil
}

// GetPositions retrieves all currently open positions.
func (c *Client) GetPositions(ctx context.Context) ([]domain.Position, error) {
	op := "GetPositions"
	positions, err := c.trading.GetPositions()
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}

	domainPositions := make([]domain.Position, 0, len(positions))
	for _, pos := range positions {
		domainPositions = append(domainPositions, translatePosition(pos))
	}
	return domainPositions, nil
}

// GetBars retrieves up to limit bars for the symbol, anchored at the start of
// the current trading day in exchange time so VWAP accumulates intraday only.
// Bars are returned ordered by ascending timestamp.
func (c *Client) GetBars(ctx context.Context, symbol string, timeframe domain.Timeframe, limit int) ([]domain.Bar, error) {
	op := "GetBars"
	tf, err := timeframeToAlpaca(timeframe)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ports.ErrInvalidRequest, err)
	}
	if limit <= 0 {
		limit = defaultBarLimit
	}

	now := c.clock.Now().In(c.loc)
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, c.loc)

	// Newest-first with a total cap, so a day with more bars than limit
	// still yields the most recent window; reversed below to ascending.
	mdBars, err := c.marketData.GetBars(symbol, marketdata.GetBarsRequest{
		TimeFrame:  tf,
		Start:      dayStart,
		TotalLimit: limit,
		Sort:       marketdata.SortDesc,
		Feed:       c.feed,
	})
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}

	bars := make([]domain.Bar, 0, len(mdBars))
	for i := len(mdBars) - 1; i >= 0; i-- {
		bars = append(bars, translateBar(mdBars[i], symbol, timeframe))
	}
	return bars, nil
}

// GetCurrentPrice retrieves the latest quoted ask price for the symbol.
func (c *Client) GetCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	op := "GetCurrentPrice"
	quote, err := c.marketData.GetLatestQuote(symbol, marketdata.GetLatestQuoteRequest{Feed: c.feed})
	if err != nil {
		return 0, c.handleError(ctx, err, op)
	}
	if quote == nil || quote.AskPrice <= 0 {
		return 0, fmt.Errorf("%w: '%s'", ports.ErrPriceUnavailable, symbol)
	}
	return quote.AskPrice, nil
}

// SubmitBracketOrder submits a market entry with attached stop-loss and
// take-profit exits as a single bracket order.
func (c *Client) SubmitBracketOrder(ctx context.Context, req domain.OrderRequest) (*domain.OrderResult, error) {
	op := "SubmitBracketOrder"
	if !req.IsBracket() {
		return nil, fmt.Errorf("%w: bracket order for %s requires stop loss and take profit prices", ports.ErrInvalidRequest, req.Symbol)
	}

	qty := decimal.NewFromFloat(req.Qty)
	stopPrice := decimal.NewFromFloat(*req.StopLoss)
	limitPrice := decimal.NewFromFloat(*req.TakeProfit)

	order, err := c.trading.PlaceOrder(alpaca.PlaceOrderRequest{
		Symbol:        req.Symbol,
		Qty:           &qty,
		Side:          sideToAlpaca(req.Side),
		Type:          alpaca.Market,
		TimeInForce:   alpaca.Day,
		OrderClass:    alpaca.Bracket,
		StopLoss:      &alpaca.StopLoss{StopPrice: &stopPrice},
		TakeProfit:    &alpaca.TakeProfit{LimitPrice: &limitPrice},
		ClientOrderID: req.ClientOrderID,
	})
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}

	result := translateOrder(order)
	c.logger.Info(ctx, op+" successful", map[string]interface{}{
		"symbol":     req.Symbol,
		"side":       req.Side,
		"qty":        req.Qty,
		"stopLoss":   *req.StopLoss,
		"takeProfit": *req.TakeProfit,
		"orderID":    result.OrderID,
		"status":     result.Status,
	})
	return result, nil
}

// SubmitMarketOrder submits a plain market order.
func (c *Client) SubmitMarketOrder(ctx context.Context, req domain.OrderRequest) (*domain.OrderResult, error) {
	op := "SubmitMarketOrder"
	qty := decimal.NewFromFloat(req.Qty)

	order, err := c.trading.PlaceOrder(alpaca.PlaceOrderRequest{
		Symbol:        req.Symbol,
		Qty:           &qty,
		Side:          sideToAlpaca(req.Side),
		Type:          alpaca.Market,
		TimeInForce:   alpaca.Day,
		ClientOrderID: req.ClientOrderID,
	})
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}

	result := translateOrder(order)
	c.logger.Info(ctx, op+" successful", map[string]interface{}{
		"symbol":  req.Symbol,
		"side":    req.Side,
		"qty":     req.Qty,
		"orderID": result.OrderID,
		"status":  result.Status,
	})
	return result, nil
}

// --- Translation Helpers ---

func translateAccount(acct *alpaca.Account) *domain.AccountSnapshot {
	if acct == nil {
		return nil
	}
	return &domain.AccountSnapshot{
		Cash:           acct.Cash.InexactFloat64(),
		Equity:         acct.Equity.InexactFloat64(),
		BuyingPower:    acct.BuyingPower.InexactFloat64(),
		PortfolioValue: acct.PortfolioValue.InexactFloat64(),
	}
}

func translatePosition(pos alpaca.Position) domain.Position {
	return domain.Position{
		Symbol:          pos.Symbol,
		Qty:             pos.Qty.InexactFloat64(), // signed: negative for shorts
		AvgEntryPrice:   pos.AvgEntryPrice.InexactFloat64(),
		MarketValue:     floatFromDecimal(pos.MarketValue),
		CurrentPrice:    floatFromDecimal(pos.CurrentPrice),
		UnrealizedPL:    floatFromDecimal(pos.UnrealizedPL),
		UnrealizedPLPct: floatFromDecimal(pos.UnrealizedPLPC),
	}
}

func translateOrder(order *alpaca.Order) *domain.OrderResult {
	if order == nil {
		return nil
	}
	var filledAvgPrice *float64
	if order.FilledAvgPrice != nil {
		v := order.FilledAvgPrice.InexactFloat64()
		filledAvgPrice = &v
	}
	return &domain.OrderResult{
		OrderID:        order.ID,
		ClientOrderID:  order.ClientOrderID,
		Status:         string(order.Status),
		FilledAvgPrice: filledAvgPrice,
		SubmittedAt:    order.SubmittedAt,
	}
}

func translateBar(bar marketdata.Bar, symbol string, timeframe domain.Timeframe) domain.Bar {
	return domain.Bar{
		Timestamp: bar.Timestamp,
		Symbol:    symbol, // Not carried in the bar payload
		Timeframe: timeframe,
		Open:      bar.Open,
		High:      bar.High,
		Low:       bar.Low,
		Close:     bar.Close,
		Volume:    float64(bar.Volume),
	}
}

func sideToAlpaca(side domain.OrderSide) alpaca.Side {
	if side == domain.Sell {
		return alpaca.Sell
	}
	return alpaca.Buy
}

func timeframeToAlpaca(timeframe domain.Timeframe) (marketdata.TimeFrame, error) {
	switch timeframe {
	case domain.Timeframe1Min:
		return marketdata.OneMin, nil
	case domain.Timeframe5Min:
		return marketdata.NewTimeFrame(5, marketdata.Min), nil
	case domain.Timeframe15Min:
		return marketdata.NewTimeFrame(15, marketdata.Min), nil
	case domain.Timeframe1Hour:
		return marketdata.OneHour, nil
	case domain.Timeframe1Day:
		return marketdata.OneDay, nil
	default:
		return marketdata.TimeFrame{}, fmt.Errorf("unsupported timeframe '%s'", timeframe)
	}
}

func floatFromDecimal(d *decimal.Decimal) float64 {
	if d == nil {
		return 0
	}
	return d.InexactFloat64()
}
