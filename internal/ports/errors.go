package ports

import "errors"

// Standard application-level errors.
// Adapters should wrap underlying infrastructure errors with these standard errors.
var (
	// General Errors
	ErrUnknown            = errors.New("unknown error occurred")
	ErrInvalidRequest     = errors.New("invalid request parameters or format")
	ErrNotFound           = errors.New("resource not found")
	ErrTimeout            = errors.New("operation timed out")
	ErrContextCanceled    = errors.New("operation canceled via context")
	ErrConfigurationError = errors.New("invalid or missing configuration")

	// Market Data Errors
	ErrInsufficientData = errors.New("not enough bars for the requested computation")
	ErrInvalidBarData   = errors.New("bar series contains missing or invalid fields")
	ErrPriceUnavailable = errors.New("no usable quote for symbol")

	// Broker Specific Errors
	ErrBrokerUnavailable    = errors.New("broker API is unavailable")
	ErrConnectionFailed     = errors.New("failed to connect to the broker")
	ErrRateLimited          = errors.New("API rate limit exceeded")
	ErrAuthenticationFailed = errors.New("broker authentication failed (check API keys)")
	ErrInsufficientFunds    = errors.New("insufficient buying power for operation")
	ErrOrderRejected        = errors.New("order rejected by the broker")
	ErrOrderPlacementFailed = errors.New("failed to place order")
	ErrInvalidQuantity      = errors.New("computed order quantity is not positive")

	// Database Specific Errors
	ErrDBConnection = errors.New("database connection error")
	ErrQueryFailed  = errors.New("database query failed")

	// Profile Store Errors
	ErrProfileNotFound = errors.New("profile not found")
	ErrInvalidProfile  = errors.New("profile file is malformed")
)
