package ports

import "context"

// Logger defines a standard interface for logging messages and errors.
// This allows injecting different logging implementations (the bot ships a
// zap-backed adapter; tests use a capturing fake).
type Logger interface {
	// Debug logs diagnostic detail useful when tracing the polling loop.
	Debug(ctx context.Context, msg string, fields ...map[string]interface{})
	// Info logs normal operational events.
	Info(ctx context.Context, msg string, fields ...map[string]interface{})
	// Warn logs conditions the bot recovers from on its own.
	Warn(ctx context.Context, msg string, fields ...map[string]interface{})
	// Error logs a failure together with its underlying error.
	Error(ctx context.Context, err error, msg string, fields ...map[string]interface{})
}
