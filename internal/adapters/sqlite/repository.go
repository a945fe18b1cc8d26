package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"vwapReversionBot/internal/domain"
	"vwapReversionBot/internal/ports"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Repository implements the ports.TradeLog and ports.AccountHistory interfaces using SQLite.
type Repository struct {
	db     *sql.DB
	logger ports.Logger
}

// Config holds configuration for the SQLite repository.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// Default query limits, applied when the caller passes limit <= 0.
const (
	defaultRecentLimit  = 10
	defaultSymbolLimit  = 50
	defaultBalanceLimit = 24
)

// NewRepository creates a new SQLite repository instance.
func NewRepository(cfg Config) (*Repository, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite repository")
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/trading_data.db" // Default path
	}

	// Create data directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// Open database connection
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000") // WAL mode for better concurrency
	if err != nil {
		err = fmt.Errorf("failed to open database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("failed to ping database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// Set connection pool settings (important for SQLite)
	db.SetMaxOpenConns(1) // SQLite handles concurrency internally, but Go driver benefits from limiting connections
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cfg.Logger.Info(context.Background(), "SQLite database connection established", map[string]interface{}{"path": dbPath})

	repo := &Repository{db: db, logger: cfg.Logger}

	if err := repo.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}
	cfg.Logger.Info(context.Background(), "Database schema initialized/verified")

	return repo, nil
}

// initializeSchema creates tables if they don't exist.
func (r *Repository) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS trades (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp TIMESTAMP NOT NULL,
		symbol TEXT NOT NULL,
		side TEXT NOT NULL,
		price REAL NOT NULL,
		qty REAL NOT NULL,
		status TEXT NOT NULL,
		order_id TEXT,
		stop_loss REAL,
		take_profit REAL,
		reason TEXT
	);

	CREATE TABLE IF NOT EXISTS account_balance (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp TIMESTAMP NOT NULL,
		balance REAL NOT NULL,
		equity REAL NOT NULL,
		buying_power REAL NOT NULL
	);
	-- Add indexes for common lookups
	CREATE INDEX IF NOT EXISTS idx_trades_timestamp ON trades (timestamp);
	CREATE INDEX IF NOT EXISTS idx_trades_symbol_timestamp ON trades (symbol, timestamp);
	CREATE INDEX IF NOT EXISTS idx_account_balance_timestamp ON account_balance (timestamp);
	`
	_, err := r.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to execute schema initialization: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	if r.db != nil {
		r.logger.Info(context.Background(), "Closing SQLite database connection")
		return r.db.Close()
	}
	return nil
}

// --- TradeLog Implementation ---

// Append saves a new trade record and returns its assigned ID.
func (r *Repository) Append(ctx context.Context, rec *domain.TradeRecord) (int64, error) {
	const query = `
	INSERT INTO trades (timestamp, symbol, side, price, qty, status, order_id, stop_loss, take_profit, reason)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	var orderID sql.NullString
	if rec.OrderID != "" {
		orderID = sql.NullString{String: rec.OrderID, Valid: true}
	}
	var reason sql.NullString
	if rec.Reason != "" {
		reason = sql.NullString{String: rec.Reason, Valid: true}
	}
	var stopLoss, takeProfit sql.NullFloat64
	if rec.StopLoss != nil {
		stopLoss = sql.NullFloat64{Float64: *rec.StopLoss, Valid: true}
	}
	if rec.TakeProfit != nil {
		takeProfit = sql.NullFloat64{Float64: *rec.TakeProfit, Valid: true}
	}

	result, err := r.db.ExecContext(ctx, query,
		rec.Timestamp, rec.Symbol, rec.Side, rec.Price, rec.Quantity, rec.Status,
		orderID, stopLoss, takeProfit, reason)
	if err != nil {
		return 0, fmt.Errorf("failed to insert trade record for symbol %s: %w", rec.Symbol, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for trade record %s: %w", rec.Symbol, err)
	}
	rec.ID = id
	r.logger.Debug(ctx, "Trade record appended", map[string]interface{}{"tradeID": id, "symbol": rec.Symbol, "status": rec.Status})
	return id, nil
}

// RecentTrades retrieves the most recent trade records, newest first.
func (r *Repository) RecentTrades(ctx context.Context, limit int) ([]*domain.TradeRecord, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	const query = `
	SELECT id, timestamp, symbol, side, price, qty, status,
	       COALESCE(order_id, ''), stop_loss, take_profit, COALESCE(reason, '')
	FROM trades
	ORDER BY timestamp DESC LIMIT ?`

	return r.queryTrades(ctx, query, limit)
}

// TradesBySymbol retrieves the most recent trade records for a symbol, newest first.
func (r *Repository) TradesBySymbol(ctx context.Context, symbol string, limit int) ([]*domain.TradeRecord, error) {
	if limit <= 0 {
		limit = defaultSymbolLimit
	}
	const query = `
	SELECT id, timestamp, symbol, side, price, qty, status,
	       COALESCE(order_id, ''), stop_loss, take_profit, COALESCE(reason, '')
	FROM trades
	WHERE symbol = ? ORDER BY timestamp DESC LIMIT ?`

	return r.queryTrades(ctx, query, symbol, limit)
}

// TradesSince retrieves all trade records stamped at or after the given time, newest first.
func (r *Repository) TradesSince(ctx context.Context, since time.Time) ([]*domain.TradeRecord, error) {
	const query = `
	SELECT id, timestamp, symbol, side, price, qty, status,
	       COALESCE(order_id, ''), stop_loss, take_profit, COALESCE(reason, '')
	FROM trades
	WHERE timestamp >= ? ORDER BY timestamp DESC`

	return r.queryTrades(ctx, query, since)
}

func (r *Repository) queryTrades(ctx context.Context, query string, args ...interface{}) ([]*domain.TradeRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trade records: %w", err)
	}
	defer rows.Close()

	records := make([]*domain.TradeRecord, 0)
	for rows.Next() {
		rec, err := scanTradeRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade record: %w", err)
		}
		records = append(records, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trade record rows: %w", err)
	}
	return records, nil
}

// --- AccountHistory Implementation ---

// AppendBalance saves one account balance sample.
func (r *Repository) AppendBalance(ctx context.Context, sample *domain.BalanceSample) error {
	const query = `
	INSERT INTO account_balance (timestamp, balance, equity, buying_power)
	VALUES (?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query,
		sample.Timestamp, sample.Balance, sample.Equity, sample.BuyingPower)
	if err != nil {
		return fmt.Errorf("failed to insert balance sample: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID for balance sample: %w", err)
	}
	sample.ID = id
	r.logger.Debug(ctx, "Balance sample appended", map[string]interface{}{"sampleID": id, "equity": sample.Equity})
	return nil
}

// BalanceHistory retrieves the most recent balance samples, newest first.
func (r *Repository) BalanceHistory(ctx context.Context, limit int) ([]*domain.BalanceSample, error) {
	if limit <= 0 {
		limit = defaultBalanceLimit
	}
	const query = `
	SELECT id, timestamp, balance, equity, buying_power
	FROM account_balance
	ORDER BY timestamp DESC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query balance history: %w", err)
	}
	defer rows.Close()

	samples := make([]*domain.BalanceSample, 0)
	for rows.Next() {
		s := &domain.BalanceSample{}
		if err := rows.Scan(&s.ID, &s.Timestamp, &s.Balance, &s.Equity, &s.BuyingPower); err != nil {
			return nil, fmt.Errorf("failed to scan balance sample: %w", err)
		}
		samples = append(samples, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating balance sample rows: %w", err)
	}
	return samples, nil
}

// --- Helper Scan Functions ---

// scanner defines an interface compatible with *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanTradeRecord scans a row into a domain.TradeRecord struct.
func scanTradeRecord(s scanner) (*domain.TradeRecord, error) {
	rec := &domain.TradeRecord{}
	var side, status string
	var stopLoss, takeProfit sql.NullFloat64
	err := s.Scan(
		&rec.ID, &rec.Timestamp, &rec.Symbol, &side, &rec.Price, &rec.Quantity, &status,
		&rec.OrderID, &stopLoss, &takeProfit, &rec.Reason)
	if err != nil {
		return nil, err
	}
	rec.Side = domain.OrderSide(side)
	rec.Status = domain.TradeStatus(status)
	if stopLoss.Valid {
		rec.StopLoss = &stopLoss.Float64
	}
	if takeProfit.Valid {
		rec.TakeProfit = &takeProfit.Float64
	}
	return rec, nil
}
