package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"dualAgentBot/internal/domain"
	"dualAgentBot/internal/ports"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Repository implements the ports.StateStore interface using SQLite. All
// ledger mutations are single statements, so each is atomic: a crash between
// computing and persisting a transition never leaves a partial multi-field
// update behind.
type Repository struct {
	db     *sql.DB
	logger ports.Logger
}

// Config holds configuration for the SQLite repository.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewRepository creates a new SQLite repository instance.
func NewRepository(cfg Config) (*Repository, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite repository")
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/dual_agent_bot.db" // Default path
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
		db.Close() // Close the connection if ping fails
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
	CREATE TABLE IF NOT EXISTS ledger_state (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		agent_a_balance REAL NOT NULL,
		agent_b_balance REAL NOT NULL,
		cycle_number INTEGER NOT NULL,
		cycle_target REAL NOT NULL,
		agent_b_enabled INTEGER NOT NULL DEFAULT 0,
		last_reset TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS trades (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		agent TEXT NOT NULL,
		pair TEXT NOT NULL,
		side TEXT NOT NULL,
		quantity REAL NOT NULL,
		usd_amount REAL NOT NULL,
		entry_price REAL NOT NULL,
		exit_price REAL DEFAULT NULL,
		pnl REAL NOT NULL,
		is_simulated INTEGER NOT NULL DEFAULT 0,
		entry_time TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sentiment_readings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		fgi_value INTEGER NOT NULL,
		trend_score REAL NOT NULL,
		mcs REAL NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS monthly_reports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		month_key TEXT NOT NULL UNIQUE,
		start_balance REAL NOT NULL,
		end_balance REAL NOT NULL,
		donation_amount REAL NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS ledger_snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		snap_date TEXT NOT NULL UNIQUE,
		agent_a_balance REAL NOT NULL,
		agent_b_balance REAL NOT NULL,
		created_at TIMESTAMP NOT NULL
	);
	-- Add indexes for common lookups
	CREATE INDEX IF NOT EXISTS idx_trades_agent_entry_time ON trades (agent, entry_time);
	CREATE INDEX IF NOT EXISTS idx_sentiment_created_at ON sentiment_readings (created_at);
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

// --- Ledger ---

// LatestLedger returns the singleton ledger row, seeding it on first read.
func (r *Repository) LatestLedger(ctx context.Context) (*domain.LedgerState, error) {
	const seed = `
	INSERT OR IGNORE INTO ledger_state (id, agent_a_balance, agent_b_balance, cycle_number, cycle_target, agent_b_enabled, last_reset, updated_at)
	VALUES (1, ?, 0, 1, ?, 0, ?, ?)`

	now := time.Now().UTC()
	if _, err := r.db.ExecContext(ctx, seed, domain.LedgerSeedBalanceA, domain.LedgerSeedTarget, now, now); err != nil {
		return nil, fmt.Errorf("failed to seed ledger state: %w: %v", ports.ErrUpdateFailed, err)
	}

	return r.readLedger(ctx)
}

func (r *Repository) readLedger(ctx context.Context) (*domain.LedgerState, error) {
	const query = `
	SELECT agent_a_balance, agent_b_balance, cycle_number, cycle_target, agent_b_enabled, last_reset, updated_at
	FROM ledger_state WHERE id = 1`

	l := &domain.LedgerState{}
	var enabled int
	err := r.db.QueryRowContext(ctx, query).Scan(
		&l.AgentABalance, &l.AgentBBalance, &l.CycleNumber, &l.CycleTarget, &enabled, &l.LastReset, &l.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger state: %w: %v", ports.ErrQueryFailed, err)
	}
	l.AgentBEnabled = enabled != 0
	return l, nil
}

// CompleteCycle applies the cross-agent cycle transition as one conditional
// UPDATE. The WHERE clause re-checks both the observed cycle number and the
// balance-vs-target condition inside the same statement, so a repeated call
// against an already-advanced row affects zero rows and is rejected.
func (r *Repository) CompleteCycle(ctx context.Context, fromCycle int64) (*domain.LedgerState, error) {
	const query = `
	UPDATE ledger_state
	SET agent_a_balance = ?,
	    cycle_number    = cycle_number + 1,
	    cycle_target    = cycle_target + ?,
	    agent_b_balance = agent_b_balance + ?,
	    agent_b_enabled = 1,
	    last_reset      = ?,
	    updated_at      = ?
	WHERE id = 1 AND cycle_number = ? AND agent_a_balance >= cycle_target`

	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx, query,
		domain.CycleResetBalance, domain.CycleTargetIncrease, domain.CycleTransferAmount, now, now, fromCycle)
	if err != nil {
		return nil, fmt.Errorf("failed to apply cycle completion: %w: %v", ports.ErrUpdateFailed, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected for cycle completion: %w", err)
	}
	if rowsAffected == 0 {
		return nil, fmt.Errorf("cycle %d: %w", fromCycle, ports.ErrCycleAlreadyCompleted)
	}

	r.logger.Debug(ctx, "Cycle completion applied", map[string]interface{}{"fromCycle": fromCycle})
	return r.readLedger(ctx)
}

// AdjustBalance atomically adds delta to one agent's virtual balance.
func (r *Repository) AdjustBalance(ctx context.Context, agent domain.AgentID, delta float64) error {
	column, err := balanceColumn(agent)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`UPDATE ledger_state SET %s = %s + ?, updated_at = ? WHERE id = 1`, column, column)

	result, err := r.db.ExecContext(ctx, query, delta, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to adjust %s balance: %w: %v", agent, ports.ErrUpdateFailed, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for balance adjustment: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("ledger row missing for balance adjustment: %w", ports.ErrNotFound)
	}
	r.logger.Debug(ctx, "Balance adjusted", map[string]interface{}{"agent": agent, "delta": delta})
	return nil
}

func balanceColumn(agent domain.AgentID) (string, error) {
	switch agent {
	case domain.AgentA:
		return "agent_a_balance", nil
	case domain.AgentB:
		return "agent_b_balance", nil
	default:
		return "", fmt.Errorf("unknown agent %q", agent)
	}
}

// --- Trades ---

// AppendTrade saves an executed trade and returns its assigned ID.
func (r *Repository) AppendTrade(ctx context.Context, trade *domain.Trade) (int64, error) {
	const query = `
	INSERT INTO trades (agent, pair, side, quantity, usd_amount, entry_price, exit_price, pnl, is_simulated, entry_time)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	var exitPrice sql.NullFloat64
	if trade.ExitPrice != 0 {
		exitPrice = sql.NullFloat64{Float64: trade.ExitPrice, Valid: true}
	}

	result, err := r.db.ExecContext(ctx, query,
		trade.Agent, trade.Pair, trade.Side, trade.Quantity, trade.USDAmount,
		trade.EntryPrice, exitPrice, trade.PNL, boolToInt(trade.IsSimulated), trade.EntryTime)
	if err != nil {
		return 0, fmt.Errorf("failed to insert trade for %s/%s: %w: %v", trade.Agent, trade.Pair, ports.ErrUpdateFailed, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for trade: %w", err)
	}
	trade.ID = id
	r.logger.Debug(ctx, "Trade appended", map[string]interface{}{"tradeID": id, "agent": trade.Agent, "pair": trade.Pair, "pnl": trade.PNL})
	return id, nil
}

// CountTradesToday counts trades an agent executed during the calendar day
// containing now.
func (r *Repository) CountTradesToday(ctx context.Context, agent domain.AgentID, now time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM trades WHERE agent = ? AND date(entry_time) = ?`
	var count int
	err := r.db.QueryRowContext(ctx, query, agent, domain.DayKey(now)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count trades today for %s: %w: %v", agent, ports.ErrQueryFailed, err)
	}
	return count, nil
}

// --- Sentiment ---

// AppendSentimentReading saves a sentiment refresh result.
func (r *Repository) AppendSentimentReading(ctx context.Context, reading *domain.SentimentReading) error {
	const query = `
	INSERT INTO sentiment_readings (fgi_value, trend_score, mcs, created_at)
	VALUES (?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query, reading.FGIValue, reading.TrendScore, reading.MCS, reading.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert sentiment reading: %w: %v", ports.ErrUpdateFailed, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID for sentiment reading: %w", err)
	}
	reading.ID = id
	return nil
}

// LatestSentimentReading returns the most recent durable reading, if any.
func (r *Repository) LatestSentimentReading(ctx context.Context) (*domain.SentimentReading, error) {
	const query = `
	SELECT id, fgi_value, trend_score, mcs, created_at
	FROM sentiment_readings ORDER BY created_at DESC, id DESC LIMIT 1`

	reading := &domain.SentimentReading{}
	err := r.db.QueryRowContext(ctx, query).Scan(
		&reading.ID, &reading.FGIValue, &reading.TrendScore, &reading.MCS, &reading.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not an error, just not found
		}
		return nil, fmt.Errorf("failed to query latest sentiment reading: %w: %v", ports.ErrQueryFailed, err)
	}
	return reading, nil
}

// --- Monthly Reports ---

// FindMonthlyReport returns the report for monthKey, or nil, nil if absent.
func (r *Repository) FindMonthlyReport(ctx context.Context, monthKey string) (*domain.MonthlyReport, error) {
	const query = `
	SELECT id, month_key, start_balance, end_balance, donation_amount, created_at
	FROM monthly_reports WHERE month_key = ?`

	report := &domain.MonthlyReport{}
	err := r.db.QueryRowContext(ctx, query, monthKey).Scan(
		&report.ID, &report.MonthKey, &report.StartBalance, &report.EndBalance, &report.DonationAmount, &report.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not an error, just not found
		}
		return nil, fmt.Errorf("failed to query monthly report %s: %w: %v", monthKey, ports.ErrQueryFailed, err)
	}
	return report, nil
}

// CreateMonthlyReport inserts a new report. The UNIQUE constraint on
// month_key makes creation idempotent across concurrent runs.
func (r *Repository) CreateMonthlyReport(ctx context.Context, report *domain.MonthlyReport) error {
	const query = `
	INSERT OR IGNORE INTO monthly_reports (month_key, start_balance, end_balance, donation_amount, created_at)
	VALUES (?, ?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query,
		report.MonthKey, report.StartBalance, report.EndBalance, report.DonationAmount, report.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert monthly report %s: %w: %v", report.MonthKey, ports.ErrUpdateFailed, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for monthly report %s: %w", report.MonthKey, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("month %s: %w", report.MonthKey, ports.ErrReportExists)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID for monthly report %s: %w", report.MonthKey, err)
	}
	report.ID = id
	r.logger.Debug(ctx, "Monthly report created", map[string]interface{}{"month": report.MonthKey, "donation": report.DonationAmount})
	return nil
}

// --- Ledger Snapshots ---

// RecordLedgerSnapshot stores the daily balance snapshot; a second write for
// the same day is silently ignored.
func (r *Repository) RecordLedgerSnapshot(ctx context.Context, snap *domain.LedgerSnapshot) error {
	const query = `
	INSERT OR IGNORE INTO ledger_snapshots (snap_date, agent_a_balance, agent_b_balance, created_at)
	VALUES (?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query, snap.SnapDate, snap.AgentABalance, snap.AgentBBalance, snap.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert ledger snapshot %s: %w: %v", snap.SnapDate, ports.ErrUpdateFailed, err)
	}
	return nil
}

// FirstSnapshotInMonth returns the earliest snapshot dated within monthKey.
func (r *Repository) FirstSnapshotInMonth(ctx context.Context, monthKey string) (*domain.LedgerSnapshot, error) {
	const query = `
	SELECT snap_date, agent_a_balance, agent_b_balance, created_at
	FROM ledger_snapshots WHERE snap_date LIKE ? || '-%'
	ORDER BY snap_date ASC LIMIT 1`

	snap := &domain.LedgerSnapshot{}
	err := r.db.QueryRowContext(ctx, query, monthKey).Scan(
		&snap.SnapDate, &snap.AgentABalance, &snap.AgentBBalance, &snap.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not an error, just not found
		}
		return nil, fmt.Errorf("failed to query first snapshot in %s: %w: %v", monthKey, ports.ErrQueryFailed, err)
	}
	return snap, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
