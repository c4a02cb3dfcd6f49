package ports

import (
	"context"
	"time"

	"dualAgentBot/internal/domain"
)

// StateStore defines the durable state boundary: the singleton ledger row,
// the append-only trade and sentiment logs, monthly reports and daily
// snapshots. Implementations must apply every ledger mutation as a single
// atomic read-modify-write; a crash mid-operation must never leave a partial
// multi-field update behind.
type StateStore interface {
	// LatestLedger returns the authoritative ledger row, creating it with
	// seed values if it does not exist yet.
	LatestLedger(ctx context.Context) (*domain.LedgerState, error)

	// CompleteCycle applies agent A's cycle-completion transition as one
	// atomic conditional update: reset agent A's balance, advance the cycle
	// number and target, credit agent B and enable it. fromCycle is the
	// cycle number observed by the caller; if the row has moved on (the
	// transition was already applied) ErrCycleAlreadyCompleted is returned
	// and nothing changes.
	CompleteCycle(ctx context.Context, fromCycle int64) (*domain.LedgerState, error)

	// AdjustBalance atomically adds delta (may be negative) to one agent's
	// virtual balance.
	AdjustBalance(ctx context.Context, agent domain.AgentID, delta float64) error

	// AppendTrade saves an executed trade and returns its assigned ID.
	AppendTrade(ctx context.Context, trade *domain.Trade) (int64, error)

	// CountTradesToday counts trades an agent executed during the calendar
	// day containing now.
	CountTradesToday(ctx context.Context, agent domain.AgentID, now time.Time) (int, error)

	// AppendSentimentReading saves a sentiment refresh result.
	AppendSentimentReading(ctx context.Context, reading *domain.SentimentReading) error

	// LatestSentimentReading returns the most recent durable reading, or
	// nil, nil if none has ever been stored.
	LatestSentimentReading(ctx context.Context) (*domain.SentimentReading, error)

	// FindMonthlyReport returns the report for monthKey, or nil, nil if it
	// does not exist.
	FindMonthlyReport(ctx context.Context, monthKey string) (*domain.MonthlyReport, error)

	// CreateMonthlyReport inserts a new report. Returns ErrReportExists if
	// one is already present for the same month key.
	CreateMonthlyReport(ctx context.Context, report *domain.MonthlyReport) error

	// RecordLedgerSnapshot stores the daily balance snapshot. Writing the
	// same day twice is a no-op.
	RecordLedgerSnapshot(ctx context.Context, snap *domain.LedgerSnapshot) error

	// FirstSnapshotInMonth returns the earliest snapshot whose date falls in
	// monthKey, or nil, nil if the month has no snapshots.
	FirstSnapshotInMonth(ctx context.Context, monthKey string) (*domain.LedgerSnapshot, error)
}
