package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dualAgentBot/internal/domain"
	"dualAgentBot/internal/ports"
)

type noopLogger struct{}

func (noopLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (noopLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (noopLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (noopLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(Config{
		DBPath: filepath.Join(t.TempDir(), "test.db"),
		Logger: noopLogger{},
	})
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestRepository_LatestLedger_SeedsOnFirstRead(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	ledger, err := repo.LatestLedger(ctx)

	require.NoError(t, err)
	assert.Equal(t, domain.LedgerSeedBalanceA, ledger.AgentABalance)
	assert.Equal(t, 0.0, ledger.AgentBBalance)
	assert.Equal(t, int64(1), ledger.CycleNumber)
	assert.Equal(t, domain.LedgerSeedTarget, ledger.CycleTarget)
	assert.False(t, ledger.AgentBEnabled)
}

func TestRepository_LatestLedger_SeedIsStable(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.LatestLedger(ctx)
	require.NoError(t, err)
	require.NoError(t, repo.AdjustBalance(ctx, domain.AgentA, -100))

	// A later read must never re-seed over existing state.
	ledger, err := repo.LatestLedger(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.LedgerSeedBalanceA-100, ledger.AgentABalance)
}

func TestRepository_CompleteCycle_AppliesFullTransition(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.LatestLedger(ctx)
	require.NoError(t, err)
	// Seed balance 230 already exceeds the 200 target.
	ledger, err := repo.CompleteCycle(ctx, 1)

	require.NoError(t, err)
	assert.Equal(t, domain.CycleResetBalance, ledger.AgentABalance)
	assert.Equal(t, int64(2), ledger.CycleNumber)
	assert.Equal(t, domain.LedgerSeedTarget+domain.CycleTargetIncrease, ledger.CycleTarget)
	assert.Equal(t, domain.CycleTransferAmount, ledger.AgentBBalance)
	assert.True(t, ledger.AgentBEnabled)
}

func TestRepository_CompleteCycle_RejectsStaleCycleNumber(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.LatestLedger(ctx)
	require.NoError(t, err)
	_, err = repo.CompleteCycle(ctx, 1)
	require.NoError(t, err)

	// Replaying the same observed cycle must change nothing.
	_, err = repo.CompleteCycle(ctx, 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ports.ErrCycleAlreadyCompleted))

	ledger, err := repo.LatestLedger(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), ledger.CycleNumber)
	assert.Equal(t, domain.CycleTransferAmount, ledger.AgentBBalance, "transfer applied exactly once")
}

func TestRepository_CompleteCycle_RejectsBelowTarget(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.LatestLedger(ctx)
	require.NoError(t, err)
	require.NoError(t, repo.AdjustBalance(ctx, domain.AgentA, -100)) // 130 < 200

	_, err = repo.CompleteCycle(ctx, 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ports.ErrCycleAlreadyCompleted))
}

func TestRepository_AdjustBalance(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.LatestLedger(ctx)
	require.NoError(t, err)

	require.NoError(t, repo.AdjustBalance(ctx, domain.AgentA, 12.5))
	require.NoError(t, repo.AdjustBalance(ctx, domain.AgentB, 200))
	require.NoError(t, repo.AdjustBalance(ctx, domain.AgentB, -1.5))

	ledger, err := repo.LatestLedger(ctx)
	require.NoError(t, err)
	assert.InDelta(t, domain.LedgerSeedBalanceA+12.5, ledger.AgentABalance, 1e-9)
	assert.InDelta(t, 198.5, ledger.AgentBBalance, 1e-9)
}

func TestRepository_AdjustBalance_UnknownAgent(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.LatestLedger(context.Background())
	require.NoError(t, err)

	err = repo.AdjustBalance(context.Background(), domain.AgentID("agent_c"), 1)
	assert.Error(t, err)
}

func TestRepository_AppendTrade_AndCountToday(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)

	mk := func(agent domain.AgentID, at time.Time) *domain.Trade {
		return &domain.Trade{
			Agent: agent, Pair: "BTCUSDT", Side: domain.Buy,
			Quantity: 0.0005, USDAmount: 25, EntryPrice: 50000,
			PNL: 0.5, IsSimulated: true, EntryTime: at,
		}
	}

	id, err := repo.AppendTrade(ctx, mk(domain.AgentB, now))
	require.NoError(t, err)
	assert.Positive(t, id)

	_, err = repo.AppendTrade(ctx, mk(domain.AgentB, now.Add(time.Hour)))
	require.NoError(t, err)
	_, err = repo.AppendTrade(ctx, mk(domain.AgentB, now.Add(-24*time.Hour))) // yesterday
	require.NoError(t, err)
	_, err = repo.AppendTrade(ctx, mk(domain.AgentA, now)) // other agent
	require.NoError(t, err)

	count, err := repo.CountTradesToday(ctx, domain.AgentB, now)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestRepository_SentimentReadings(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	latest, err := repo.LatestSentimentReading(ctx)
	require.NoError(t, err)
	assert.Nil(t, latest, "empty log reads as nil, nil")

	base := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	require.NoError(t, repo.AppendSentimentReading(ctx, &domain.SentimentReading{FGIValue: 40, TrendScore: -0.2, MCS: 0.4, CreatedAt: base}))
	require.NoError(t, repo.AppendSentimentReading(ctx, &domain.SentimentReading{FGIValue: 75, TrendScore: 0.3, MCS: 0.72, CreatedAt: base.Add(time.Hour)}))

	latest, err = repo.LatestSentimentReading(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, 75, latest.FGIValue)
	assert.InDelta(t, 0.72, latest.MCS, 1e-9)
}

func TestRepository_MonthlyReports_Idempotent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	found, err := repo.FindMonthlyReport(ctx, "2026-03")
	require.NoError(t, err)
	assert.Nil(t, found)

	report := &domain.MonthlyReport{
		MonthKey: "2026-03", StartBalance: 200, EndBalance: 260,
		DonationAmount: 30, CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, repo.CreateMonthlyReport(ctx, report))
	assert.Positive(t, report.ID)

	dup := &domain.MonthlyReport{
		MonthKey: "2026-03", StartBalance: 260, EndBalance: 500,
		DonationAmount: 120, CreatedAt: time.Now().UTC(),
	}
	err = repo.CreateMonthlyReport(ctx, dup)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ports.ErrReportExists))

	found, err = repo.FindMonthlyReport(ctx, "2026-03")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.InDelta(t, 30.0, found.DonationAmount, 1e-9, "first report stands untouched")
}

func TestRepository_LedgerSnapshots(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	snap, err := repo.FirstSnapshotInMonth(ctx, "2026-03")
	require.NoError(t, err)
	assert.Nil(t, snap)

	mk := func(date string, b float64) *domain.LedgerSnapshot {
		return &domain.LedgerSnapshot{SnapDate: date, AgentABalance: 30, AgentBBalance: b, CreatedAt: time.Now().UTC()}
	}
	require.NoError(t, repo.RecordLedgerSnapshot(ctx, mk("2026-03-15", 250)))
	require.NoError(t, repo.RecordLedgerSnapshot(ctx, mk("2026-03-02", 200)))
	require.NoError(t, repo.RecordLedgerSnapshot(ctx, mk("2026-02-28", 100)))

	// Same-day rewrite is a no-op.
	require.NoError(t, repo.RecordLedgerSnapshot(ctx, mk("2026-03-02", 999)))

	snap, err = repo.FirstSnapshotInMonth(ctx, "2026-03")
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, "2026-03-02", snap.SnapDate)
	assert.Equal(t, 200.0, snap.AgentBBalance)
}

func TestRepository_SurvivesReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	repo, err := NewRepository(Config{DBPath: dbPath, Logger: noopLogger{}})
	require.NoError(t, err)
	_, err = repo.LatestLedger(ctx)
	require.NoError(t, err)
	_, err = repo.CompleteCycle(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	reopened, err := NewRepository(Config{DBPath: dbPath, Logger: noopLogger{}})
	require.NoError(t, err)
	defer reopened.Close()

	ledger, err := reopened.LatestLedger(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), ledger.CycleNumber)
	assert.True(t, ledger.AgentBEnabled)
	assert.Equal(t, domain.CycleTransferAmount, ledger.AgentBBalance)
}
