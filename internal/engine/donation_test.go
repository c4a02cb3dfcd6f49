package engine

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dualAgentBot/internal/domain"
	"dualAgentBot/internal/ports"
)

func newAccountantFixture(t *testing.T, ledger *domain.LedgerState) (*DonationAccountant, *mockStore, *mockLogger, *fixedClock) {
	t.Helper()
	logger := &mockLogger{}
	store := newMockStore(ledger)
	// Just past the rollover into April: monthly accounting closes out March.
	clock := &fixedClock{t: time.Date(2026, 4, 1, 0, 0, 30, 0, time.UTC)}
	acct, err := NewDonationAccountant(store, logger, clock)
	require.NoError(t, err)
	return acct, store, logger, clock
}

func TestDonationAccountant_RunMonthly_HalfOfProfit(t *testing.T) {
	acct, store, _, clock := newAccountantFixture(t, enabledLedgerB(260))
	store.snapshots["2026-03-01"] = &domain.LedgerSnapshot{SnapDate: "2026-03-01", AgentBBalance: 200}

	err := acct.RunMonthly(context.Background(), clock.Now())

	require.NoError(t, err)
	report := store.reports["2026-03"]
	require.NotNil(t, report)
	assert.Equal(t, 200.0, report.StartBalance)
	assert.Equal(t, 260.0, report.EndBalance)
	assert.InDelta(t, 30.0, report.DonationAmount, 1e-9, "donation is half the monthly profit")
}

func TestDonationAccountant_RunMonthly_NonProfitableMonth(t *testing.T) {
	acct, store, _, clock := newAccountantFixture(t, enabledLedgerB(180))
	store.snapshots["2026-03-01"] = &domain.LedgerSnapshot{SnapDate: "2026-03-01", AgentBBalance: 200}

	err := acct.RunMonthly(context.Background(), clock.Now())

	require.NoError(t, err)
	report := store.reports["2026-03"]
	require.NotNil(t, report, "a loss month still produces a report")
	assert.Equal(t, 0.0, report.DonationAmount)
}

func TestDonationAccountant_RunMonthly_UsesEarliestSnapshot(t *testing.T) {
	acct, store, _, clock := newAccountantFixture(t, enabledLedgerB(300))
	store.snapshots["2026-03-15"] = &domain.LedgerSnapshot{SnapDate: "2026-03-15", AgentBBalance: 250}
	store.snapshots["2026-03-02"] = &domain.LedgerSnapshot{SnapDate: "2026-03-02", AgentBBalance: 200}
	store.snapshots["2026-02-28"] = &domain.LedgerSnapshot{SnapDate: "2026-02-28", AgentBBalance: 100}

	err := acct.RunMonthly(context.Background(), clock.Now())

	require.NoError(t, err)
	report := store.reports["2026-03"]
	require.NotNil(t, report)
	assert.Equal(t, 200.0, report.StartBalance, "previous month's snapshots are out of scope")
}

func TestDonationAccountant_RunMonthly_Idempotent(t *testing.T) {
	acct, store, _, clock := newAccountantFixture(t, enabledLedgerB(260))
	store.snapshots["2026-03-01"] = &domain.LedgerSnapshot{SnapDate: "2026-03-01", AgentBBalance: 200}

	require.NoError(t, acct.RunMonthly(context.Background(), clock.Now()))
	first := store.reports["2026-03"]
	require.NotNil(t, first)

	// The balance moving afterwards must not change the finished report.
	store.ledger.AgentBBalance = 500
	require.NoError(t, acct.RunMonthly(context.Background(), clock.Now()))

	assert.Same(t, first, store.reports["2026-03"], "existing report never recomputed")
	assert.Equal(t, 260.0, store.reports["2026-03"].EndBalance)
}

func TestDonationAccountant_RunMonthly_NoSnapshotAssumesZeroProfit(t *testing.T) {
	acct, store, logger, clock := newAccountantFixture(t, enabledLedgerB(260))

	err := acct.RunMonthly(context.Background(), clock.Now())

	require.NoError(t, err)
	report := store.reports["2026-03"]
	require.NotNil(t, report)
	assert.Equal(t, report.StartBalance, report.EndBalance)
	assert.Equal(t, 0.0, report.DonationAmount)
	assert.NotEmpty(t, logger.warnMsgs)
}

func TestDonationAccountant_RunMonthly_ConcurrentCreateIsBenign(t *testing.T) {
	acct, store, logger, clock := newAccountantFixture(t, enabledLedgerB(260))
	store.snapshots["2026-03-01"] = &domain.LedgerSnapshot{SnapDate: "2026-03-01", AgentBBalance: 200}
	store.createErr = fmt.Errorf("month 2026-03: %w", ports.ErrReportExists)

	err := acct.RunMonthly(context.Background(), clock.Now())

	require.NoError(t, err, "losing the insert race keeps the existing report")
	assert.NotEmpty(t, logger.warnMsgs)
}

func TestDonationAccountant_RecordDailySnapshot(t *testing.T) {
	acct, store, _, clock := newAccountantFixture(t, enabledLedgerB(260))

	require.NoError(t, acct.RecordDailySnapshot(context.Background()))

	day := domain.DayKey(clock.Now())
	snap := store.snapshots[day]
	require.NotNil(t, snap)
	assert.Equal(t, 260.0, snap.AgentBBalance)
	assert.Equal(t, 30.0, snap.AgentABalance)

	// Re-running inside the same day keeps the first snapshot.
	store.ledger.AgentBBalance = 999
	require.NoError(t, acct.RecordDailySnapshot(context.Background()))
	assert.Equal(t, 260.0, store.snapshots[day].AgentBBalance)
}
