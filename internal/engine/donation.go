package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dualAgentBot/internal/domain"
	"dualAgentBot/internal/ports"
)

// donationShare is the fraction of agent B's monthly profit routed to
// donation. Compile-time constant.
const donationShare = 0.5

// DonationAccountant performs agent B's monthly donation accounting. It is
// driven by the scheduler on calendar boundaries, never by engine ticks, and
// is idempotent: at most one MonthlyReport per calendar month, never
// recomputed or overwritten after creation.
type DonationAccountant struct {
	store  ports.StateStore
	logger ports.Logger
	clock  ports.Clock
}

// NewDonationAccountant creates the accountant.
func NewDonationAccountant(store ports.StateStore, logger ports.Logger, clock ports.Clock) (*DonationAccountant, error) {
	if store == nil || logger == nil {
		return nil, fmt.Errorf("missing required dependencies for donation accountant")
	}
	if clock == nil {
		clock = ports.SystemClock()
	}
	return &DonationAccountant{store: store, logger: logger, clock: clock}, nil
}

// RecordDailySnapshot stores today's ledger balances. The earliest snapshot
// of a month later serves as that month's start balance. Re-running within
// the same day is a no-op.
func (a *DonationAccountant) RecordDailySnapshot(ctx context.Context) error {
	ledger, err := a.store.LatestLedger(ctx)
	if err != nil {
		return fmt.Errorf("daily snapshot: failed to load ledger: %w", err)
	}
	now := a.clock.Now()
	snap := &domain.LedgerSnapshot{
		SnapDate:      domain.DayKey(now),
		AgentABalance: ledger.AgentABalance,
		AgentBBalance: ledger.AgentBBalance,
		CreatedAt:     now,
	}
	if err := a.store.RecordLedgerSnapshot(ctx, snap); err != nil {
		return fmt.Errorf("daily snapshot: failed to persist: %w", err)
	}
	a.logger.Debug(ctx, "Ledger snapshot recorded", map[string]interface{}{"date": snap.SnapDate})
	return nil
}

// RunMonthly computes and persists the donation report for the month that
// ended just before now. The scheduler fires it right after the calendar
// rollover, so the report covers the preceding month. Running it any number
// of times creates exactly one report per month.
func (a *DonationAccountant) RunMonthly(ctx context.Context, now time.Time) error {
	op := "DonationAccountant.RunMonthly"
	// now sits at the start of the new month; step back a day to name the
	// month being closed out.
	monthKey := domain.MonthKey(now.AddDate(0, 0, -1))

	existing, err := a.store.FindMonthlyReport(ctx, monthKey)
	if err != nil {
		return fmt.Errorf("%s: failed to check existing report: %w", op, err)
	}
	if existing != nil {
		a.logger.Debug(ctx, op+": report already exists, nothing to do", map[string]interface{}{"month": monthKey})
		return nil
	}

	ledger, err := a.store.LatestLedger(ctx)
	if err != nil {
		return fmt.Errorf("%s: failed to load ledger: %w", op, err)
	}
	endBalance := ledger.AgentBBalance

	startBalance := endBalance
	snap, err := a.store.FirstSnapshotInMonth(ctx, monthKey)
	if err != nil {
		return fmt.Errorf("%s: failed to load month-start snapshot: %w", op, err)
	}
	if snap != nil {
		startBalance = snap.AgentBBalance
	} else {
		a.logger.Warn(ctx, op+": no snapshot for month start, assuming zero profit", map[string]interface{}{"month": monthKey})
	}

	profit := endBalance - startBalance
	donation := 0.0
	if profit > 0 {
		donation = profit * donationShare
	}

	report := &domain.MonthlyReport{
		MonthKey:       monthKey,
		StartBalance:   startBalance,
		EndBalance:     endBalance,
		DonationAmount: donation,
		CreatedAt:      a.clock.Now(),
	}
	if err := a.store.CreateMonthlyReport(ctx, report); err != nil {
		if errors.Is(err, ports.ErrReportExists) {
			// Lost a race with another run of ourselves; the existing report
			// stands untouched.
			a.logger.Warn(ctx, op+": report created concurrently, keeping existing", map[string]interface{}{"month": monthKey})
			return nil
		}
		return fmt.Errorf("%s: failed to persist report: %w", op, err)
	}

	a.logger.Info(ctx, op+": monthly report created", map[string]interface{}{
		"month": monthKey, "startBalance": startBalance, "endBalance": endBalance, "donation": donation,
	})
	return nil
}
