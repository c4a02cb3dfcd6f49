package domain

import "time"

// Seed values used when the ledger row is auto-created, and the constants
// applied by a cycle completion. The transfer/reset amounts are deliberately
// compile-time constants rather than configuration.
const (
	LedgerSeedBalanceA  = 230.0 // agent A balance on first creation
	LedgerSeedTarget    = 200.0 // initial cycle target
	CycleResetBalance   = 30.0  // agent A balance after a completed cycle
	CycleTargetIncrease = 30.0  // cycle target growth per completed cycle
	CycleTransferAmount = 200.0 // USD credited to agent B per completed cycle
)

// LedgerState is the singleton aggregate tracking both agents' virtual USD
// balances and the cross-agent cycle state. One authoritative row exists;
// it is mutated exclusively by the two engines through the StateStore.
//
// Invariants:
//   - CycleNumber strictly increases, and only via cycle completion.
//   - CycleTarget is non-decreasing.
//   - AgentBEnabled transitions false->true only as a side effect of agent
//     A's cycle completion and is never reversed.
type LedgerState struct {
	AgentABalance float64
	AgentBBalance float64
	CycleNumber   int64
	CycleTarget   float64
	AgentBEnabled bool
	LastReset     time.Time
	UpdatedAt     time.Time
}

// CycleTargetReached reports whether agent A's balance has reached the
// current cycle target, i.e. a cycle completion is due.
func (l *LedgerState) CycleTargetReached() bool {
	return l.AgentABalance >= l.CycleTarget
}

// LedgerSnapshot is a daily point-in-time copy of the ledger balances, used
// by the monthly donation accountant to determine a month's start balance.
type LedgerSnapshot struct {
	SnapDate      string // YYYY-MM-DD
	AgentABalance float64
	AgentBBalance float64
	CreatedAt     time.Time
}
