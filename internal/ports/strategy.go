package ports

import (
	"context"

	"dualAgentBot/internal/domain"
)

// ExecutionStrategy executes a sized trade signal. Two implementations
// exist and must be kept distinct: a simulation strategy that realizes a
// pseudo-random bounded PNL immediately, and a live strategy that submits a
// real order and records PNL 0 at entry. The engine selects exactly one at
// construction time from configuration, never from partial runtime state.
type ExecutionStrategy interface {
	// Name identifies the strategy in logs ("simulation" or "live").
	Name() string

	// Execute acts on the signal with the given USD size and reports the
	// result. ErrInvalidPrice drops the candidate signal; exchange failures
	// abandon the whole tick.
	Execute(ctx context.Context, signal *domain.TradeSignal, sizeUSD float64) (*domain.ExecutionResult, error)
}
