package engine

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"dualAgentBot/internal/domain"
	"dualAgentBot/internal/ports"
)

const (
	simMaxLossPct = 0.02 // worst simulated outcome per trade
	simMaxGainPct = 0.03 // best simulated outcome per trade
)

// SimulationStrategy realizes a pseudo-random bounded percentage gain/loss
// weighted by signal confidence. Used when live trading is disabled. The
// drawn PNL is non-deterministic by design; tests inject a seeded source.
type SimulationStrategy struct {
	exchange ports.ExchangeClient
	logger   ports.Logger

	mu  sync.Mutex
	rng *rand.Rand
	seq int64
}

// NewSimulationStrategy creates the simulation strategy. A nil rng falls
// back to an unseeded source.
func NewSimulationStrategy(exchange ports.ExchangeClient, logger ports.Logger, rng *rand.Rand) (*SimulationStrategy, error) {
	if exchange == nil || logger == nil {
		return nil, fmt.Errorf("missing required dependencies for simulation strategy")
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	return &SimulationStrategy{exchange: exchange, logger: logger, rng: rng}, nil
}

// Name identifies the strategy in logs.
func (s *SimulationStrategy) Name() string { return "simulation" }

// Execute prices the signal off the live ticker and realizes a bounded
// random PNL immediately. A confidence above 0.5 skews the draw positive,
// below 0.5 negative.
func (s *SimulationStrategy) Execute(ctx context.Context, signal *domain.TradeSignal, sizeUSD float64) (*domain.ExecutionResult, error) {
	prices, err := s.exchange.GetTickerPrices(ctx, []string{signal.Pair})
	if err != nil {
		return nil, fmt.Errorf("simulation price lookup failed: %w", err)
	}
	price, ok := prices[signal.Pair]
	if !ok || price <= 0 {
		return nil, fmt.Errorf("%w: pair %s price %.8f", ports.ErrInvalidPrice, signal.Pair, price)
	}

	s.mu.Lock()
	draw := s.rng.Float64()*2 - 1 // [-1,1]
	s.seq++
	orderID := fmt.Sprintf("sim-%d", s.seq)
	s.mu.Unlock()

	bias := signal.Confidence - 0.5
	pct := draw*simMaxLossPct + bias*simMaxGainPct
	if pct < -simMaxLossPct {
		pct = -simMaxLossPct
	}
	if pct > simMaxGainPct {
		pct = simMaxGainPct
	}
	pnl := sizeUSD * pct

	s.logger.Debug(ctx, "Simulated trade executed", map[string]interface{}{
		"pair": signal.Pair, "price": price, "sizeUSD": sizeUSD, "pnlPct": pct, "pnl": pnl,
	})

	return &domain.ExecutionResult{
		OrderID:    orderID,
		EntryPrice: price,
		Quantity:   sizeUSD / price,
		PNL:        pnl,
		Simulated:  true,
	}, nil
}
