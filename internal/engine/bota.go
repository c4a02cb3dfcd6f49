package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"dualAgentBot/config"
	"dualAgentBot/internal/balance"
	"dualAgentBot/internal/domain"
	"dualAgentBot/internal/ports"
	"dualAgentBot/internal/risk"
)

// HardCapPerTradeUSD is the absolute ceiling on a single agent-A trade.
// Deliberately a compile-time constant, not overridable by configuration.
const HardCapPerTradeUSD = 25.0

// minViableTradeA is the smallest agent-A trade worth executing.
const minViableTradeA = 10.0

// BotAEngine is the aggressive cycle-based agent. It owns the cycle /
// fund-transfer state machine: once its virtual balance reaches the cycle
// target, the completion transition resets it, credits agent B and flips
// agent B's enabled flag. Each tick runs to one outcome and returns to idle.
type BotAEngine struct {
	cfg        *config.Config
	logger     ports.Logger
	store      ports.StateStore
	sentiments ports.SentimentProvider
	riskEngine *risk.Engine
	balances   *balance.Cache
	exec       ports.ExecutionStrategy
	clock      ports.Clock

	// Daily guard state, reset on calendar-day rollover.
	mu            sync.Mutex
	lossDay       string
	dailyLoss     float64
	openPositions int
}

// NewBotAEngine creates the agent-A engine with injected collaborators.
func NewBotAEngine(
	cfg *config.Config,
	logger ports.Logger,
	store ports.StateStore,
	sentiments ports.SentimentProvider,
	riskEngine *risk.Engine,
	balances *balance.Cache,
	exec ports.ExecutionStrategy,
	clock ports.Clock,
) (*BotAEngine, error) {
	if cfg == nil || logger == nil || store == nil || sentiments == nil || riskEngine == nil || balances == nil || exec == nil {
		return nil, fmt.Errorf("missing required dependencies for BotAEngine")
	}
	if clock == nil {
		clock = ports.SystemClock()
	}
	return &BotAEngine{
		cfg:        cfg,
		logger:     logger,
		store:      store,
		sentiments: sentiments,
		riskEngine: riskEngine,
		balances:   balances,
		exec:       exec,
		clock:      clock,
	}, nil
}

// Tick runs one decision cycle for agent A. Failures abandon the tick
// without mutating durable state; the next scheduled tick is the retry.
func (e *BotAEngine) Tick(ctx context.Context) (domain.TickOutcome, error) {
	op := "BotAEngine.Tick"
	now := e.clock.Now()

	// 1. Global trading switch.
	if !e.cfg.TradingEnabled() {
		e.logger.Info(ctx, op+": trading globally disabled, skipping")
		return domain.OutcomeDisabled, nil
	}

	// 2/3. Daily guards.
	if blocked, reason := e.checkGuards(now); blocked {
		e.logger.Info(ctx, op+": guard blocked", map[string]interface{}{"reason": reason})
		return domain.OutcomeGuardBlocked, nil
	}

	// 4. Authoritative ledger row (auto-seeded on first read).
	ledger, err := e.store.LatestLedger(ctx)
	if err != nil {
		return domain.OutcomeFailed, fmt.Errorf("%s: failed to load ledger: %w", op, err)
	}

	// 5. Sentiment gate.
	mcs := e.sentiments.LatestMCS(ctx)
	if mcs < e.cfg.MinMCSA {
		e.logger.Info(ctx, op+": confidence below threshold, skipping", map[string]interface{}{"mcs": mcs, "min": e.cfg.MinMCSA})
		return domain.OutcomeMCSBlocked, nil
	}

	// 6. Position-sizing policy for this tick.
	assessment := e.riskEngine.Assess(domain.AgentA, mcs)

	// 7. Cycle completion takes precedence over trading.
	if ledger.CycleTargetReached() {
		return e.completeCycle(ctx, ledger)
	}

	// 8. At most one candidate signal. Bearish generates no short side --
	// the asymmetry is intentional and log-only.
	trend := e.sentiments.TrendAnalysis(e.cfg.PrimaryPair)
	if trend.Signal != domain.TrendBullish {
		e.logger.Debug(ctx, op+": no bullish signal", map[string]interface{}{"pair": e.cfg.PrimaryPair, "trend": trend.Signal})
		return domain.OutcomeNoSignal, nil
	}

	// 9. Size and execute exactly one trade.
	amount := math.Min(e.cfg.TradeAmountUSD, HardCapPerTradeUSD)
	amount = math.Min(amount, assessment.MaxRiskPerTrade*ledger.AgentABalance)
	if amount < minViableTradeA {
		e.logger.Debug(ctx, op+": sized amount below minimum viable trade", map[string]interface{}{"amount": amount, "min": minViableTradeA})
		return domain.OutcomeTooSmall, nil
	}

	if e.cfg.AllowLiveTrading {
		// Live orders spend real funds; check the (cached) account value.
		real, err := e.balances.Get(ctx)
		if err != nil {
			return domain.OutcomeFailed, fmt.Errorf("%s: balance check failed: %w", op, err)
		}
		if real < amount {
			e.logger.Warn(ctx, op+": account value below trade amount", map[string]interface{}{"accountUSD": real, "amount": amount})
			return domain.OutcomeGuardBlocked, nil
		}
	}

	signal := &domain.TradeSignal{
		Agent:      domain.AgentA,
		Pair:       e.cfg.PrimaryPair,
		Side:       domain.Buy,
		Confidence: mcs,
		Trend:      trend.Signal,
	}
	result, err := e.exec.Execute(ctx, signal, amount)
	if err != nil {
		if errors.Is(err, ports.ErrInvalidPrice) || errors.Is(err, ports.ErrPositionTooSmall) {
			// Expected condition: drop the candidate, not an error.
			e.logger.Debug(ctx, op+": candidate signal dropped", map[string]interface{}{"reason": err.Error()})
			return domain.OutcomeNoSignal, nil
		}
		return domain.OutcomeFailed, fmt.Errorf("%s: execution failed: %w", op, err)
	}

	trade := &domain.Trade{
		Agent:       domain.AgentA,
		Pair:        signal.Pair,
		Side:        signal.Side,
		Quantity:    result.Quantity,
		USDAmount:   amount,
		EntryPrice:  result.EntryPrice,
		PNL:         result.PNL,
		IsSimulated: result.Simulated,
		EntryTime:   now,
	}
	if _, err := e.store.AppendTrade(ctx, trade); err != nil {
		// Discard the in-memory computation; no partial mutation is applied.
		return domain.OutcomeFailed, fmt.Errorf("%s: failed to persist trade: %w", op, err)
	}

	if result.Simulated && result.PNL != 0 {
		// Simulated PNL is realized immediately against the virtual ledger;
		// that is how agent A's balance walks toward the cycle target.
		if err := e.store.AdjustBalance(ctx, domain.AgentA, result.PNL); err != nil {
			return domain.OutcomeFailed, fmt.Errorf("%s: failed to apply simulated pnl: %w", op, err)
		}
	}

	e.recordTradeEffects(now, result)

	e.logger.Info(ctx, op+": trade executed", map[string]interface{}{
		"pair": signal.Pair, "amount": amount, "price": result.EntryPrice,
		"pnl": result.PNL, "strategy": e.exec.Name(), "mcs": mcs,
	})
	return domain.OutcomeTradeExecuted, nil
}

// completeCycle applies the single atomic cross-agent transition. The store
// rejects a second application against the same pre-state, so a crash or
// overlapping run cannot double the fund transfer.
func (e *BotAEngine) completeCycle(ctx context.Context, ledger *domain.LedgerState) (domain.TickOutcome, error) {
	op := "BotAEngine.completeCycle"

	updated, err := e.store.CompleteCycle(ctx, ledger.CycleNumber)
	if err != nil {
		if errors.Is(err, ports.ErrCycleAlreadyCompleted) {
			e.logger.Warn(ctx, op+": transition already applied, nothing to do", map[string]interface{}{"cycle": ledger.CycleNumber})
			return domain.OutcomeCycleComplete, nil
		}
		return domain.OutcomeFailed, fmt.Errorf("%s: %w", op, err)
	}

	e.logger.Info(ctx, op+": cycle completed, funds transferred to agent B", map[string]interface{}{
		"cycle":         updated.CycleNumber,
		"newTarget":     updated.CycleTarget,
		"agentABalance": updated.AgentABalance,
		"agentBBalance": updated.AgentBBalance,
		"agentBEnabled": updated.AgentBEnabled,
	})
	return domain.OutcomeCycleComplete, nil
}

// checkGuards applies the daily-loss and open-position limits, resetting the
// loss counter when the calendar day rolls over.
func (e *BotAEngine) checkGuards(now time.Time) (bool, string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	day := domain.DayKey(now)
	if e.lossDay != day {
		e.lossDay = day
		e.dailyLoss = 0
	}

	if e.dailyLoss >= e.cfg.MaxDailyLossA {
		return true, fmt.Sprintf("daily loss limit reached (%.2f/%.2f)", e.dailyLoss, e.cfg.MaxDailyLossA)
	}
	if e.openPositions >= e.cfg.MaxOpenPositionsA {
		return true, fmt.Sprintf("open position limit reached (%d/%d)", e.openPositions, e.cfg.MaxOpenPositionsA)
	}
	return false, ""
}

// recordTradeEffects updates the in-memory guard counters after a trade.
func (e *BotAEngine) recordTradeEffects(now time.Time, result *domain.ExecutionResult) {
	e.mu.Lock()
	defer e.mu.Unlock()

	day := domain.DayKey(now)
	if e.lossDay != day {
		e.lossDay = day
		e.dailyLoss = 0
	}
	if result.Simulated {
		if result.PNL < 0 {
			e.dailyLoss += -result.PNL
		}
	} else {
		// Live entries stay open until reconciled externally.
		e.openPositions++
	}
}

// OpenPositions reports the in-memory open position count (live mode only).
func (e *BotAEngine) OpenPositions() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.openPositions
}
