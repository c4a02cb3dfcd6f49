package engine

import (
	"context"
	"errors"
	"fmt"
	"math"

	"dualAgentBot/config"
	"dualAgentBot/internal/balance"
	"dualAgentBot/internal/domain"
	"dualAgentBot/internal/ports"
	"dualAgentBot/internal/risk"
)

const (
	// minViableTradeB is the smallest agent-B trade worth executing.
	minViableTradeB = 25.0

	// secondarySignalMCS gates the secondary-pair signal. Inclusion is
	// deterministic here: the signal is generated whenever MCS clears the
	// bar (the upstream system drew it probabilistically).
	secondarySignalMCS = 0.8
)

// BotBEngine is the conservative donation-funding agent. It trades only
// after agent A's first cycle completion enables it (the flag is read-only
// from this engine's perspective) and only on bullish, high-confidence
// signals.
type BotBEngine struct {
	cfg        *config.Config
	logger     ports.Logger
	store      ports.StateStore
	sentiments ports.SentimentProvider
	riskEngine *risk.Engine
	balances   *balance.Cache
	exec       ports.ExecutionStrategy
	clock      ports.Clock
}

// NewBotBEngine creates the agent-B engine with injected collaborators.
func NewBotBEngine(
	cfg *config.Config,
	logger ports.Logger,
	store ports.StateStore,
	sentiments ports.SentimentProvider,
	riskEngine *risk.Engine,
	balances *balance.Cache,
	exec ports.ExecutionStrategy,
	clock ports.Clock,
) (*BotBEngine, error) {
	if cfg == nil || logger == nil || store == nil || sentiments == nil || riskEngine == nil || balances == nil || exec == nil {
		return nil, fmt.Errorf("missing required dependencies for BotBEngine")
	}
	if clock == nil {
		clock = ports.SystemClock()
	}
	return &BotBEngine{
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

// Tick runs one decision cycle for agent B: zero to two bullish-only trades,
// bounded by the daily limit, each sized by the conservative risk profile.
func (e *BotBEngine) Tick(ctx context.Context) (domain.TickOutcome, error) {
	op := "BotBEngine.Tick"
	now := e.clock.Now()

	// 1. Global switch plus the agent-A-controlled enable flag.
	if !e.cfg.TradingEnabled() {
		e.logger.Info(ctx, op+": trading globally disabled, skipping")
		return domain.OutcomeDisabled, nil
	}
	ledger, err := e.store.LatestLedger(ctx)
	if err != nil {
		return domain.OutcomeFailed, fmt.Errorf("%s: failed to load ledger: %w", op, err)
	}
	if !ledger.AgentBEnabled {
		e.logger.Debug(ctx, op+": agent B not yet enabled, skipping")
		return domain.OutcomeDisabled, nil
	}

	// 2. Confidence and trend gates. Agent B never trades bearish/neutral.
	mcs := e.sentiments.LatestMCS(ctx)
	if mcs < e.cfg.MinMCSB {
		e.logger.Info(ctx, op+": confidence below threshold, skipping", map[string]interface{}{"mcs": mcs, "min": e.cfg.MinMCSB})
		return domain.OutcomeMCSBlocked, nil
	}
	primaryTrend := e.sentiments.TrendAnalysis(e.cfg.PrimaryPair)
	if primaryTrend.Signal != domain.TrendBullish {
		e.logger.Debug(ctx, op+": primary trend not bullish", map[string]interface{}{"trend": primaryTrend.Signal})
		return domain.OutcomeNoSignal, nil
	}

	// 3. Daily trade limit from the durable log, so restarts cannot reset it.
	tradesToday, err := e.store.CountTradesToday(ctx, domain.AgentB, now)
	if err != nil {
		return domain.OutcomeFailed, fmt.Errorf("%s: failed to count today's trades: %w", op, err)
	}
	if tradesToday >= e.cfg.MaxDailyTradesB {
		e.logger.Info(ctx, op+": daily trade limit reached", map[string]interface{}{"trades": tradesToday, "max": e.cfg.MaxDailyTradesB})
		return domain.OutcomeGuardBlocked, nil
	}

	// 4. Zero to two signals: primary always once the gate passes, secondary
	// only in the high-confidence regime.
	signals := []*domain.TradeSignal{{
		Agent:      domain.AgentB,
		Pair:       e.cfg.PrimaryPair,
		Side:       domain.Buy,
		Confidence: mcs,
		Trend:      primaryTrend.Signal,
	}}
	if mcs >= secondarySignalMCS {
		signals = append(signals, &domain.TradeSignal{
			Agent:      domain.AgentB,
			Pair:       e.cfg.SecondaryPair,
			Side:       domain.Buy,
			Confidence: mcs,
			Trend:      e.sentiments.TrendAnalysis(e.cfg.SecondaryPair).Signal,
		})
	}

	// 5. Execute within the remaining daily budget.
	assessment := e.riskEngine.Assess(domain.AgentB, mcs)
	budget := e.cfg.MaxDailyTradesB - tradesToday
	executed := 0
	skipped := 0

	for _, signal := range signals {
		if executed >= budget {
			break
		}

		size := math.Min(assessment.MaxRiskPerTrade*ledger.AgentBBalance, assessment.MaxPositionSize)
		if size < minViableTradeB {
			e.logger.Debug(ctx, op+": signal below minimum viable size, skipping", map[string]interface{}{"pair": signal.Pair, "size": size, "min": minViableTradeB})
			skipped++
			continue
		}

		if e.cfg.AllowLiveTrading {
			// Live orders spend real funds; check the (cached) account value.
			real, err := e.balances.Get(ctx)
			if err != nil {
				return domain.OutcomeFailed, fmt.Errorf("%s: balance check failed: %w", op, err)
			}
			if real < size {
				e.logger.Warn(ctx, op+": account value below trade size, skipping", map[string]interface{}{"pair": signal.Pair, "accountUSD": real, "size": size})
				skipped++
				continue
			}
		}

		result, err := e.exec.Execute(ctx, signal, size)
		if err != nil {
			if errors.Is(err, ports.ErrInvalidPrice) || errors.Is(err, ports.ErrPositionTooSmall) {
				e.logger.Debug(ctx, op+": candidate signal dropped", map[string]interface{}{"pair": signal.Pair, "reason": err.Error()})
				skipped++
				continue
			}
			// External failure abandons the whole tick; no mid-tick retry.
			return domain.OutcomeFailed, fmt.Errorf("%s: execution failed for %s: %w", op, signal.Pair, err)
		}

		trade := &domain.Trade{
			Agent:       domain.AgentB,
			Pair:        signal.Pair,
			Side:        signal.Side,
			Quantity:    result.Quantity,
			USDAmount:   size,
			EntryPrice:  result.EntryPrice,
			PNL:         result.PNL,
			IsSimulated: result.Simulated,
			EntryTime:   now,
		}
		if _, err := e.store.AppendTrade(ctx, trade); err != nil {
			return domain.OutcomeFailed, fmt.Errorf("%s: failed to persist trade: %w", op, err)
		}
		if result.PNL != 0 {
			if err := e.store.AdjustBalance(ctx, domain.AgentB, result.PNL); err != nil {
				return domain.OutcomeFailed, fmt.Errorf("%s: failed to apply realized pnl: %w", op, err)
			}
		}

		executed++
		e.logger.Info(ctx, op+": trade executed", map[string]interface{}{
			"pair": signal.Pair, "size": size, "price": result.EntryPrice,
			"pnl": result.PNL, "strategy": e.exec.Name(), "mcs": mcs,
		})
	}

	if executed == 0 {
		if skipped > 0 {
			return domain.OutcomeTooSmall, nil
		}
		return domain.OutcomeNoSignal, nil
	}
	return domain.OutcomeTradeExecuted, nil
}
