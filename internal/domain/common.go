package domain

// AgentID identifies one of the two trading agents.
type AgentID string

const (
	AgentA AgentID = "agent_a" // aggressive cycle-based agent
	AgentB AgentID = "agent_b" // conservative donation-funding agent
)

// OrderSide represents the side of an order (BUY or SELL).
type OrderSide string

const (
	Buy  OrderSide = "BUY"
	Sell OrderSide = "SELL"
)

// OrderType represents the execution type of an order.
type OrderType string

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
)

// TrendSignal is the direction produced by trend analysis.
type TrendSignal string

const (
	TrendBullish TrendSignal = "bullish"
	TrendBearish TrendSignal = "bearish"
	TrendNeutral TrendSignal = "neutral"
)

// TickOutcome describes how an engine tick ended. Exactly one outcome is
// logged per tick; engines always return to idle afterwards.
type TickOutcome string

const (
	OutcomeDisabled      TickOutcome = "disabled"
	OutcomeGuardBlocked  TickOutcome = "guard-blocked"
	OutcomeMCSBlocked    TickOutcome = "mcs-blocked"
	OutcomeCycleComplete TickOutcome = "cycle-complete"
	OutcomeNoSignal      TickOutcome = "no-signal"
	OutcomeTooSmall      TickOutcome = "position-too-small"
	OutcomeTradeExecuted TickOutcome = "trade-executed"
	OutcomeFailed        TickOutcome = "failed"
)
