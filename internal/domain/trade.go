package domain

import "time"

// Trade represents a single executed trade. Records are append-only: once
// created they are never mutated. Exit price and PNL reconciliation for live
// orders happens outside this system, so live trades carry PNL 0 at entry.
type Trade struct {
	ID          int64
	Agent       AgentID
	Pair        string    // trading pair, e.g. "BTCUSDT"
	Side        OrderSide // BUY or SELL
	Quantity    float64   // base asset quantity
	USDAmount   float64   // quote (USD) notional committed to the trade
	EntryPrice  float64
	ExitPrice   float64 // 0 for live trades (reconciled externally)
	PNL         float64 // realized PNL; 0 at entry for live trades
	IsSimulated bool
	EntryTime   time.Time
}

// TradeSignal is a candidate trade produced by sentiment-gated signal
// generation, before risk sizing and execution.
type TradeSignal struct {
	Agent      AgentID
	Pair       string
	Side       OrderSide
	Confidence float64 // MCS at signal time, in [0,1]
	Trend      TrendSignal
}

// ExecutionResult is what an execution strategy reports back after acting on
// a signal.
type ExecutionResult struct {
	OrderID    string
	EntryPrice float64
	Quantity   float64
	PNL        float64 // simulated strategies realize PNL immediately
	Simulated  bool
}
