package domain

import "time"

// MonthlyReport records the donation accounting for one calendar month.
// Append-only and idempotent: at most one report exists per MonthKey, and a
// report is never recomputed or overwritten after creation.
type MonthlyReport struct {
	ID             int64
	MonthKey       string // YYYY-MM
	StartBalance   float64
	EndBalance     float64
	DonationAmount float64
	CreatedAt      time.Time
}

// RiskAssessment is the transient position-sizing policy computed from
// (agent identity, MCS) on every tick. It is never persisted.
type RiskAssessment struct {
	MaxPositionSize float64 // absolute USD ceiling for a single trade
	MaxRiskPerTrade float64 // fraction of the agent's balance per trade
}

// MonthKey formats t as the YYYY-MM key used for monthly reports.
func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}

// DayKey formats t as the YYYY-MM-DD key used for ledger snapshots.
func DayKey(t time.Time) string {
	return t.Format("2006-01-02")
}
