package ports

import (
	"context"

	"dualAgentBot/internal/domain"
)

// SentimentSource is the external feed producing the raw Fear & Greed style
// index (0-100).
type SentimentSource interface {
	FetchRawIndex(ctx context.Context) (int, error)
}

// SentimentProvider is what the engines consume: a bounded confidence score
// and a per-pair trend signal.
type SentimentProvider interface {
	// LatestMCS returns the Market Confidence Score in [0,1]. It must never
	// fail the caller: on source unavailability the last durably stored
	// reading is used, or 0.5 if none exists.
	LatestMCS(ctx context.Context) float64

	// TrendAnalysis computes the trend signal for a pair from recent price
	// history. Neutral is the safe default on insufficient data.
	TrendAnalysis(pair string) domain.TrendAnalysis
}
