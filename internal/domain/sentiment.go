package domain

import "time"

// SentimentReading is an append-only record of one sentiment refresh.
type SentimentReading struct {
	ID         int64
	FGIValue   int     // raw Fear & Greed index, 0-100
	TrendScore float64 // composite trend component, in [-1,1]
	MCS        float64 // Market Confidence Score, in [0,1]
	CreatedAt  time.Time
}

// TrendAnalysis is the per-pair output of trend analysis.
type TrendAnalysis struct {
	Pair       string
	Signal     TrendSignal
	TrendScore float64 // in [-1,1]; 0 when Signal is neutral
}
