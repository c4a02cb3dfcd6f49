package sentiment

import (
	"context"
	"fmt"
	"sync"
	"time"

	"dualAgentBot/internal/domain"
	"dualAgentBot/internal/ports"
)

const (
	fastSMAPeriod   = 5
	slowSMAPeriod   = 20
	maxHistorySize  = 120 // Limit price history per pair to bound memory
	trendScoreScale = 50  // Maps small relative SMA gaps onto [-1,1]

	// Relative gap between fast and slow SMA below which the trend is
	// considered flat.
	neutralBand = 0.001

	// Weights of the two MCS components.
	fgiWeight   = 0.7
	trendWeight = 0.3

	// FallbackMCS is returned when no FGI reading was ever obtained, in
	// memory or durably.
	FallbackMCS = 0.5
)

type pricePoint struct {
	price float64
	at    time.Time
}

// Service produces the Market Confidence Score and per-pair trend signals.
// The market refresh job feeds its in-memory price history; the sentiment
// refresh job pulls the raw Fear & Greed index and appends a durable
// SentimentReading. Score reads never fail the caller.
type Service struct {
	source   ports.SentimentSource
	exchange ports.ExchangeClient
	store    ports.StateStore
	logger   ports.Logger
	clock    ports.Clock
	pairs    []string

	mu      sync.RWMutex
	lastFGI int
	fetched bool
	history map[string][]pricePoint
}

// New creates a sentiment service tracking price history for the given pairs.
func New(source ports.SentimentSource, exchange ports.ExchangeClient, store ports.StateStore, logger ports.Logger, clock ports.Clock, pairs []string) (*Service, error) {
	if source == nil || exchange == nil || store == nil || logger == nil {
		return nil, fmt.Errorf("missing required dependencies for sentiment service")
	}
	if len(pairs) == 0 {
		return nil, fmt.Errorf("at least one pair is required for sentiment service")
	}
	if clock == nil {
		clock = ports.SystemClock()
	}
	return &Service{
		source:   source,
		exchange: exchange,
		store:    store,
		logger:   logger,
		clock:    clock,
		pairs:    pairs,
		history:  make(map[string][]pricePoint, len(pairs)),
	}, nil
}

// RecordPrices pulls the current ticker prices for all tracked pairs and
// appends them to the in-memory history rings. Scheduler-driven.
func (s *Service) RecordPrices(ctx context.Context) error {
	prices, err := s.exchange.GetTickerPrices(ctx, s.pairs)
	if err != nil {
		return fmt.Errorf("market refresh failed: %w", err)
	}
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	for pair, price := range prices {
		if price <= 0 {
			s.logger.Warn(ctx, "Ignoring non-positive ticker price", map[string]interface{}{"pair": pair, "price": price})
			continue
		}
		h := append(s.history[pair], pricePoint{price: price, at: now})
		if len(h) > maxHistorySize {
			h = h[len(h)-maxHistorySize:]
		}
		s.history[pair] = h
	}
	return nil
}

// Refresh fetches the raw FGI, recomputes the MCS and appends a durable
// SentimentReading. Scheduler-driven on its own cadence.
func (s *Service) Refresh(ctx context.Context) error {
	fgi, err := s.source.FetchRawIndex(ctx)
	if err != nil {
		return fmt.Errorf("sentiment refresh failed: %w", err)
	}
	if fgi < 0 || fgi > 100 {
		return fmt.Errorf("sentiment refresh failed: %w: FGI value %d out of range", ports.ErrSentimentUnavailable, fgi)
	}

	s.mu.Lock()
	s.lastFGI = fgi
	s.fetched = true
	s.mu.Unlock()

	trend := s.compositeTrendScore()
	mcs := computeMCS(fgi, trend)

	reading := &domain.SentimentReading{
		FGIValue:   fgi,
		TrendScore: trend,
		MCS:        mcs,
		CreatedAt:  s.clock.Now(),
	}
	if err := s.store.AppendSentimentReading(ctx, reading); err != nil {
		return fmt.Errorf("failed to persist sentiment reading: %w", err)
	}
	s.logger.Info(ctx, "Sentiment refreshed", map[string]interface{}{"fgi": fgi, "trendScore": trend, "mcs": mcs})
	return nil
}

// LatestMCS returns the current Market Confidence Score in [0,1]. It never
// fails: with no fresh FGI it falls back to the last durably stored reading,
// and to FallbackMCS if none exists.
func (s *Service) LatestMCS(ctx context.Context) float64 {
	s.mu.RLock()
	fgi, fetched := s.lastFGI, s.fetched
	s.mu.RUnlock()

	if fetched {
		return computeMCS(fgi, s.compositeTrendScore())
	}

	reading, err := s.store.LatestSentimentReading(ctx)
	if err != nil {
		s.logger.Warn(ctx, "Failed to load stored sentiment reading, using fallback score", map[string]interface{}{"fallback": FallbackMCS, "error": err.Error()})
		return FallbackMCS
	}
	if reading == nil {
		return FallbackMCS
	}
	return reading.MCS
}

// TrendAnalysis computes the trend signal for one pair from the fast/slow
// SMA gap over recent price history. Neutral whenever fewer than a full slow
// period of samples exists.
func (s *Service) TrendAnalysis(pair string) domain.TrendAnalysis {
	s.mu.RLock()
	h := s.history[pair]
	s.mu.RUnlock()

	if len(h) < slowSMAPeriod {
		return domain.TrendAnalysis{Pair: pair, Signal: domain.TrendNeutral, TrendScore: 0}
	}

	fast := sma(h, fastSMAPeriod)
	slow := sma(h, slowSMAPeriod)
	gap := (fast - slow) / slow

	signal := domain.TrendNeutral
	switch {
	case gap > neutralBand:
		signal = domain.TrendBullish
	case gap < -neutralBand:
		signal = domain.TrendBearish
	}
	return domain.TrendAnalysis{Pair: pair, Signal: signal, TrendScore: clampUnit(gap * trendScoreScale)}
}

// compositeTrendScore averages the per-pair trend scores. Pairs without
// enough history contribute 0, keeping the composite conservative.
func (s *Service) compositeTrendScore() float64 {
	var sum float64
	for _, pair := range s.pairs {
		sum += s.TrendAnalysis(pair).TrendScore
	}
	return sum / float64(len(s.pairs))
}

// computeMCS blends the normalized FGI with the trend component and bounds
// the result to [0,1].
func computeMCS(fgi int, trendScore float64) float64 {
	mcs := fgiWeight*(float64(fgi)/100.0) + trendWeight*((trendScore+1)/2)
	if mcs < 0 {
		return 0
	}
	if mcs > 1 {
		return 1
	}
	return mcs
}

func sma(h []pricePoint, period int) float64 {
	var sum float64
	for _, p := range h[len(h)-period:] {
		sum += p.price
	}
	return sum / float64(period)
}

func clampUnit(v float64) float64 {
	if v < -1 {
		return -1
	}
	if v > 1 {
		return 1
	}
	return v
}
