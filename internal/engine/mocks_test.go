package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"dualAgentBot/internal/domain"
	"dualAgentBot/internal/ports"
)

// Mock implementations shared by the engine tests.

type mockLogger struct {
	mu        sync.Mutex
	debugMsgs []string
	infoMsgs  []string
	warnMsgs  []string
	errorMsgs []string
}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.debugMsgs = append(m.debugMsgs, msg)
}

func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.infoMsgs = append(m.infoMsgs, msg)
}

func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.warnMsgs = append(m.warnMsgs, msg)
}

func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorMsgs = append(m.errorMsgs, msg)
}

type mockSentiments struct {
	mcs    float64
	trends map[string]domain.TrendAnalysis
}

func (m *mockSentiments) LatestMCS(ctx context.Context) float64 {
	return m.mcs
}

func (m *mockSentiments) TrendAnalysis(pair string) domain.TrendAnalysis {
	if t, ok := m.trends[pair]; ok {
		return t
	}
	return domain.TrendAnalysis{Pair: pair, Signal: domain.TrendNeutral}
}

type mockExchange struct {
	mu          sync.Mutex
	prices      map[string]float64
	pricesErr   error
	totalUSD    float64
	totalErr    error
	fetchCalls  int
	placedPairs []string
	placeErr    error
}

func (m *mockExchange) GetTickerPrices(ctx context.Context, pairs []string) (map[string]float64, error) {
	if m.pricesErr != nil {
		return nil, m.pricesErr
	}
	out := make(map[string]float64, len(pairs))
	for _, p := range pairs {
		out[p] = m.prices[p]
	}
	return out, nil
}

func (m *mockExchange) PlaceOrder(ctx context.Context, pair string, side domain.OrderSide, orderType domain.OrderType, quoteUSD float64, meta map[string]string) (*ports.OrderResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.placeErr != nil {
		return nil, m.placeErr
	}
	m.placedPairs = append(m.placedPairs, pair)
	return &ports.OrderResponse{
		OrderID:     int64(len(m.placedPairs)),
		Pair:        pair,
		Price:       m.prices[pair],
		ExecutedQty: quoteUSD / m.prices[pair],
		QuoteQty:    quoteUSD,
		Status:      "FILLED",
		Side:        string(side),
		Timestamp:   time.Now(),
	}, nil
}

func (m *mockExchange) GetTotalUSDValue(ctx context.Context) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetchCalls++
	return m.totalUSD, m.totalErr
}

func (m *mockExchange) Ping(ctx context.Context) error { return nil }

// mockStore is an in-memory StateStore with the same transition semantics as
// the sqlite adapter.
type mockStore struct {
	mu        sync.Mutex
	ledger    *domain.LedgerState
	trades    []*domain.Trade
	readings  []*domain.SentimentReading
	reports   map[string]*domain.MonthlyReport
	snapshots map[string]*domain.LedgerSnapshot

	ledgerErr      error
	completeErr    error
	adjustErr      error
	appendTradeErr error
	countErr       error
	reportFindErr  error
	createErr      error
}

func newMockStore(ledger *domain.LedgerState) *mockStore {
	return &mockStore{
		ledger:    ledger,
		reports:   make(map[string]*domain.MonthlyReport),
		snapshots: make(map[string]*domain.LedgerSnapshot),
	}
}

func (m *mockStore) LatestLedger(ctx context.Context) (*domain.LedgerState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ledgerErr != nil {
		return nil, m.ledgerErr
	}
	if m.ledger == nil {
		m.ledger = &domain.LedgerState{
			AgentABalance: domain.LedgerSeedBalanceA,
			CycleNumber:   1,
			CycleTarget:   domain.LedgerSeedTarget,
		}
	}
	cp := *m.ledger
	return &cp, nil
}

func (m *mockStore) CompleteCycle(ctx context.Context, fromCycle int64) (*domain.LedgerState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.completeErr != nil {
		return nil, m.completeErr
	}
	if m.ledger == nil || m.ledger.CycleNumber != fromCycle || m.ledger.AgentABalance < m.ledger.CycleTarget {
		return nil, fmt.Errorf("cycle %d: %w", fromCycle, ports.ErrCycleAlreadyCompleted)
	}
	m.ledger.AgentABalance = domain.CycleResetBalance
	m.ledger.CycleNumber++
	m.ledger.CycleTarget += domain.CycleTargetIncrease
	m.ledger.AgentBBalance += domain.CycleTransferAmount
	m.ledger.AgentBEnabled = true
	cp := *m.ledger
	return &cp, nil
}

func (m *mockStore) AdjustBalance(ctx context.Context, agent domain.AgentID, delta float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.adjustErr != nil {
		return m.adjustErr
	}
	if agent == domain.AgentA {
		m.ledger.AgentABalance += delta
	} else {
		m.ledger.AgentBBalance += delta
	}
	return nil
}

func (m *mockStore) AppendTrade(ctx context.Context, trade *domain.Trade) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendTradeErr != nil {
		return 0, m.appendTradeErr
	}
	trade.ID = int64(len(m.trades) + 1)
	m.trades = append(m.trades, trade)
	return trade.ID, nil
}

func (m *mockStore) CountTradesToday(ctx context.Context, agent domain.AgentID, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.countErr != nil {
		return 0, m.countErr
	}
	day := domain.DayKey(now)
	count := 0
	for _, t := range m.trades {
		if t.Agent == agent && domain.DayKey(t.EntryTime) == day {
			count++
		}
	}
	return count, nil
}

func (m *mockStore) AppendSentimentReading(ctx context.Context, reading *domain.SentimentReading) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readings = append(m.readings, reading)
	return nil
}

func (m *mockStore) LatestSentimentReading(ctx context.Context) (*domain.SentimentReading, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.readings) == 0 {
		return nil, nil
	}
	return m.readings[len(m.readings)-1], nil
}

func (m *mockStore) FindMonthlyReport(ctx context.Context, monthKey string) (*domain.MonthlyReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.reportFindErr != nil {
		return nil, m.reportFindErr
	}
	return m.reports[monthKey], nil
}

func (m *mockStore) CreateMonthlyReport(ctx context.Context, report *domain.MonthlyReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if _, ok := m.reports[report.MonthKey]; ok {
		return fmt.Errorf("month %s: %w", report.MonthKey, ports.ErrReportExists)
	}
	m.reports[report.MonthKey] = report
	return nil
}

func (m *mockStore) RecordLedgerSnapshot(ctx context.Context, snap *domain.LedgerSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.snapshots[snap.SnapDate]; !ok {
		m.snapshots[snap.SnapDate] = snap
	}
	return nil
}

func (m *mockStore) FirstSnapshotInMonth(ctx context.Context, monthKey string) (*domain.LedgerSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var earliest *domain.LedgerSnapshot
	for date, snap := range m.snapshots {
		if len(date) >= 7 && date[:7] == monthKey {
			if earliest == nil || snap.SnapDate < earliest.SnapDate {
				earliest = snap
			}
		}
	}
	return earliest, nil
}

// mockExec records executions and plays back canned results.
type mockExec struct {
	mu      sync.Mutex
	name    string
	results []*domain.ExecutionResult
	err     error
	calls   []struct {
		signal *domain.TradeSignal
		size   float64
	}
}

func (m *mockExec) Name() string {
	if m.name == "" {
		return "mock"
	}
	return m.name
}

func (m *mockExec) Execute(ctx context.Context, signal *domain.TradeSignal, sizeUSD float64) (*domain.ExecutionResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, struct {
		signal *domain.TradeSignal
		size   float64
	}{signal, sizeUSD})
	if m.err != nil {
		return nil, m.err
	}
	idx := len(m.calls) - 1
	if idx < len(m.results) {
		return m.results[idx], nil
	}
	return &domain.ExecutionResult{OrderID: "mock-1", EntryPrice: 100, Quantity: sizeUSD / 100, Simulated: true}, nil
}

type fixedClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fixedClock) set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}
