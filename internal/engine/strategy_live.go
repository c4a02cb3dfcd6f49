package engine

import (
	"context"
	"fmt"
	"strconv"

	"dualAgentBot/internal/domain"
	"dualAgentBot/internal/ports"
)

// LiveStrategy submits a real market order through the exchange client and
// records PNL 0 at entry; profit is realized later, outside this system.
type LiveStrategy struct {
	exchange ports.ExchangeClient
	logger   ports.Logger
}

// NewLiveStrategy creates the live strategy.
func NewLiveStrategy(exchange ports.ExchangeClient, logger ports.Logger) (*LiveStrategy, error) {
	if exchange == nil || logger == nil {
		return nil, fmt.Errorf("missing required dependencies for live strategy")
	}
	return &LiveStrategy{exchange: exchange, logger: logger}, nil
}

// Name identifies the strategy in logs.
func (s *LiveStrategy) Name() string { return "live" }

// Execute fetches the live price, submits a market order for the USD amount
// and reports the fill with zero realized PNL.
func (s *LiveStrategy) Execute(ctx context.Context, signal *domain.TradeSignal, sizeUSD float64) (*domain.ExecutionResult, error) {
	op := "LiveStrategy.Execute"

	prices, err := s.exchange.GetTickerPrices(ctx, []string{signal.Pair})
	if err != nil {
		return nil, fmt.Errorf("live price lookup failed: %w", err)
	}
	price, ok := prices[signal.Pair]
	if !ok || price <= 0 {
		return nil, fmt.Errorf("%w: pair %s price %.8f", ports.ErrInvalidPrice, signal.Pair, price)
	}

	meta := map[string]string{"agent": string(signal.Agent), "trend": string(signal.Trend)}
	order, err := s.exchange.PlaceOrder(ctx, signal.Pair, signal.Side, domain.OrderTypeMarket, sizeUSD, meta)
	if err != nil {
		return nil, fmt.Errorf("order placement failed: %w", err)
	}

	entryPrice := order.Price
	if entryPrice == 0 {
		s.logger.Warn(ctx, op+": order fill price is 0, using ticker price as fallback", map[string]interface{}{"orderID": order.OrderID, "fallbackPrice": price})
		entryPrice = price
	}
	quantity := order.ExecutedQty
	if quantity == 0 {
		quantity = sizeUSD / entryPrice
	}

	s.logger.Info(ctx, op+": order placed", map[string]interface{}{
		"pair": signal.Pair, "side": signal.Side, "orderID": order.OrderID, "price": entryPrice, "sizeUSD": sizeUSD,
	})

	return &domain.ExecutionResult{
		OrderID:    strconv.FormatInt(order.OrderID, 10),
		EntryPrice: entryPrice,
		Quantity:   quantity,
		PNL:        0, // unrealized at entry, reconciled externally
		Simulated:  false,
	}, nil
}
