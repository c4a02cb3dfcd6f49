package ports

import (
	"context"
	"time"

	"dualAgentBot/internal/domain"
)

// OrderResponse represents the essential details returned after placing an order.
type OrderResponse struct {
	OrderID       int64     // Exchange's order ID
	ClientOrderID string    // User-defined order ID
	Pair          string    // Pair the order was placed on
	Price         float64   // Average filled price (0 if not yet filled)
	ExecutedQty   float64   // Base quantity filled
	QuoteQty      float64   // Quote (USD) amount committed
	Status        string    // Order status (e.g. NEW, FILLED)
	Side          string    // BUY or SELL
	Timestamp     time.Time // Time the order response was generated
}

// ExchangeClient defines the call contract with the exchange. Only this
// boundary is used by the core; the wire-level protocol lives in adapters.
// Failure of any call must surface as a typed error, never a silent default.
type ExchangeClient interface {
	// GetTickerPrices retrieves the last ticker price for each requested pair.
	GetTickerPrices(ctx context.Context, pairs []string) (map[string]float64, error)

	// PlaceOrder submits an order for the given quote (USD) amount.
	PlaceOrder(ctx context.Context, pair string, side domain.OrderSide, orderType domain.OrderType, quoteUSD float64, meta map[string]string) (*OrderResponse, error)

	// GetTotalUSDValue values the whole account in USD. This is an expensive
	// call; callers should go through the balance cache.
	GetTotalUSDValue(ctx context.Context) (float64, error)

	// Ping checks connectivity to the exchange API.
	Ping(ctx context.Context) error
}
