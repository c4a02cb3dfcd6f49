package binanceclient

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"dualAgentBot/internal/domain"
	"dualAgentBot/internal/ports"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
)

const (
	// Base URLs
	baseURLProduction = "https://api.binance.com"
	baseURLTestnet    = "https://testnet.binance.vision"

	// quoteAsset is the asset all account values are expressed in.
	quoteAsset = "USDT"
)

// stableAssets are counted 1:1 against the quote asset when valuing the
// account.
var stableAssets = map[string]bool{"USDT": true, "BUSD": true, "USDC": true, "FDUSD": true}

// Client implements the ports.ExchangeClient interface using the go-binance
// spot API.
type Client struct {
	spotClient *binance.Client
	logger     ports.Logger
}

// Config holds configuration specific to the Binance client adapter.
type Config struct {
	APIKey     string
	SecretKey  string
	UseTestnet bool
	Logger     ports.Logger
}

// New creates a new Binance client adapter.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Binance client")
	}
	if cfg.APIKey == "" || cfg.SecretKey == "" {
		cfg.Logger.Warn(context.Background(), "APIKey or SecretKey is empty. Client will only work for public endpoints.")
	}

	client := binance.NewClient(cfg.APIKey, cfg.SecretKey)

	// Set BaseURL directly instead of using the global binance.UseTestnet
	if cfg.UseTestnet {
		client.BaseURL = baseURLTestnet
		cfg.Logger.Info(context.Background(), "Binance client configured for Testnet", map[string]interface{}{"baseURL": client.BaseURL})
	} else {
		client.BaseURL = baseURLProduction
		cfg.Logger.Info(context.Background(), "Binance client configured for Production", map[string]interface{}{"baseURL": client.BaseURL})
	}

	return &Client{spotClient: client, logger: cfg.Logger}, nil
}

// handleError translates common Binance API errors into standardized ports errors.
func (c *Client) handleError(ctx context.Context, err error, operation string) error {
	if err == nil {
		return nil
	}

	fields := map[string]interface{}{"operation": operation, "originalError": err.Error()}

	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		fields["apiErrorCode"] = apiErr.Code
		fields["apiErrorMessage"] = apiErr.Message

		var mappedErr error
		switch apiErr.Code {
		case -1003: // Too many requests
			mappedErr = ports.ErrRateLimited
		case -1022, -2014, -2015: // Signature / API key problems
			mappedErr = ports.ErrAuthenticationFailed
		case -2010: // New order rejected
			if strings.Contains(strings.ToLower(apiErr.Message), "insufficient") {
				mappedErr = ports.ErrInsufficientFunds
			} else {
				mappedErr = ports.ErrOrderPlacementFailed
			}
		default:
			mappedErr = ports.ErrExchangeUnavailable
		}
		c.logger.Error(ctx, mappedErr, "Binance API error", fields)
		return fmt.Errorf("%s: %w: %s", operation, mappedErr, apiErr.Message)
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		c.logger.Warn(ctx, "Binance call canceled", fields)
		return fmt.Errorf("%s: %w", operation, ports.ErrContextCanceled)
	}

	c.logger.Error(ctx, ports.ErrExchangeUnavailable, "Binance call failed", fields)
	return fmt.Errorf("%s: %w: %v", operation, ports.ErrExchangeUnavailable, err)
}

// Ping checks connectivity to the exchange API.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.spotClient.NewPingService().Do(ctx); err != nil {
		return c.handleError(ctx, err, "Ping")
	}
	return nil
}

// GetTickerPrices retrieves the last ticker price for each requested pair.
// Every requested pair must come back with a positive price; anything else
// is surfaced as a typed error, never a silent default.
func (c *Client) GetTickerPrices(ctx context.Context, pairs []string) (map[string]float64, error) {
	op := "GetTickerPrices"
	if len(pairs) == 0 {
		return map[string]float64{}, nil
	}

	symbolPrices, err := c.spotClient.NewListPricesService().Symbols(pairs).Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}

	prices := make(map[string]float64, len(pairs))
	for _, sp := range symbolPrices {
		price, err := strconv.ParseFloat(sp.Price, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: unparseable price '%s' for %s: %w", op, sp.Price, sp.Symbol, ports.ErrExchangeUnavailable)
		}
		if price <= 0 {
			return nil, fmt.Errorf("%s: %w: %s price %.8f", op, ports.ErrInvalidPrice, sp.Symbol, price)
		}
		prices[sp.Symbol] = price
	}
	for _, pair := range pairs {
		if _, ok := prices[pair]; !ok {
			return nil, fmt.Errorf("%s: no price returned for %s: %w", op, pair, ports.ErrExchangeUnavailable)
		}
	}
	return prices, nil
}

// PlaceOrder submits an order for the given quote (USD) amount.
func (c *Client) PlaceOrder(ctx context.Context, pair string, side domain.OrderSide, orderType domain.OrderType, quoteUSD float64, meta map[string]string) (*ports.OrderResponse, error) {
	op := "PlaceOrder"
	if quoteUSD <= 0 {
		return nil, fmt.Errorf("%s: quote amount must be positive, got %.2f: %w", op, quoteUSD, ports.ErrOrderPlacementFailed)
	}
	if orderType != domain.OrderTypeMarket {
		return nil, fmt.Errorf("%s: unsupported order type %s: %w", op, orderType, ports.ErrOrderPlacementFailed)
	}

	svc := c.spotClient.NewCreateOrderService().
		Symbol(pair).
		Side(binance.SideType(side)).
		Type(binance.OrderTypeMarket).
		QuoteOrderQty(strconv.FormatFloat(quoteUSD, 'f', 2, 64))
	if clientID, ok := meta["clientOrderID"]; ok && clientID != "" {
		svc = svc.NewClientOrderID(clientID)
	}

	res, err := svc.Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}

	executedQty, _ := strconv.ParseFloat(res.ExecutedQuantity, 64)
	cumQuote, _ := strconv.ParseFloat(res.CummulativeQuoteQuantity, 64)
	avgPrice := 0.0
	if executedQty > 0 && cumQuote > 0 {
		avgPrice = cumQuote / executedQty
	}

	c.logger.Info(ctx, "Order placed", map[string]interface{}{
		"pair": pair, "side": side, "orderID": res.OrderID, "quoteUSD": quoteUSD, "avgPrice": avgPrice, "status": res.Status,
	})

	return &ports.OrderResponse{
		OrderID:       res.OrderID,
		ClientOrderID: res.ClientOrderID,
		Pair:          res.Symbol,
		Price:         avgPrice,
		ExecutedQty:   executedQty,
		QuoteQty:      cumQuote,
		Status:        string(res.Status),
		Side:          string(res.Side),
		Timestamp:     time.UnixMilli(res.TransactTime),
	}, nil
}

// GetTotalUSDValue values the whole spot account in USDT: stable assets
// count 1:1, everything else through its USDT ticker. Assets without a
// direct USDT market are skipped with a warning rather than guessed at.
func (c *Client) GetTotalUSDValue(ctx context.Context) (float64, error) {
	op := "GetTotalUSDValue"

	account, err := c.spotClient.NewGetAccountService().Do(ctx)
	if err != nil {
		return 0, c.handleError(ctx, err, op)
	}

	symbolPrices, err := c.spotClient.NewListPricesService().Do(ctx)
	if err != nil {
		return 0, c.handleError(ctx, err, op)
	}
	priceBySymbol := make(map[string]float64, len(symbolPrices))
	for _, sp := range symbolPrices {
		if price, err := strconv.ParseFloat(sp.Price, 64); err == nil {
			priceBySymbol[sp.Symbol] = price
		}
	}

	var total float64
	for _, b := range account.Balances {
		free, _ := strconv.ParseFloat(b.Free, 64)
		locked, _ := strconv.ParseFloat(b.Locked, 64)
		qty := free + locked
		if qty <= 0 {
			continue
		}
		if stableAssets[b.Asset] {
			total += qty
			continue
		}
		price, ok := priceBySymbol[b.Asset+quoteAsset]
		if !ok || price <= 0 {
			c.logger.Warn(ctx, "No USDT market for asset, excluding from account value", map[string]interface{}{"asset": b.Asset, "qty": qty})
			continue
		}
		total += qty * price
	}

	c.logger.Debug(ctx, "Account valued", map[string]interface{}{"totalUSD": total})
	return total, nil
}
