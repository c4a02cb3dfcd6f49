package feargreed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"dualAgentBot/internal/ports"
)

const defaultTimeout = 10 * time.Second

// rawDataPoint models a single data point from the alternative.me payload.
type rawDataPoint struct {
	Value               string `json:"value"`
	ValueClassification string `json:"value_classification"`
	Timestamp           string `json:"timestamp"`
}

// rawResponse is the full API payload.
type rawResponse struct {
	Name     string         `json:"name"`
	Data     []rawDataPoint `json:"data"`
	Metadata struct {
		Error *string `json:"error,omitempty"`
	} `json:"metadata"`
}

// Client implements the ports.SentimentSource interface against an
// alternative.me style Fear & Greed index API.
type Client struct {
	httpClient *http.Client
	logger     ports.Logger
	apiURL     string
}

// Config holds configuration for the Fear & Greed client.
type Config struct {
	BaseURL    string
	Logger     ports.Logger
	HTTPClient *http.Client
}

// New creates a new Fear & Greed client adapter.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Fear & Greed client")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required for Fear & Greed client")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		httpClient: httpClient,
		logger:     cfg.Logger,
		apiURL:     cfg.BaseURL + "/fng/?limit=1&format=json",
	}, nil
}

// FetchRawIndex fetches the current Fear & Greed index (0-100).
func (c *Client) FetchRawIndex(ctx context.Context) (int, error) {
	op := "FetchRawIndex"
	c.logger.Debug(ctx, "Fetching Fear & Greed index", map[string]interface{}{"url": c.apiURL})

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL, nil)
	if err != nil {
		return 0, fmt.Errorf("%s: failed to create request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s: %w: %v", op, ports.ErrSentimentUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%s: %w: unexpected status %d", op, ports.ErrSentimentUnavailable, resp.StatusCode)
	}

	var raw rawResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return 0, fmt.Errorf("%s: %w: failed to decode response: %v", op, ports.ErrSentimentUnavailable, err)
	}
	if raw.Metadata.Error != nil {
		return 0, fmt.Errorf("%s: %w: API error: %s", op, ports.ErrSentimentUnavailable, *raw.Metadata.Error)
	}
	if len(raw.Data) == 0 {
		return 0, fmt.Errorf("%s: %w: no data returned", op, ports.ErrSentimentUnavailable)
	}

	value, err := strconv.Atoi(raw.Data[0].Value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w: invalid value '%s'", op, ports.ErrSentimentUnavailable, raw.Data[0].Value)
	}
	if value < 0 || value > 100 {
		return 0, fmt.Errorf("%s: %w: value %d out of range", op, ports.ErrSentimentUnavailable, value)
	}

	c.logger.Debug(ctx, "Fear & Greed index fetched", map[string]interface{}{"value": value, "classification": raw.Data[0].ValueClassification})
	return value, nil
}
