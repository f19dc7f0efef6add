package coingecko

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrHTTPResponse    = errors.New("error in HTTP response")
	ErrInvalidResponse = errors.New("invalid CoinGecko response")
	ErrMissingCoin     = errors.New("missing coin in CoinGecko response")
	ErrMissingUSDPrice = errors.New("missing USD price in CoinGecko response")
)

const (
	defaultCoinID  = "tron"
	defaultTimeout = 5 * time.Second
	maxBodyBytes   = 1 << 20
)

// Client reads the current USD spot price of one coin from the simple/price endpoint.
type Client struct {
	baseURL    string
	coinID     string
	httpClient *http.Client
	timeout    time.Duration
}

type Config struct {
	BaseURL    string
	CoinID     string
	Timeout    time.Duration
	HTTPClient *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("coingecko base url is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid coingecko base url: %w", err)
	}
	if cfg.CoinID == "" {
		cfg.CoinID = defaultCoinID
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		coinID:     cfg.CoinID,
		httpClient: httpClient,
		timeout:    cfg.Timeout,
	}, nil
}

func (c *Client) CoinID() string {
	return c.coinID
}

// UnitPriceUSD returns the current price. Callers decide what to do on error.
func (c *Client) UnitPriceUSD(ctx context.Context) (decimal.Decimal, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	query := url.Values{"ids": {c.coinID}, "vs_currencies": {"usd"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/simple/price?"+query.Encode(), nil)
	if err != nil {
		return decimal.Zero, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("error fetching price from CoinGecko: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return decimal.Zero, fmt.Errorf("%w: status %d", ErrHTTPResponse, resp.StatusCode)
	}
	return parsePrice(io.LimitReader(resp.Body, maxBodyBytes), c.coinID)
}

// parsePrice extracts {"<coin>":{"usd":<n>}} without going through float64.
func parsePrice(r io.Reader, coinID string) (decimal.Decimal, error) {
	var payload map[string]map[string]json.Number
	decoder := json.NewDecoder(r)
	decoder.UseNumber()
	if err := decoder.Decode(&payload); err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	quotes, ok := payload[coinID]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrMissingCoin, coinID)
	}
	raw, ok := quotes["usd"]
	if !ok {
		return decimal.Zero, ErrMissingUSDPrice
	}
	price, err := decimal.NewFromString(raw.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrMissingUSDPrice, err)
	}
	if !price.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: USD price must be positive", ErrMissingUSDPrice)
	}
	return price, nil
}
