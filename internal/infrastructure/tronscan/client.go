package tronscan

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"txledger/internal/application"
	"txledger/internal/domain"
)

const (
	maxBodyBytes     = 8 << 20
	maxErrorMessage  = 100
	defaultTimeout   = 15 * time.Second
	transactionRoute = "/transaction-info"
)

// Client looks transactions up on the Tronscan indexing API. It never retries.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
}

type Config struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("tronscan base url is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid tronscan base url: %w", err)
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
		httpClient: httpClient,
		timeout:    cfg.Timeout,
	}, nil
}

// Fetch returns the raw record or a *application.FetchError. A 200 response
// without any presence field is classified as not found.
func (c *Client) Fetch(ctx context.Context, hash domain.TransactionHash) (application.RawRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := c.baseURL + transactionRoute + "?" + url.Values{"hash": {hash.String()}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, networkError(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classify(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, &application.FetchError{
			Kind:    application.ErrUpstreamAPI,
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("API error: %d", resp.StatusCode),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, classify(err)
	}
	record, err := application.DecodeRawRecord(body)
	if err != nil {
		return nil, networkError(err)
	}
	if !record.Found() {
		return nil, &application.FetchError{
			Kind:    application.ErrNotFound,
			Message: "Transaction not found on TRON blockchain",
		}
	}
	return record, nil
}

// Ping checks that the indexing service answers at all, for connectivity self-tests.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/system/status", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classify(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return &application.FetchError{Kind: application.ErrUpstreamAPI, Status: resp.StatusCode}
	}
	return nil
}

func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return timeoutError()
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return timeoutError()
	}
	return networkError(err)
}

func timeoutError() error {
	return &application.FetchError{
		Kind:    application.ErrUpstreamTimeout,
		Message: "Request timeout - please try again",
	}
}

func networkError(err error) error {
	message := err.Error()
	if len(message) > maxErrorMessage {
		message = message[:maxErrorMessage]
	}
	return &application.FetchError{
		Kind:    application.ErrUpstreamNetwork,
		Message: "Network error: " + message,
	}
}
