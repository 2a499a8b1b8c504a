// Package exchangerateapi fetches latest rates from exchangerate-api.com style
// endpoints: GET {endpoint}{CODE}[?apikey=KEY] returning {"rates": {...}}.
package exchangerateapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/ahmethakanbesel/exchange-rate-api/internal/provider"
	"github.com/ahmethakanbesel/exchange-rate-api/internal/rate"
)

const (
	defaultEndpoint = "https://api.exchangerate-api.com/v4/latest/"
	defaultTimeout  = 10 * time.Second
	maxBodyBytes    = 1 << 20
	userAgent       = "exchange-rate-api/1.0"
)

// ErrStatusCode is wrapped by errors for non-200 responses.
var ErrStatusCode = errors.New("unexpected http status")

type Client struct {
	client       *http.Client
	endpoint     string
	apiKey       string
	baseCurrency string
	timeout      time.Duration
	retries      uint64
	retryDelay   time.Duration
}

// New creates a Client with the given options applied.
func New(opts ...Option) *Client {
	c := &Client{
		client:       &http.Client{},
		endpoint:     defaultEndpoint,
		baseCurrency: rate.BaseCurrency,
		timeout:      defaultTimeout,
		retryDelay:   time.Second,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Option configures a Client.
type Option func(*Client)

func WithClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// WithEndpoint sets the URL prefix the currency code is appended to.
func WithEndpoint(ep string) Option {
	return func(c *Client) {
		if ep != "" {
			c.endpoint = ep
		}
	}
}

func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

func WithBaseCurrency(code string) Option {
	return func(c *Client) { c.baseCurrency = code }
}

// WithTimeout bounds each HTTP attempt.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRetries sets how many times a transient failure is retried and the
// constant delay between attempts.
func WithRetries(n uint64, delay time.Duration) Option {
	return func(c *Client) {
		c.retries = n
		if delay > 0 {
			c.retryDelay = delay
		}
	}
}

func (c *Client) Name() string { return "exchangerate-api" }

// FetchRate returns rates[base] from the latest-rates document of currency.
// Network errors, timeouts, 5xx and 429 responses are retried; anything
// else fails immediately. Every failure is a *provider.FetchError.
func (c *Client) FetchRate(ctx context.Context, currency string) (float64, error) {
	b, err := retry.NewConstant(c.retryDelay)
	if err != nil {
		return 0, &provider.FetchError{Currency: currency, Err: err}
	}
	b = retry.WithMaxRetries(c.retries, b)

	var value float64
	err = retry.Do(ctx, b, func(ctx context.Context) error {
		v, err := c.fetch(ctx, currency)
		if err != nil {
			return err
		}
		value = v
		return nil
	})
	if err != nil {
		return 0, &provider.FetchError{Currency: currency, Err: err}
	}
	return value, nil
}

type latestResponse struct {
	Base  string             `json:"base"`
	Rates map[string]float64 `json:"rates"`
}

func (c *Client) fetch(ctx context.Context, currency string) (float64, error) {
	u, err := c.requestURL(currency)
	if err != nil {
		return 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	res, err := c.client.Do(req) //nolint:gosec // URL built from internal config
	if err != nil {
		return 0, retry.RetryableError(fmt.Errorf("request: %w", err))
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode != http.StatusOK {
		statusErr := fmt.Errorf("%w: %d for %s", ErrStatusCode, res.StatusCode, currency)
		if res.StatusCode >= http.StatusInternalServerError || res.StatusCode == http.StatusTooManyRequests {
			return 0, retry.RetryableError(statusErr)
		}
		return 0, statusErr
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
	if err != nil {
		return 0, retry.RetryableError(fmt.Errorf("read body: %w", err))
	}

	var lr latestResponse
	if err := json.Unmarshal(body, &lr); err != nil {
		return 0, fmt.Errorf("parse response: %w", err)
	}

	v, ok := lr.Rates[c.baseCurrency]
	if !ok {
		return 0, fmt.Errorf("%w: %s", provider.ErrBaseRateMissing, c.baseCurrency)
	}
	if !(v > 0) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %v", provider.ErrInvalidRate, v)
	}
	return v, nil
}

func (c *Client) requestURL(currency string) (string, error) {
	u, err := url.Parse(c.endpoint + url.PathEscape(currency))
	if err != nil {
		return "", fmt.Errorf("build url: %w", err)
	}
	if c.apiKey != "" {
		q := u.Query()
		q.Set("apikey", c.apiKey)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}
