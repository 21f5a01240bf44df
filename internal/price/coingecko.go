package price

import (
	"context"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"
	"github.com/valyala/fasthttp"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// CoinGeckoSource fetches the USD price of a coin from the CoinGecko simple price API.
type CoinGeckoSource struct {
	baseURL    string
	coinID     string
	httpClient *fasthttp.Client
	timeout    time.Duration
	delay      time.Duration
	maxRetries int
}

// NewCoinGeckoSource creates a CoinGecko source.
func NewCoinGeckoSource(baseURL, coinID string, delay time.Duration, maxRetries int) *CoinGeckoSource {
	return &CoinGeckoSource{
		baseURL:    baseURL,
		coinID:     coinID,
		httpClient: &fasthttp.Client{Name: "near-rewards"},
		timeout:    30 * time.Second,
		delay:      delay,
		maxRetries: maxRetries,
	}
}

// Name implements Source.
func (c *CoinGeckoSource) Name() string { return "coingecko" }

// USDPrice implements Source.
func (c *CoinGeckoSource) USDPrice(ctx context.Context) (decimal.Decimal, error) {
	url := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd", c.baseURL, c.coinID)

	body, err := c.fetchWithRetry(ctx, url)
	if err != nil {
		return decimal.Zero, err
	}

	// {"near":{"usd":5.12}}
	var raw map[string]map[string]decimal.Decimal
	if err := json.Unmarshal(body, &raw); err != nil {
		return decimal.Zero, fmt.Errorf("parsing CoinGecko response: %w", err)
	}
	p, ok := raw[c.coinID]["usd"]
	if !ok {
		return decimal.Zero, fmt.Errorf("CoinGecko response has no usd price for %s", c.coinID)
	}
	return p, nil
}

func (c *CoinGeckoSource) fetchWithRetry(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	for attempt := range c.maxRetries + 1 {
		if attempt > 0 {
			baseDelay := c.delay
			if baseDelay == 0 {
				baseDelay = 10 * time.Second
			}
			delay := baseDelay * time.Duration(1<<uint(attempt-1))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		status, body, err := c.get(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("CoinGecko request failed: %w", err)
		}

		if status == fasthttp.StatusOK {
			return body, nil
		}
		if status == fasthttp.StatusTooManyRequests {
			lastErr = fmt.Errorf("CoinGecko rate limited (attempt %d/%d)", attempt+1, c.maxRetries+1)
			continue
		}
		return nil, fmt.Errorf("CoinGecko HTTP %d: %s", status, string(body))
	}

	return nil, lastErr
}

func (c *CoinGeckoSource) get(ctx context.Context, url string) (int, []byte, error) {
	if err := ctx.Err(); err != nil {
		return 0, nil, err
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")

	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	var err error
	if deadline, ok := ctx.Deadline(); ok {
		err = c.httpClient.DoDeadline(req, resp, deadline)
	} else {
		err = c.httpClient.DoTimeout(req, resp, c.timeout)
	}
	if err != nil {
		return 0, nil, err
	}

	return resp.StatusCode(), append([]byte(nil), resp.Body()...), nil
}
