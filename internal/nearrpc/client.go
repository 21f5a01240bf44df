package nearrpc

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/valyala/fasthttp"
	"golang.org/x/time/rate"

	"github.com/khorolets/near-rewards/internal/metrics"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Client is a NEAR JSON-RPC client with retry on 429 and 503 and client-side rate limiting.
type Client struct {
	url        string
	httpClient *fasthttp.Client
	timeout    time.Duration
	maxRetries int
	baseDelay  time.Duration
	limiter    *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout used when the context has no deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithRateLimit caps outgoing requests to rps per second with the given burst.
// A non-positive rps disables the limit.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), max(burst, 1))
	}
}

// NewClient creates a new NEAR JSON-RPC client for the given endpoint.
func NewClient(url string, maxRetries int, baseDelay time.Duration, opts ...Option) *Client {
	c := &Client{
		url:        url,
		httpClient: &fasthttp.Client{Name: "near-rewards"},
		timeout:    30 * time.Second,
		maxRetries: max(maxRetries, 0),
		baseDelay:  baseDelay,
		limiter:    rate.NewLimiter(rate.Inf, 0),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      string `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

type response struct {
	Result jsoniter.RawMessage `json:"result"`
	Error  *RPCError           `json:"error"`
}

// call sends one JSON-RPC request and decodes its result into dest.
func (c *Client) call(ctx context.Context, method string, params any, dest any) (err error) {
	started := time.Now()
	defer func() { metrics.ObserveRPC(method, err, started) }()

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for rate limiter: %w", err)
	}

	payload, err := json.Marshal(request{JSONRPC: "2.0", ID: "dontcare", Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("encoding %s request: %w", method, err)
	}

	body, err := c.post(ctx, method, payload)
	if err != nil {
		return err
	}

	var resp response
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("parsing %s response: %w", method, err)
	}
	if resp.Error != nil {
		return fmt.Errorf("%s: %w", method, resp.Error)
	}
	if dest == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Result, dest); err != nil {
		return fmt.Errorf("parsing %s result: %w", method, err)
	}
	return nil
}

// post performs the HTTP exchange with retry on 429 and 503.
func (c *Client) post(ctx context.Context, method string, payload []byte) ([]byte, error) {
	var lastErr error
	for attempt := range c.maxRetries + 1 {
		status, body, err := c.do(ctx, payload)
		if err != nil {
			return nil, fmt.Errorf("executing %s request: %w", method, err)
		}

		switch {
		case status == fasthttp.StatusOK:
			return body, nil
		case status == fasthttp.StatusTooManyRequests || status == fasthttp.StatusServiceUnavailable:
			lastErr = fmt.Errorf("HTTP %d at %s (attempt %d/%d)", status, c.url, attempt+1, c.maxRetries+1)
			if attempt < c.maxRetries {
				delay := c.baseDelay * time.Duration(1<<uint(attempt))
				slog.Debug("nearrpc: backing off", "method", method, "status", status, "delay", delay)
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(delay):
				}
				continue
			}
			return nil, lastErr
		default:
			// Nodes report some JSON-RPC errors with a non-200 status and a regular error body.
			var resp response
			if json.Unmarshal(body, &resp) == nil && resp.Error != nil {
				return nil, fmt.Errorf("%s: %w", method, resp.Error)
			}
			return nil, fmt.Errorf("HTTP %d from %s: %s", status, c.url, string(body))
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("%s: no request attempted", method)
	}
	return nil, lastErr
}

func (c *Client) do(ctx context.Context, payload []byte) (int, []byte, error) {
	if err := ctx.Err(); err != nil {
		return 0, nil, err
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	req.SetRequestURI(c.url)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(payload)

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

	body := append([]byte(nil), resp.Body()...)
	return resp.StatusCode(), body, nil
}
