// Package proxy is a client for the Concordium wallet-proxy REST service:
// balance snapshots, transaction history, token registries and
// submission status.
package proxy

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mrz1836/ccdwallet/internal/chain"
	"github.com/mrz1836/ccdwallet/internal/metrics"
	"github.com/mrz1836/ccdwallet/internal/wallet"
	walleterr "github.com/mrz1836/ccdwallet/pkg/errors"
)

const (
	// TestnetURL is the public testnet proxy.
	TestnetURL = "https://wallet-proxy.testnet.concordium.com"

	// MainnetURL is the public mainnet proxy.
	MainnetURL = "https://wallet-proxy.mainnet.concordium.software"

	// DefaultHistoryLimit is the page size for history requests.
	DefaultHistoryLimit = 20

	// DefaultPollInterval is how often WaitForFinalization polls.
	DefaultPollInterval = 3 * time.Second

	serviceName     = "wallet-proxy"
	httpTimeout     = 30 * time.Second
	maxResponseBody = 4 << 20
)

// Logger is the subset of the application logger the client uses.
type Logger interface {
	Debug(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}

type validator interface {
	Validate() error
}

// BaseURL returns the public proxy for network.
func BaseURL(network wallet.Network) string {
	if network == wallet.Mainnet {
		return MainnetURL
	}
	return TestnetURL
}

// Client talks to one wallet-proxy instance.
type Client struct {
	baseURL      string
	host         string
	httpClient   *http.Client
	rateLimiter  *chain.RateLimiter
	retry        chain.RetryConfig
	pollInterval time.Duration
	logger       Logger
	metrics      *metrics.Metrics
}

// ClientOptions configures the client. Zero values select defaults.
type ClientOptions struct {
	BaseURL      string
	HTTPClient   *http.Client
	RateLimiter  *chain.RateLimiter
	Retry        *chain.RetryConfig
	PollInterval time.Duration
	Logger       Logger
	Metrics      *metrics.Metrics
}

// NewClient creates a client for network.
func NewClient(network wallet.Network, opts *ClientOptions) (*Client, error) {
	c := &Client{
		baseURL: BaseURL(network),
		httpClient: &http.Client{
			Timeout: httpTimeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
			},
		},
		rateLimiter:  chain.DefaultRateLimiter(),
		retry:        chain.DefaultRetryConfig(),
		pollInterval: DefaultPollInterval,
		logger:       nopLogger{},
		metrics:      metrics.Global,
	}

	if opts != nil {
		if opts.BaseURL != "" {
			c.baseURL = strings.TrimRight(opts.BaseURL, "/")
		}
		if opts.HTTPClient != nil {
			c.httpClient = opts.HTTPClient
		}
		if opts.RateLimiter != nil {
			c.rateLimiter = opts.RateLimiter
		}
		if opts.Retry != nil {
			c.retry = *opts.Retry
		}
		if opts.PollInterval > 0 {
			c.pollInterval = opts.PollInterval
		}
		if opts.Logger != nil {
			c.logger = opts.Logger
		}
		if opts.Metrics != nil {
			c.metrics = opts.Metrics
		}
	}

	u, err := url.Parse(c.baseURL)
	if err != nil || u.Host == "" {
		return nil, walleterr.WithDetails(walleterr.ErrConfigInvalid, map[string]string{"proxy_url": c.baseURL})
	}
	c.host = u.Host
	return c, nil
}

// AccountBalance fetches the balance snapshot, including token entries.
func (c *Client) AccountBalance(ctx context.Context, address string) (*AccountBalance, error) {
	var out AccountBalance
	if err := c.get(ctx, "/v2/accBalance/"+url.PathEscape(address), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TransactionHistory fetches up to limit entries, newest first. A non-nil
// from continues after that entry id.
func (c *Client) TransactionHistory(ctx context.Context, address string, limit int, from *int64) (*TransactionHistory, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("order", "descending")
	q.Set("includeRawRejectReason", "")
	if from != nil {
		q.Set("from", strconv.FormatInt(*from, 10))
	}

	var out TransactionHistory
	if err := c.get(ctx, "/v3/accTransactions/"+url.PathEscape(address), q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PLTTokens fetches the curated protocol-level token registry. A proxy
// without the endpoint yields an empty list.
func (c *Client) PLTTokens(ctx context.Context) (PLTTokenList, error) {
	var out PLTTokenList
	err := c.get(ctx, "/v0/plt/tokens", nil, &out)
	if errors.Is(err, walleterr.ErrNotFound) {
		return PLTTokenList{}, nil
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CIS2Tokens lists the tokens the proxy has indexed for a contract.
func (c *Client) CIS2Tokens(ctx context.Context, index, subindex uint64) (CIS2TokenList, error) {
	var out CIS2TokenList
	path := fmt.Sprintf("/v0/CIS2Tokens/%d/%d", index, subindex)
	if err := c.get(ctx, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SubmissionStatus reports a submitted transaction's progress.
func (c *Client) SubmissionStatus(ctx context.Context, hash string) (*SubmissionStatus, error) {
	var out SubmissionStatus
	if err := c.get(ctx, "/v0/submissionStatus/"+url.PathEscape(hash), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TransactionCost estimates the cost of a transaction kind.
func (c *Client) TransactionCost(ctx context.Context, kind string, params map[string]string) (*TransactionCost, error) {
	q := url.Values{}
	q.Set("type", kind)
	for k, v := range params {
		q.Set(k, v)
	}
	var out TransactionCost
	if err := c.get(ctx, "/v0/transactionCost", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// WaitForFinalization polls until hash is finalized or ctx ends.
func (c *Client) WaitForFinalization(ctx context.Context, hash string) (*SubmissionStatus, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		status, err := c.SubmissionStatus(ctx, hash)
		if err != nil {
			return nil, err
		}
		if status.Status == StatusFinalized {
			if status.Outcome == OutcomeReject {
				return status, walleterr.WithDetails(walleterr.ErrTxRejected, map[string]string{"hash": hash})
			}
			return status, nil
		}
		c.logger.Debug("proxy: %s is %s, waiting", hash, status.Status)

		select {
		case <-ctx.Done():
			return status, fmt.Errorf("waiting for %s: %w", hash, ctx.Err())
		case <-ticker.C:
		}
	}
}

// get performs a GET with rate limiting and retries, then decodes and
// validates the body into out.
func (c *Client) get(ctx context.Context, path string, query url.Values, out validator) error {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	start := time.Now()
	body, err := chain.RetryWithConfig(ctx, c.retry, func(ctx context.Context) ([]byte, error) {
		return c.fetch(ctx, reqURL)
	})
	c.metrics.RecordRemoteCall(metrics.ServiceProxy, time.Since(start), err)
	if err != nil {
		if !errors.Is(err, walleterr.ErrRemoteUnavailable) {
			err = walleterr.Remote(serviceName, err)
		}
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return walleterr.WithDetails(walleterr.ErrMalformedResponse, map[string]string{
			"endpoint": path,
			"reason":   err.Error(),
		})
	}
	if err := out.Validate(); err != nil {
		return walleterr.WithDetails(walleterr.ErrMalformedResponse, map[string]string{
			"endpoint": path,
			"reason":   err.Error(),
		})
	}
	return nil
}

func (c *Client) fetch(ctx context.Context, reqURL string) ([]byte, error) {
	if err := c.rateLimiter.Wait(ctx, c.host); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("proxy: GET %s", reqURL)
	resp, err := c.httpClient.Do(req) //nolint:gosec // URL built from configured base
	if err != nil {
		if ctx.Err() != nil {
			return nil, walleterr.Remote(serviceName, ctx.Err())
		}
		return nil, walleterr.Remote(serviceName, chain.WrapRetryable(err))
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, walleterr.Remote(serviceName, chain.WrapRetryable(fmt.Errorf("reading response: %w", err)))
	}

	details := map[string]string{
		"status": strconv.Itoa(resp.StatusCode),
		"url":    reqURL,
	}
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return body, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, walleterr.Remote(serviceName, walleterr.WithDetails(walleterr.ErrNotFound, details))
	case resp.StatusCode == http.StatusTooManyRequests:
		if wait := chain.ParseRetryAfter(resp.Header.Get("Retry-After")); wait > 0 {
			details["retry_after"] = wait.String()
		}
		return nil, walleterr.Remote(serviceName, walleterr.WithDetails(chain.ErrRateLimited, details))
	case resp.StatusCode >= 500:
		details["body"] = truncateBody(string(body), 256)
		return nil, walleterr.Remote(serviceName, chain.WrapRetryable(walleterr.WithDetails(walleterr.ErrGeneral, details)))
	default:
		details["body"] = truncateBody(string(body), 256)
		return nil, walleterr.Remote(serviceName, walleterr.WithDetails(walleterr.ErrGeneral, details))
	}
}

func truncateBody(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// CCDBalanceReader reads an account's current CCD balance from the
// proxy snapshot. It satisfies chain.BalanceReader.
type CCDBalanceReader struct {
	Client *Client
}

// AccountBalance returns the snapshot's current balance in microCCD.
func (r CCDBalanceReader) AccountBalance(ctx context.Context, address string) (uint64, error) {
	bal, err := r.Client.AccountBalance(ctx, address)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(bal.CurrentBalance, 10, 64)
	if err != nil {
		return 0, walleterr.WithDetails(walleterr.ErrMalformedResponse, map[string]string{"currentBalance": bal.CurrentBalance})
	}
	return v, nil
}
