// Package price fetches the CCD/USD rate from CoinGecko.
package price

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/mrz1836/ccdwallet/internal/metrics"
	walleterr "github.com/mrz1836/ccdwallet/pkg/errors"
)

const (
	// DefaultURL is CoinGecko's simple price endpoint for CCD in USD.
	DefaultURL = "https://api.coingecko.com/api/v3/simple/price?ids=concordium&vs_currencies=usd"

	// DefaultTTL is how long a fetched price is served without refetching.
	DefaultTTL = 5 * time.Minute

	serviceName     = "coingecko"
	httpTimeout     = 10 * time.Second
	maxResponseBody = 64 << 10
	microPerCCD     = 1_000_000
)

// Quote is a CCD price in USD.
type Quote struct {
	USD       float64   `json:"usd"`
	FetchedAt time.Time `json:"fetched_at"`
	Stale     bool      `json:"stale,omitempty"`
}

// Options configures a Service. Zero values select defaults.
type Options struct {
	URL        string
	TTL        time.Duration
	HTTPClient *http.Client
	Metrics    *metrics.Metrics
	Now        func() time.Time
}

// Service caches the last fetched price. When a refetch fails the last
// good price is returned, marked stale.
type Service struct {
	url     string
	ttl     time.Duration
	http    *http.Client
	metrics *metrics.Metrics
	now     func() time.Time

	group singleflight.Group
	mu    sync.RWMutex
	last  *Quote
}

// NewService creates a price service.
func NewService(opts *Options) *Service {
	s := &Service{
		url:     DefaultURL,
		ttl:     DefaultTTL,
		http:    &http.Client{Timeout: httpTimeout},
		metrics: metrics.Global,
		now:     time.Now,
	}
	if opts != nil {
		if opts.URL != "" {
			s.url = opts.URL
		}
		if opts.TTL > 0 {
			s.ttl = opts.TTL
		}
		if opts.HTTPClient != nil {
			s.http = opts.HTTPClient
		}
		if opts.Metrics != nil {
			s.metrics = opts.Metrics
		}
		if opts.Now != nil {
			s.now = opts.Now
		}
	}
	return s
}

// USD returns the CCD price, fetching at most once per TTL. Concurrent
// callers share one request.
func (s *Service) USD(ctx context.Context) (Quote, error) {
	if q, ok := s.fresh(); ok {
		s.metrics.RecordCacheHit()
		return q, nil
	}
	s.metrics.RecordCacheMiss()

	v, err, _ := s.group.Do("usd", func() (any, error) {
		if q, ok := s.fresh(); ok {
			return q, nil
		}
		usd, err := s.fetch(ctx)
		if err != nil {
			return Quote{}, err
		}
		q := Quote{USD: usd, FetchedAt: s.now()}
		s.mu.Lock()
		s.last = &q
		s.mu.Unlock()
		return q, nil
	})
	if err != nil {
		s.mu.RLock()
		defer s.mu.RUnlock()
		if s.last != nil {
			q := *s.last
			q.Stale = true
			return q, nil
		}
		return Quote{}, err
	}
	q, _ := v.(Quote)
	return q, nil
}

func (s *Service) fresh() (Quote, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil || s.now().Sub(s.last.FetchedAt) >= s.ttl {
		return Quote{}, false
	}
	return *s.last, true
}

type simplePrice struct {
	Concordium *struct {
		USD *json.Number `json:"usd"`
	} `json:"concordium"`
}

func (s *Service) fetch(ctx context.Context) (float64, error) {
	start := time.Now()
	usd, err := s.doFetch(ctx)
	s.metrics.RecordRemoteCall(serviceName, time.Since(start), err)
	return usd, err
}

func (s *Service) doFetch(ctx context.Context) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.http.Do(req) //nolint:gosec // URL from configuration
	if err != nil {
		return 0, walleterr.Remote(serviceName, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, walleterr.Remote(serviceName, walleterr.WithDetails(walleterr.ErrGeneral, map[string]string{
			"status": strconv.Itoa(resp.StatusCode),
		}))
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return 0, walleterr.Remote(serviceName, err)
	}

	var out simplePrice
	if err := json.Unmarshal(body, &out); err != nil {
		return 0, walleterr.WithDetails(walleterr.ErrMalformedResponse, map[string]string{"reason": err.Error()})
	}
	if out.Concordium == nil || out.Concordium.USD == nil {
		return 0, walleterr.WithDetails(walleterr.ErrMalformedResponse, map[string]string{"reason": "no concordium.usd field"})
	}
	usd, err := out.Concordium.USD.Float64()
	if err != nil || usd < 0 {
		return 0, walleterr.WithDetails(walleterr.ErrMalformedResponse, map[string]string{"usd": out.Concordium.USD.String()})
	}
	return usd, nil
}

// ValueUSD converts a microCCD amount at the quoted price, rounded to
// cents.
func ValueUSD(microCCD uint64, q Quote) string {
	v := new(big.Float).SetUint64(microCCD)
	v.Quo(v, big.NewFloat(microPerCCD))
	v.Mul(v, big.NewFloat(q.USD))
	return v.Text('f', 2)
}
