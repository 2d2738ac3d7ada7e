package proxy_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/ccdwallet/internal/chain"
	"github.com/mrz1836/ccdwallet/internal/metrics"
	"github.com/mrz1836/ccdwallet/internal/proxy"
	"github.com/mrz1836/ccdwallet/internal/wallet"
	walleterr "github.com/mrz1836/ccdwallet/pkg/errors"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *proxy.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	retry := chain.RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
	c, err := proxy.NewClient(wallet.Testnet, &proxy.ClientOptions{
		BaseURL:      srv.URL,
		HTTPClient:   srv.Client(),
		RateLimiter:  chain.NewRateLimiter(1000, 1000),
		Retry:        &retry,
		PollInterval: time.Millisecond,
	})
	require.NoError(t, err)
	return c
}

func TestBaseURL(t *testing.T) {
	t.Parallel()
	assert.Equal(t, proxy.TestnetURL, proxy.BaseURL(wallet.Testnet))
	assert.Equal(t, proxy.MainnetURL, proxy.BaseURL(wallet.Mainnet))
}

func TestNewClientRejectsBadURL(t *testing.T) {
	t.Parallel()
	_, err := proxy.NewClient(wallet.Testnet, &proxy.ClientOptions{BaseURL: "not a url"})
	require.ErrorIs(t, err, walleterr.ErrConfigInvalid)
}

func TestAccountBalance(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/accBalance/addr1", r.URL.Path)
		_, _ = fmt.Fprint(w, `{
			"finalizedBalance": "1000000",
			"currentBalance": "1000000",
			"tokens": [
				{"tokenId": "01", "contractIndex": "9", "contractSubindex": "0", "balance": "5",
				 "metadata": {"name": "Gold", "symbol": "GLD", "decimals": 2, "display": {"url": "https://x/icon.png"}}}
			]
		}`)
	})

	bal, err := c.AccountBalance(context.Background(), "addr1")
	require.NoError(t, err)
	assert.Equal(t, "1000000", bal.FinalizedBalance)
	require.Len(t, bal.Tokens, 1)
	assert.Equal(t, uint64(9), bal.Tokens[0].Contract().Index)
	assert.Equal(t, "GLD", bal.Tokens[0].Metadata.Symbol)
	assert.Equal(t, []string{"https://x/icon.png"}, bal.Tokens[0].Metadata.IconURLs())
}

func TestTransactionHistoryQuery(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/accTransactions/addr1", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "50", q.Get("limit"))
		assert.Equal(t, "descending", q.Get("order"))
		assert.Equal(t, "77", q.Get("from"))
		assert.True(t, q.Has("includeRawRejectReason"))
		_, _ = fmt.Fprint(w, `{"transactions":[{"id":1,"transactionHash":"aa","type":{"type":"accountTransaction","contents":"transfer"},"result":{"outcome":"success"},"details":{"type":"transfer","transferSource":"addr1","transferDestination":"addr2","transferAmount":"10"}}],"count":1,"limit":50,"order":"descending"}`)
	})

	from := int64(77)
	hist, err := c.TransactionHistory(context.Background(), "addr1", 50, &from)
	require.NoError(t, err)
	require.Len(t, hist.Transactions, 1)
	assert.Equal(t, "addr2", hist.Transactions[0].Details.TransferDestination)
}

func TestPLTTokensNotFoundIsEmpty(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	tokens, err := c.PLTTokens(context.Background())
	require.NoError(t, err)
	assert.Empty(t, tokens)
	assert.NotNil(t, tokens)
}

func TestPLTTokens(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, `[{"tokenId":"","contractIndex":12,"contractSubindex":0,"metadata":{"symbol":"EURe","decimals":6}}]`)
	})

	tokens, err := c.PLTTokens(context.Background())
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, uint64(12), tokens[0].Contract().Index)
	assert.Equal(t, 6, tokens[0].Metadata.Decimals)
}

func TestPLTTokensSkipsUnusableEntries(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, `[
			{"tokenId":"EURR","contractIndex":3,"contractSubindex":0},
			{"tokenId":"0a","contractIndex":12,"contractSubindex":0,"metadata":{"symbol":"EURe","decimals":6}},
			{"tokenId":"0b","contractIndex":13,"contractSubindex":0,"metadata":{"decimals":300}}
		]`)
	})

	tokens, err := c.PLTTokens(context.Background())
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, "0a", tokens[0].TokenID)
	assert.Equal(t, uint64(12), tokens[0].Contract().Index)
}

func TestCIS2TokensShapes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{"array", `[{"tokenId":"01"},{"tokenId":"02","metadata":{"name":"B"}}]`},
		{"object", `{"count":2,"limit":20,"tokens":[{"id":1,"token":"01"},{"id":2,"token":"02","metadata":{"name":"B"}}]}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/v0/CIS2Tokens/5/1", r.URL.Path)
				_, _ = fmt.Fprint(w, tc.body)
			})
			tokens, err := c.CIS2Tokens(context.Background(), 5, 1)
			require.NoError(t, err)
			require.Len(t, tokens, 2)
			assert.Equal(t, "01", tokens[0].TokenID)
			assert.Equal(t, "02", tokens[1].TokenID)
			assert.Equal(t, "B", tokens[1].Metadata.Name)
		})
	}
}

func TestServerErrorsRetried(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.AccountBalance(context.Background(), "addr1")
	require.ErrorIs(t, err, walleterr.ErrRemoteUnavailable)
	assert.Equal(t, int32(3), calls.Load())
}

func TestServerRecoversAfterRetry(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = fmt.Fprint(w, `{"finalizedBalance":"1","currentBalance":"1"}`)
	})

	bal, err := c.AccountBalance(context.Background(), "addr1")
	require.NoError(t, err)
	assert.Equal(t, "1", bal.CurrentBalance)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClientErrorsNotRetried(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = fmt.Fprint(w, "bad address")
	})

	_, err := c.AccountBalance(context.Background(), "nope")
	require.ErrorIs(t, err, walleterr.ErrRemoteUnavailable)
	assert.Contains(t, err.Error(), "bad address")
	assert.Equal(t, int32(1), calls.Load())
}

func TestMalformedResponses(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{"not json", `<html>`},
		{"bad amount", `{"finalizedBalance":"-5","currentBalance":"1"}`},
		{"bad token id", `{"finalizedBalance":"1","currentBalance":"1","tokens":[{"tokenId":"zz","contractIndex":"1","contractSubindex":"0","balance":"1"}]}`},
		{"bad index", `{"finalizedBalance":"1","currentBalance":"1","tokens":[{"tokenId":"","contractIndex":"x","contractSubindex":"0","balance":"1"}]}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				_, _ = fmt.Fprint(w, tc.body)
			})
			_, err := c.AccountBalance(context.Background(), "addr1")
			require.ErrorIs(t, err, walleterr.ErrMalformedResponse)
		})
	}
}

func TestSubmissionStatusValidation(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, `{"status":"exploded"}`)
	})
	_, err := c.SubmissionStatus(context.Background(), "abc")
	require.ErrorIs(t, err, walleterr.ErrMalformedResponse)
}

func TestTransactionCost(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "simpleTransfer", r.URL.Query().Get("type"))
		_, _ = fmt.Fprint(w, `{"cost":"12345","energy":501}`)
	})
	cost, err := c.TransactionCost(context.Background(), "simpleTransfer", nil)
	require.NoError(t, err)
	assert.Equal(t, "12345", cost.Cost)
	assert.Equal(t, uint64(501), cost.Energy)
}

func TestWaitForFinalization(t *testing.T) {
	t.Parallel()

	t.Run("finalizes", func(t *testing.T) {
		t.Parallel()
		var calls atomic.Int32
		c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			if calls.Add(1) < 3 {
				_, _ = fmt.Fprint(w, `{"status":"received"}`)
				return
			}
			_, _ = fmt.Fprint(w, `{"status":"finalized","outcome":"success","blockHashes":["bb"]}`)
		})
		st, err := c.WaitForFinalization(context.Background(), "aa")
		require.NoError(t, err)
		assert.Equal(t, proxy.StatusFinalized, st.Status)
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("rejected", func(t *testing.T) {
		t.Parallel()
		c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = fmt.Fprint(w, `{"status":"finalized","outcome":"reject"}`)
		})
		_, err := c.WaitForFinalization(context.Background(), "aa")
		require.ErrorIs(t, err, walleterr.ErrTxRejected)
	})

	t.Run("times out", func(t *testing.T) {
		t.Parallel()
		c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = fmt.Fprint(w, `{"status":"committed"}`)
		})
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
		defer cancel()
		st, err := c.WaitForFinalization(ctx, "aa")
		require.Error(t, err)
		if st != nil {
			assert.Equal(t, proxy.StatusCommitted, st.Status)
		}
	})
}

func TestClientRecordsMetrics(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	t.Cleanup(srv.Close)

	m := &metrics.Metrics{}
	c, err := proxy.NewClient(wallet.Testnet, &proxy.ClientOptions{
		BaseURL:     srv.URL,
		RateLimiter: chain.NewRateLimiter(1000, 1000),
		Metrics:     m,
	})
	require.NoError(t, err)

	_, err = c.AccountBalance(context.Background(), "addr1")
	require.Error(t, err)

	snap := m.Snapshot()
	assert.Equal(t, int64(1), snap.ProxyCalls)
	assert.Equal(t, int64(1), snap.RemoteErrorsTotal)
}
