package cli

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/ccdwallet/internal/output"
	walleterr "github.com/mrz1836/ccdwallet/pkg/errors"
)

func fakePriceServer(t *testing.T, status int, body string) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	cfg.Price.URL = srv.URL
}

func TestPrice(t *testing.T) {
	buf := setupTestEnv(t, output.FormatJSON)
	fakePriceServer(t, http.StatusOK, `{"concordium":{"usd":0.5}}`)

	require.NoError(t, runPrice(nil, nil))
	res := decodeJSON[priceResult](t, buf)
	assert.InDelta(t, 0.5, res.USD, 1e-9)
	assert.False(t, res.Stale)
	assert.Empty(t, res.ValueUSD)

	priceAmount = "1250.5"
	require.NoError(t, runPrice(nil, nil))
	res = decodeJSON[priceResult](t, buf)
	assert.Equal(t, "1250.50", res.Amount)
	assert.Equal(t, "625.25", res.ValueUSD)
}

func TestPrice_Text(t *testing.T) {
	buf := setupTestEnv(t, output.FormatText)
	fakePriceServer(t, http.StatusOK, `{"concordium":{"usd":0.0123}}`)
	priceAmount = "100"

	require.NoError(t, runPrice(nil, nil))
	assert.Equal(t, "1 CCD = $0.0123\n100.00 CCD = $1.23\n", buf.String())
}

func TestPrice_Errors(t *testing.T) {
	t.Run("bad amount", func(t *testing.T) {
		setupTestEnv(t, output.FormatJSON)
		priceAmount = "12abc"
		require.ErrorIs(t, runPrice(nil, nil), walleterr.ErrInvalidAmount)
	})

	t.Run("service down", func(t *testing.T) {
		setupTestEnv(t, output.FormatJSON)
		fakePriceServer(t, http.StatusServiceUnavailable, "")
		require.ErrorIs(t, runPrice(nil, nil), walleterr.ErrRemoteUnavailable)
	})

	t.Run("malformed", func(t *testing.T) {
		setupTestEnv(t, output.FormatJSON)
		fakePriceServer(t, http.StatusOK, `{"bitcoin":{"usd":1}}`)
		require.ErrorIs(t, runPrice(nil, nil), walleterr.ErrMalformedResponse)
	})
}
