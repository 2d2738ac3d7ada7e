package errors_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	walleterr "github.com/mrz1836/ccdwallet/pkg/errors"
)

var (
	errInner = errors.New("inner")
	errPlain = errors.New("plain error")
)

func TestExitCodes(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"success", nil, walleterr.ExitSuccess},
		{"general error", walleterr.ErrGeneral, walleterr.ExitGeneral},
		{"invalid seed", walleterr.ErrInvalidSeed, walleterr.ExitInput},
		{"auth error", walleterr.ErrAuthentication, walleterr.ExitAuth},
		{"no wallet data", walleterr.ErrNoWalletData, walleterr.ExitNotFound},
		{"locked", walleterr.ErrWalletLocked, walleterr.ExitLocked},
		{"malformed", walleterr.ErrMalformedResponse, walleterr.ExitGeneral},
		{"remote", walleterr.ErrRemoteUnavailable, walleterr.ExitGeneral},
		{"plain error", errPlain, walleterr.ExitGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, walleterr.ExitCode(tt.err))
		})
	}
}

func TestWrapPreservesIdentity(t *testing.T) {
	t.Parallel()

	sentinels := []*walleterr.WalletError{
		walleterr.ErrInvalidSeed,
		walleterr.ErrAuthentication,
		walleterr.ErrNoWalletData,
		walleterr.ErrWalletLocked,
		walleterr.ErrMalformedResponse,
		walleterr.ErrRemoteUnavailable,
	}

	for _, s := range sentinels {
		wrapped := walleterr.Wrap(s, "context %d", 1)
		require.ErrorIs(t, wrapped, s)
		assert.Equal(t, s.ExitCode, walleterr.ExitCode(wrapped))
		assert.Contains(t, wrapped.Error(), "context 1")
	}
}

func TestWrapNil(t *testing.T) {
	t.Parallel()
	assert.NoError(t, walleterr.Wrap(nil, "nothing"))
	assert.NoError(t, walleterr.WithDetails(nil, nil))
	assert.NoError(t, walleterr.WithSuggestion(nil, "x"))
	assert.NoError(t, walleterr.Remote("proxy", nil))
}

func TestWrapPlainError(t *testing.T) {
	t.Parallel()
	wrapped := walleterr.Wrap(errPlain, "loading")
	assert.Equal(t, "GENERAL_ERROR", walleterr.Code(wrapped))
	assert.ErrorIs(t, wrapped, errPlain)
}

func TestStdlibWrappingKeepsCode(t *testing.T) {
	t.Parallel()
	err := fmt.Errorf("unlock: %w", walleterr.ErrAuthentication)
	assert.ErrorIs(t, err, walleterr.ErrAuthentication)
	assert.Equal(t, "AUTHENTICATION_FAILED", walleterr.Code(err))
}

func TestRemote(t *testing.T) {
	t.Parallel()
	err := walleterr.Remote("wallet-proxy", errInner)
	require.ErrorIs(t, err, walleterr.ErrRemoteUnavailable)
	require.ErrorIs(t, err, errInner)
	assert.Contains(t, err.Error(), "wallet-proxy")
}

func TestWithDetailsAndSuggestion(t *testing.T) {
	t.Parallel()
	details := map[string]string{"key": "value"}

	err := walleterr.WithDetails(walleterr.ErrGeneral, details)
	err = walleterr.WithSuggestion(err, "try again")

	var we *walleterr.WalletError
	require.ErrorAs(t, err, &we)
	assert.Equal(t, details, we.Details)
	assert.Equal(t, "try again", we.Suggestion)
}

func TestWalletError_Error(t *testing.T) {
	t.Parallel()

	t.Run("details sorted", func(t *testing.T) {
		t.Parallel()
		err := &walleterr.WalletError{
			Code:    "TEST",
			Message: "failed",
			Details: map[string]string{"beta": "2", "alpha": "1"},
		}
		assert.Equal(t, "failed (alpha: 1) (beta: 2)", err.Error())
	})

	t.Run("with cause", func(t *testing.T) {
		t.Parallel()
		err := &walleterr.WalletError{Code: "TEST", Message: "outer", Cause: errInner}
		assert.Equal(t, "outer: inner", err.Error())
		assert.Equal(t, errInner, err.Unwrap())
	})
}

func TestWalletError_Is(t *testing.T) {
	t.Parallel()
	a := &walleterr.WalletError{Code: "SAME", Message: "a"}
	b := &walleterr.WalletError{Code: "SAME", Message: "b"}
	c := &walleterr.WalletError{Code: "OTHER", Message: "c"}
	assert.True(t, a.Is(b))
	assert.False(t, a.Is(c))
	assert.False(t, a.Is(errPlain))
}

func TestNew(t *testing.T) {
	t.Parallel()
	err := walleterr.New("CUSTOM", "custom message")
	assert.Equal(t, "custom message", err.Error())
	assert.Equal(t, "CUSTOM", walleterr.Code(err))
}
