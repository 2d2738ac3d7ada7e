// Package metrics provides application-level metrics collection using
// atomic counters.
package metrics

import (
	"sync/atomic"
	"time"
)

// Metrics holds application metrics using atomic counters for thread safety.
type Metrics struct {
	// Remote service calls
	remoteCallsTotal   atomic.Int64
	remoteErrorsTotal  atomic.Int64
	remoteLatencyNanos atomic.Int64
	proxyCalls         atomic.Int64
	chainCalls         atomic.Int64

	// Token discovery
	balanceQueries   atomic.Int64
	balanceSkipped   atomic.Int64
	sourceFailures   atomic.Int64
	contractsSkipped atomic.Int64

	// Contract name cache
	cacheHits   atomic.Int64
	cacheMisses atomic.Int64

	// Wallet operations
	walletOpsTotal  atomic.Int64
	walletOpsErrors atomic.Int64
	persistTotal    atomic.Int64
	persistErrors   atomic.Int64
}

// Services recognised by RecordRemoteCall.
const (
	ServiceProxy = "proxy"
	ServiceChain = "chain"
)

// Global is the process-wide metrics instance.
//
//nolint:gochecknoglobals // Intentional global for metrics access
var Global = &Metrics{}

// RecordRemoteCall records a call to an external service.
func (m *Metrics) RecordRemoteCall(service string, duration time.Duration, err error) {
	m.remoteCallsTotal.Add(1)
	m.remoteLatencyNanos.Add(duration.Nanoseconds())
	if err != nil {
		m.remoteErrorsTotal.Add(1)
	}

	switch service {
	case ServiceProxy:
		m.proxyCalls.Add(1)
	case ServiceChain:
		m.chainCalls.Add(1)
	}
}

// RecordBalanceQuery records one per-token balance query. A failed query
// counts as skipped.
func (m *Metrics) RecordBalanceQuery(err error) {
	m.balanceQueries.Add(1)
	if err != nil {
		m.balanceSkipped.Add(1)
	}
}

// RecordSourceFailure records a discovery source that could not be read.
func (m *Metrics) RecordSourceFailure() {
	m.sourceFailures.Add(1)
}

// RecordContractSkipped records a contract dropped because its name could
// not be resolved.
func (m *Metrics) RecordContractSkipped() {
	m.contractsSkipped.Add(1)
}

// RecordCacheHit records a cache hit.
func (m *Metrics) RecordCacheHit() {
	m.cacheHits.Add(1)
}

// RecordCacheMiss records a cache miss.
func (m *Metrics) RecordCacheMiss() {
	m.cacheMisses.Add(1)
}

// RecordWalletOp records a wallet operation.
func (m *Metrics) RecordWalletOp(err error) {
	m.walletOpsTotal.Add(1)
	if err != nil {
		m.walletOpsErrors.Add(1)
	}
}

// RecordPersist records a persist attempt, foreground or automatic.
func (m *Metrics) RecordPersist(err error) {
	m.persistTotal.Add(1)
	if err != nil {
		m.persistErrors.Add(1)
	}
}

// Snapshot is a point-in-time copy of all metrics.
type Snapshot struct {
	RemoteCallsTotal   int64 `json:"remote_calls_total"`
	RemoteErrorsTotal  int64 `json:"remote_errors_total"`
	RemoteLatencyNanos int64 `json:"remote_latency_nanos"`
	ProxyCalls         int64 `json:"proxy_calls"`
	ChainCalls         int64 `json:"chain_calls"`
	BalanceQueries     int64 `json:"balance_queries"`
	BalanceSkipped     int64 `json:"balance_skipped"`
	SourceFailures     int64 `json:"source_failures"`
	ContractsSkipped   int64 `json:"contracts_skipped"`
	CacheHits          int64 `json:"cache_hits"`
	CacheMisses        int64 `json:"cache_misses"`
	WalletOpsTotal     int64 `json:"wallet_ops_total"`
	WalletOpsErrors    int64 `json:"wallet_ops_errors"`
	PersistTotal       int64 `json:"persist_total"`
	PersistErrors      int64 `json:"persist_errors"`
}

// Snapshot returns a point-in-time copy of all metrics.
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		RemoteCallsTotal:   m.remoteCallsTotal.Load(),
		RemoteErrorsTotal:  m.remoteErrorsTotal.Load(),
		RemoteLatencyNanos: m.remoteLatencyNanos.Load(),
		ProxyCalls:         m.proxyCalls.Load(),
		ChainCalls:         m.chainCalls.Load(),
		BalanceQueries:     m.balanceQueries.Load(),
		BalanceSkipped:     m.balanceSkipped.Load(),
		SourceFailures:     m.sourceFailures.Load(),
		ContractsSkipped:   m.contractsSkipped.Load(),
		CacheHits:          m.cacheHits.Load(),
		CacheMisses:        m.cacheMisses.Load(),
		WalletOpsTotal:     m.walletOpsTotal.Load(),
		WalletOpsErrors:    m.walletOpsErrors.Load(),
		PersistTotal:       m.persistTotal.Load(),
		PersistErrors:      m.persistErrors.Load(),
	}
}

// RemoteLatencyAvgMs returns the average remote call latency in
// milliseconds, or 0 before any call.
func (m *Metrics) RemoteLatencyAvgMs() float64 {
	calls := m.remoteCallsTotal.Load()
	if calls == 0 {
		return 0
	}
	return float64(m.remoteLatencyNanos.Load()) / float64(calls) / 1e6
}

// CacheHitRate returns the cache hit rate as a percentage (0-100).
func (m *Metrics) CacheHitRate() float64 {
	hits := m.cacheHits.Load()
	total := hits + m.cacheMisses.Load()
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total) * 100
}

// Reset resets all metrics to zero.
func (m *Metrics) Reset() {
	for _, c := range []*atomic.Int64{
		&m.remoteCallsTotal, &m.remoteErrorsTotal, &m.remoteLatencyNanos,
		&m.proxyCalls, &m.chainCalls,
		&m.balanceQueries, &m.balanceSkipped, &m.sourceFailures, &m.contractsSkipped,
		&m.cacheHits, &m.cacheMisses,
		&m.walletOpsTotal, &m.walletOpsErrors, &m.persistTotal, &m.persistErrors,
	} {
		c.Store(0)
	}
}
