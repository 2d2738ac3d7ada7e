package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	walleterr "github.com/mrz1836/ccdwallet/pkg/errors"
)

func TestMetrics_RecordRemoteCall(t *testing.T) {
	t.Parallel()
	m := &Metrics{}

	m.RecordRemoteCall(ServiceProxy, 100*time.Millisecond, nil)
	assert.Equal(t, int64(1), m.Snapshot().RemoteCallsTotal)
	assert.Equal(t, int64(0), m.Snapshot().RemoteErrorsTotal)
	assert.Equal(t, int64(1), m.proxyCalls.Load())

	m.RecordRemoteCall(ServiceChain, 50*time.Millisecond, walleterr.ErrRemoteUnavailable)
	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.RemoteCallsTotal)
	assert.Equal(t, int64(1), snap.RemoteErrorsTotal)
	assert.Equal(t, int64(1), snap.ChainCalls)
	assert.InDelta(t, 75.0, m.RemoteLatencyAvgMs(), 0.001)
}

func TestMetrics_Discovery(t *testing.T) {
	t.Parallel()
	m := &Metrics{}

	m.RecordBalanceQuery(nil)
	m.RecordBalanceQuery(walleterr.ErrMalformedResponse)
	m.RecordSourceFailure()
	m.RecordContractSkipped()

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.BalanceQueries)
	assert.Equal(t, int64(1), snap.BalanceSkipped)
	assert.Equal(t, int64(1), snap.SourceFailures)
	assert.Equal(t, int64(1), snap.ContractsSkipped)
}

func TestMetrics_WalletOpsAndPersist(t *testing.T) {
	t.Parallel()
	m := &Metrics{}

	m.RecordWalletOp(nil)
	m.RecordWalletOp(walleterr.ErrGeneral)
	m.RecordPersist(nil)
	m.RecordPersist(walleterr.ErrWalletLocked)
	m.RecordPersist(nil)

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.WalletOpsTotal)
	assert.Equal(t, int64(1), snap.WalletOpsErrors)
	assert.Equal(t, int64(3), snap.PersistTotal)
	assert.Equal(t, int64(1), snap.PersistErrors)
}

func TestMetrics_CacheHitRate(t *testing.T) {
	t.Parallel()
	m := &Metrics{}

	assert.InDelta(t, 0.0, m.CacheHitRate(), 0.001)

	m.RecordCacheHit()
	m.RecordCacheHit()
	m.RecordCacheHit()
	m.RecordCacheMiss()
	assert.InDelta(t, 75.0, m.CacheHitRate(), 0.001)
}

func TestMetrics_Reset(t *testing.T) {
	t.Parallel()
	m := &Metrics{}

	m.RecordRemoteCall(ServiceProxy, time.Second, walleterr.ErrGeneral)
	m.RecordBalanceQuery(nil)
	m.RecordCacheHit()
	m.RecordPersist(nil)
	m.Reset()

	assert.Equal(t, Snapshot{}, m.Snapshot())
	assert.InDelta(t, 0.0, m.RemoteLatencyAvgMs(), 0.001)
}

func TestMetrics_Concurrent(t *testing.T) {
	t.Parallel()
	m := &Metrics{}

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.RecordBalanceQuery(nil)
			m.RecordCacheMiss()
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(50), m.Snapshot().BalanceQueries)
	assert.Equal(t, int64(50), m.Snapshot().CacheMisses)
}
