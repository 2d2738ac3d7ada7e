package token

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mrz1836/ccdwallet/internal/chain"
	"github.com/mrz1836/ccdwallet/internal/cis2"
	"github.com/mrz1836/ccdwallet/internal/metrics"
	"github.com/mrz1836/ccdwallet/internal/proxy"
	"github.com/mrz1836/ccdwallet/internal/wallet"
	"github.com/mrz1836/ccdwallet/internal/wire"
	walleterr "github.com/mrz1836/ccdwallet/pkg/errors"
)

// Discovery defaults.
const (
	DefaultConcurrency  = 4
	DefaultQueryTimeout = 10 * time.Second
)

// Logger is the subset of the application logger discovery uses.
type Logger interface {
	Debug(format string, args ...any)
	Error(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Error(string, ...any) {}

// ProxySource is the wallet-proxy subset discovery reads.
type ProxySource interface {
	AccountBalance(ctx context.Context, address string) (*proxy.AccountBalance, error)
	PLTTokens(ctx context.Context) (proxy.PLTTokenList, error)
	CIS2Tokens(ctx context.Context, index, subindex uint64) (proxy.CIS2TokenList, error)
}

// ChainSource is the node subset discovery reads.
type ChainSource interface {
	chain.ContractResolver
	chain.ContractInvoker
}

// Options tunes a Discoverer. Zero values select defaults.
type Options struct {
	Names        *NameCache
	Logger       Logger
	Metrics      *metrics.Metrics
	Concurrency  int
	QueryTimeout time.Duration
}

// Discoverer reconciles token holdings from the proxy snapshot, the PLT
// registry and known history, then confirms each with a live balance query.
type Discoverer struct {
	proxy        ProxySource
	chain        ChainSource
	names        *NameCache
	logger       Logger
	metrics      *metrics.Metrics
	concurrency  int
	queryTimeout time.Duration
}

// NewDiscoverer creates a Discoverer. p may be nil, in which case only
// history contributes candidates and no enrichment happens.
func NewDiscoverer(p ProxySource, c ChainSource, opts *Options) *Discoverer {
	d := &Discoverer{
		proxy:        p,
		chain:        c,
		names:        DefaultNameCache(),
		logger:       nopLogger{},
		metrics:      metrics.Global,
		concurrency:  DefaultConcurrency,
		queryTimeout: DefaultQueryTimeout,
	}
	if opts != nil {
		if opts.Names != nil {
			d.names = opts.Names
		}
		if opts.Logger != nil {
			d.logger = opts.Logger
		}
		if opts.Metrics != nil {
			d.metrics = opts.Metrics
		}
		if opts.Concurrency > 0 {
			d.concurrency = opts.Concurrency
		}
		if opts.QueryTimeout > 0 {
			d.queryTimeout = opts.QueryTimeout
		}
	}
	return d
}

// Discover returns address's holdings with a positive balance, sorted by
// contract and token id. Source, name and balance failures are logged and
// skipped; only a malformed address or network fails the call.
func (d *Discoverer) Discover(ctx context.Context, address string, network wallet.Network, known []proxy.Transaction) ([]Holding, error) {
	owner, err := wire.ParseAccountAddress(address)
	if err != nil {
		return nil, err
	}
	if !network.Valid() {
		return nil, walleterr.WithDetails(walleterr.ErrInvalidInput, map[string]string{"network": string(network)})
	}

	snapshot, registry := d.fetchSources(ctx, address)

	set := newCandidateSet()
	if snapshot != nil {
		set.addSnapshot(snapshot.Tokens)
	}
	set.addRegistry(registry)
	set.addHistory(known)

	ready := d.prepare(ctx, network, set.sorted())
	holdings := d.queryBalances(ctx, owner, ready)
	SortHoldings(holdings)

	d.logger.Debug("discovery: %s has %d holdings from %d contracts", wallet.ShortAddress(address), len(holdings), len(ready))
	return holdings, nil
}

// fetchSources reads the snapshot and registry concurrently. A failed
// source yields nil.
func (d *Discoverer) fetchSources(ctx context.Context, address string) (*proxy.AccountBalance, proxy.PLTTokenList) {
	if d.proxy == nil {
		return nil, nil
	}

	var (
		g        errgroup.Group
		snapshot *proxy.AccountBalance
		registry proxy.PLTTokenList
	)
	g.Go(func() error {
		qctx, cancel := context.WithTimeout(ctx, d.queryTimeout)
		defer cancel()
		bal, err := d.proxy.AccountBalance(qctx, address)
		if err != nil {
			d.metrics.RecordSourceFailure()
			d.logger.Error("discovery: balance snapshot unavailable: %v", err)
			return nil
		}
		snapshot = bal
		return nil
	})
	g.Go(func() error {
		qctx, cancel := context.WithTimeout(ctx, d.queryTimeout)
		defer cancel()
		list, err := d.proxy.PLTTokens(qctx)
		if err != nil {
			d.metrics.RecordSourceFailure()
			d.logger.Error("discovery: token registry unavailable: %v", err)
			return nil
		}
		registry = list
		return nil
	})
	_ = g.Wait()
	return snapshot, registry
}

// prepare resolves each candidate's contract name and enriches its token
// ids. Candidates whose name cannot be resolved are dropped. Each worker
// touches only its own candidate.
func (d *Discoverer) prepare(ctx context.Context, network wallet.Network, cands []*candidate) []*candidate {
	ok := make([]bool, len(cands))

	var g errgroup.Group
	g.SetLimit(d.concurrency)
	for i, c := range cands {
		g.Go(func() error {
			name, err := d.resolveName(ctx, network, c.contract)
			if err != nil {
				d.metrics.RecordContractSkipped()
				d.logger.Error("discovery: skipping contract %s: %v", c.contract, err)
				return nil
			}
			c.name = name
			d.enrich(ctx, c)
			if len(c.tokenIDs) == 0 {
				c.addToken("", nil)
			}
			ok[i] = true
			return nil
		})
	}
	_ = g.Wait()

	out := make([]*candidate, 0, len(cands))
	for i, c := range cands {
		if ok[i] {
			out = append(out, c)
		}
	}
	return out
}

func (d *Discoverer) resolveName(ctx context.Context, network wallet.Network, contract wire.ContractAddress) (string, error) {
	name, hit, err := d.names.Resolve(ctx, network, contract, func(ctx context.Context) (string, error) {
		qctx, cancel := context.WithTimeout(ctx, d.queryTimeout)
		defer cancel()

		start := time.Now()
		raw, err := d.chain.ResolveContractName(qctx, contract)
		d.metrics.RecordRemoteCall(metrics.ServiceChain, time.Since(start), err)
		if err != nil {
			return "", walleterr.Remote("chain", err)
		}
		name := chain.ContractNameFromInit(raw)
		if name == "" {
			return "", walleterr.WithDetails(walleterr.ErrMalformedResponse, map[string]string{"contract": contract.String()})
		}
		return name, nil
	})
	if hit {
		d.metrics.RecordCacheHit()
	} else {
		d.metrics.RecordCacheMiss()
	}
	return name, err
}

// enrich adds token ids and metadata the proxy has indexed for c.
func (d *Discoverer) enrich(ctx context.Context, c *candidate) {
	if d.proxy == nil {
		return
	}
	qctx, cancel := context.WithTimeout(ctx, d.queryTimeout)
	defer cancel()

	list, err := d.proxy.CIS2Tokens(qctx, c.contract.Index, c.contract.Subindex)
	if err != nil {
		d.logger.Debug("discovery: no token list for %s: %v", c.contract, err)
		return
	}
	for _, t := range list {
		c.addToken(t.TokenID, metadataFrom(t.Metadata))
	}
}

type balanceQuery struct {
	c       *candidate
	tokenID string
}

// queryBalances runs one balanceOf per pair. Workers write only their own
// slot; results are merged after Wait.
func (d *Discoverer) queryBalances(ctx context.Context, owner wire.AccountAddress, cands []*candidate) []Holding {
	var queries []balanceQuery
	for _, c := range cands {
		for _, id := range c.tokenIDs {
			queries = append(queries, balanceQuery{c: c, tokenID: id})
		}
	}

	results := make([]*Holding, len(queries))
	var g errgroup.Group
	g.SetLimit(d.concurrency)
	for i, q := range queries {
		g.Go(func() error {
			h, err := d.queryBalance(ctx, owner, q)
			d.metrics.RecordBalanceQuery(err)
			if err != nil {
				d.logger.Error("discovery: balance of %s token %q skipped: %v", q.c.contract, q.tokenID, err)
				return nil
			}
			results[i] = h
			return nil
		})
	}
	_ = g.Wait()

	holdings := make([]Holding, 0, len(results))
	for _, h := range results {
		if h != nil {
			holdings = append(holdings, *h)
		}
	}
	return holdings
}

// queryBalance returns nil for a zero balance.
func (d *Discoverer) queryBalance(ctx context.Context, owner wire.AccountAddress, q balanceQuery) (*Holding, error) {
	param, err := cis2.EncodeBalanceQueryParam(q.tokenID, owner)
	if err != nil {
		return nil, err
	}

	qctx, cancel := context.WithTimeout(ctx, d.queryTimeout)
	defer cancel()

	start := time.Now()
	raw, err := d.chain.InvokeContract(qctx, chain.InvokeRequest{
		Contract:  q.c.contract,
		Method:    chain.ReceiveName(q.c.name, cis2.EntrypointBalance),
		Parameter: param,
		Invoker:   owner.String(),
	})
	d.metrics.RecordRemoteCall(metrics.ServiceChain, time.Since(start), err)
	if err != nil {
		return nil, walleterr.Remote("chain", err)
	}

	amount, err := cis2.DecodeBalanceResponse(raw)
	if err != nil {
		return nil, err
	}
	if amount.Sign() <= 0 {
		return nil, nil //nolint:nilnil // zero balance is not a holding
	}

	return &Holding{
		Identity: Identity{
			ContractIndex:    q.c.contract.Index,
			ContractSubindex: q.c.contract.Subindex,
			TokenID:          q.tokenID,
		},
		Balance:      amount.String(),
		Metadata:     q.c.metadata[q.tokenID],
		ContractName: q.c.name,
		PLT:          q.c.plt,
	}, nil
}

// candidate is one contract and the token ids known for it.
type candidate struct {
	contract wire.ContractAddress
	tokenIDs []string
	metadata map[string]*Metadata
	plt      bool
	name     string
}

// addToken unions id into the candidate. Metadata is kept from the first
// source that supplies it.
func (c *candidate) addToken(id string, md *Metadata) {
	id = NormalizeTokenID(id)
	if _, ok := c.metadata[id]; !ok {
		c.tokenIDs = append(c.tokenIDs, id)
		c.metadata[id] = nil
	}
	if md != nil && c.metadata[id] == nil {
		c.metadata[id] = md
	}
}

type candidateSet struct {
	byKey map[string]*candidate
}

func newCandidateSet() *candidateSet {
	return &candidateSet{byKey: make(map[string]*candidate)}
}

func (s *candidateSet) contract(addr wire.ContractAddress) *candidate {
	key := addr.Key()
	c, ok := s.byKey[key]
	if !ok {
		c = &candidate{contract: addr, metadata: make(map[string]*Metadata)}
		s.byKey[key] = c
	}
	return c
}

func (s *candidateSet) addSnapshot(tokens []proxy.TokenBalance) {
	for _, t := range tokens {
		s.contract(t.Contract()).addToken(t.TokenID, metadataFrom(t.Metadata))
	}
}

func (s *candidateSet) addRegistry(tokens proxy.PLTTokenList) {
	for _, t := range tokens {
		c := s.contract(t.Contract())
		c.plt = true
		c.addToken(t.TokenID, metadataFrom(t.Metadata))
	}
}

// addHistory adds contracts and token ids seen in known transactions.
// A contract-updated event with no decodable transfer still registers its
// contract so the default token id is queried.
func (s *candidateSet) addHistory(txs []proxy.Transaction) {
	for i := range txs {
		tx := &txs[i]
		if tt := tx.Details.TokenTransfer; tt != nil {
			s.contract(tt.Contract()).addToken(tt.TokenID, nil)
		}
		for _, ev := range tx.ContractEvents() {
			c := s.contract(ev.Contract())
			for _, hexEvent := range ev.Events {
				raw, err := wire.HexToBytes(hexEvent)
				if err != nil {
					continue
				}
				te, err := cis2.DecodeTransferEvent(raw)
				if err != nil || te == nil {
					continue
				}
				c.addToken(te.TokenID, nil)
			}
		}
	}
}

func (s *candidateSet) sorted() []*candidate {
	out := make([]*candidate, 0, len(s.byKey))
	for _, c := range s.byKey {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].contract.Less(out[j].contract) })
	return out
}
