// Package factory creates liquidity pool instances from one master
// template and maintains the canonical pair index. Cloning gives every
// instance its own mutable state while sharing the template's immutable
// wiring (token resolver, fee oracle handle, authorizer identity).
package factory

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"swapforge/internal/authorizer"
	"swapforge/internal/events"
	"swapforge/internal/feeoracle"
	"swapforge/internal/model"
	"swapforge/internal/pool"
	"swapforge/internal/token"
)

// pairKey is the canonical unordered pair: lower address first.
type pairKey [2]common.Address

func canonicalPair(a, b common.Address) pairKey {
	if bytes.Compare(a.Bytes(), b.Bytes()) < 0 {
		return pairKey{a, b}
	}
	return pairKey{b, a}
}

// Config carries the immutable wiring shared by every created pool.
type Config struct {
	Address    common.Address
	Tokens     token.Resolver
	Fees       *feeoracle.Handle
	Authorizer common.Address
	Logger     *zap.Logger
	Recorder   *events.Recorder
}

// Factory creates and indexes pools. Safe for concurrent use.
type Factory struct {
	addr       common.Address
	template   *pool.Pool
	tokens     token.Resolver
	fees       *feeoracle.Handle
	authorizer common.Address
	logger     *zap.Logger
	recorder   *events.Recorder

	mu    sync.RWMutex
	pairs map[pairKey]common.Address
	byID  map[common.Address]*pool.Pool
	pools []*pool.Pool
	seq   uint64
}

// New builds a factory. The master template is created here and never
// initialized, so any direct call against it fails with the pool's
// uninitialized guard.
func New(cfg Config) *Factory {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	recorder := cfg.Recorder
	if recorder == nil {
		recorder = events.NewRecorder(logger)
	}

	templateAddr := deriveAddress(cfg.Address, []byte("template"))
	return &Factory{
		addr:       cfg.Address,
		template:   pool.NewUninitialized(templateAddr, cfg.Tokens, logger, recorder),
		tokens:     cfg.Tokens,
		fees:       cfg.Fees,
		authorizer: cfg.Authorizer,
		logger:     logger,
		recorder:   recorder,
		pairs:      make(map[pairKey]common.Address),
		byID:       make(map[common.Address]*pool.Pool),
	}
}

// Address returns the factory identity.
func (f *Factory) Address() common.Address { return f.addr }

// Template returns the uninitialized master template.
func (f *Factory) Template() *pool.Pool { return f.template }

// CreatePool validates the pair, clones the template, initializes the
// clone and registers it under both orderings of the pair.
func (f *Factory) CreatePool(
	tokenA common.Address, decimalsA uint8,
	tokenB common.Address, decimalsB uint8,
	admin common.Address,
) (*pool.Pool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.seq++
	var seqBytes [8]byte
	binary.BigEndian.PutUint64(seqBytes[:], f.seq)
	addr := deriveAddress(f.template.Address(), seqBytes[:])

	return f.createLocked(tokenA, decimalsA, tokenB, decimalsB, admin, addr)
}

// CreatePoolDeterministic is CreatePool with a caller-chosen salt, so the
// pool's address can be computed before it exists.
func (f *Factory) CreatePoolDeterministic(
	tokenA common.Address, decimalsA uint8,
	tokenB common.Address, decimalsB uint8,
	admin common.Address,
	salt [32]byte,
) (*pool.Pool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.createLocked(tokenA, decimalsA, tokenB, decimalsB, admin, f.predict(salt))
}

// PredictPoolAddress derives the address CreatePoolDeterministic would
// assign for the salt.
func (f *Factory) PredictPoolAddress(salt [32]byte) common.Address {
	return f.predict(salt)
}

// GetPool returns the pool address for an unordered pair, or the zero
// address when no pool exists.
func (f *Factory) GetPool(tokenX, tokenY common.Address) common.Address {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.pairs[canonicalPair(tokenX, tokenY)]
}

// Pool returns the pool instance registered under addr.
func (f *Factory) Pool(addr common.Address) (*pool.Pool, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	p, ok := f.byID[addr]
	return p, ok
}

// SwapPool implements authorizer.PoolResolver over the created pools.
func (f *Factory) SwapPool(addr common.Address) (authorizer.SwapExecutor, bool) {
	p, ok := f.Pool(addr)
	if !ok {
		return nil, false
	}
	return p, true
}

// PoolCount returns the number of created pools.
func (f *Factory) PoolCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.pools)
}

// Records returns storage snapshots of every created pool, in creation order.
func (f *Factory) Records() []model.PoolRecord {
	f.mu.RLock()
	pools := make([]*pool.Pool, len(f.pools))
	copy(pools, f.pools)
	f.mu.RUnlock()

	records := make([]model.PoolRecord, 0, len(pools))
	for _, p := range pools {
		records = append(records, p.Record())
	}
	return records
}

func (f *Factory) createLocked(
	tokenA common.Address, decimalsA uint8,
	tokenB common.Address, decimalsB uint8,
	admin common.Address,
	addr common.Address,
) (*pool.Pool, error) {
	if tokenA == tokenB {
		return nil, fmt.Errorf("create pool: token %s: %w", tokenA.Hex(), ErrIdenticalPair)
	}
	if tokenA == (common.Address{}) || tokenB == (common.Address{}) {
		return nil, fmt.Errorf("create pool: %w", ErrInvalidToken)
	}

	key := canonicalPair(tokenA, tokenB)
	if existing, ok := f.pairs[key]; ok {
		return nil, fmt.Errorf("create pool: pair %s/%s has pool %s: %w",
			key[0].Hex(), key[1].Hex(), existing.Hex(), ErrPairExists)
	}
	if _, ok := f.byID[addr]; ok {
		return nil, fmt.Errorf("create pool: address %s: %w", addr.Hex(), ErrAddressInUse)
	}

	p := pool.NewUninitialized(addr, f.tokens, f.logger, f.recorder)
	if err := p.Initialize(tokenA, decimalsA, tokenB, decimalsB, f.fees, f.authorizer, admin); err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	f.pairs[key] = addr
	f.byID[addr] = p
	f.pools = append(f.pools, p)

	f.logger.Info("pool created",
		zap.String("pool", addr.Hex()),
		zap.String("token_a", key[0].Hex()),
		zap.String("token_b", key[1].Hex()),
		zap.Int("pool_count", len(f.pools)),
	)
	f.recorder.Emit(model.EventPoolCreated, f.addr, model.PoolCreatedData{
		TokenA:    key[0].Hex(),
		TokenB:    key[1].Hex(),
		Pool:      addr.Hex(),
		PoolCount: len(f.pools),
	})
	return p, nil
}

func (f *Factory) predict(salt [32]byte) common.Address {
	return deriveAddress(f.template.Address(), salt[:])
}

// deriveAddress hashes the template identity with a discriminator and
// takes the trailing 20 bytes, mirroring create2-style derivation.
func deriveAddress(template common.Address, salt []byte) common.Address {
	h := crypto.Keccak256(template.Bytes(), salt)
	return common.BytesToAddress(h[12:])
}
