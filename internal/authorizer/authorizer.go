// Package authorizer verifies off-line-signed swap requests and forwards
// them into the target pool. A per-principal strictly increasing nonce
// makes every request single-use; nonce advancement and the forwarded
// swap form one atomic unit.
package authorizer

import (
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// SwapExecutor is the pool entry point the authorizer forwards into.
type SwapExecutor interface {
	Swap(caller, onBehalfOf, tokenIn, tokenOut common.Address, amountIn, minAmountOut *big.Int) (*big.Int, error)
}

// PoolResolver locates the swap target for a request.
type PoolResolver interface {
	SwapPool(addr common.Address) (SwapExecutor, bool)
}

// Config wires an Authorizer.
type Config struct {
	Address       common.Address
	DomainName    string
	DomainVersion string
	ChainID       uint64
	Logger        *zap.Logger

	// Checkpoint, when set, persists the nonce table after each
	// successfully executed request.
	Checkpoint *NonceCheckpointStore
}

// Authorizer validates and forwards signed swap requests.
type Authorizer struct {
	addr       common.Address
	domain     common.Hash
	logger     *zap.Logger
	now        func() time.Time
	checkpoint *NonceCheckpointStore

	mu     sync.Mutex
	pools  PoolResolver
	nonces map[common.Address]uint64
}

// New creates an authorizer with its domain separator fixed at
// construction. If a checkpoint store is configured, the persisted nonce
// table is restored.
func New(cfg Config) (*Authorizer, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	a := &Authorizer{
		addr:       cfg.Address,
		domain:     domainSeparator(cfg.DomainName, cfg.DomainVersion, cfg.ChainID, cfg.Address),
		logger:     logger,
		now:        time.Now,
		checkpoint: cfg.Checkpoint,
		nonces:     make(map[common.Address]uint64),
	}

	if a.checkpoint != nil {
		nonces, ok, err := a.checkpoint.Load()
		if err != nil {
			return nil, fmt.Errorf("restore nonce table: %w", err)
		}
		if ok {
			a.nonces = nonces
			logger.Info("nonce table restored", zap.Int("principals", len(nonces)))
		}
	}
	return a, nil
}

// Address returns the authorizer identity embedded in the domain separator.
func (a *Authorizer) Address() common.Address { return a.addr }

// BindPools attaches the pool resolver. Called once during engine wiring,
// after the factory exists.
func (a *Authorizer) BindPools(pools PoolResolver) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pools = pools
}

// WithClock overrides the deadline clock.
func (a *Authorizer) WithClock(now func() time.Time) *Authorizer {
	a.now = now
	return a
}

// GetNonce returns the principal's next expected nonce, starting at 0.
func (a *Authorizer) GetNonce(principal common.Address) uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.nonces[principal]
}

// HashRequest returns the digest a holder signs for the request.
func (a *Authorizer) HashRequest(req SwapRequest) common.Hash {
	return digest(a.domain, req)
}

// Verify reports whether the signature over the request recovers to the
// request sender. Pure check: no state, no freshness.
func (a *Authorizer) Verify(req SwapRequest, signature []byte) bool {
	signer, err := recoverSigner(a.HashRequest(req), signature)
	if err != nil {
		return false
	}
	return signer == req.Sender
}

// ExecuteSwap validates signature, deadline and nonce in that order, then
// advances the nonce and forwards the swap. A failed forward rolls the
// nonce back, so there is no state where the nonce moved without the swap.
func (a *Authorizer) ExecuteSwap(req SwapRequest, signature []byte) (*big.Int, error) {
	if !a.Verify(req, signature) {
		return nil, fmt.Errorf("execute swap: sender %s: %w", req.Sender.Hex(), ErrInvalidSignature)
	}
	if uint64(a.now().Unix()) > req.Deadline {
		return nil, fmt.Errorf("execute swap: deadline %d: %w", req.Deadline, ErrExpiredRequest)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	expected := a.nonces[req.Sender]
	if req.Nonce != expected {
		return nil, fmt.Errorf("execute swap: nonce %d expected %d: %w", req.Nonce, expected, ErrInvalidNonce)
	}
	if a.pools == nil {
		return nil, fmt.Errorf("execute swap: pool %s: %w", req.Pool.Hex(), ErrUnknownPool)
	}
	target, ok := a.pools.SwapPool(req.Pool)
	if !ok {
		return nil, fmt.Errorf("execute swap: pool %s: %w", req.Pool.Hex(), ErrUnknownPool)
	}

	a.nonces[req.Sender] = expected + 1
	out, err := target.Swap(a.addr, req.Sender, req.TokenIn, req.TokenOut, req.AmountIn, req.MinAmountOut)
	if err != nil {
		a.nonces[req.Sender] = expected
		return nil, fmt.Errorf("execute swap: %w", err)
	}

	if a.checkpoint != nil {
		if saveErr := a.checkpoint.Save(a.nonces); saveErr != nil {
			a.logger.Warn("nonce checkpoint save failed", zap.Error(saveErr))
		}
	}

	a.logger.Debug("signed swap executed",
		zap.String("pool", req.Pool.Hex()),
		zap.String("sender", req.Sender.Hex()),
		zap.Uint64("nonce", req.Nonce),
		zap.String("amount_in", req.AmountIn.String()),
		zap.String("amount_out", out.String()),
	)
	return out, nil
}
