// Package pool implements a two-token constant-product liquidity pool.
// Instances are created uninitialized by the factory and initialized
// exactly once; every mutating operation is atomic under a per-instance
// lock, so distinct pools never contend with each other.
package pool

import (
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"swapforge/internal/events"
	"swapforge/internal/feeoracle"
	"swapforge/internal/model"
	"swapforge/internal/roles"
	"swapforge/internal/token"
)

// priceScale is the fixed-point scale used by GetPrice (1e18).
var priceScale = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// Pool holds the reserves for exactly one token pair.
type Pool struct {
	addr     common.Address
	tokens   token.Resolver
	logger   *zap.Logger
	recorder *events.Recorder

	mu          sync.Mutex
	initialized bool
	tokenA      common.Address
	decimalsA   uint8
	tokenB      common.Address
	decimalsB   uint8
	reserveA    *big.Int
	reserveB    *big.Int
	fees        *feeoracle.Handle
	authorizer  common.Address
	roles       *roles.Table
	createdAt   time.Time
}

// NewUninitialized creates a pool instance with no pair identity. Every
// state operation fails with ErrNotInitialized until Initialize runs. The
// factory template stays in this state forever.
func NewUninitialized(addr common.Address, tokens token.Resolver, logger *zap.Logger, recorder *events.Recorder) *Pool {
	if logger == nil {
		logger = zap.NewNop()
	}
	if recorder == nil {
		recorder = events.NewRecorder(logger)
	}
	return &Pool{
		addr:     addr,
		tokens:   tokens,
		logger:   logger,
		recorder: recorder,
		reserveA: new(big.Int),
		reserveB: new(big.Int),
	}
}

// Address returns the pool's identity.
func (p *Pool) Address() common.Address { return p.addr }

// Initialize sets the immutable pair fields, grants the admin capability
// to admin and the swap-forwarding capability to the authorizer. Callable
// exactly once.
func (p *Pool) Initialize(
	tokenA common.Address, decimalsA uint8,
	tokenB common.Address, decimalsB uint8,
	fees *feeoracle.Handle,
	authorizer common.Address,
	admin common.Address,
) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized {
		return fmt.Errorf("initialize pool %s: %w", p.addr.Hex(), ErrAlreadyInitialized)
	}

	p.tokenA = tokenA
	p.decimalsA = decimalsA
	p.tokenB = tokenB
	p.decimalsB = decimalsB
	p.fees = fees
	p.authorizer = authorizer
	p.roles = roles.NewTable(admin)
	p.createdAt = time.Now().UTC()

	if err := p.roles.Grant(admin, admin, roles.CapAdmin); err != nil {
		return err
	}
	if err := p.roles.Grant(admin, authorizer, roles.CapSwap); err != nil {
		return err
	}

	p.initialized = true
	return nil
}

// Pair returns the pool's token pair and decimal precisions.
func (p *Pool) Pair() (tokenA common.Address, decimalsA uint8, tokenB common.Address, decimalsB uint8) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tokenA, p.decimalsA, p.tokenB, p.decimalsB
}

// GetReserves returns copies of the current reserves.
func (p *Pool) GetReserves() (reserveA, reserveB *big.Int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return new(big.Int).Set(p.reserveA), new(big.Int).Set(p.reserveB)
}

// GetPrice returns reserveOut*1e18/reserveIn, or zero when either reserve
// is empty. Zero reserves are an explicit zero-price policy, not a fault.
func (p *Pool) GetPrice(tokenIn, tokenOut common.Address) (*big.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.initialized {
		return nil, fmt.Errorf("price on pool %s: %w", p.addr.Hex(), ErrNotInitialized)
	}
	reserveIn, reserveOut, err := p.orient(tokenIn, tokenOut)
	if err != nil {
		return nil, err
	}
	if reserveIn.Sign() == 0 || reserveOut.Sign() == 0 {
		return new(big.Int), nil
	}

	price := new(big.Int).Mul(reserveOut, priceScale)
	return price.Div(price, reserveIn), nil
}

// AddLiquidity deposits amount of token from the caller into the matching
// reserve. Admin capability required.
func (p *Pool) AddLiquidity(caller, tok common.Address, amount *big.Int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.initialized {
		return fmt.Errorf("add liquidity to pool %s: %w", p.addr.Hex(), ErrNotInitialized)
	}
	if !p.roles.Has(caller, roles.CapAdmin) {
		return fmt.Errorf("add liquidity: caller %s: %w", caller.Hex(), ErrUnauthorized)
	}
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("add liquidity: %w", ErrInvalidAmount)
	}
	reserve, err := p.reserveFor(tok)
	if err != nil {
		return err
	}
	ledger, ok := p.tokens.Token(tok)
	if !ok {
		return fmt.Errorf("add liquidity: token %s: %w", tok.Hex(), ErrInvalidToken)
	}
	if ledger.BalanceOf(caller).Cmp(amount) < 0 {
		return fmt.Errorf("add liquidity: caller %s amount %s: %w", caller.Hex(), amount.String(), ErrInsufficientBalance)
	}

	// Transfer in before mutating the reserve.
	if err := ledger.Transfer(caller, p.addr, amount); err != nil {
		return fmt.Errorf("add liquidity: %w: %v", ErrTransferFailed, err)
	}
	reserve.Add(reserve, amount)

	p.logger.Debug("liquidity added",
		zap.String("pool", p.addr.Hex()),
		zap.String("token", tok.Hex()),
		zap.String("amount", amount.String()),
	)
	p.recorder.Emit(model.EventLiquidityAdded, p.addr, model.LiquidityChangedData{
		Pool:     p.addr.Hex(),
		Token:    tok.Hex(),
		Amount:   amount.String(),
		ReserveA: p.reserveA.String(),
		ReserveB: p.reserveB.String(),
	})
	return nil
}

// RemoveLiquidity withdraws amount of token from the matching reserve to
// the caller. Admin capability required.
func (p *Pool) RemoveLiquidity(caller, tok common.Address, amount *big.Int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.initialized {
		return fmt.Errorf("remove liquidity from pool %s: %w", p.addr.Hex(), ErrNotInitialized)
	}
	if !p.roles.Has(caller, roles.CapAdmin) {
		return fmt.Errorf("remove liquidity: caller %s: %w", caller.Hex(), ErrUnauthorized)
	}
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("remove liquidity: %w", ErrInvalidAmount)
	}
	reserve, err := p.reserveFor(tok)
	if err != nil {
		return err
	}
	if reserve.Cmp(amount) < 0 {
		return fmt.Errorf("remove liquidity: amount %s reserve %s: %w", amount.String(), reserve.String(), ErrInsufficientReserve)
	}
	ledger, ok := p.tokens.Token(tok)
	if !ok {
		return fmt.Errorf("remove liquidity: token %s: %w", tok.Hex(), ErrInvalidToken)
	}

	if err := ledger.Transfer(p.addr, caller, amount); err != nil {
		return fmt.Errorf("remove liquidity: %w: %v", ErrTransferFailed, err)
	}
	reserve.Sub(reserve, amount)

	p.logger.Debug("liquidity removed",
		zap.String("pool", p.addr.Hex()),
		zap.String("token", tok.Hex()),
		zap.String("amount", amount.String()),
	)
	p.recorder.Emit(model.EventLiquidityRemoved, p.addr, model.LiquidityChangedData{
		Pool:     p.addr.Hex(),
		Token:    tok.Hex(),
		Amount:   amount.String(),
		ReserveA: p.reserveA.String(),
		ReserveB: p.reserveB.String(),
	})
	return nil
}

// Swap executes a constant-product swap on behalf of a holder. The caller
// must hold the admin or swap-forwarding capability; the holder must have
// approved the pool for at least amountIn of tokenIn.
//
// The output reserve is decremented by the net output, not the gross
// constant-product output, so accumulated fees grow the pool's custody
// relative to its tracked reserves.
func (p *Pool) Swap(caller, onBehalfOf, tokenIn, tokenOut common.Address, amountIn, minAmountOut *big.Int) (*big.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.initialized {
		return nil, fmt.Errorf("swap on pool %s: %w", p.addr.Hex(), ErrNotInitialized)
	}
	if !p.roles.Has(caller, roles.CapAdmin) && !p.roles.Has(caller, roles.CapSwap) {
		return nil, fmt.Errorf("swap: caller %s: %w", caller.Hex(), ErrUnauthorized)
	}
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, fmt.Errorf("swap: %w", ErrInvalidAmount)
	}
	if minAmountOut == nil {
		minAmountOut = new(big.Int)
	}

	reserveIn, reserveOut, err := p.orient(tokenIn, tokenOut)
	if err != nil {
		return nil, err
	}

	ledgerIn, ok := p.tokens.Token(tokenIn)
	if !ok {
		return nil, fmt.Errorf("swap: token %s: %w", tokenIn.Hex(), ErrInvalidToken)
	}
	ledgerOut, ok := p.tokens.Token(tokenOut)
	if !ok {
		return nil, fmt.Errorf("swap: token %s: %w", tokenOut.Hex(), ErrInvalidToken)
	}

	if ledgerIn.Allowance(onBehalfOf, p.addr).Cmp(amountIn) < 0 {
		return nil, fmt.Errorf("swap: holder %s amount %s: %w", onBehalfOf.Hex(), amountIn.String(), ErrInsufficientAllowance)
	}
	if reserveIn.Sign() == 0 || reserveOut.Sign() == 0 || amountIn.Cmp(reserveIn) >= 0 {
		return nil, fmt.Errorf("swap: amount %s reserves (%s, %s): %w",
			amountIn.String(), reserveIn.String(), reserveOut.String(), ErrInsufficientLiquidity)
	}

	// rawOut = amountIn * reserveOut / (reserveIn + amountIn), floor.
	denom := new(big.Int).Add(reserveIn, amountIn)
	rawOut := new(big.Int).Mul(amountIn, reserveOut)
	rawOut.Div(rawOut, denom)

	fee := p.fees.ComputeFee(amountIn, reserveIn, reserveOut)

	finalOut := new(big.Int)
	if rawOut.Cmp(fee) > 0 {
		finalOut.Sub(rawOut, fee)
	}
	if finalOut.Cmp(minAmountOut) < 0 {
		return nil, fmt.Errorf("swap: output %s minimum %s: %w", finalOut.String(), minAmountOut.String(), ErrInsufficientOutput)
	}

	// Both transfers complete before any reserve mutation.
	if err := ledgerIn.TransferFrom(p.addr, onBehalfOf, p.addr, amountIn); err != nil {
		return nil, fmt.Errorf("swap: transfer in: %w: %v", ErrTransferFailed, err)
	}
	if err := ledgerOut.Transfer(p.addr, onBehalfOf, finalOut); err != nil {
		// Return the input so the failed swap leaves no trace.
		if refundErr := ledgerIn.Transfer(p.addr, onBehalfOf, amountIn); refundErr != nil {
			p.logger.Error("swap refund failed",
				zap.String("pool", p.addr.Hex()),
				zap.String("holder", onBehalfOf.Hex()),
				zap.Error(refundErr),
			)
		}
		return nil, fmt.Errorf("swap: transfer out: %w: %v", ErrTransferFailed, err)
	}

	reserveIn.Add(reserveIn, amountIn)
	reserveOut.Sub(reserveOut, finalOut)

	p.logger.Debug("swap executed",
		zap.String("pool", p.addr.Hex()),
		zap.String("holder", onBehalfOf.Hex()),
		zap.String("amount_in", amountIn.String()),
		zap.String("amount_out", finalOut.String()),
		zap.String("fee", fee.String()),
	)
	p.recorder.Emit(model.EventSwapExecuted, p.addr, model.SwapEventData{
		Pool:       p.addr.Hex(),
		Holder:     onBehalfOf.Hex(),
		TokenIn:    tokenIn.Hex(),
		TokenOut:   tokenOut.Hex(),
		AmountIn:   amountIn.String(),
		AmountOut:  finalOut.String(),
		Fee:        fee.String(),
		ReserveIn:  reserveIn.String(),
		ReserveOut: reserveOut.String(),
	})
	return finalOut, nil
}

// GrantSwapRole grants the swap-forwarding capability. Admin only.
func (p *Pool) GrantSwapRole(caller, principal common.Address) error {
	if err := p.changeSwapRole(caller, principal, true); err != nil {
		return err
	}
	p.recorder.Emit(model.EventRoleGranted, p.addr, model.RoleChangedData{
		Capability: string(roles.CapSwap),
		Principal:  principal.Hex(),
	})
	return nil
}

// RevokeSwapRole revokes the swap-forwarding capability. Admin only.
func (p *Pool) RevokeSwapRole(caller, principal common.Address) error {
	if err := p.changeSwapRole(caller, principal, false); err != nil {
		return err
	}
	p.recorder.Emit(model.EventRoleRevoked, p.addr, model.RoleChangedData{
		Capability: string(roles.CapSwap),
		Principal:  principal.Hex(),
	})
	return nil
}

// Record returns a storage snapshot of the pool.
func (p *Pool) Record() model.PoolRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	return model.PoolRecord{
		Address:   p.addr.Hex(),
		TokenA:    p.tokenA.Hex(),
		DecimalsA: p.decimalsA,
		TokenB:    p.tokenB.Hex(),
		DecimalsB: p.decimalsB,
		ReserveA:  p.reserveA.String(),
		ReserveB:  p.reserveB.String(),
		CreatedAt: p.createdAt.Format(time.RFC3339Nano),
	}
}

func (p *Pool) changeSwapRole(caller, principal common.Address, grant bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.initialized {
		return fmt.Errorf("swap role on pool %s: %w", p.addr.Hex(), ErrNotInitialized)
	}
	if !p.roles.Has(caller, roles.CapAdmin) {
		return fmt.Errorf("swap role: caller %s: %w", caller.Hex(), ErrUnauthorized)
	}
	if grant {
		return p.roles.Grant(p.roles.Authority(), principal, roles.CapSwap)
	}
	return p.roles.Revoke(p.roles.Authority(), principal, roles.CapSwap)
}

// orient maps (tokenIn, tokenOut) onto the pair's reserves. The returned
// values alias the pool's reserve counters; callers hold p.mu.
func (p *Pool) orient(tokenIn, tokenOut common.Address) (reserveIn, reserveOut *big.Int, err error) {
	switch {
	case tokenIn == p.tokenA && tokenOut == p.tokenB:
		return p.reserveA, p.reserveB, nil
	case tokenIn == p.tokenB && tokenOut == p.tokenA:
		return p.reserveB, p.reserveA, nil
	default:
		return nil, nil, fmt.Errorf("pool %s: tokens %s/%s: %w",
			p.addr.Hex(), tokenIn.Hex(), tokenOut.Hex(), ErrInvalidPair)
	}
}

func (p *Pool) reserveFor(tok common.Address) (*big.Int, error) {
	switch tok {
	case p.tokenA:
		return p.reserveA, nil
	case p.tokenB:
		return p.reserveB, nil
	default:
		return nil, fmt.Errorf("pool %s: token %s: %w", p.addr.Hex(), tok.Hex(), ErrInvalidToken)
	}
}
