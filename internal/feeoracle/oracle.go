// Package feeoracle computes swap fees from a single basis-point rate.
// Pools reference the oracle through a Handle whose identity stays stable
// while the implementation behind it is replaced.
package feeoracle

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// bpsDenominator is 100% expressed in basis points.
var bpsDenominator = big.NewInt(10000)

// ErrUnauthorized is returned when a caller other than the oracle authority
// attempts a rate change or an upgrade.
var ErrUnauthorized = errors.New("caller is not the oracle authority")

// Computer derives a fee amount from swap parameters.
type Computer interface {
	ComputeFee(amountIn, reserveIn, reserveOut *big.Int) *big.Int
	FeeRate() uint64
}

// Oracle is the reference fee computer: one mutable rate in basis points.
type Oracle struct {
	authority common.Address
	logger    *zap.Logger

	mu      sync.RWMutex
	rateBps uint64
}

// New creates an oracle with the given authority and initial rate.
func New(authority common.Address, rateBps uint64, logger *zap.Logger) *Oracle {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Oracle{authority: authority, rateBps: rateBps, logger: logger}
}

// FeeRate returns the current rate in basis points.
func (o *Oracle) FeeRate() uint64 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.rateBps
}

// SetFeeRate replaces the rate unconditionally. Authority only.
func (o *Oracle) SetFeeRate(caller common.Address, bps uint64) error {
	if caller != o.authority {
		return fmt.Errorf("set fee rate: caller %s: %w", caller.Hex(), ErrUnauthorized)
	}

	o.mu.Lock()
	old := o.rateBps
	o.rateBps = bps
	o.mu.Unlock()

	o.logger.Info("fee rate updated", zap.Uint64("old_bps", old), zap.Uint64("new_bps", bps))
	return nil
}

// ComputeFee returns the fee for a swap of amountIn against the given
// reserves: the constant-product output of amountIn, scaled by the rate
// over 10000, floor division throughout. Zero combined reserves yield a
// zero fee rather than a fault.
func (o *Oracle) ComputeFee(amountIn, reserveIn, reserveOut *big.Int) *big.Int {
	denom := new(big.Int).Add(reserveIn, amountIn)
	if denom.Sign() == 0 {
		return new(big.Int)
	}

	o.mu.RLock()
	rate := o.rateBps
	o.mu.RUnlock()

	out := new(big.Int).Mul(amountIn, reserveOut)
	out.Div(out, denom)
	out.Mul(out, new(big.Int).SetUint64(rate))
	return out.Div(out, bpsDenominator)
}
