package feeoracle

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"swapforge/internal/events"
	"swapforge/internal/model"
)

// RateSetter is implemented by fee computers whose rate can be replaced
// without an upgrade.
type RateSetter interface {
	SetFeeRate(caller common.Address, bps uint64) error
}

// Handle is the stable identity pools hold. The implementation behind it
// may be swapped by the authority without touching any pool; the version
// counter advances once per upgrade.
type Handle struct {
	addr      common.Address
	authority common.Address
	logger    *zap.Logger
	recorder  *events.Recorder

	mu      sync.RWMutex
	impl    Computer
	version uint64
}

// NewHandle wraps an initial implementation under a stable address.
func NewHandle(addr, authority common.Address, impl Computer, logger *zap.Logger) *Handle {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handle{addr: addr, authority: authority, impl: impl, version: 1, logger: logger}
}

// Address returns the handle's stable identity.
func (h *Handle) Address() common.Address { return h.addr }

// WithRecorder attaches an event recorder. Rate changes and upgrades are
// emitted under the handle's identity.
func (h *Handle) WithRecorder(recorder *events.Recorder) *Handle {
	h.recorder = recorder
	return h
}

// Version returns the current implementation version, starting at 1.
func (h *Handle) Version() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.version
}

// Upgrade swaps the implementation in place. Authority only.
func (h *Handle) Upgrade(caller common.Address, impl Computer) error {
	if caller != h.authority {
		return fmt.Errorf("upgrade oracle: caller %s: %w", caller.Hex(), ErrUnauthorized)
	}

	h.mu.Lock()
	oldBps := h.impl.FeeRate()
	h.impl = impl
	h.version++
	version := h.version
	h.mu.Unlock()

	h.logger.Info("fee oracle upgraded", zap.String("oracle", h.addr.Hex()), zap.Uint64("version", version))
	if h.recorder != nil {
		h.recorder.Emit(model.EventFeeRateUpdated, h.addr, model.FeeRateUpdatedData{
			OldBps:  oldBps,
			NewBps:  impl.FeeRate(),
			Version: version,
		})
	}
	return nil
}

// SetFeeRate replaces the current implementation's rate when it supports
// in-place changes. Authorization is enforced by the implementation.
func (h *Handle) SetFeeRate(caller common.Address, bps uint64) error {
	h.mu.RLock()
	impl := h.impl
	version := h.version
	h.mu.RUnlock()

	setter, ok := impl.(RateSetter)
	if !ok {
		return fmt.Errorf("set fee rate on oracle %s: implementation is fixed-rate", h.addr.Hex())
	}

	oldBps := impl.FeeRate()
	if err := setter.SetFeeRate(caller, bps); err != nil {
		return err
	}
	if h.recorder != nil {
		h.recorder.Emit(model.EventFeeRateUpdated, h.addr, model.FeeRateUpdatedData{
			OldBps:  oldBps,
			NewBps:  bps,
			Version: version,
		})
	}
	return nil
}

// FeeRate reports the current implementation's rate.
func (h *Handle) FeeRate() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.impl.FeeRate()
}

// ComputeFee delegates to the current implementation.
func (h *Handle) ComputeFee(amountIn, reserveIn, reserveOut *big.Int) *big.Int {
	h.mu.RLock()
	impl := h.impl
	h.mu.RUnlock()
	return impl.ComputeFee(amountIn, reserveIn, reserveOut)
}
