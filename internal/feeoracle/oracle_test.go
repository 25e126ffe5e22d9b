package feeoracle

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"swapforge/internal/events"
	"swapforge/internal/model"
)

var (
	oracleAddr = common.HexToAddress("0x00000000000000000000000000000000000000f1")
	authority  = common.HexToAddress("0x00000000000000000000000000000000000000f2")
	outsider   = common.HexToAddress("0x00000000000000000000000000000000000000f3")
)

func TestComputeFee(t *testing.T) {
	o := New(authority, 250, nil)

	// rawOut = 1000*200000/101000 = 1980, fee = 1980*250/10000 = 49.
	fee := o.ComputeFee(big.NewInt(1000), big.NewInt(100000), big.NewInt(200000))
	if fee.Cmp(big.NewInt(49)) != 0 {
		t.Fatalf("fee mismatch: %s", fee)
	}
}

func TestComputeFeeZeroDenominator(t *testing.T) {
	o := New(authority, 250, nil)
	fee := o.ComputeFee(big.NewInt(0), big.NewInt(0), big.NewInt(200000))
	if fee.Sign() != 0 {
		t.Fatalf("expected zero fee, got %s", fee)
	}
}

func TestComputeFeeZeroRate(t *testing.T) {
	o := New(authority, 0, nil)
	fee := o.ComputeFee(big.NewInt(1000), big.NewInt(100000), big.NewInt(200000))
	if fee.Sign() != 0 {
		t.Fatalf("expected zero fee at 0 bps, got %s", fee)
	}
}

func TestSetFeeRateAuthority(t *testing.T) {
	o := New(authority, 30, nil)

	if err := o.SetFeeRate(outsider, 100); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if o.FeeRate() != 30 {
		t.Fatalf("rate changed by unauthorized caller")
	}

	if err := o.SetFeeRate(authority, 100); err != nil {
		t.Fatalf("set fee rate: %v", err)
	}
	if o.FeeRate() != 100 {
		t.Fatalf("rate not updated: %d", o.FeeRate())
	}
}

type memSink struct {
	records []model.EventRecord
}

func (s *memSink) PutEventBatch(batch []model.EventRecord) error {
	s.records = append(s.records, batch...)
	return nil
}

func TestHandleSetFeeRateEmitsEvent(t *testing.T) {
	sink := &memSink{}
	recorder := events.NewRecorder(nil, sink)

	o := New(authority, 30, nil)
	h := NewHandle(oracleAddr, authority, o, nil).WithRecorder(recorder)

	if err := h.SetFeeRate(outsider, 100); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if len(sink.records) != 0 {
		t.Fatalf("rejected rate change emitted an event")
	}

	if err := h.SetFeeRate(authority, 100); err != nil {
		t.Fatalf("set fee rate: %v", err)
	}
	if h.FeeRate() != 100 {
		t.Fatalf("rate not applied: %d", h.FeeRate())
	}
	if len(sink.records) != 1 || sink.records[0].Name != model.EventFeeRateUpdated {
		t.Fatalf("fee update event missing: %+v", sink.records)
	}
	payload, ok := sink.records[0].Decoded.(model.FeeRateUpdatedData)
	if !ok {
		t.Fatalf("payload type mismatch: %T", sink.records[0].Decoded)
	}
	if payload.OldBps != 30 || payload.NewBps != 100 {
		t.Fatalf("payload mismatch: %+v", payload)
	}
}

func TestHandleUpgradeKeepsIdentity(t *testing.T) {
	first := New(authority, 30, nil)
	h := NewHandle(oracleAddr, authority, first, nil)

	if h.Version() != 1 {
		t.Fatalf("initial version mismatch: %d", h.Version())
	}
	if h.FeeRate() != 30 {
		t.Fatalf("initial rate mismatch: %d", h.FeeRate())
	}

	second := New(authority, 500, nil)
	if err := h.Upgrade(outsider, second); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized on upgrade, got %v", err)
	}
	if err := h.Upgrade(authority, second); err != nil {
		t.Fatalf("upgrade: %v", err)
	}

	if h.Address() != oracleAddr {
		t.Fatalf("identity changed across upgrade")
	}
	if h.Version() != 2 || h.FeeRate() != 500 {
		t.Fatalf("upgrade not applied: version=%d rate=%d", h.Version(), h.FeeRate())
	}
}
