package events

import (
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"swapforge/internal/model"
)

type captureSink struct {
	records []model.EventRecord
	err     error
}

func (c *captureSink) PutEventBatch(events []model.EventRecord) error {
	if c.err != nil {
		return c.err
	}
	c.records = append(c.records, events...)
	return nil
}

func TestRecorderAssignsSequence(t *testing.T) {
	sink := &captureSink{}
	r := NewRecorder(zap.NewNop(), sink)
	r.WithClock(func() time.Time { return time.Unix(1700000000, 0) })

	emitter := common.HexToAddress("0x1234000000000000000000000000000000000000")
	r.Emit(model.EventPoolCreated, emitter, model.PoolCreatedData{Pool: emitter.Hex(), PoolCount: 1})
	r.Emit(model.EventSwapExecuted, emitter, model.SwapEventData{AmountIn: "1000"})

	if len(sink.records) != 2 {
		t.Fatalf("record count mismatch: %d", len(sink.records))
	}
	if sink.records[0].Seq != 1 || sink.records[1].Seq != 2 {
		t.Fatalf("sequence mismatch: %d %d", sink.records[0].Seq, sink.records[1].Seq)
	}
	if sink.records[0].Timestamp != 1700000000 {
		t.Fatalf("timestamp mismatch: %d", sink.records[0].Timestamp)
	}
	if sink.records[1].Name != model.EventSwapExecuted {
		t.Fatalf("name mismatch: %s", sink.records[1].Name)
	}
}

func TestRecorderSinkFailureDoesNotPanic(t *testing.T) {
	broken := &captureSink{err: errors.New("disk full")}
	healthy := &captureSink{}
	r := NewRecorder(zap.NewNop(), broken, healthy)

	r.Emit(model.EventFeeRateUpdated, common.Address{}, model.FeeRateUpdatedData{NewBps: 50})

	if len(healthy.records) != 1 {
		t.Fatalf("healthy sink missed the event")
	}
}
