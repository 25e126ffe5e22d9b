package aggregate

import (
	"context"
	"encoding/json"
	"os"
	"testing"

	"swapforge/internal/model"
)

type memSink struct {
	rows []model.PoolWindowMetrics
}

func (s *memSink) UpsertWindowMetrics(_ context.Context, metrics []model.PoolWindowMetrics) error {
	s.rows = append(s.rows, metrics...)
	return nil
}

func writeEvents(t *testing.T, path string, events []model.EventRecord) {
	t.Helper()
	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("create events file: %v", err)
	}
	defer file.Close()
	enc := json.NewEncoder(file)
	for _, event := range events {
		if err := enc.Encode(event); err != nil {
			t.Fatalf("encode event: %v", err)
		}
	}
}

func swapEvent(seq, ts uint64, pool string, swap model.SwapEventData) model.EventRecord {
	swap.Pool = pool
	return model.EventRecord{
		Seq:       seq,
		Name:      model.EventSwapExecuted,
		Emitter:   pool,
		Timestamp: ts,
		Decoded:   swap,
	}
}

func TestAggregatorWindowsAndVolumes(t *testing.T) {
	const pool = "0x00000000000000000000000000000000000000aa"
	const tokenA = "0x00000000000000000000000000000000000000a1"
	const tokenB = "0x00000000000000000000000000000000000000b2"

	path := t.TempDir() + "/events.jsonl"
	writeEvents(t, path, []model.EventRecord{
		{Seq: 1, Name: model.EventPoolCreated, Emitter: pool, Timestamp: 90},
		swapEvent(2, 100, pool, model.SwapEventData{
			TokenIn: tokenA, TokenOut: tokenB,
			AmountIn: "1000", AmountOut: "1931", Fee: "49",
			ReserveIn: "101000", ReserveOut: "198069",
		}),
		swapEvent(3, 150, pool, model.SwapEventData{
			TokenIn: tokenB, TokenOut: tokenA,
			AmountIn: "500", AmountOut: "240", Fee: "6",
			ReserveIn: "198569", ReserveOut: "100760",
		}),
		// Next window.
		swapEvent(4, 400, pool, model.SwapEventData{
			TokenIn: tokenA, TokenOut: tokenB,
			AmountIn: "100", AmountOut: "190", Fee: "5",
			ReserveIn: "100860", ReserveOut: "198379",
		}),
	})

	sink := &memSink{}
	agg := NewAggregator(Config{WindowSeconds: 300}, sink, nil)
	if err := agg.Run(context.Background(), path); err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(sink.rows) != 2 {
		t.Fatalf("window count mismatch: %d", len(sink.rows))
	}

	first := sink.rows[0]
	if first.SwapCount != 2 {
		t.Fatalf("first window swap count: %d", first.SwapCount)
	}
	if first.Token0 != tokenA || first.Token1 != tokenB {
		t.Fatalf("token ordering: %s / %s", first.Token0, first.Token1)
	}
	// tokenA moved 1000 in and 240 out; tokenB moved 1931 out and 500 in.
	if first.Volume0 != "1240" || first.Volume1 != "2431" {
		t.Fatalf("volumes: %s / %s", first.Volume0, first.Volume1)
	}
	// Fees accrue in the output token of each swap.
	if first.Fee0 != "6" || first.Fee1 != "49" {
		t.Fatalf("fees: %s / %s", first.Fee0, first.Fee1)
	}
	if first.TVL0 == nil || *first.TVL0 != "100760" {
		t.Fatalf("tvl0: %v", first.TVL0)
	}
	if first.TVL1 == nil || *first.TVL1 != "198569" {
		t.Fatalf("tvl1: %v", first.TVL1)
	}
	if first.WindowStart.Unix() != 0 || first.WindowEnd.Unix() != 300 {
		t.Fatalf("window bounds: %v .. %v", first.WindowStart, first.WindowEnd)
	}
	if first.APR == nil {
		t.Fatalf("expected APR for a window with fees and tvl")
	}

	second := sink.rows[1]
	if second.SwapCount != 1 || second.Volume0 != "100" || second.Volume1 != "190" {
		t.Fatalf("second window: %+v", second)
	}
}

func TestAggregatorResumesFromState(t *testing.T) {
	const pool = "0x00000000000000000000000000000000000000aa"
	const tokenA = "0x00000000000000000000000000000000000000a1"
	const tokenB = "0x00000000000000000000000000000000000000b2"

	dir := t.TempDir()
	path := dir + "/events.jsonl"
	writeEvents(t, path, []model.EventRecord{
		swapEvent(1, 100, pool, model.SwapEventData{
			TokenIn: tokenA, TokenOut: tokenB,
			AmountIn: "10", AmountOut: "19", Fee: "1",
		}),
		swapEvent(2, 700, pool, model.SwapEventData{
			TokenIn: tokenA, TokenOut: tokenB,
			AmountIn: "20", AmountOut: "38", Fee: "2",
		}),
	})

	state := &FileStateStore{Path: dir + "/state.json"}
	if err := state.Save(context.Background(), 100); err != nil {
		t.Fatalf("seed state: %v", err)
	}

	sink := &memSink{}
	agg := NewAggregator(Config{WindowSeconds: 300, StateStore: state}, sink, nil)
	if err := agg.Run(context.Background(), path); err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(sink.rows) != 1 {
		t.Fatalf("window count mismatch: %d", len(sink.rows))
	}
	if sink.rows[0].Volume0 != "20" {
		t.Fatalf("resumed window volume: %s", sink.rows[0].Volume0)
	}

	last, ok, err := state.Load(context.Background())
	if err != nil || !ok {
		t.Fatalf("load state: %v ok=%v", err, ok)
	}
	if last != 700 {
		t.Fatalf("state timestamp: %d", last)
	}
}

func TestAggregatorSkipsMalformedLines(t *testing.T) {
	const pool = "0x00000000000000000000000000000000000000aa"
	const tokenA = "0x00000000000000000000000000000000000000a1"
	const tokenB = "0x00000000000000000000000000000000000000b2"

	dir := t.TempDir()
	path := dir + "/events.jsonl"
	writeEvents(t, path, []model.EventRecord{
		swapEvent(1, 100, pool, model.SwapEventData{
			TokenIn: tokenA, TokenOut: tokenB,
			AmountIn: "10", AmountOut: "19", Fee: "1",
		}),
	})
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := file.WriteString("not json\n"); err != nil {
		t.Fatalf("append garbage: %v", err)
	}
	file.Close()

	sink := &memSink{}
	agg := NewAggregator(Config{WindowSeconds: 300}, sink, nil)
	if err := agg.Run(context.Background(), path); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(sink.rows) != 1 || sink.rows[0].SwapCount != 1 {
		t.Fatalf("rows: %+v", sink.rows)
	}
}
