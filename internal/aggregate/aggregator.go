// Package aggregate turns the engine's event stream into per-pool window
// metrics: swap counts, per-token volume and fees, and TVL derived from
// the reserves carried in swap events. It reads the events JSONL the
// engine writes and is resumable through a state store.
package aggregate

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/zap"

	"swapforge/internal/model"
)

// MetricsSink receives finished window rows.
type MetricsSink interface {
	UpsertWindowMetrics(ctx context.Context, metrics []model.PoolWindowMetrics) error
}

// Config controls aggregation behavior.
type Config struct {
	WindowSeconds uint64
	BatchSize     int
	RecomputeFrom uint64
	StateStore    StateStore
}

// Aggregator folds swap events into pool window metrics.
type Aggregator struct {
	cfg          Config
	sink         MetricsSink
	logger       *zap.Logger
	accumulators map[string]*Accumulator
}

func NewAggregator(cfg Config, sink MetricsSink, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{
		cfg:          cfg,
		sink:         sink,
		logger:       logger,
		accumulators: make(map[string]*Accumulator),
	}
}

// Run aggregates the events JSONL file at inputPath and flushes window
// metrics to the sink. Events at or before the resume timestamp are
// skipped, so repeated runs over a growing file never double count.
func (a *Aggregator) Run(ctx context.Context, inputPath string) error {
	if a.sink == nil {
		return fmt.Errorf("metrics sink is nil")
	}
	if a.cfg.WindowSeconds == 0 {
		return fmt.Errorf("window seconds must be > 0")
	}
	if a.cfg.BatchSize <= 0 {
		a.cfg.BatchSize = 1000
	}

	startTs, err := a.loadStartTimestamp(ctx)
	if err != nil {
		return err
	}

	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	batch := make([]model.PoolWindowMetrics, 0, a.cfg.BatchSize)
	maxTs := startTs
	var total, aggregated, skipped, failed int

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		total++

		var record model.RawEventRecord
		if err := json.Unmarshal(line, &record); err != nil {
			failed++
			a.logger.Warn("decode event record", zap.Error(err))
			continue
		}
		if record.Name != model.EventSwapExecuted {
			skipped++
			continue
		}
		if record.Timestamp <= startTs {
			skipped++
			continue
		}

		var swap model.SwapEventData
		if err := json.Unmarshal(record.Decoded, &swap); err != nil {
			failed++
			a.logger.Warn("decode swap payload", zap.Uint64("seq", record.Seq), zap.Error(err))
			continue
		}

		windowStart := windowStart(record.Timestamp, a.cfg.WindowSeconds)
		windowEnd := windowStart + a.cfg.WindowSeconds

		key := tokenKey(swap.Pool)
		acc := a.accumulators[key]
		if acc == nil {
			acc = NewAccumulator(swap.Pool, windowStart, windowEnd)
			a.accumulators[key] = acc
		} else if acc.WindowStart != windowStart {
			metrics, err := acc.Metrics(a.cfg.WindowSeconds)
			if err != nil {
				return err
			}
			batch = append(batch, metrics)
			acc = NewAccumulator(swap.Pool, windowStart, windowEnd)
			a.accumulators[key] = acc
		}

		if err := acc.AddSwap(record.Timestamp, swap); err != nil {
			failed++
			a.logger.Warn("aggregate swap", zap.String("pool", swap.Pool), zap.Error(err))
			continue
		}
		aggregated++

		if record.Timestamp > maxTs {
			maxTs = record.Timestamp
		}

		if len(batch) >= a.cfg.BatchSize {
			if err := a.sink.UpsertWindowMetrics(ctx, batch); err != nil {
				return err
			}
			batch = batch[:0]
			if err := a.saveState(ctx); err != nil {
				return err
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan input: %w", err)
	}

	for _, acc := range a.accumulators {
		metrics, err := acc.Metrics(a.cfg.WindowSeconds)
		if err != nil {
			return err
		}
		batch = append(batch, metrics)
	}
	a.accumulators = make(map[string]*Accumulator)

	if len(batch) > 0 {
		if err := a.sink.UpsertWindowMetrics(ctx, batch); err != nil {
			return err
		}
	}

	a.cfg.RecomputeFrom = maxTs
	if err := a.saveState(ctx); err != nil {
		return err
	}

	a.logger.Info("aggregate complete",
		zap.Int("total", total),
		zap.Int("aggregated", aggregated),
		zap.Int("skipped", skipped),
		zap.Int("failed", failed),
	)
	return nil
}

func (a *Aggregator) loadStartTimestamp(ctx context.Context) (uint64, error) {
	if a.cfg.RecomputeFrom > 0 {
		return a.cfg.RecomputeFrom - 1, nil
	}
	if a.cfg.StateStore == nil {
		return 0, nil
	}
	last, ok, err := a.cfg.StateStore.Load(ctx)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return last, nil
}

func (a *Aggregator) saveState(ctx context.Context) error {
	if a.cfg.StateStore == nil {
		return nil
	}

	if len(a.accumulators) == 0 {
		return a.cfg.StateStore.Save(ctx, a.cfg.RecomputeFrom)
	}

	// Open windows may still receive events, so the resume point stops
	// just before the earliest of them.
	safeTs := minOpenWindowStart(a.accumulators)
	if safeTs > 0 {
		safeTs--
	}
	if safeTs == 0 {
		safeTs = a.cfg.RecomputeFrom
	}
	return a.cfg.StateStore.Save(ctx, safeTs)
}

func windowStart(ts, windowSec uint64) uint64 {
	return ts - (ts % windowSec)
}

func minOpenWindowStart(acc map[string]*Accumulator) uint64 {
	var min uint64
	for _, entry := range acc {
		if entry == nil {
			continue
		}
		if min == 0 || entry.WindowStart < min {
			min = entry.WindowStart
		}
	}
	return min
}
