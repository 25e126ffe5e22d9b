package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"swapforge/internal/aggregate"
	"swapforge/internal/storage"
	"swapforge/internal/storage/postgres"
)

func runAggregate(cmd *cobra.Command, _ []string) error {
	in, _ := cmd.Flags().GetString("in")
	windowSeconds, _ := cmd.Flags().GetUint64("window-seconds")
	batchSize, _ := cmd.Flags().GetInt("batch-size")
	recomputeFrom, _ := cmd.Flags().GetUint64("recompute-from")
	statePath, _ := cmd.Flags().GetString("state")
	metricsOut, _ := cmd.Flags().GetString("metrics-out")
	pgDSN, _ := cmd.Flags().GetString("pg-dsn")
	logLevel, _ := cmd.Flags().GetString("log-level")

	if in == "" {
		return fmt.Errorf("--in is required")
	}

	logger, err := newLogger(logLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var sink aggregate.MetricsSink = storage.NewMetricsJsonl(metricsOut)
	var state aggregate.StateStore = &aggregate.FileStateStore{Path: statePath}

	if pgDSN != "" {
		store, err := postgres.NewStore(ctx, pgDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		sink = store
		state = &aggregate.DBStateStore{Store: store, Name: "aggregate"}
	}

	agg := aggregate.NewAggregator(aggregate.Config{
		WindowSeconds: windowSeconds,
		BatchSize:     batchSize,
		RecomputeFrom: recomputeFrom,
		StateStore:    state,
	}, sink, logger)

	if err := agg.Run(ctx, in); err != nil {
		return err
	}

	logger.Info("aggregation finished", zap.String("in", in), zap.Uint64("window_seconds", windowSeconds))
	return nil
}
