package main

import (
	"fmt"
	"math/big"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "engine",
		Short:        "AMM trading engine",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run an end-to-end trading scenario",
		RunE:  runScenario,
	}

	runCmd.Flags().Uint64("chain-id", 1, "chain id embedded in the signing domain")
	runCmd.Flags().String("domain-name", "swapforge", "signing domain name")
	runCmd.Flags().String("domain-version", "1", "signing domain version")
	runCmd.Flags().Uint64("fee-bps", 30, "swap fee in basis points")
	runCmd.Flags().String("out", "./data/events.jsonl", "output events JSONL path")
	runCmd.Flags().String("nonce-checkpoint", "./data/nonces.json", "nonce checkpoint file path")
	runCmd.Flags().Bool("nonce-checkpoint-enabled", true, "enable nonce checkpointing")
	runCmd.Flags().String("pg-dsn", "", "Postgres DSN (optional)")
	runCmd.Flags().Int("max-retries", 5, "maximum retry attempts for DB writes")
	runCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	runCmd.Flags().String("liquidity-a", "100000", "initial reserve of token A")
	runCmd.Flags().String("liquidity-b", "200000", "initial reserve of token B")
	runCmd.Flags().String("swap-amount", "1000", "signed swap input amount")
	runCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(runCmd)

	quoteCmd := &cobra.Command{
		Use:   "quote",
		Short: "Compute a swap quote offline",
		RunE:  runQuote,
	}

	quoteCmd.Flags().String("amount-in", "", "input amount")
	quoteCmd.Flags().String("reserve-in", "", "input-side reserve")
	quoteCmd.Flags().String("reserve-out", "", "output-side reserve")
	quoteCmd.Flags().Uint64("fee-bps", 30, "fee in basis points")

	root.AddCommand(quoteCmd)

	aggregateCmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Aggregate the events JSONL into pool window metrics",
		RunE:  runAggregate,
	}

	aggregateCmd.Flags().String("in", "./data/events.jsonl", "input events JSONL path")
	aggregateCmd.Flags().Uint64("window-seconds", 3600, "aggregation window size in seconds")
	aggregateCmd.Flags().Int("batch-size", 1000, "rows per sink flush")
	aggregateCmd.Flags().Uint64("recompute-from", 0, "recompute from this unix timestamp, ignoring saved state")
	aggregateCmd.Flags().String("state", "./data/aggregate_state.json", "resume state file path")
	aggregateCmd.Flags().String("metrics-out", "./data/metrics.jsonl", "output metrics JSONL path")
	aggregateCmd.Flags().String("pg-dsn", "", "Postgres DSN (optional)")
	aggregateCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(aggregateCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

func parseAmount(name, value string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(value, 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("invalid %s: %q", name, value)
	}
	return v, nil
}

func runQuote(cmd *cobra.Command, _ []string) error {
	amountInStr, _ := cmd.Flags().GetString("amount-in")
	reserveInStr, _ := cmd.Flags().GetString("reserve-in")
	reserveOutStr, _ := cmd.Flags().GetString("reserve-out")
	feeBps, _ := cmd.Flags().GetUint64("fee-bps")

	amountIn, err := parseAmount("amount-in", amountInStr)
	if err != nil {
		return err
	}
	reserveIn, err := parseAmount("reserve-in", reserveInStr)
	if err != nil {
		return err
	}
	reserveOut, err := parseAmount("reserve-out", reserveOutStr)
	if err != nil {
		return err
	}

	denom := new(big.Int).Add(reserveIn, amountIn)
	if denom.Sign() == 0 {
		return fmt.Errorf("empty pool: reserve-in and amount-in are both zero")
	}
	rawOut := new(big.Int).Mul(amountIn, reserveOut)
	rawOut.Div(rawOut, denom)

	fee := new(big.Int).Mul(rawOut, new(big.Int).SetUint64(feeBps))
	fee.Div(fee, big.NewInt(10000))

	finalOut := new(big.Int)
	if rawOut.Cmp(fee) > 0 {
		finalOut.Sub(rawOut, fee)
	}

	fmt.Printf("raw_out=%s fee=%s final_out=%s\n", rawOut, fee, finalOut)
	return nil
}
