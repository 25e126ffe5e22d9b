package main

import (
	"context"
	"fmt"
	"math/big"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"swapforge/internal/authorizer"
	"swapforge/internal/config"
	"swapforge/internal/events"
	"swapforge/internal/factory"
	"swapforge/internal/feeoracle"
	"swapforge/internal/model"
	"swapforge/internal/storage"
	"swapforge/internal/storage/postgres"
	"swapforge/internal/token"
)

// pgSink adapts the Postgres store to the event sink interface.
type pgSink struct {
	ctx   context.Context
	store *postgres.Store
}

func (s *pgSink) PutEventBatch(evts []model.EventRecord) error {
	return s.store.InsertEvents(s.ctx, evts)
}

// namedAddress derives a stable demo identity from a label.
func namedAddress(label string) common.Address {
	h := crypto.Keccak256([]byte("swapforge/" + label))
	return common.BytesToAddress(h[12:])
}

func runScenario(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	liquidityAStr, _ := cmd.Flags().GetString("liquidity-a")
	liquidityBStr, _ := cmd.Flags().GetString("liquidity-b")
	swapAmountStr, _ := cmd.Flags().GetString("swap-amount")

	liquidityA, err := parseAmount("liquidity-a", liquidityAStr)
	if err != nil {
		return err
	}
	liquidityB, err := parseAmount("liquidity-b", liquidityBStr)
	if err != nil {
		return err
	}
	swapAmount, err := parseAmount("swap-amount", swapAmountStr)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sinks := []events.Sink{storage.NewJsonlStorage(cfg.Out)}

	var store *postgres.Store
	if cfg.PgDSN != "" {
		store, err = postgres.NewStore(ctx, cfg.PgDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		sinks = append(sinks, storage.NewRetrySink(&pgSink{ctx: ctx, store: store}, cfg.MaxRetries, cfg.RetryBackoff))
	}

	recorder := events.NewRecorder(logger, sinks...)

	// Demo principals and tokens.
	admin := namedAddress("admin")
	registry := token.NewRegistry()
	ledgerA := token.NewLedger(namedAddress("token/TKA"), "TKA", 18)
	ledgerB := token.NewLedger(namedAddress("token/TKB"), "TKB", 6)
	if err := registry.Register(ledgerA); err != nil {
		return err
	}
	if err := registry.Register(ledgerB); err != nil {
		return err
	}

	oracle := feeoracle.New(admin, cfg.FeeBps, logger)
	fees := feeoracle.NewHandle(namedAddress("fee-oracle"), admin, oracle, logger).WithRecorder(recorder)

	auth, err := authorizer.New(authorizer.Config{
		Address:       namedAddress("authorizer"),
		DomainName:    cfg.DomainName,
		DomainVersion: cfg.DomainVersion,
		ChainID:       cfg.ChainID,
		Logger:        logger,
		Checkpoint:    authorizer.NewNonceCheckpointStore(cfg.NonceCheckpoint, cfg.NonceCheckpointEnabled),
	})
	if err != nil {
		return err
	}

	engine := factory.New(factory.Config{
		Address:    namedAddress("factory"),
		Tokens:     registry,
		Fees:       fees,
		Authorizer: auth.Address(),
		Logger:     logger,
		Recorder:   recorder,
	})
	auth.BindPools(engine)

	logger.Info("engine start",
		zap.Uint64("chain_id", cfg.ChainID),
		zap.Uint64("fee_bps", cfg.FeeBps),
		zap.String("out", cfg.Out),
		zap.Bool("postgres", store != nil),
	)

	// Create the pair and seed liquidity.
	p, err := engine.CreatePool(ledgerA.Address(), ledgerA.Decimals(), ledgerB.Address(), ledgerB.Decimals(), admin)
	if err != nil {
		return fmt.Errorf("create pool: %w", err)
	}
	if err := ledgerA.Mint(admin, liquidityA); err != nil {
		return err
	}
	if err := ledgerB.Mint(admin, liquidityB); err != nil {
		return err
	}
	if err := p.AddLiquidity(admin, ledgerA.Address(), liquidityA); err != nil {
		return fmt.Errorf("add liquidity: %w", err)
	}
	if err := p.AddLiquidity(admin, ledgerB.Address(), liquidityB); err != nil {
		return fmt.Errorf("add liquidity: %w", err)
	}

	// A holder signs one swap off-line; anyone may submit it.
	holderKey, err := crypto.GenerateKey()
	if err != nil {
		return fmt.Errorf("generate holder key: %w", err)
	}
	holder := crypto.PubkeyToAddress(holderKey.PublicKey)
	if err := ledgerA.Mint(holder, swapAmount); err != nil {
		return err
	}
	if err := ledgerA.Approve(holder, p.Address(), swapAmount); err != nil {
		return err
	}

	req := authorizer.SwapRequest{
		Pool:         p.Address(),
		Sender:       holder,
		TokenIn:      ledgerA.Address(),
		TokenOut:     ledgerB.Address(),
		AmountIn:     swapAmount,
		MinAmountOut: new(big.Int),
		Nonce:        auth.GetNonce(holder),
		Deadline:     uint64(time.Now().Add(5 * time.Minute).Unix()),
	}
	sig, err := crypto.Sign(auth.HashRequest(req).Bytes(), holderKey)
	if err != nil {
		return fmt.Errorf("sign request: %w", err)
	}

	out, err := auth.ExecuteSwap(req, sig)
	if err != nil {
		return fmt.Errorf("execute signed swap: %w", err)
	}

	reserveA, reserveB := p.GetReserves()
	logger.Info("scenario complete",
		zap.String("pool", p.Address().Hex()),
		zap.String("holder", holder.Hex()),
		zap.String("amount_in", swapAmount.String()),
		zap.String("amount_out", out.String()),
		zap.String("reserve_a", reserveA.String()),
		zap.String("reserve_b", reserveB.String()),
		zap.Int("pool_count", engine.PoolCount()),
	)

	if store != nil {
		if err := store.UpsertPools(ctx, engine.Records()); err != nil {
			return fmt.Errorf("persist pools: %w", err)
		}
		if err := store.SaveNonce(ctx, holder.Hex(), auth.GetNonce(holder)); err != nil {
			return fmt.Errorf("persist nonce: %w", err)
		}
	}

	return nil
}
