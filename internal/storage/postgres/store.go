package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"swapforge/internal/model"
)

// Store provides Postgres persistence for pools and events.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// UpsertPools inserts or updates pool snapshots.
func (s *Store) UpsertPools(ctx context.Context, pools []model.PoolRecord) error {
	if len(pools) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, record := range pools {
		batch.Queue(`
			INSERT INTO pools (
				address, token_a, decimals_a, token_b, decimals_b, reserve_a, reserve_b, pool_created_at, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
			ON CONFLICT (address)
			DO UPDATE SET
				reserve_a = EXCLUDED.reserve_a,
				reserve_b = EXCLUDED.reserve_b,
				updated_at = now()
		`,
			record.Address,
			record.TokenA,
			int16(record.DecimalsA),
			record.TokenB,
			int16(record.DecimalsB),
			record.ReserveA,
			record.ReserveB,
			record.CreatedAt,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range pools {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// InsertEvents appends event records to the events table.
func (s *Store) InsertEvents(ctx context.Context, events []model.EventRecord) error {
	if len(events) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, event := range events {
		decoded, err := json.Marshal(event.Decoded)
		if err != nil {
			return fmt.Errorf("marshal event payload: %w", err)
		}
		batch.Queue(`
			INSERT INTO engine_events (
				seq, name, emitter, event_ts, recorded_at, decoded, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, now())
			ON CONFLICT (seq, recorded_at) DO NOTHING
		`,
			int64(event.Seq),
			event.Name,
			event.Emitter,
			int64(event.Timestamp),
			event.RecordedAt,
			decoded,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range events {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// UpsertWindowMetrics inserts or replaces pool window metric rows.
func (s *Store) UpsertWindowMetrics(ctx context.Context, metrics []model.PoolWindowMetrics) error {
	if len(metrics) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, row := range metrics {
		batch.Queue(`
			INSERT INTO pool_window_metrics (
				pool, token0, token1, window_size_secs, window_start, window_end,
				swap_count, volume0, volume1, fee0, fee1,
				tvl0, tvl1, fee_rate0, fee_rate1, apr, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, now(), now())
			ON CONFLICT (pool, window_size_secs, window_start)
			DO UPDATE SET
				swap_count = EXCLUDED.swap_count,
				volume0 = EXCLUDED.volume0,
				volume1 = EXCLUDED.volume1,
				fee0 = EXCLUDED.fee0,
				fee1 = EXCLUDED.fee1,
				tvl0 = EXCLUDED.tvl0,
				tvl1 = EXCLUDED.tvl1,
				fee_rate0 = EXCLUDED.fee_rate0,
				fee_rate1 = EXCLUDED.fee_rate1,
				apr = EXCLUDED.apr,
				updated_at = now()
		`,
			row.Pool,
			row.Token0,
			row.Token1,
			row.WindowSizeSecs,
			row.WindowStart,
			row.WindowEnd,
			int64(row.SwapCount),
			row.Volume0,
			row.Volume1,
			row.Fee0,
			row.Fee1,
			row.TVL0,
			row.TVL1,
			row.FeeRate0,
			row.FeeRate1,
			row.APR,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range metrics {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// LoadState returns the named resume timestamp.
func (s *Store) LoadState(ctx context.Context, name string) (uint64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("state name required")
	}
	var ts int64
	row := s.pool.QueryRow(ctx, `SELECT last_ts FROM engine_state WHERE name=$1`, name)
	if err := row.Scan(&ts); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return uint64(ts), true, nil
}

// SaveState upserts the named resume timestamp.
func (s *Store) SaveState(ctx context.Context, name string, ts uint64) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO engine_state (name, last_ts, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET last_ts = EXCLUDED.last_ts, updated_at = now()
	`, name, int64(ts))
	return err
}

// LoadNonce returns the persisted nonce for a principal.
func (s *Store) LoadNonce(ctx context.Context, principal string) (uint64, bool, error) {
	if principal == "" {
		return 0, false, fmt.Errorf("principal required")
	}
	var nonce uint64
	row := s.pool.QueryRow(ctx, `SELECT next_nonce FROM authorizer_nonces WHERE principal=$1`, principal)
	if err := row.Scan(&nonce); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return nonce, true, nil
}

// SaveNonce upserts the nonce for a principal.
func (s *Store) SaveNonce(ctx context.Context, principal string, nonce uint64) error {
	if principal == "" {
		return fmt.Errorf("principal required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO authorizer_nonces (principal, next_nonce, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (principal) DO UPDATE
		SET next_nonce = EXCLUDED.next_nonce, updated_at = now()
	`, principal, nonce)
	return err
}
