package aggregate

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"swapforge/internal/model"
)

// Accumulator folds one pool's swap events inside a single time window.
// Volumes and fees are tracked per token; reserves keep the latest
// post-swap value per token so the window can report TVL without asking
// the engine.
type Accumulator struct {
	Pool        string
	WindowStart uint64
	WindowEnd   uint64
	SwapCount   uint64
	LastTS      uint64

	volumes  map[string]*big.Int
	fees     map[string]*big.Int
	reserves map[string]*big.Int
}

func NewAccumulator(pool string, windowStart, windowEnd uint64) *Accumulator {
	return &Accumulator{
		Pool:        pool,
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
		volumes:     make(map[string]*big.Int),
		fees:        make(map[string]*big.Int),
		reserves:    make(map[string]*big.Int),
	}
}

// AddSwap applies one swap payload to the window.
func (a *Accumulator) AddSwap(ts uint64, swap model.SwapEventData) error {
	amountIn, err := parseBigInt(swap.AmountIn)
	if err != nil {
		return fmt.Errorf("amount_in: %w", err)
	}
	amountOut, err := parseBigInt(swap.AmountOut)
	if err != nil {
		return fmt.Errorf("amount_out: %w", err)
	}
	fee, err := parseBigInt(swap.Fee)
	if err != nil {
		return fmt.Errorf("fee: %w", err)
	}

	in := tokenKey(swap.TokenIn)
	out := tokenKey(swap.TokenOut)
	addTo(a.volumes, in, amountIn)
	addTo(a.volumes, out, amountOut)
	// The fee is withheld in output-token units.
	addTo(a.fees, out, fee)

	if swap.ReserveIn != "" {
		reserveIn, err := parseBigInt(swap.ReserveIn)
		if err != nil {
			return fmt.Errorf("reserve_in: %w", err)
		}
		a.reserves[in] = reserveIn
	}
	if swap.ReserveOut != "" {
		reserveOut, err := parseBigInt(swap.ReserveOut)
		if err != nil {
			return fmt.Errorf("reserve_out: %w", err)
		}
		a.reserves[out] = reserveOut
	}

	if ts > a.LastTS {
		a.LastTS = ts
	}
	a.SwapCount++
	return nil
}

// Metrics renders the window with the pair in canonical order. Windows
// that saw tokens outside a single pair are rejected.
func (a *Accumulator) Metrics(windowSecs uint64) (model.PoolWindowMetrics, error) {
	tokens := make([]string, 0, len(a.volumes))
	for tok := range a.volumes {
		tokens = append(tokens, tok)
	}
	if len(tokens) != 2 {
		return model.PoolWindowMetrics{}, fmt.Errorf("pool %s: window has %d tokens, want 2", a.Pool, len(tokens))
	}
	if strings.Compare(tokens[0], tokens[1]) > 0 {
		tokens[0], tokens[1] = tokens[1], tokens[0]
	}
	token0, token1 := tokens[0], tokens[1]

	tvl0 := optionalString(a.reserves[token0])
	tvl1 := optionalString(a.reserves[token1])
	feeRate0 := computeRate(a.fees[token0], a.reserves[token0])
	feeRate1 := computeRate(a.fees[token1], a.reserves[token1])

	return model.PoolWindowMetrics{
		Pool:           a.Pool,
		Token0:         token0,
		Token1:         token1,
		WindowSizeSecs: int64(windowSecs),
		WindowStart:    time.Unix(int64(a.WindowStart), 0).UTC(),
		WindowEnd:      time.Unix(int64(a.WindowEnd), 0).UTC(),
		SwapCount:      a.SwapCount,
		Volume0:        zeroString(a.volumes[token0]),
		Volume1:        zeroString(a.volumes[token1]),
		Fee0:           zeroString(a.fees[token0]),
		Fee1:           zeroString(a.fees[token1]),
		TVL0:           tvl0,
		TVL1:           tvl1,
		FeeRate0:       feeRate0,
		FeeRate1:       feeRate1,
		APR:            computeAPR(feeRate0, feeRate1, windowSecs),
	}, nil
}

func tokenKey(address string) string {
	return strings.ToLower(address)
}

func parseBigInt(value string) (*big.Int, error) {
	if value == "" {
		return new(big.Int), nil
	}
	parsed, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, fmt.Errorf("invalid integer %q", value)
	}
	return parsed, nil
}

func addTo(m map[string]*big.Int, key string, value *big.Int) {
	if value == nil || value.Sign() == 0 {
		if _, ok := m[key]; !ok {
			m[key] = new(big.Int)
		}
		return
	}
	acc, ok := m[key]
	if !ok {
		acc = new(big.Int)
		m[key] = acc
	}
	acc.Add(acc, value)
}

func zeroString(value *big.Int) string {
	if value == nil {
		return "0"
	}
	return value.String()
}

func optionalString(value *big.Int) *string {
	if value == nil {
		return nil
	}
	s := value.String()
	return &s
}
