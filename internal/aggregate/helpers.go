package aggregate

import (
	"math/big"
	"time"
)

const ratioScale = 18

// computeRate returns fee/tvl as a decimal string, or nil when either
// side is missing or zero.
func computeRate(fee, tvl *big.Int) *string {
	if fee == nil || fee.Sign() == 0 || tvl == nil || tvl.Sign() == 0 {
		return nil
	}
	rate := new(big.Rat).SetFrac(fee, tvl).FloatString(ratioScale)
	return &rate
}

// computeAPR annualizes the larger of the two per-window fee rates.
func computeAPR(feeRate0, feeRate1 *string, windowSeconds uint64) *string {
	if windowSeconds == 0 {
		return nil
	}

	var selected *big.Rat
	for _, candidate := range []*string{feeRate0, feeRate1} {
		if candidate == nil {
			continue
		}
		rat, ok := new(big.Rat).SetString(*candidate)
		if !ok {
			continue
		}
		if selected == nil || rat.Cmp(selected) > 0 {
			selected = rat
		}
	}
	if selected == nil {
		return nil
	}

	yearSeconds := big.NewRat(int64(365*24*time.Hour/time.Second), 1)
	window := big.NewRat(int64(windowSeconds), 1)
	apr := new(big.Rat).Mul(selected, yearSeconds)
	apr.Quo(apr, window)
	val := apr.FloatString(ratioScale)
	return &val
}
