package model

import "time"

// PoolWindowMetrics summarizes one pool's swap activity inside one time
// window. Token0/Token1 are the pair in canonical (lexicographic) order;
// the volume, fee, and TVL columns follow that ordering. Optional fields
// are nil when the window's events did not carry enough data to derive
// them.
type PoolWindowMetrics struct {
	Pool           string    `json:"pool"`
	Token0         string    `json:"token0"`
	Token1         string    `json:"token1"`
	WindowSizeSecs int64     `json:"window_size_secs"`
	WindowStart    time.Time `json:"window_start"`
	WindowEnd      time.Time `json:"window_end"`
	SwapCount      uint64    `json:"swap_count"`
	Volume0        string    `json:"volume0"`
	Volume1        string    `json:"volume1"`
	Fee0           string    `json:"fee0"`
	Fee1           string    `json:"fee1"`
	TVL0           *string   `json:"tvl0,omitempty"`
	TVL1           *string   `json:"tvl1,omitempty"`
	FeeRate0       *string   `json:"fee_rate0,omitempty"`
	FeeRate1       *string   `json:"fee_rate1,omitempty"`
	APR            *string   `json:"apr,omitempty"`
}
