package model

// Event names emitted by the engine.
const (
	EventPoolCreated      = "PoolCreated"
	EventLiquidityAdded   = "LiquidityAdded"
	EventLiquidityRemoved = "LiquidityRemoved"
	EventSwapExecuted     = "SwapExecuted"
	EventFeeRateUpdated   = "FeeRateUpdated"
	EventRoleGranted      = "RoleGranted"
	EventRoleRevoked      = "RoleRevoked"
)

// PoolCreatedData is the payload for a pool creation event.
type PoolCreatedData struct {
	TokenA    string `json:"token_a"`
	TokenB    string `json:"token_b"`
	Pool      string `json:"pool"`
	PoolCount int    `json:"pool_count"`
}

// LiquidityChangedData is the payload for add/remove liquidity events.
type LiquidityChangedData struct {
	Pool     string `json:"pool"`
	Token    string `json:"token"`
	Amount   string `json:"amount"`
	ReserveA string `json:"reserve_a"`
	ReserveB string `json:"reserve_b"`
}

// SwapEventData is the payload for an executed swap. ReserveIn and
// ReserveOut are the post-swap reserves on the input and output sides, so
// downstream consumers can track pool value without querying the engine.
type SwapEventData struct {
	Pool       string `json:"pool"`
	Holder     string `json:"holder"`
	TokenIn    string `json:"token_in"`
	TokenOut   string `json:"token_out"`
	AmountIn   string `json:"amount_in"`
	AmountOut  string `json:"amount_out"`
	Fee        string `json:"fee"`
	ReserveIn  string `json:"reserve_in"`
	ReserveOut string `json:"reserve_out"`
}

// FeeRateUpdatedData is the payload for a fee rate change.
type FeeRateUpdatedData struct {
	OldBps  uint64 `json:"old_bps"`
	NewBps  uint64 `json:"new_bps"`
	Version uint64 `json:"version"`
}

// RoleChangedData is the payload for role grant/revoke events.
type RoleChangedData struct {
	Capability string `json:"capability"`
	Principal  string `json:"principal"`
}
