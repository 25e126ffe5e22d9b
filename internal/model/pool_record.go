package model

// PoolRecord is the normalized representation of a pool for storage.
type PoolRecord struct {
	Address   string `json:"address"`
	TokenA    string `json:"token_a"`
	DecimalsA uint8  `json:"decimals_a"`
	TokenB    string `json:"token_b"`
	DecimalsB uint8  `json:"decimals_b"`
	ReserveA  string `json:"reserve_a"`
	ReserveB  string `json:"reserve_b"`
	CreatedAt string `json:"created_at"`
}
