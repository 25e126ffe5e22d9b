// Package token defines the transfer capability the engine depends on and
// an in-memory ledger implementation of it.
package token

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Token is the transfer surface a pool relies on. Amounts are denominated
// in the token's smallest unit. Tokens with transfer fees or rebasing
// balances are not modeled; under such tokens recorded reserves diverge
// from true holdings and the engine's behavior is undefined.
type Token interface {
	Address() common.Address
	Decimals() uint8
	BalanceOf(owner common.Address) *big.Int
	Allowance(owner, spender common.Address) *big.Int

	// Transfer moves amount from the caller's own balance.
	Transfer(from, to common.Address, amount *big.Int) error

	// TransferFrom moves amount from owner to recipient, consuming the
	// spender's allowance.
	TransferFrom(spender, from, to common.Address, amount *big.Int) error
}

// Resolver looks up a token by its address.
type Resolver interface {
	Token(addr common.Address) (Token, bool)
}
