package token

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Ledger is an in-memory fungible token. It is safe for concurrent use.
type Ledger struct {
	addr     common.Address
	symbol   string
	decimals uint8

	mu         sync.RWMutex
	balances   map[common.Address]*big.Int
	allowances map[common.Address]map[common.Address]*big.Int
}

// NewLedger creates an empty ledger for a token identified by addr.
func NewLedger(addr common.Address, symbol string, decimals uint8) *Ledger {
	return &Ledger{
		addr:       addr,
		symbol:     symbol,
		decimals:   decimals,
		balances:   make(map[common.Address]*big.Int),
		allowances: make(map[common.Address]map[common.Address]*big.Int),
	}
}

// Address returns the token identity.
func (l *Ledger) Address() common.Address { return l.addr }

// Symbol returns the token symbol.
func (l *Ledger) Symbol() string { return l.symbol }

// Decimals returns the token's decimal precision.
func (l *Ledger) Decimals() uint8 { return l.decimals }

// BalanceOf returns a copy of the owner's balance.
func (l *Ledger) BalanceOf(owner common.Address) *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if b, ok := l.balances[owner]; ok {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}

// Allowance returns a copy of the amount spender may move on behalf of owner.
func (l *Ledger) Allowance(owner, spender common.Address) *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if byOwner, ok := l.allowances[owner]; ok {
		if a, ok := byOwner[spender]; ok {
			return new(big.Int).Set(a)
		}
	}
	return new(big.Int)
}

// Mint credits amount to the owner's balance.
func (l *Ledger) Mint(to common.Address, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	if to == (common.Address{}) {
		return fmt.Errorf("mint %s: %w", l.symbol, ErrZeroAddress)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.credit(to, amount)
	return nil
}

// Approve sets spender's allowance over owner's balance to exactly amount.
func (l *Ledger) Approve(owner, spender common.Address, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	byOwner, ok := l.allowances[owner]
	if !ok {
		byOwner = make(map[common.Address]*big.Int)
		l.allowances[owner] = byOwner
	}
	byOwner[spender] = new(big.Int).Set(amount)
	return nil
}

// Transfer moves amount from the caller's own balance to the recipient.
func (l *Ledger) Transfer(from, to common.Address, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	if to == (common.Address{}) {
		return fmt.Errorf("transfer %s: %w", l.symbol, ErrZeroAddress)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.debit(from, amount); err != nil {
		return err
	}
	l.credit(to, amount)
	return nil
}

// TransferFrom moves amount from owner to recipient, consuming spender's
// allowance. The allowance check happens before any balance mutation.
func (l *Ledger) TransferFrom(spender, from, to common.Address, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	if to == (common.Address{}) {
		return fmt.Errorf("transferFrom %s: %w", l.symbol, ErrZeroAddress)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	byOwner := l.allowances[from]
	allowed, ok := byOwner[spender]
	if !ok || allowed.Cmp(amount) < 0 {
		return fmt.Errorf("transferFrom %s: spender %s owner %s amount %s: %w",
			l.symbol, spender.Hex(), from.Hex(), amount.String(), ErrInsufficientAllowance)
	}
	if err := l.debit(from, amount); err != nil {
		return err
	}
	allowed.Sub(allowed, amount)
	l.credit(to, amount)
	return nil
}

func (l *Ledger) credit(to common.Address, amount *big.Int) {
	b, ok := l.balances[to]
	if !ok {
		b = new(big.Int)
		l.balances[to] = b
	}
	b.Add(b, amount)
}

func (l *Ledger) debit(from common.Address, amount *big.Int) error {
	b, ok := l.balances[from]
	if !ok || b.Cmp(amount) < 0 {
		return fmt.Errorf("transfer %s: holder %s amount %s: %w",
			l.symbol, from.Hex(), amount.String(), ErrInsufficientBalance)
	}
	b.Sub(b, amount)
	return nil
}

func checkAmount(amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	return nil
}
