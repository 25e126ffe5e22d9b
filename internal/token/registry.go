package token

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Registry maps token addresses to Token implementations.
type Registry struct {
	mu     sync.RWMutex
	tokens map[common.Address]Token
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tokens: make(map[common.Address]Token)}
}

// Register adds a token. Registering the same address twice fails.
func (r *Registry) Register(t Token) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	addr := t.Address()
	if addr == (common.Address{}) {
		return fmt.Errorf("register token: %w", ErrZeroAddress)
	}
	if _, exists := r.tokens[addr]; exists {
		return fmt.Errorf("register token %s: already registered", addr.Hex())
	}
	r.tokens[addr] = t
	return nil
}

// Token returns the token registered under addr.
func (r *Registry) Token(addr common.Address) (Token, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tokens[addr]
	return t, ok
}
