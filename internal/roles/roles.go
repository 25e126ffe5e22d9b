// Package roles implements a per-instance capability table: principal sets
// per named capability, a top-level authority able to manage every
// capability, and an independently configurable grant authority per
// capability. Tables are injected at construction and never shared
// globally.
package roles

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Capability names a gated action set.
type Capability string

const (
	// CapAdmin gates liquidity management and role administration on a pool.
	CapAdmin Capability = "admin"
	// CapSwap gates swap forwarding on a pool.
	CapSwap Capability = "swap"
)

// ErrUnauthorized is returned when the caller may not perform a grant or revoke.
var ErrUnauthorized = errors.New("caller not authorized")

// Table holds capability grants for one instance. Safe for concurrent use.
type Table struct {
	mu        sync.RWMutex
	authority common.Address
	admins    map[Capability]common.Address
	grants    map[Capability]map[common.Address]struct{}
}

// NewTable creates a table whose top-level authority may grant and revoke
// every capability.
func NewTable(authority common.Address) *Table {
	return &Table{
		authority: authority,
		admins:    make(map[Capability]common.Address),
		grants:    make(map[Capability]map[common.Address]struct{}),
	}
}

// Authority returns the top-level authority.
func (t *Table) Authority() common.Address {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.authority
}

// SetCapabilityAdmin assigns a dedicated grant authority for one capability.
// Only the top-level authority may do this.
func (t *Table) SetCapabilityAdmin(caller common.Address, capability Capability, admin common.Address) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if caller != t.authority {
		return fmt.Errorf("set admin for %q: caller %s: %w", capability, caller.Hex(), ErrUnauthorized)
	}
	t.admins[capability] = admin
	return nil
}

// Grant adds principal to the capability's set.
func (t *Table) Grant(caller, principal common.Address, capability Capability) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.mayManage(caller, capability) {
		return fmt.Errorf("grant %q to %s: caller %s: %w", capability, principal.Hex(), caller.Hex(), ErrUnauthorized)
	}
	set, ok := t.grants[capability]
	if !ok {
		set = make(map[common.Address]struct{})
		t.grants[capability] = set
	}
	set[principal] = struct{}{}
	return nil
}

// Revoke removes principal from the capability's set. Revoking an absent
// grant is a no-op.
func (t *Table) Revoke(caller, principal common.Address, capability Capability) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.mayManage(caller, capability) {
		return fmt.Errorf("revoke %q from %s: caller %s: %w", capability, principal.Hex(), caller.Hex(), ErrUnauthorized)
	}
	if set, ok := t.grants[capability]; ok {
		delete(set, principal)
	}
	return nil
}

// Has reports whether principal holds the capability.
func (t *Table) Has(principal common.Address, capability Capability) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	set, ok := t.grants[capability]
	if !ok {
		return false
	}
	_, held := set[principal]
	return held
}

func (t *Table) mayManage(caller common.Address, capability Capability) bool {
	if caller == t.authority {
		return true
	}
	admin, ok := t.admins[capability]
	return ok && caller == admin
}
