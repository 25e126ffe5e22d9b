package roles

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

var (
	authority = common.HexToAddress("0x0000000000000000000000000000000000000aa1")
	delegate  = common.HexToAddress("0x0000000000000000000000000000000000000aa2")
	principal = common.HexToAddress("0x0000000000000000000000000000000000000aa3")
	outsider  = common.HexToAddress("0x0000000000000000000000000000000000000aa4")
)

func TestGrantAndRevokeByAuthority(t *testing.T) {
	tbl := NewTable(authority)

	if tbl.Has(principal, CapSwap) {
		t.Fatalf("unexpected grant before any Grant call")
	}
	if err := tbl.Grant(authority, principal, CapSwap); err != nil {
		t.Fatalf("grant: %v", err)
	}
	if !tbl.Has(principal, CapSwap) {
		t.Fatalf("grant not recorded")
	}
	if err := tbl.Revoke(authority, principal, CapSwap); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if tbl.Has(principal, CapSwap) {
		t.Fatalf("revoke not recorded")
	}
}

func TestGrantRejectsUnauthorizedCaller(t *testing.T) {
	tbl := NewTable(authority)

	err := tbl.Grant(outsider, principal, CapAdmin)
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if tbl.Has(principal, CapAdmin) {
		t.Fatalf("failed grant mutated table")
	}
}

func TestCapabilityAdminIsIndependent(t *testing.T) {
	tbl := NewTable(authority)

	if err := tbl.SetCapabilityAdmin(outsider, CapSwap, delegate); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized setting admin, got %v", err)
	}
	if err := tbl.SetCapabilityAdmin(authority, CapSwap, delegate); err != nil {
		t.Fatalf("set capability admin: %v", err)
	}

	// Delegate manages swap but not admin.
	if err := tbl.Grant(delegate, principal, CapSwap); err != nil {
		t.Fatalf("delegate grant swap: %v", err)
	}
	if err := tbl.Grant(delegate, principal, CapAdmin); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for delegate on admin, got %v", err)
	}
}
