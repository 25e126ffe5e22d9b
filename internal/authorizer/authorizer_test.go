package authorizer

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var authorizerAddr = common.HexToAddress("0x00000000000000000000000000000000000000e1")

type stubPool struct {
	swaps   int
	failing bool
}

func (s *stubPool) Swap(caller, onBehalfOf, tokenIn, tokenOut common.Address, amountIn, minAmountOut *big.Int) (*big.Int, error) {
	if s.failing {
		return nil, fmt.Errorf("pool rejected swap")
	}
	s.swaps++
	return new(big.Int).Set(amountIn), nil
}

type stubResolver struct {
	pools map[common.Address]*stubPool
}

func (r *stubResolver) SwapPool(addr common.Address) (SwapExecutor, bool) {
	p, ok := r.pools[addr]
	if !ok {
		return nil, false
	}
	return p, true
}

func newAuthorizer(t *testing.T) (*Authorizer, *stubPool, common.Address) {
	t.Helper()

	a, err := New(Config{
		Address:       authorizerAddr,
		DomainName:    "swapforge",
		DomainVersion: "1",
		ChainID:       1337,
	})
	if err != nil {
		t.Fatalf("new authorizer: %v", err)
	}

	poolAddr := common.HexToAddress("0x00000000000000000000000000000000000000e2")
	target := &stubPool{}
	a.BindPools(&stubResolver{pools: map[common.Address]*stubPool{poolAddr: target}})
	a.WithClock(func() time.Time { return time.Unix(1700000000, 0) })
	return a, target, poolAddr
}

func newKey(t *testing.T) (*ecdsa.PrivateKey, common.Address) {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return key, crypto.PubkeyToAddress(key.PublicKey)
}

func signRequest(t *testing.T, a *Authorizer, req SwapRequest, key *ecdsa.PrivateKey) []byte {
	t.Helper()
	sig, err := crypto.Sign(a.HashRequest(req).Bytes(), key)
	if err != nil {
		t.Fatalf("sign request: %v", err)
	}
	return sig
}

func validRequest(sender, poolAddr common.Address, nonce uint64) SwapRequest {
	return SwapRequest{
		Pool:         poolAddr,
		Sender:       sender,
		TokenIn:      common.HexToAddress("0x00000000000000000000000000000000000000c1"),
		TokenOut:     common.HexToAddress("0x00000000000000000000000000000000000000c2"),
		AmountIn:     big.NewInt(1000),
		MinAmountOut: big.NewInt(1),
		Nonce:        nonce,
		Deadline:     1700000600,
	}
}

func TestVerifyAcceptsSenderSignature(t *testing.T) {
	a, _, poolAddr := newAuthorizer(t)
	key, sender := newKey(t)

	req := validRequest(sender, poolAddr, 0)
	sig := signRequest(t, a, req, key)

	if !a.Verify(req, sig) {
		t.Fatalf("valid signature rejected")
	}

	// A signature from a different key never verifies.
	otherKey, _ := newKey(t)
	otherSig := signRequest(t, a, req, otherKey)
	if a.Verify(req, otherSig) {
		t.Fatalf("foreign signature accepted")
	}

	// Tampered fields invalidate the signature.
	tampered := req
	tampered.AmountIn = big.NewInt(2000)
	if a.Verify(tampered, sig) {
		t.Fatalf("tampered request accepted")
	}
}

func TestVerifyRejectsMalformedSignature(t *testing.T) {
	a, _, poolAddr := newAuthorizer(t)
	_, sender := newKey(t)

	req := validRequest(sender, poolAddr, 0)
	if a.Verify(req, nil) {
		t.Fatalf("nil signature accepted")
	}
	if a.Verify(req, make([]byte, 64)) {
		t.Fatalf("short signature accepted")
	}
}

func TestVerifyNormalizesRecoveryID(t *testing.T) {
	a, _, poolAddr := newAuthorizer(t)
	key, sender := newKey(t)

	req := validRequest(sender, poolAddr, 0)
	sig := signRequest(t, a, req, key)
	sig[64] += 27
	if !a.Verify(req, sig) {
		t.Fatalf("27/28 recovery id rejected")
	}
}

func TestExecuteSwapAdvancesNonceOnce(t *testing.T) {
	a, target, poolAddr := newAuthorizer(t)
	key, sender := newKey(t)

	req := validRequest(sender, poolAddr, 0)
	sig := signRequest(t, a, req, key)

	if got := a.GetNonce(sender); got != 0 {
		t.Fatalf("initial nonce mismatch: %d", got)
	}

	out, err := a.ExecuteSwap(req, sig)
	if err != nil {
		t.Fatalf("execute swap: %v", err)
	}
	if out.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("output mismatch: %s", out)
	}
	if got := a.GetNonce(sender); got != 1 {
		t.Fatalf("nonce not advanced: %d", got)
	}
	if target.swaps != 1 {
		t.Fatalf("swap count mismatch: %d", target.swaps)
	}

	// Replay of the same signed request is permanently rejected.
	if _, err := a.ExecuteSwap(req, sig); !errors.Is(err, ErrInvalidNonce) {
		t.Fatalf("expected ErrInvalidNonce on replay, got %v", err)
	}
	if target.swaps != 1 {
		t.Fatalf("replay reached the pool")
	}
}

func TestExecuteSwapRejectsExpired(t *testing.T) {
	a, _, poolAddr := newAuthorizer(t)
	key, sender := newKey(t)

	req := validRequest(sender, poolAddr, 0)
	req.Deadline = 1699999999 // before the fixed clock
	sig := signRequest(t, a, req, key)

	if _, err := a.ExecuteSwap(req, sig); !errors.Is(err, ErrExpiredRequest) {
		t.Fatalf("expected ErrExpiredRequest, got %v", err)
	}
	if got := a.GetNonce(sender); got != 0 {
		t.Fatalf("expired request advanced nonce: %d", got)
	}
}

func TestExecuteSwapRejectsBadSignatureBeforeNonce(t *testing.T) {
	a, _, poolAddr := newAuthorizer(t)
	key, sender := newKey(t)

	// Wrong nonce and wrong signer: signature failure wins.
	req := validRequest(sender, poolAddr, 5)
	otherKey, _ := newKey(t)
	sig := signRequest(t, a, req, otherKey)

	if _, err := a.ExecuteSwap(req, sig); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}

	// Correct signature, wrong nonce.
	sig = signRequest(t, a, req, key)
	if _, err := a.ExecuteSwap(req, sig); !errors.Is(err, ErrInvalidNonce) {
		t.Fatalf("expected ErrInvalidNonce, got %v", err)
	}
}

func TestExecuteSwapRollsBackNonceOnPoolFailure(t *testing.T) {
	a, target, poolAddr := newAuthorizer(t)
	key, sender := newKey(t)
	target.failing = true

	req := validRequest(sender, poolAddr, 0)
	sig := signRequest(t, a, req, key)

	if _, err := a.ExecuteSwap(req, sig); err == nil {
		t.Fatalf("expected forwarded swap failure")
	}
	if got := a.GetNonce(sender); got != 0 {
		t.Fatalf("nonce retained after failed swap: %d", got)
	}

	// The same request succeeds once the pool accepts it.
	target.failing = false
	if _, err := a.ExecuteSwap(req, sig); err != nil {
		t.Fatalf("retry after failure: %v", err)
	}
	if got := a.GetNonce(sender); got != 1 {
		t.Fatalf("nonce mismatch after retry: %d", got)
	}
}

func TestExecuteSwapUnknownPool(t *testing.T) {
	a, _, _ := newAuthorizer(t)
	key, sender := newKey(t)

	req := validRequest(sender, common.HexToAddress("0x00000000000000000000000000000000000000ff"), 0)
	sig := signRequest(t, a, req, key)

	if _, err := a.ExecuteSwap(req, sig); !errors.Is(err, ErrUnknownPool) {
		t.Fatalf("expected ErrUnknownPool, got %v", err)
	}
}

func TestDomainSeparatorBindsInstance(t *testing.T) {
	a1, _, poolAddr := newAuthorizer(t)

	a2, err := New(Config{
		Address:       common.HexToAddress("0x00000000000000000000000000000000000000e9"),
		DomainName:    "swapforge",
		DomainVersion: "1",
		ChainID:       1337,
	})
	if err != nil {
		t.Fatalf("new authorizer: %v", err)
	}

	key, sender := newKey(t)
	req := validRequest(sender, poolAddr, 0)
	sig := signRequest(t, a1, req, key)

	if a2.Verify(req, sig) {
		t.Fatalf("signature valid across authorizer instances")
	}
}

func TestNonceCheckpointRoundTrip(t *testing.T) {
	path := t.TempDir() + "/nonces.json"
	store := NewNonceCheckpointStore(path, true)

	sender := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	if err := store.Save(map[common.Address]uint64{sender: 3}); err != nil {
		t.Fatalf("save: %v", err)
	}

	nonces, ok, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !ok || nonces[sender] != 3 {
		t.Fatalf("checkpoint mismatch: %v %v", nonces, ok)
	}

	a, err := New(Config{
		Address:       authorizerAddr,
		DomainName:    "swapforge",
		DomainVersion: "1",
		ChainID:       1337,
		Checkpoint:    store,
	})
	if err != nil {
		t.Fatalf("new authorizer with checkpoint: %v", err)
	}
	if got := a.GetNonce(sender); got != 3 {
		t.Fatalf("restored nonce mismatch: %d", got)
	}
}
