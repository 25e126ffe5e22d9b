package authorizer

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Structured-data hashing in the EIP-712 shape: a type hash over the
// request schema, a domain separator binding signatures to one authorizer
// instance and version, and the 0x19 0x01 envelope over both.
var (
	domainTypeHash = crypto.Keccak256Hash([]byte(
		"EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)"))
	swapRequestTypeHash = crypto.Keccak256Hash([]byte(
		"SwapRequest(address pool,address sender,address tokenIn,address tokenOut,uint256 amountIn,uint256 minAmountOut,uint256 nonce,uint256 deadline)"))
)

// SwapRequest is one specific swap a holder authorizes off-line.
type SwapRequest struct {
	Pool         common.Address `json:"pool"`
	Sender       common.Address `json:"sender"`
	TokenIn      common.Address `json:"token_in"`
	TokenOut     common.Address `json:"token_out"`
	AmountIn     *big.Int       `json:"amount_in"`
	MinAmountOut *big.Int       `json:"min_amount_out"`
	Nonce        uint64         `json:"nonce"`
	Deadline     uint64         `json:"deadline"`
}

// domainSeparator binds signatures to (name, version, chainID, authorizer).
func domainSeparator(name, version string, chainID uint64, verifying common.Address) common.Hash {
	return crypto.Keccak256Hash(
		domainTypeHash.Bytes(),
		crypto.Keccak256([]byte(name)),
		crypto.Keccak256([]byte(version)),
		padUint64(chainID),
		padAddress(verifying),
	)
}

// structHash is the canonical encoding of the request fields: type hash
// followed by each field as a 32-byte word.
func structHash(req SwapRequest) common.Hash {
	return crypto.Keccak256Hash(
		swapRequestTypeHash.Bytes(),
		padAddress(req.Pool),
		padAddress(req.Sender),
		padAddress(req.TokenIn),
		padAddress(req.TokenOut),
		padBig(req.AmountIn),
		padBig(req.MinAmountOut),
		padUint64(req.Nonce),
		padUint64(req.Deadline),
	)
}

// digest wraps the struct hash in the signed-data envelope.
func digest(domain common.Hash, req SwapRequest) common.Hash {
	return crypto.Keccak256Hash(
		[]byte{0x19, 0x01},
		domain.Bytes(),
		structHash(req).Bytes(),
	)
}

// recoverSigner recovers the signing address from a 65-byte signature over
// the digest. A 27/28 recovery id is normalized to 0/1.
func recoverSigner(hash common.Hash, signature []byte) (common.Address, error) {
	if len(signature) != crypto.SignatureLength {
		return common.Address{}, ErrInvalidSignature
	}
	sig := make([]byte, crypto.SignatureLength)
	copy(sig, signature)
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	pub, err := crypto.SigToPub(hash.Bytes(), sig)
	if err != nil {
		return common.Address{}, ErrInvalidSignature
	}
	return crypto.PubkeyToAddress(*pub), nil
}

func padAddress(addr common.Address) []byte {
	return common.LeftPadBytes(addr.Bytes(), 32)
}

func padBig(v *big.Int) []byte {
	if v == nil {
		v = new(big.Int)
	}
	return common.LeftPadBytes(v.Bytes(), 32)
}

func padUint64(v uint64) []byte {
	return common.LeftPadBytes(new(big.Int).SetUint64(v).Bytes(), 32)
}
