package filler

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"
)

const signatureLength = 65

// ToWire encodes a signed authorization the way the settler expects it: r || s || v
// with v in the 27/28 form.
func ToWire(auth types.SetCodeAuthorization) WireAuthorization {
	sig := make([]byte, signatureLength)
	r := auth.R.Bytes32()
	s := auth.S.Bytes32()
	copy(sig[0:32], r[:])
	copy(sig[32:64], s[:])
	sig[64] = auth.V + 27

	return WireAuthorization{
		ChainId:     auth.ChainID.ToBig(),
		CodeAddress: auth.Address,
		Nonce:       new(big.Int).SetUint64(auth.Nonce),
		Signature:   sig,
	}
}

func FromWire(w WireAuthorization) (types.SetCodeAuthorization, error) {
	if len(w.Signature) != signatureLength {
		return types.SetCodeAuthorization{}, fmt.Errorf("%w: expected %d bytes, got %d", ErrMalformedSignature, signatureLength, len(w.Signature))
	}
	v := w.Signature[64]
	if v >= 27 {
		v -= 27
	}
	if v > 1 {
		return types.SetCodeAuthorization{}, fmt.Errorf("%w: invalid recovery id %d", ErrMalformedSignature, w.Signature[64])
	}

	nonce := uint64(0)
	if w.Nonce != nil {
		if w.Nonce.Sign() < 0 || !w.Nonce.IsUint64() {
			return types.SetCodeAuthorization{}, fmt.Errorf("%w: %s", ErrNonceOverflow, w.Nonce)
		}
		nonce = w.Nonce.Uint64()
	}

	chainID := new(uint256.Int)
	if w.ChainId != nil {
		if w.ChainId.Sign() < 0 {
			return types.SetCodeAuthorization{}, fmt.Errorf("%w: %s", ErrChainIDOverflow, w.ChainId)
		}
		if overflow := chainID.SetFromBig(w.ChainId); overflow {
			return types.SetCodeAuthorization{}, fmt.Errorf("%w: %s", ErrChainIDOverflow, w.ChainId)
		}
	}

	auth := types.SetCodeAuthorization{
		ChainID: *chainID,
		Address: w.CodeAddress,
		Nonce:   nonce,
		V:       v,
	}
	auth.R.SetBytes(w.Signature[0:32])
	auth.S.SetBytes(w.Signature[32:64])
	return auth, nil
}

func ToWireList(auths []types.SetCodeAuthorization) EIP7702AuthData {
	data := EIP7702AuthData{Authlist: make([]WireAuthorization, 0, len(auths))}
	for _, auth := range auths {
		data.Authlist = append(data.Authlist, ToWire(auth))
	}
	return data
}

// FromWireList converts every entry or fails on the first one that does not convert.
func FromWireList(data EIP7702AuthData) ([]types.SetCodeAuthorization, error) {
	auths := make([]types.SetCodeAuthorization, 0, len(data.Authlist))
	for i, w := range data.Authlist {
		auth, err := FromWire(w)
		if err != nil {
			return nil, fmt.Errorf("authorization %d: %w", i, err)
		}
		auths = append(auths, auth)
	}
	return auths, nil
}
