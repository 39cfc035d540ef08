package filler

import (
	"crypto/ecdsa"
	"math/big"
	"os"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var (
	testOriginSettler      = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	testDestinationSettler = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	testDelegate           = common.HexToAddress("0x00000000000000000000000000000000000000c3")
	testOrderID            = common.HexToHash("0x0101010101010101010101010101010101010101010101010101010101010101")
)

func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(os.Stdout)
	return &logger
}

func newTestReconstructor() *Reconstructor {
	b := MustInitBindings()
	return NewReconstructor(b, b.Topics(testOriginSettler), newTestLogger())
}

func testResolvedOrder(originData ...[]byte) ResolvedCrossChainOrder {
	instructions := make([]FillInstruction, 0, len(originData))
	for _, data := range originData {
		instructions = append(instructions, FillInstruction{
			DestinationChainId: 10,
			DestinationSettler: common.BytesToHash(testDestinationSettler.Bytes()),
			OriginData:         data,
		})
	}
	return ResolvedCrossChainOrder{
		User:             common.HexToAddress("0x00000000000000000000000000000000000000d4"),
		OriginChainId:    big.NewInt(1),
		OpenDeadline:     100,
		FillDeadline:     200,
		OrderId:          testOrderID,
		MaxSpent:         []Output{},
		MinReceived:      []Output{},
		FillInstructions: instructions,
	}
}

func openLog(t *testing.T, txHash common.Hash, orderID common.Hash, resolved ResolvedCrossChainOrder) types.Log {
	t.Helper()
	b := MustInitBindings()
	data, err := b.Origin.Events[OPEN_EVENT].Inputs.NonIndexed().Pack(resolved)
	require.NoError(t, err)
	return types.Log{
		Address: testOriginSettler,
		Topics:  []common.Hash{b.Origin.Events[OPEN_EVENT].ID, orderID},
		Data:    data,
		TxHash:  txHash,
	}
}

func delegationLog(t *testing.T, txHash common.Hash, auths ...WireAuthorization) types.Log {
	t.Helper()
	b := MustInitBindings()
	data, err := b.Origin.Events[DELEGATION_EVENT].Inputs.NonIndexed().Pack(EIP7702AuthData{Authlist: auths})
	require.NoError(t, err)
	return types.Log{
		Address: testOriginSettler,
		Topics:  []common.Hash{b.Origin.Events[DELEGATION_EVENT].ID},
		Data:    data,
		TxHash:  txHash,
	}
}

func newTestKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return key
}

func signedAuth(t *testing.T, key *ecdsa.PrivateKey, chainID uint64, nonce uint64) types.SetCodeAuthorization {
	t.Helper()
	auth, err := types.SignSetCode(key, types.SetCodeAuthorization{
		ChainID: *uint256.NewInt(chainID),
		Address: testDelegate,
		Nonce:   nonce,
	})
	require.NoError(t, err)
	return auth
}
