package filler

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// field order of the ABI structs below must follow the settler ABI components

type Output struct {
	Token     [32]byte
	Amount    *big.Int
	Recipient [32]byte
	ChainId   *big.Int
}

type FillInstruction struct {
	DestinationChainId uint64
	DestinationSettler [32]byte
	OriginData         []byte
}

type ResolvedCrossChainOrder struct {
	User             common.Address
	OriginChainId    *big.Int
	OpenDeadline     uint32
	FillDeadline     uint32
	OrderId          [32]byte
	MaxSpent         []Output
	MinReceived      []Output
	FillInstructions []FillInstruction
}

// WireAuthorization is the settler's encoding of a signed EIP-7702 authorization.
type WireAuthorization struct {
	ChainId     *big.Int
	CodeAddress common.Address
	Nonce       *big.Int
	Signature   []byte
}

type EIP7702AuthData struct {
	Authlist []WireAuthorization
}

// non-indexed event arguments, unpacked by name
type openEvent struct {
	ResolvedOrder ResolvedCrossChainOrder
}

type delegationEvent struct {
	AuthData EIP7702AuthData
}

// TransactionLogs is the full log set of one origin transaction.
type TransactionLogs struct {
	TxHash      common.Hash
	BlockNumber uint64
	Logs        []types.Log
}

// Order is a fulfillable request reconstructed from one origin transaction.
type Order struct {
	ID       common.Hash
	FillData []byte
	AuthList []types.SetCodeAuthorization

	// not part of the decoded order -- injected by the caller for logging
	OriginTx common.Hash
}
