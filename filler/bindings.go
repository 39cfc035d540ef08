package filler

import (
	"log"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const (
	OPEN_EVENT       = "Open"
	DELEGATION_EVENT = "Requested7702Delegation"
	FILL_METHOD      = "fill"
)

// OriginSettlerABI holds the origin settlement events the filler consumes.
const OriginSettlerABI = `[
	{
		"anonymous": false,
		"name": "Open",
		"type": "event",
		"inputs": [
			{"indexed": true, "internalType": "bytes32", "name": "orderId", "type": "bytes32"},
			{
				"indexed": false,
				"internalType": "struct ResolvedCrossChainOrder",
				"name": "resolvedOrder",
				"type": "tuple",
				"components": [
					{"internalType": "address", "name": "user", "type": "address"},
					{"internalType": "uint256", "name": "originChainId", "type": "uint256"},
					{"internalType": "uint32", "name": "openDeadline", "type": "uint32"},
					{"internalType": "uint32", "name": "fillDeadline", "type": "uint32"},
					{"internalType": "bytes32", "name": "orderId", "type": "bytes32"},
					{
						"internalType": "struct Output[]",
						"name": "maxSpent",
						"type": "tuple[]",
						"components": [
							{"internalType": "bytes32", "name": "token", "type": "bytes32"},
							{"internalType": "uint256", "name": "amount", "type": "uint256"},
							{"internalType": "bytes32", "name": "recipient", "type": "bytes32"},
							{"internalType": "uint256", "name": "chainId", "type": "uint256"}
						]
					},
					{
						"internalType": "struct Output[]",
						"name": "minReceived",
						"type": "tuple[]",
						"components": [
							{"internalType": "bytes32", "name": "token", "type": "bytes32"},
							{"internalType": "uint256", "name": "amount", "type": "uint256"},
							{"internalType": "bytes32", "name": "recipient", "type": "bytes32"},
							{"internalType": "uint256", "name": "chainId", "type": "uint256"}
						]
					},
					{
						"internalType": "struct FillInstruction[]",
						"name": "fillInstructions",
						"type": "tuple[]",
						"components": [
							{"internalType": "uint64", "name": "destinationChainId", "type": "uint64"},
							{"internalType": "bytes32", "name": "destinationSettler", "type": "bytes32"},
							{"internalType": "bytes", "name": "originData", "type": "bytes"}
						]
					}
				]
			}
		]
	},
	{
		"anonymous": false,
		"name": "Requested7702Delegation",
		"type": "event",
		"inputs": [
			{
				"indexed": false,
				"internalType": "struct EIP7702AuthData",
				"name": "authData",
				"type": "tuple",
				"components": [
					{
						"internalType": "struct Authorization[]",
						"name": "authlist",
						"type": "tuple[]",
						"components": [
							{"internalType": "uint256", "name": "chainId", "type": "uint256"},
							{"internalType": "address", "name": "codeAddress", "type": "address"},
							{"internalType": "uint256", "name": "nonce", "type": "uint256"},
							{"internalType": "bytes", "name": "signature", "type": "bytes"}
						]
					}
				]
			}
		]
	}
]`

// DestinationSettlerABI holds the fulfillment entry point.
const DestinationSettlerABI = `[
	{
		"name": "fill",
		"type": "function",
		"stateMutability": "nonpayable",
		"inputs": [
			{"internalType": "bytes32", "name": "orderId", "type": "bytes32"},
			{"internalType": "bytes", "name": "originData", "type": "bytes"},
			{"internalType": "bytes", "name": "fillerData", "type": "bytes"}
		],
		"outputs": []
	}
]`

// EventTopics is the selector lookup table the reconstructor and observer match logs
// against. A zero Emitter matches logs from any address.
type EventTopics struct {
	Open       common.Hash
	Delegation common.Hash
	Emitter    common.Address
}

// Bindings carries the parsed settlement ABIs.
type Bindings struct {
	Origin      abi.ABI
	Destination abi.ABI
}

func MustInitBindings() *Bindings {
	origin, err := abi.JSON(strings.NewReader(OriginSettlerABI))
	if err != nil {
		log.Fatal("failed parsing origin settler abi ", err)
	}
	destination, err := abi.JSON(strings.NewReader(DestinationSettlerABI))
	if err != nil {
		log.Fatal("failed parsing destination settler abi ", err)
	}
	return &Bindings{
		Origin:      origin,
		Destination: destination,
	}
}

// Topics builds the selector table for logs emitted by the origin settler.
func (b *Bindings) Topics(emitter common.Address) EventTopics {
	return EventTopics{
		Open:       b.Origin.Events[OPEN_EVENT].ID,
		Delegation: b.Origin.Events[DELEGATION_EVENT].ID,
		Emitter:    emitter,
	}
}
