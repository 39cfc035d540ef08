package filler

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog"
)

// Reconstructor rebuilds orders from the logs of the transaction that opened them.
// It holds no state besides its lookup tables, so Reconstruct is safe to call repeatedly
// on the same input.
type Reconstructor struct {
	topics EventTopics
	abi    abi.ABI
	logger *zerolog.Logger
}

func NewReconstructor(b *Bindings, topics EventTopics, logger *zerolog.Logger) *Reconstructor {
	return &Reconstructor{
		topics: topics,
		abi:    b.Origin,
		logger: logger,
	}
}

func (r *Reconstructor) Reconstruct(logs []types.Log) (Order, error) {
	openLog := r.find(logs, r.topics.Open)
	if openLog == nil {
		return Order{}, ErrMissingOpenEvent
	}

	// orderId is indexed
	if len(openLog.Topics) < 2 {
		return Order{}, fmt.Errorf("%w: open event has %d topics", ErrMalformedPayload, len(openLog.Topics))
	}
	id := openLog.Topics[1]

	var open openEvent
	if err := r.abi.UnpackIntoInterface(&open, OPEN_EVENT, openLog.Data); err != nil {
		return Order{}, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}

	instructions := open.ResolvedOrder.FillInstructions
	if len(instructions) == 0 {
		return Order{}, ErrNoFillInstruction
	}
	if len(instructions) > 1 {
		// single destination only -- the rest is dropped
		r.logger.Warn().
			Str("order_id", id.Hex()).
			Int("fill_instructions", len(instructions)).
			Msg("order has multiple fill instructions -- using the first")
	}

	order := Order{
		ID:       id,
		FillData: common.CopyBytes(instructions[0].OriginData),
		AuthList: []types.SetCodeAuthorization{},
	}

	delegationLog := r.find(logs, r.topics.Delegation)
	if delegationLog == nil {
		return order, nil
	}

	var delegation delegationEvent
	if err := r.abi.UnpackIntoInterface(&delegation, DELEGATION_EVENT, delegationLog.Data); err != nil {
		return Order{}, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	auths, err := FromWireList(delegation.AuthData)
	if err != nil {
		return Order{}, fmt.Errorf("%w: %w", ErrBadAuthorization, err)
	}
	order.AuthList = auths

	return order, nil
}

func (r *Reconstructor) find(logs []types.Log, topic common.Hash) *types.Log {
	for i := range logs {
		l := &logs[i]
		if len(l.Topics) == 0 || l.Topics[0] != topic {
			continue
		}
		if r.topics.Emitter != (common.Address{}) && l.Address != r.topics.Emitter {
			continue
		}
		return l
	}
	return nil
}
