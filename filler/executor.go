package filler

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const DEFAULT_FILL_GAS_LIMIT = 500_000

// Executor submits fills to the destination settler. It owns the signer's nonce for
// the duration of one Fill call, so calls must not overlap for the same signer.
type Executor struct {
	client   DestinationClient
	signer   Signer
	settler  common.Address
	abi      abi.ABI
	gasLimit uint64
	logger   *zerolog.Logger
}

func NewExecutor(client DestinationClient, signer Signer, b *Bindings, settler common.Address, gasLimit uint64, logger *zerolog.Logger) *Executor {
	if gasLimit == 0 {
		gasLimit = DEFAULT_FILL_GAS_LIMIT
	}
	return &Executor{
		client:   client,
		signer:   signer,
		settler:  settler,
		abi:      b.Destination,
		gasLimit: gasLimit,
		logger:   logger,
	}
}

// Fill calls fill(orderId, originData, "") on the destination settler with the order's
// authorization list attached and returns the hash once the node accepts the tx.
// Nothing is retried.
func (e *Executor) Fill(ctx context.Context, order Order) (common.Hash, error) {
	calldata, err := e.abi.Pack(FILL_METHOD, [32]byte(order.ID), order.FillData, []byte{})
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to pack fill call: %w", err)
	}

	tx, err := e.buildTx(ctx, calldata, order.AuthList)
	if err != nil {
		return common.Hash{}, err
	}

	signed, err := e.signer.SignTx(tx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to sign fill tx: %w", err)
	}

	if err := e.client.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, classifySubmitError(err)
	}

	maxCost := new(big.Int).Mul(signed.GasFeeCap(), new(big.Int).SetUint64(signed.Gas()))
	e.logger.Info().
		Str("tx_hash", signed.Hash().Hex()).
		Str("order_id", order.ID.Hex()).
		Uint64("nonce", signed.Nonce()).
		Int("authorizations", len(order.AuthList)).
		Str("max_fee_eth", decimal.NewFromBigInt(maxCost, -18).String()).
		Str("network", DESTINATION).
		Msg("submitted fill")

	return signed.Hash(), nil
}

func (e *Executor) buildTx(ctx context.Context, calldata []byte, auths []types.SetCodeAuthorization) (*types.Transaction, error) {
	chainID, err := e.client.ChainID(ctx)
	if err != nil {
		return nil, transportError(err)
	}
	nonce, err := e.client.PendingNonceAt(ctx, e.signer.Address())
	if err != nil {
		return nil, transportError(err)
	}
	tip, err := e.client.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, transportError(err)
	}
	head, err := e.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, transportError(err)
	}

	feeCap := new(big.Int).Set(tip)
	if head.BaseFee != nil {
		feeCap.Add(feeCap, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))
	}

	// set-code txs must carry at least one authorization
	if len(auths) == 0 {
		return types.NewTx(&types.DynamicFeeTx{
			ChainID:   chainID,
			Nonce:     nonce,
			GasTipCap: tip,
			GasFeeCap: feeCap,
			Gas:       e.gasLimit,
			To:        &e.settler,
			Data:      calldata,
		}), nil
	}

	return types.NewTx(&types.SetCodeTx{
		ChainID:   uint256.MustFromBig(chainID),
		Nonce:     nonce,
		GasTipCap: uint256.MustFromBig(tip),
		GasFeeCap: uint256.MustFromBig(feeCap),
		Gas:       e.gasLimit,
		To:        e.settler,
		Value:     new(uint256.Int),
		Data:      calldata,
		AuthList:  auths,
	}), nil
}
