package filler

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog"
)

var errSubscriptionClosed = errors.New("log subscription closed")

// Observer turns the origin settler's log stream into per-transaction log batches.
type Observer struct {
	client OriginClient
	topics EventTopics
	logger *zerolog.Logger
}

func NewObserver(client OriginClient, topics EventTopics, logger *zerolog.Logger) *Observer {
	return &Observer{
		client: client,
		topics: topics,
		logger: logger,
	}
}

// Subscription yields one TransactionLogs per origin transaction, in chain order.
// Once it fails it stays failed; callers subscribe again to resume.
type Subscription struct {
	batches chan TransactionLogs
	done    chan struct{}
	cancel  context.CancelFunc
	err     error
}

func (o *Observer) query() ethereum.FilterQuery {
	return ethereum.FilterQuery{
		Addresses: []common.Address{o.topics.Emitter},
		Topics:    [][]common.Hash{{o.topics.Open, o.topics.Delegation}},
	}
}

// Subscribe starts watching the origin settler. With a non-nil start block, logs from
// that block on are back-filled before live logs are delivered.
func (o *Observer) Subscribe(ctx context.Context, start *big.Int) (*Subscription, error) {
	ctx, cancel := context.WithCancel(ctx)

	// subscribe before back-filling so nothing mined in between is missed
	logs := make(chan types.Log)
	sub, err := o.client.SubscribeFilterLogs(ctx, o.query(), logs)
	if err != nil {
		cancel()
		return nil, transportError(err)
	}

	s := &Subscription{
		batches: make(chan TransactionLogs),
		done:    make(chan struct{}),
		cancel:  cancel,
	}
	go func() {
		defer close(s.done)
		defer sub.Unsubscribe()
		s.err = o.stream(ctx, s.batches, sub, logs, start)
	}()
	return s, nil
}

func (o *Observer) stream(ctx context.Context, out chan<- TransactionLogs, sub ethereum.Subscription, logs <-chan types.Log, start *big.Int) error {
	var last common.Hash
	var backfilledTo uint64

	emit := func(l types.Log) error {
		if l.Removed || l.TxHash == last {
			return nil
		}
		last = l.TxHash

		batch, err := o.TransactionLogs(ctx, l.TxHash)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			o.logger.Error().Err(err).
				Str("tx_hash", l.TxHash.Hex()).
				Uint64("block_number", l.BlockNumber).
				Str("network", ORIGIN).
				Msg("failed to fetch origin receipt -- skipping tx")
			return nil
		}

		select {
		case out <- batch:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if start != nil {
		q := o.query()
		q.FromBlock = start
		history, err := o.client.FilterLogs(ctx, q)
		if err != nil {
			return transportError(err)
		}
		o.logger.Info().
			Int("total", len(history)).
			Str("from_block", start.String()).
			Str("network", ORIGIN).
			Msg("back-filling origin logs")
		for _, l := range history {
			if err := emit(l); err != nil {
				return err
			}
			backfilledTo = max(backfilledTo, l.BlockNumber)
		}
	}

	for {
		select {
		case l := <-logs:
			if backfilledTo > 0 && l.BlockNumber <= backfilledTo {
				continue
			}
			if err := emit(l); err != nil {
				return err
			}
		case err := <-sub.Err():
			if err == nil {
				err = errSubscriptionClosed
			}
			return transportError(err)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// TransactionLogs fetches the complete log set of one origin transaction.
func (o *Observer) TransactionLogs(ctx context.Context, txHash common.Hash) (TransactionLogs, error) {
	receipt, err := o.client.TransactionReceipt(ctx, txHash)
	if err != nil {
		return TransactionLogs{}, transportError(err)
	}

	batch := TransactionLogs{
		TxHash: txHash,
		Logs:   make([]types.Log, 0, len(receipt.Logs)),
	}
	if receipt.BlockNumber != nil {
		batch.BlockNumber = receipt.BlockNumber.Uint64()
	}
	for _, l := range receipt.Logs {
		batch.Logs = append(batch.Logs, *l)
	}
	return batch, nil
}

// Next blocks until the next transaction batch, a subscription failure, or ctx is done.
func (s *Subscription) Next(ctx context.Context) (TransactionLogs, error) {
	select {
	case batch := <-s.batches:
		return batch, nil
	case <-s.done:
		return TransactionLogs{}, s.err
	case <-ctx.Done():
		return TransactionLogs{}, ctx.Err()
	}
}

// Close stops the subscription and waits for the stream to wind down.
func (s *Subscription) Close() {
	s.cancel()
	<-s.done
}
