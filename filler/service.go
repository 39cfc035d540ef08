package filler

import (
	"context"
	"math/big"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
)

// Stats is written by the service loop and read by the status server.
type Stats struct {
	Observed      atomic.Int64
	Reconstructed atomic.Int64
	Skipped       atomic.Int64
	Filled        atomic.Int64
	Failed        atomic.Int64

	lastFill  atomic.Pointer[common.Hash]
	lastError atomic.Pointer[string]
	startedAt time.Time
}

func NewStats() *Stats {
	return &Stats{startedAt: time.Now()}
}

type StatsSnapshot struct {
	Observed      int64  `json:"observed"`
	Reconstructed int64  `json:"reconstructed"`
	Skipped       int64  `json:"skipped"`
	Filled        int64  `json:"filled"`
	Failed        int64  `json:"failed"`
	LastFillTx    string `json:"last_fill_tx,omitempty"`
	LastError     string `json:"last_error,omitempty"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

func (s *Stats) Snapshot() StatsSnapshot {
	snap := StatsSnapshot{
		Observed:      s.Observed.Load(),
		Reconstructed: s.Reconstructed.Load(),
		Skipped:       s.Skipped.Load(),
		Filled:        s.Filled.Load(),
		Failed:        s.Failed.Load(),
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
	}
	if h := s.lastFill.Load(); h != nil {
		snap.LastFillTx = h.Hex()
	}
	if e := s.lastError.Load(); e != nil {
		snap.LastError = *e
	}
	return snap
}

func (s *Stats) recordError(err error) {
	msg := err.Error()
	s.lastError.Store(&msg)
}

// Service wires observer -> reconstructor -> executor. Orders are handled one at a
// time, in the order their origin transactions were observed.
type Service struct {
	observer      *Observer
	reconstructor *Reconstructor
	executor      *Executor
	start         *big.Int
	stats         *Stats
	logger        *zerolog.Logger
}

func NewService(observer *Observer, reconstructor *Reconstructor, executor *Executor, start *big.Int, logger *zerolog.Logger) *Service {
	return &Service{
		observer:      observer,
		reconstructor: reconstructor,
		executor:      executor,
		start:         start,
		stats:         NewStats(),
		logger:        logger,
	}
}

func (s *Service) Stats() *Stats {
	return s.stats
}

// Run listens until the subscription fails or ctx is cancelled. Failed orders are
// logged and skipped; only a subscription failure is returned.
func (s *Service) Run(ctx context.Context) error {
	sub, err := s.observer.Subscribe(ctx, s.start)
	if err != nil {
		return err
	}
	defer sub.Close()

	s.logger.Info().Msg("listening for orders")
	for {
		batch, err := sub.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				s.logger.Info().Msg("context cancelled -- stopping service")
				return nil
			}
			s.logger.Error().Err(err).Msg("origin subscription terminated")
			return err
		}
		s.Handle(ctx, batch)
	}
}

// Handle reconstructs and fills the order opened by one origin transaction.
func (s *Service) Handle(ctx context.Context, batch TransactionLogs) (common.Hash, error) {
	s.stats.Observed.Add(1)

	order, err := s.reconstructor.Reconstruct(batch.Logs)
	if err != nil {
		s.stats.Skipped.Add(1)
		s.stats.recordError(err)
		s.logger.Error().Err(err).
			Str("tx_hash", batch.TxHash.Hex()).
			Uint64("block_number", batch.BlockNumber).
			Int("logs", len(batch.Logs)).
			Msg("failed to reconstruct order -- skipping tx")
		return common.Hash{}, err
	}
	order.OriginTx = batch.TxHash
	s.stats.Reconstructed.Add(1)

	s.logger.Debug().
		Str("order_id", order.ID.Hex()).
		Str("origin_tx", batch.TxHash.Hex()).
		Int("authorizations", len(order.AuthList)).
		Msg("reconstructed order")

	fillTx, err := s.executor.Fill(ctx, order)
	if err != nil {
		s.stats.Failed.Add(1)
		s.stats.recordError(err)
		s.logger.Error().Err(err).
			Str("order_id", order.ID.Hex()).
			Str("origin_tx", batch.TxHash.Hex()).
			Msg("failed to fill order -- skipping")
		return common.Hash{}, err
	}

	s.stats.Filled.Add(1)
	s.stats.lastFill.Store(&fillTx)
	return fillTx, nil
}

// HandleAll processes batches in order and reports how many were filled.
func (s *Service) HandleAll(ctx context.Context, batches []TransactionLogs) int {
	filled := 0
	failed := 0
	for _, batch := range batches {
		if ctx.Err() != nil {
			break
		}
		if _, err := s.Handle(ctx, batch); err != nil {
			failed++
			continue
		}
		filled++
	}
	s.logger.Info().Int("total", len(batches)).
		Int("filled", filled).
		Int("failed", failed).
		Msg("finished processing origin txs")
	return filled
}
