package filler

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// LogsFromFile reads a JSON array of logs (eth_getLogs / receipt format) and groups
// them into one batch per transaction, ordered by block then first appearance.
func (o *Observer) LogsFromFile(path string) ([]TransactionLogs, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var logs []types.Log
	if err := json.Unmarshal(body, &logs); err != nil {
		o.logger.Error().Err(err).Str("file", path).Msg("failed to unmarshal logs")
		return nil, err
	}

	batches := []TransactionLogs{}
	index := map[common.Hash]int{}
	for _, l := range logs {
		if l.Removed {
			continue
		}
		i, ok := index[l.TxHash]
		if !ok {
			i = len(batches)
			index[l.TxHash] = i
			batches = append(batches, TransactionLogs{TxHash: l.TxHash, BlockNumber: l.BlockNumber})
		}
		batches[i].Logs = append(batches[i].Logs, l)
	}

	for i := range batches {
		logs := batches[i].Logs
		sort.SliceStable(logs, func(a, b int) bool { return logs[a].Index < logs[b].Index })
	}
	sort.SliceStable(batches, func(a, b int) bool { return batches[a].BlockNumber < batches[b].BlockNumber })

	o.logger.Info().Int("logs", len(logs)).Int("txs", len(batches)).Str("file", path).Msg("loaded logs from file")
	return batches, nil
}
