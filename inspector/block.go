// Copyright 2024 The tlscan Authors
// This file is part of the tlscan library.
//
// The tlscan library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The tlscan library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the tlscan library. If not, see <http://www.gnu.org/licenses/>.

package inspector

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/tlscan/tlscan/inspector/fetch"
	"github.com/tlscan/tlscan/log"
	"github.com/tlscan/tlscan/params"
	"github.com/tlscan/tlscan/rpcclient"
	"github.com/tlscan/tlscan/storage"
)

// BlockInspector computes the per-block economic summary and tracks
// each contract's largest observed transaction value over a block
// range. It preloads the contract_info map once per sub-range and
// mutates its own copy as updates are discovered, per the deliberate
// per-batch relaxation documented in spec.md §9.
type BlockInspector struct {
	gateway        *storage.Gateway
	client         *rpcclient.Client
	logger         *log.Logger
	maxConcurrency int

	mu           sync.Mutex
	contractInfo map[string]*big.Float
}

func NewBlockInspector(gateway *storage.Gateway, client *rpcclient.Client, logger *log.Logger, maxConcurrency int) *BlockInspector {
	return &BlockInspector{
		gateway:        gateway,
		client:         client,
		logger:         logger,
		maxConcurrency: maxConcurrency,
	}
}

func (i *BlockInspector) Kind() Kind { return KindBlock }

func (i *BlockInspector) ResumePoint(ctx context.Context, lower, upper uint64) (uint64, error) {
	last, ok, err := i.gateway.LastWrittenBlock(ctx, "blocks", upper)
	if err != nil {
		return 0, err
	}
	if !ok || last+1 <= lower {
		return lower, nil
	}
	return last + 1, nil
}

func (i *BlockInspector) PlanSubBatches(task TaskBatch, batchSize int) []SubBatch {
	if batchSize <= 0 {
		batchSize = params.BlockBatchSize
	}
	var out []SubBatch
	idx := 0
	for a := task.Lower; a < task.Upper; a += uint64(batchSize) {
		b := a + uint64(batchSize)
		if b > task.Upper {
			b = task.Upper
		}
		out = append(out, SubBatch{Index: idx, LowerBlock: a, UpperBlock: b})
		idx++
	}
	return out
}

// snapshot reloads the contract_info map from the gateway for one
// sub-range and returns a copy of it.
func (i *BlockInspector) snapshot(ctx context.Context) (map[string]*big.Float, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	m, err := i.gateway.ContractInfoMap(ctx)
	if err != nil {
		return nil, err
	}
	i.contractInfo = m
	// Each sub-batch gets its own copy: concurrent sub-batches under
	// this inspector's semaphore must not race on the same map.
	out := make(map[string]*big.Float, len(i.contractInfo))
	for k, v := range i.contractInfo {
		out[k] = v
	}
	return out, nil
}

func (i *BlockInspector) RunSubBatch(ctx context.Context, b SubBatch) (Outcome, error) {
	snapshot, err := i.snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("inspector: block sub-batch snapshot: %w", err)
	}
	result, err := fetch.BlockBatch(ctx, i.client, snapshot, b.LowerBlock, b.UpperBlock)
	if err != nil {
		return nil, fmt.Errorf("inspector: block sub-batch [%d,%d): %w", b.LowerBlock, b.UpperBlock, err)
	}
	return result, nil
}

func (i *BlockInspector) Persist(ctx context.Context, o Outcome) error {
	result, ok := o.(fetch.BlockBatchResult)
	if !ok {
		return fmt.Errorf("inspector: block persist: unexpected outcome type %T", o)
	}
	if err := i.gateway.BulkInsertBlocks(ctx, result.Blocks); err != nil {
		return err
	}
	if err := i.gateway.BulkUpdateContractInfo(ctx, result.Updates); err != nil {
		return err
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	for _, u := range result.Updates {
		i.contractInfo[u.ContractAddress] = u.LargestTxValue
	}
	return nil
}
