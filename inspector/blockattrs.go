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

	"github.com/tlscan/tlscan/inspector/fetch"
	"github.com/tlscan/tlscan/log"
	"github.com/tlscan/tlscan/params"
	"github.com/tlscan/tlscan/rpcclient"
	"github.com/tlscan/tlscan/storage"
)

// BlockAttributesInspector is the supplemented enrichment pass that
// fills in the tx_count column on blocks the base BlockInspector has
// already written. It tracks its own resume point
// (LastWrittenBlockAttributes) independent of the base inspector's,
// since a block row can exist before its attributes are filled in —
// grounded in original_source/inspector/inspectors/block/block.go's
// separate "attributes" parameter.
type BlockAttributesInspector struct {
	gateway *storage.Gateway
	client  *rpcclient.Client
	logger  *log.Logger
}

func NewBlockAttributesInspector(gateway *storage.Gateway, client *rpcclient.Client, logger *log.Logger) *BlockAttributesInspector {
	return &BlockAttributesInspector{gateway: gateway, client: client, logger: logger}
}

func (i *BlockAttributesInspector) Kind() Kind { return KindBlockAttributes }

func (i *BlockAttributesInspector) ResumePoint(ctx context.Context, lower, upper uint64) (uint64, error) {
	last, ok, err := i.gateway.LastWrittenBlockAttributes(ctx, upper)
	if err != nil {
		return 0, err
	}
	if !ok || last+1 <= lower {
		return lower, nil
	}
	return last + 1, nil
}

func (i *BlockAttributesInspector) PlanSubBatches(task TaskBatch, batchSize int) []SubBatch {
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

func (i *BlockAttributesInspector) RunSubBatch(ctx context.Context, b SubBatch) (Outcome, error) {
	result, err := fetch.BlockAttributesBatch(ctx, i.client, b.LowerBlock, b.UpperBlock)
	if err != nil {
		return nil, fmt.Errorf("inspector: block attributes sub-batch [%d,%d): %w", b.LowerBlock, b.UpperBlock, err)
	}
	return result, nil
}

func (i *BlockAttributesInspector) Persist(ctx context.Context, o Outcome) error {
	result, ok := o.(fetch.BlockAttributesBatchResult)
	if !ok {
		return fmt.Errorf("inspector: block attributes persist: unexpected outcome type %T", o)
	}
	return i.gateway.UpdateBlockTxCounts(ctx, result.TxCounts)
}
