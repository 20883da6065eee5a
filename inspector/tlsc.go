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

	"github.com/tlscan/tlscan/evm"
	"github.com/tlscan/tlscan/inspector/fetch"
	"github.com/tlscan/tlscan/log"
	"github.com/tlscan/tlscan/params"
	"github.com/tlscan/tlscan/rpcclient"
	"github.com/tlscan/tlscan/storage"
)

// TLSCInspector discovers newly-deployed contracts whose bytecode is a
// TLSC candidate over a block range.
type TLSCInspector struct {
	gateway        *storage.Gateway
	client         *rpcclient.Client
	classifier     *evm.Classifier
	logger         *log.Logger
	maxConcurrency int
}

func NewTLSCInspector(gateway *storage.Gateway, client *rpcclient.Client, logger *log.Logger, maxConcurrency int) *TLSCInspector {
	return &TLSCInspector{
		gateway:        gateway,
		client:         client,
		classifier:     evm.NewClassifier(),
		logger:         logger,
		maxConcurrency: maxConcurrency,
	}
}

func (i *TLSCInspector) Kind() Kind { return KindTLSC }

func (i *TLSCInspector) ResumePoint(ctx context.Context, lower, upper uint64) (uint64, error) {
	last, ok, err := i.gateway.LastWrittenBlock(ctx, "contracts", upper)
	if err != nil {
		return 0, err
	}
	if !ok || last+1 <= lower {
		return lower, nil
	}
	return last + 1, nil
}

func (i *TLSCInspector) PlanSubBatches(task TaskBatch, batchSize int) []SubBatch {
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

func (i *TLSCInspector) RunSubBatch(ctx context.Context, b SubBatch) (Outcome, error) {
	result, err := fetch.TLSCBatch(ctx, i.client, i.classifier, i.logger, b.LowerBlock, b.UpperBlock, i.maxConcurrency)
	if err != nil {
		return nil, fmt.Errorf("inspector: tlsc sub-batch [%d,%d): %w", b.LowerBlock, b.UpperBlock, err)
	}
	return result, nil
}

func (i *TLSCInspector) Persist(ctx context.Context, o Outcome) error {
	result, ok := o.(fetch.TLSCBatchResult)
	if !ok {
		return fmt.Errorf("inspector: tlsc persist: unexpected outcome type %T", o)
	}
	return i.gateway.BulkInsertContracts(ctx, result.Contracts)
}
