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

// ContractInspector fetches the current balance of each discovered
// contract in an explicit address list, emitting a ContractInfo row
// only for non-zero balances.
type ContractInspector struct {
	gateway        *storage.Gateway
	client         *rpcclient.Client
	logger         *log.Logger
	maxConcurrency int
}

func NewContractInspector(gateway *storage.Gateway, client *rpcclient.Client, logger *log.Logger, maxConcurrency int) *ContractInspector {
	return &ContractInspector{gateway: gateway, client: client, logger: logger, maxConcurrency: maxConcurrency}
}

func (i *ContractInspector) Kind() Kind { return KindContract }

// ResumePoint is a no-op for the contract inspector: it operates over
// an explicit address list, not a block range, so there is no
// block-number resume concept.
func (i *ContractInspector) ResumePoint(ctx context.Context, lower, upper uint64) (uint64, error) {
	return lower, nil
}

func (i *ContractInspector) PlanSubBatches(task TaskBatch, batchSize int) []SubBatch {
	if batchSize <= 0 {
		batchSize = params.ContractBatchSize
	}
	var out []SubBatch
	idx := 0
	for a := 0; a < len(task.ContractRefs); a += batchSize {
		b := a + batchSize
		if b > len(task.ContractRefs) {
			b = len(task.ContractRefs)
		}
		out = append(out, SubBatch{Index: idx, ContractRefs: task.ContractRefs[a:b]})
		idx++
	}
	return out
}

func (i *ContractInspector) RunSubBatch(ctx context.Context, b SubBatch) (Outcome, error) {
	result, err := fetch.ContractBatch(ctx, i.client, b.ContractRefs, i.maxConcurrency)
	if err != nil {
		return nil, fmt.Errorf("inspector: contract sub-batch %d: %w", b.Index, err)
	}
	return result, nil
}

func (i *ContractInspector) Persist(ctx context.Context, o Outcome) error {
	result, ok := o.(fetch.ContractBatchResult)
	if !ok {
		return fmt.Errorf("inspector: contract persist: unexpected outcome type %T", o)
	}
	return i.gateway.BulkInsertContractInfo(ctx, result.Rows)
}
