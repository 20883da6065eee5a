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

// Package fetch is the batch fetcher (component C5): four functions,
// one per inspector variant, each pulling the RPC data a sub-range or
// contract sub-batch needs and returning a typed result ready for the
// matching inspector to persist.
package fetch

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/tlscan/tlscan/evm"
	"github.com/tlscan/tlscan/log"
	"github.com/tlscan/tlscan/rpcclient"
	"github.com/tlscan/tlscan/storage"
)

// TLSCBatchResult is the accumulated set of newly-discovered contracts
// over one sub-range.
type TLSCBatchResult struct {
	Contracts []storage.Contract
}

// TLSCBatch walks blocks [lower, upper), discovering contract creations
// whose deployed bytecode is a TLSC candidate. Block processing is
// sequential within the sub-range; the per-block contract-creation
// lookups inside each block run under maxConcurrency.
func TLSCBatch(ctx context.Context, client *rpcclient.Client, classifier *evm.Classifier, logger *log.Logger, lower, upper uint64, maxConcurrency int) (TLSCBatchResult, error) {
	var result TLSCBatchResult

	for n := lower; n < upper; n++ {
		block, err := client.GetBlockByNumber(ctx, n, true)
		if err != nil {
			return result, fmt.Errorf("fetch: get block %d: %w", n, err)
		}

		creations := make([]rpcclient.Transaction, 0)
		for _, tx := range block.Transactions {
			if tx.To == nil {
				creations = append(creations, tx)
			}
		}
		if len(creations) == 0 {
			continue
		}

		rows, err := inspectCreations(ctx, client, classifier, creations, n, maxConcurrency)
		if err != nil {
			return result, err
		}
		result.Contracts = append(result.Contracts, rows...)
	}

	return result, nil
}

func inspectCreations(ctx context.Context, client *rpcclient.Client, classifier *evm.Classifier, creations []rpcclient.Transaction, blockNumber uint64, maxConcurrency int) ([]storage.Contract, error) {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	sem := semaphore.NewWeighted(int64(maxConcurrency))
	rows := make([]*storage.Contract, len(creations))

	for i, tx := range creations {
		i, tx := i, tx
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return nil
			}
			defer sem.Release(1)

			row, err := inspectOneCreation(gctx, client, classifier, tx, blockNumber)
			if err != nil {
				return err
			}
			rows[i] = row
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]storage.Contract, 0, len(rows))
	for _, r := range rows {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out, nil
}

func inspectOneCreation(ctx context.Context, client *rpcclient.Client, classifier *evm.Classifier, tx rpcclient.Transaction, blockNumber uint64) (*storage.Contract, error) {
	receipt, err := client.GetTransactionReceipt(ctx, tx.Hash)
	if err != nil {
		return nil, fmt.Errorf("fetch: get receipt %s: %w", tx.Hash, err)
	}
	if receipt.ContractAddress == nil {
		return nil, nil
	}

	code, err := client.GetCode(ctx, *receipt.ContractAddress, blockNumber)
	if err != nil {
		return nil, fmt.Errorf("fetch: get code %s: %w", *receipt.ContractAddress, err)
	}
	if code == "0x" || code == "" {
		return nil, nil
	}

	isTLSC, err := classifier.IsPotentiallyTimeLocked(code)
	if err != nil {
		// Decoding error: skip the offending contract, don't fail the
		// sub-batch.
		return nil, nil
	}
	if !isTLSC {
		return nil, nil
	}

	return &storage.Contract{
		ContractAddress: *receipt.ContractAddress,
		Bytecode:        code,
		FromAddress:     tx.From,
		TxHash:          tx.Hash,
		BlockNumber:     blockNumber,
	}, nil
}
