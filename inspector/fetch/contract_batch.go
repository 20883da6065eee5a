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

package fetch

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/tlscan/tlscan/rpcclient"
	"github.com/tlscan/tlscan/storage"
)

// ContractBatchResult is the accumulated non-zero-balance ContractInfo
// rows for one contract sub-batch.
type ContractBatchResult struct {
	Rows []storage.ContractInfo
}

// ContractBatch fetches the current balance of each contract in refs,
// emitting a row only for non-zero balances. The largest_tx_* triple
// is left nil; the block inspector fills it in later.
func ContractBatch(ctx context.Context, client *rpcclient.Client, refs []storage.ContractRef, maxConcurrency int) (ContractBatchResult, error) {
	var result ContractBatchResult
	if len(refs) == 0 {
		return result, nil
	}
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	sem := semaphore.NewWeighted(int64(maxConcurrency))
	rows := make([]*storage.ContractInfo, len(refs))

	for i, ref := range refs {
		i, ref := i, ref
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return nil
			}
			defer sem.Release(1)

			balance, err := client.GetBalance(gctx, ref.ContractAddress)
			if err != nil {
				return fmt.Errorf("fetch: get balance %s: %w", ref.ContractAddress, err)
			}
			if balance.Sign() == 0 {
				return nil
			}
			rows[i] = &storage.ContractInfo{
				ContractAddress: ref.ContractAddress,
				EthBalance:      weiToNative(balance),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return result, err
	}

	for _, r := range rows {
		if r != nil {
			result.Rows = append(result.Rows, *r)
		}
	}
	return result, nil
}
