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
	"math/big"

	"github.com/tlscan/tlscan/params"
	"github.com/tlscan/tlscan/rpcclient"
	"github.com/tlscan/tlscan/storage"
)

// BlockBatchResult is the accumulated blocks and contract-info updates
// over one sub-range.
type BlockBatchResult struct {
	Blocks  []storage.Block
	Updates []storage.ContractInfoUpdate
}

func weiToNative(wei *big.Int) *big.Float {
	f := new(big.Float).SetInt(wei)
	return f.Quo(f, big.NewFloat(params.WeiPerEther))
}

// BlockBatch walks blocks [lower, upper), computing the per-block
// economic summary and detecting new largest-value transactions
// against the contracts in contractInfo (a snapshot the inspector
// preloads once per sub-range and that this function mutates in place
// so later blocks in the same sub-range observe the raised ceiling).
func BlockBatch(ctx context.Context, client *rpcclient.Client, contractInfo map[string]*big.Float, lower, upper uint64) (BlockBatchResult, error) {
	var result BlockBatchResult
	if upper <= lower {
		return result, nil
	}

	feeHistory, err := client.FeeHistory(ctx, upper-lower, upper-1, nil)
	if err != nil {
		return result, fmt.Errorf("fetch: fee history [%d,%d): %w", lower, upper, err)
	}

	for n := lower; n < upper; n++ {
		block, err := client.GetBlockByNumber(ctx, n, true)
		if err != nil {
			return result, fmt.Errorf("fetch: get block %d: %w", n, err)
		}

		coinbaseTransfer := big.NewFloat(0)
		var gasFeeWei = new(big.Int)

		for _, tx := range block.Transactions {
			if tx.To != nil && *tx.To == block.Miner && tx.Value.Big != nil {
				coinbaseTransfer.Add(coinbaseTransfer, weiToNative(tx.Value.Big))
			}

			touchesKnownContract(tx, contractInfo, n, &result.Updates)
		}

		idx := n - lower
		var baseFeeWei *big.Int
		if int(idx) < len(feeHistory.BaseFeePerGas) {
			baseFeeWei = feeHistory.BaseFeePerGas[idx].Big
		}
		if baseFeeWei == nil {
			baseFeeWei = big.NewInt(0)
		}
		gasFeeWei = computeGasFee(ctx, client, block, baseFeeWei)

		txCount := uint64(len(block.Transactions))
		result.Blocks = append(result.Blocks, storage.Block{
			BlockNumber:      n,
			MinerAddress:     block.Miner,
			CoinbaseTransfer: coinbaseTransfer,
			BaseFeePerGas:    weiToNative(baseFeeWei),
			GasFee:           weiToNative(gasFeeWei),
			GasUsed:          block.GasUsed.Uint64(),
			GasLimit:         block.GasLimit.Uint64(),
			TxCount:          &txCount,
		})
	}

	return result, nil
}

// touchesKnownContract checks tx against the preloaded contractInfo
// map and, on a new ceiling, both queues an update row and raises the
// map in place so later transactions in this same sub-range observe
// it — the deliberate per-batch relaxation documented in spec.md §9.
func touchesKnownContract(tx rpcclient.Transaction, contractInfo map[string]*big.Float, blockNumber uint64, updates *[]storage.ContractInfoUpdate) {
	if tx.Value.Big == nil {
		return
	}
	value := weiToNative(tx.Value.Big)

	for _, addr := range []*string{tx.To, &tx.From} {
		if addr == nil || *addr == "" {
			continue
		}
		current, known := contractInfo[*addr]
		if !known {
			continue
		}
		if current != nil && value.Cmp(current) <= 0 {
			continue
		}
		contractInfo[*addr] = value
		*updates = append(*updates, storage.ContractInfoUpdate{
			ContractAddress:      *addr,
			LargestTxHash:        tx.Hash,
			LargestTxBlockNumber: blockNumber,
			LargestTxValue:       value,
		})
	}
}

// computeGasFee sums effectiveGasPrice*gasUsed across the block's
// transactions and subtracts baseFeePerGas*gasUsed, the priority-fee
// share under EIP-1559, per the most complete original draft.
func computeGasFee(ctx context.Context, client *rpcclient.Client, block *rpcclient.Block, baseFeeWei *big.Int) *big.Int {
	total := new(big.Int)
	for _, tx := range block.Transactions {
		receipt, err := client.GetTransactionReceipt(ctx, tx.Hash)
		if err != nil || receipt.EffectiveGasPrice.Big == nil || receipt.GasUsed.Big == nil {
			continue
		}
		txFee := new(big.Int).Mul(receipt.EffectiveGasPrice.Big, receipt.GasUsed.Big)
		baseShare := new(big.Int).Mul(baseFeeWei, receipt.GasUsed.Big)
		txFee.Sub(txFee, baseShare)
		total.Add(total, txFee)
	}
	return total
}
