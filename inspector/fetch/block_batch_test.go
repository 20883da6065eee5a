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
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tlscan/tlscan/rpcclient"
)

func ethHex(v float64) string {
	wei := new(big.Float).Mul(big.NewFloat(v), big.NewFloat(1e18))
	i, _ := wei.Int(nil)
	return "0x" + i.Text(16)
}

func txnReceiptServer(t *testing.T, block map[string]interface{}) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     uint64            `json:"id"`
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		var result interface{}
		switch req.Method {
		case "eth_getBlockByNumber":
			result = block
		case "eth_getTransactionReceipt":
			result = map[string]interface{}{"effectiveGasPrice": "0x0", "gasUsed": "0x5208"}
		case "eth_feeHistory":
			result = map[string]interface{}{
				"baseFeePerGas": []interface{}{"0x0"},
				"oldestBlock":   "0x64",
			}
		default:
			t.Fatalf("unexpected method %s", req.Method)
		}

		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0", "id": req.ID, "result": result,
		}))
	}))
}

func TestBlockBatch_LargestTxMonotonicity(t *testing.T) {
	block := map[string]interface{}{
		"number": "0x64", "miner": "0xminer", "gasUsed": "0x5208", "gasLimit": "0x1c9c380",
		"transactions": []interface{}{
			map[string]interface{}{"hash": "0x1", "from": "0xsender", "to": "0xc", "value": ethHex(1.0)},
			map[string]interface{}{"hash": "0x2", "from": "0xsender", "to": "0xc", "value": ethHex(5.0)},
			map[string]interface{}{"hash": "0x3", "from": "0xsender", "to": "0xc", "value": ethHex(2.0)},
			map[string]interface{}{"hash": "0x4", "from": "0xsender", "to": "0xc", "value": ethHex(5.0)},
			map[string]interface{}{"hash": "0x5", "from": "0xsender", "to": "0xc", "value": ethHex(7.0)},
		},
	}
	srv := txnReceiptServer(t, block)
	defer srv.Close()

	client := rpcclient.Dial(srv.URL)
	contractInfo := map[string]*big.Float{"0xc": big.NewFloat(0)}

	result, err := BlockBatch(context.Background(), client, contractInfo, 100, 101)
	require.NoError(t, err)

	require.Len(t, result.Updates, 3, "only strictly-increasing values raise the ceiling")
	last := result.Updates[len(result.Updates)-1]
	assert.Equal(t, "0x5", last.LargestTxHash)
	got, _ := last.LargestTxValue.Float64()
	assert.InDelta(t, 7.0, got, 1e-9)

	finalValue, _ := contractInfo["0xc"].Float64()
	assert.InDelta(t, 7.0, finalValue, 1e-9)
}

func TestBlockBatch_CoinbaseTransferSumsMinerPayments(t *testing.T) {
	block := map[string]interface{}{
		"number": "0x64", "miner": "0xminer", "gasUsed": "0x5208", "gasLimit": "0x1c9c380",
		"transactions": []interface{}{
			map[string]interface{}{"hash": "0x1", "from": "0xsender", "to": "0xminer", "value": ethHex(2.0)},
			map[string]interface{}{"hash": "0x2", "from": "0xsender", "to": "0xother", "value": ethHex(9.0)},
		},
	}
	srv := txnReceiptServer(t, block)
	defer srv.Close()

	client := rpcclient.Dial(srv.URL)
	result, err := BlockBatch(context.Background(), client, map[string]*big.Float{}, 100, 101)
	require.NoError(t, err)
	require.Len(t, result.Blocks, 1)
	got, _ := result.Blocks[0].CoinbaseTransfer.Float64()
	assert.InDelta(t, 2.0, got, 1e-9)
}

func TestBlockBatch_EmptyRangeIsNoop(t *testing.T) {
	result, err := BlockBatch(context.Background(), nil, nil, 100, 100)
	require.NoError(t, err)
	assert.Empty(t, result.Blocks)
}
