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
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tlscan/tlscan/evm"
	"github.com/tlscan/tlscan/log"
	"github.com/tlscan/tlscan/rpcclient"
)

// fixture is a minimal fake JSON-RPC node serving one block with a set
// of contract-creation transactions, each mapped to a receipt and a
// bytecode string by transaction hash.
type fixture struct {
	block     map[string]interface{}
	receipts  map[string]map[string]interface{}
	codes     map[string]string
}

func (f *fixture) server(t *testing.T) *httptest.Server {
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
			result = f.block
		case "eth_getTransactionReceipt":
			var hash string
			require.NoError(t, json.Unmarshal(req.Params[0], &hash))
			result = f.receipts[hash]
		case "eth_getCode":
			var addr string
			require.NoError(t, json.Unmarshal(req.Params[0], &addr))
			result = f.codes[addr]
		default:
			t.Fatalf("unexpected method %s", req.Method)
		}

		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0", "id": req.ID, "result": result,
		}))
	}))
}

func testLogger() *log.Logger { return log.New("test", io.Discard, log.LevelDebug) }

func TestTLSCBatch_EmptyDeployment(t *testing.T) {
	f := &fixture{
		block: map[string]interface{}{
			"number": "0x64", "miner": "0xminer", "gasUsed": "0x0", "gasLimit": "0x0",
			"transactions": []interface{}{
				map[string]interface{}{"hash": "0xaaa", "from": "0xfrom", "to": nil, "value": "0x0"},
			},
		},
		receipts: map[string]map[string]interface{}{
			"0xaaa": {"contractAddress": "0xnewcontract", "from": "0xfrom"},
		},
		codes: map[string]string{"0xnewcontract": "0x"},
	}
	srv := f.server(t)
	defer srv.Close()

	client := rpcclient.Dial(srv.URL)
	classifier := evm.NewClassifier()
	result, err := TLSCBatch(context.Background(), client, classifier, testLogger(), 100, 101, 1)
	require.NoError(t, err)
	assert.Empty(t, result.Contracts, "empty deployed code must yield zero rows")
}

func TestTLSCBatch_PlainTransferContractYieldsNoRows(t *testing.T) {
	f := &fixture{
		block: map[string]interface{}{
			"number": "0x64", "miner": "0xminer", "gasUsed": "0x0", "gasLimit": "0x0",
			"transactions": []interface{}{
				map[string]interface{}{"hash": "0xaaa", "from": "0xfrom", "to": nil, "value": "0x0"},
			},
		},
		receipts: map[string]map[string]interface{}{
			"0xaaa": {"contractAddress": "0xnewcontract", "from": "0xfrom"},
		},
		codes: map[string]string{"0xnewcontract": "0x60006000f3"}, // PUSH1 0 PUSH1 0 RETURN
	}
	srv := f.server(t)
	defer srv.Close()

	client := rpcclient.Dial(srv.URL)
	classifier := evm.NewClassifier()
	result, err := TLSCBatch(context.Background(), client, classifier, testLogger(), 100, 101, 1)
	require.NoError(t, err)
	assert.Empty(t, result.Contracts)
}

func TestTLSCBatch_TimestampGatedContractYieldsOneRow(t *testing.T) {
	f := &fixture{
		block: map[string]interface{}{
			"number": "0x64", "miner": "0xminer", "gasUsed": "0x0", "gasLimit": "0x0",
			"transactions": []interface{}{
				map[string]interface{}{"hash": "0xaaa", "from": "0xfrom", "to": nil, "value": "0x0"},
			},
		},
		receipts: map[string]map[string]interface{}{
			"0xaaa": {"contractAddress": "0xnewcontract", "from": "0xfrom"},
		},
		codes: map[string]string{"0xnewcontract": "0x4260005700"}, // TIMESTAMP ...
	}
	srv := f.server(t)
	defer srv.Close()

	client := rpcclient.Dial(srv.URL)
	classifier := evm.NewClassifier()
	result, err := TLSCBatch(context.Background(), client, classifier, testLogger(), 100, 101, 1)
	require.NoError(t, err)
	require.Len(t, result.Contracts, 1)
	row := result.Contracts[0]
	assert.Equal(t, "0xnewcontract", row.ContractAddress)
	assert.Equal(t, "0xfrom", row.FromAddress)
	assert.Equal(t, "0xaaa", row.TxHash)
	assert.Equal(t, uint64(100), row.BlockNumber)
}

func TestTLSCBatch_NoCreationsSkipsFollowOnCalls(t *testing.T) {
	f := &fixture{
		block: map[string]interface{}{
			"number": "0x64", "miner": "0xminer", "gasUsed": "0x0", "gasLimit": "0x0",
			"transactions": []interface{}{
				map[string]interface{}{"hash": "0xaaa", "from": "0xfrom", "to": "0xto", "value": "0x0"},
			},
		},
	}
	srv := f.server(t)
	defer srv.Close()

	client := rpcclient.Dial(srv.URL)
	classifier := evm.NewClassifier()
	result, err := TLSCBatch(context.Background(), client, classifier, testLogger(), 100, 101, 1)
	require.NoError(t, err)
	assert.Empty(t, result.Contracts)
}

func TestTLSCBatch_EmptyRangeMakesNoCalls(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no RPC call expected for an empty range")
	}))
	defer srv.Close()

	client := rpcclient.Dial(srv.URL)
	classifier := evm.NewClassifier()
	result, err := TLSCBatch(context.Background(), client, classifier, testLogger(), 100, 100, 1)
	require.NoError(t, err)
	assert.Empty(t, result.Contracts)
}
