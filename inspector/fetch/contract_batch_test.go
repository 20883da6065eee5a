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
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tlscan/tlscan/rpcclient"
	"github.com/tlscan/tlscan/storage"
)

func balanceServer(t *testing.T, balances map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     uint64            `json:"id"`
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "eth_getBalance", req.Method)

		var addr string
		require.NoError(t, json.Unmarshal(req.Params[0], &addr))

		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0", "id": req.ID, "result": balances[addr],
		}))
	}))
}

func TestContractBatch_ZeroBalanceSkipped(t *testing.T) {
	srv := balanceServer(t, map[string]string{"0xzero": "0x0"})
	defer srv.Close()

	client := rpcclient.Dial(srv.URL)
	result, err := ContractBatch(context.Background(), client, []storage.ContractRef{{ContractAddress: "0xzero"}}, 1)
	require.NoError(t, err)
	assert.Empty(t, result.Rows)
}

func TestContractBatch_NonZeroBalanceEmitsRow(t *testing.T) {
	srv := balanceServer(t, map[string]string{"0xfunded": "0xde0b6b3a7640000"}) // 1e18 wei
	defer srv.Close()

	client := rpcclient.Dial(srv.URL)
	result, err := ContractBatch(context.Background(), client, []storage.ContractRef{{ContractAddress: "0xfunded"}}, 1)
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, "0xfunded", result.Rows[0].ContractAddress)
	assert.Nil(t, result.Rows[0].LargestTxHash)
	got, _ := result.Rows[0].EthBalance.Float64()
	assert.InDelta(t, 1.0, got, 1e-9)
}

func TestContractBatch_EmptyRefsIsNoop(t *testing.T) {
	result, err := ContractBatch(context.Background(), nil, nil, 1)
	require.NoError(t, err)
	assert.Empty(t, result.Rows)
}
