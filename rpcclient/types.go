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

package rpcclient

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// Quantity is a JSON-RPC "quantity" value: a 0x-prefixed variable
// length hex integer, possibly null.
type Quantity struct {
	Big *big.Int
}

func (q *Quantity) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == nil {
		q.Big = nil
		return nil
	}
	n, ok := new(big.Int).SetString(strings.TrimPrefix(*s, "0x"), 16)
	if !ok {
		return fmt.Errorf("rpcclient: invalid quantity %q", *s)
	}
	q.Big = n
	return nil
}

func (q Quantity) Uint64() uint64 {
	if q.Big == nil {
		return 0
	}
	return q.Big.Uint64()
}

// Transaction is the subset of a JSON-RPC transaction object tlscan
// needs.
type Transaction struct {
	Hash  string    `json:"hash"`
	From  string    `json:"from"`
	To    *string   `json:"to"`
	Value Quantity  `json:"value"`
}

// Block is the subset of a JSON-RPC block object tlscan needs, from an
// eth_getBlockByNumber call with full transaction objects.
type Block struct {
	Number       Quantity      `json:"number"`
	Miner        string        `json:"miner"`
	GasUsed      Quantity      `json:"gasUsed"`
	GasLimit     Quantity      `json:"gasLimit"`
	Transactions []Transaction `json:"transactions"`
}

// Receipt is the subset of a JSON-RPC transaction receipt tlscan needs.
type Receipt struct {
	ContractAddress  *string  `json:"contractAddress"`
	To               *string  `json:"to"`
	From             string   `json:"from"`
	GasUsed          Quantity `json:"gasUsed"`
	EffectiveGasPrice Quantity `json:"effectiveGasPrice"`
}

// FeeHistory is the result of eth_feeHistory.
type FeeHistory struct {
	BaseFeePerGas []Quantity `json:"baseFeePerGas"`
	OldestBlock   Quantity   `json:"oldestBlock"`
}

// hexUint64 renders n as a 0x-prefixed hex quantity, the wire encoding
// JSON-RPC expects for numeric parameters.
func hexUint64(n uint64) string {
	return "0x" + strconv.FormatUint(n, 16)
}
