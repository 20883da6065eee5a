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

// Package storage is the persistence gateway (component C4): idempotent
// bulk insert/update against a relational store, and the resume-point
// queries the inspectors need to avoid redoing committed work.
package storage

import "math/big"

// Contract is a discovered TLSC candidate. Created once, at discovery;
// immutable thereafter.
type Contract struct {
	ContractAddress string
	Bytecode        string
	FromAddress     string
	TxHash          string
	BlockNumber     uint64
}

// ContractInfo is the economic projection of a Contract: its current
// balance and the largest-value transaction observed against it. The
// LargestTx* triple is mutated monotonically upward in LargestTxValue.
type ContractInfo struct {
	ContractAddress      string
	EthBalance           *big.Float
	LargestTxHash        *string
	LargestTxBlockNumber *uint64
	LargestTxValue       *big.Float
}

// ContractInfoUpdate is a partial-column update to ContractInfo: only
// the largest_tx_* triple, applied via BulkUpdateContractInfo.
type ContractInfoUpdate struct {
	ContractAddress      string
	LargestTxHash        string
	LargestTxBlockNumber uint64
	LargestTxValue       *big.Float
}

// Block is a per-block economic summary. Created at most once per
// block number; re-runs are idempotent on insert conflict.
type Block struct {
	BlockNumber     uint64
	MinerAddress    string
	CoinbaseTransfer *big.Float
	BaseFeePerGas   *big.Float
	GasFee          *big.Float
	GasUsed         uint64
	GasLimit        uint64
	TxCount         *uint64 // supplemented: see inspector.KindBlockAttributes
}

// ContractRef is a (block_number, contract_address) pair, the shape
// ContractsInRange returns for the contract-info inspector to consume.
type ContractRef struct {
	BlockNumber     uint64
	ContractAddress string
}
