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

// Package params collects the tunable constants used across tlscan's
// packages, in one place, the way a geth-family node keeps its
// protocol/gas constants under params/.
package params

import "time"

const (
	// BlockBatchSize is the default number of blocks per sub-batch
	// for the TLSC and block-economics inspectors.
	BlockBatchSize = 20

	// ContractBatchSize is the default number of contracts per
	// sub-batch for the contract-info inspector.
	ContractBatchSize = 50

	// DefaultMaxConcurrency bounds the number of sub-batches a single
	// inspector dispatches at once.
	DefaultMaxConcurrency = 1

	// BatchRequestTimeout is the default per-call RPC timeout used by
	// the inspectors' batch fetchers.
	BatchRequestTimeout = 500 * time.Second

	// LivenessProbeTimeout is the per-call timeout the out-of-scope
	// host-latency ranker would use; tlscan only exposes the option.
	LivenessProbeTimeout = 2 * time.Second

	// MaxRPCRetries caps the exponential-backoff retry count in the
	// RPC client's retry middleware.
	MaxRPCRetries = 5

	// DisassemblyCacheSize bounds the LRU cache memoizing time-lock
	// classification by bytecode, mirroring the Python original's
	// lru_cache(maxsize=2**10).
	DisassemblyCacheSize = 1 << 10

	// MetadataTrimLength is the number of trailing bytes checked for
	// the legacy Swarm metadata marker ("bzzr") before disassembly.
	MetadataTrimLength = 43

	// MetadataMarker is the ASCII substring identifying the legacy
	// Swarm metadata blob appended by the Solidity compiler.
	MetadataMarker = "bzzr"

	// AnalyzerFlushBatch is how often the out-of-scope deep-classifier
	// CLI flushes its CSV side-channel output.
	AnalyzerFlushBatch = 2

	// WeiPerEther is the scale factor between wei and native-token
	// units, used when persisting monetary fields.
	WeiPerEther = 1e18
)
