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

package controller

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tlscan/tlscan/inspector"
)

func TestPartitionRange_CoversWholeRangeDisjointly(t *testing.T) {
	parts := partitionRange(100, 200, 4)
	require.Len(t, parts, 4)
	assert.Equal(t, uint64(100), parts[0][0])
	assert.Equal(t, uint64(200), parts[len(parts)-1][1])
	for i := 1; i < len(parts); i++ {
		assert.Equal(t, parts[i-1][1], parts[i][0], "sub-ranges must be contiguous and disjoint")
	}
}

func TestPartitionRange_FewerBlocksThanWorkersDropsEmptyShares(t *testing.T) {
	parts := partitionRange(100, 103, 10)
	assert.LessOrEqual(t, len(parts), 3)
	total := uint64(0)
	for _, p := range parts {
		total += p[1] - p[0]
	}
	assert.Equal(t, uint64(3), total)
}

func TestPartitionRange_EmptyRangeYieldsNoPartitions(t *testing.T) {
	assert.Empty(t, partitionRange(100, 100, 4))
}

func TestPartitionContiguous_SplitsEvenly(t *testing.T) {
	items := []string{"a", "b", "c", "d", "e", "f"}
	slices := PartitionContiguous(items, 3)
	require.Len(t, slices, 3)
	assert.Equal(t, []string{"a", "b"}, slices[0])
	assert.Equal(t, []string{"c", "d"}, slices[1])
	assert.Equal(t, []string{"e", "f"}, slices[2])
}

func TestPartitionContiguous_RemainderGoesToEarlySlices(t *testing.T) {
	items := []string{"a", "b", "c", "d", "e"}
	slices := PartitionContiguous(items, 2)
	require.Len(t, slices, 2)
	assert.Len(t, slices[0], 3)
	assert.Len(t, slices[1], 2)
}

func TestWorkerArgs_BlockRangeKindEncodesAfterBefore(t *testing.T) {
	plan := WorkerPlan{Index: 2, Endpoint: "http://node:8545", Kind: inspector.KindTLSC, Lower: 10, Upper: 20}
	args := WorkerArgs(plan, Config{DBDSN: "dsn", BatchSize: 20, MaxConcurrency: 1, LogDir: "/logs"})
	assert.Contains(t, args, "--after")
	assert.Contains(t, args, "10")
	assert.Contains(t, args, "--before")
	assert.Contains(t, args, "20")
	assert.NotContains(t, args, "--contracts")
}

func TestWorkerArgs_ContractKindEncodesAddressList(t *testing.T) {
	plan := WorkerPlan{Index: 0, Endpoint: "http://node:8545", Kind: inspector.KindContract, ContractAddrs: []string{"0xa", "0xb"}}
	args := WorkerArgs(plan, Config{DBDSN: "dsn", BatchSize: 50, MaxConcurrency: 1, LogDir: "/logs"})
	assert.Contains(t, args, "--contracts")
	assert.Contains(t, args, "0xa,0xb")
	assert.NotContains(t, args, "--after")
}
