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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeEndpointsFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rpc_hosts.csv")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadEndpoints_SortsAndSkipsHeaderAndBlanks(t *testing.T) {
	path := writeEndpointsFile(t, "ip\n\nhttp://node-b:8545\nhttp://node-a:8545\n")
	endpoints, err := LoadEndpoints(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"http://node-a:8545", "http://node-b:8545"}, endpoints)
}

func TestLoadEndpoints_TrimsTrailingComma(t *testing.T) {
	path := writeEndpointsFile(t, "http://node:8545,\n")
	endpoints, err := LoadEndpoints(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"http://node:8545"}, endpoints)
}

func TestLoadEndpoints_MissingFileErrors(t *testing.T) {
	_, err := LoadEndpoints(filepath.Join(t.TempDir(), "does-not-exist.csv"))
	assert.Error(t, err)
}
