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

package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeepClassify_NoTimeOpcode(t *testing.T) {
	got, err := DeepClassify("0x60006000f3")
	require.NoError(t, err)
	assert.False(t, got)
}

func TestDeepClassify_TimestampGated(t *testing.T) {
	got, err := DeepClassify("0x4260005700")
	require.NoError(t, err)
	assert.True(t, got)
}

func TestDeepClassify_MalformedBytecodeErrors(t *testing.T) {
	_, err := DeepClassify("0xzz")
	assert.Error(t, err)
}
