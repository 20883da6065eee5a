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

package evm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisassemble_EmptyBytecode(t *testing.T) {
	insts, err := Disassemble("0x")
	require.NoError(t, err)
	assert.Empty(t, insts)
}

func TestDisassemble_MalformedHex(t *testing.T) {
	_, err := Disassemble("0xzz")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedBytecode)
}

func TestDisassemble_PlainTransfer(t *testing.T) {
	// PUSH1 0x00 PUSH1 0x00 RETURN - no time opcode anywhere.
	insts, err := Disassemble("0x60006000f3")
	require.NoError(t, err)
	require.Len(t, insts, 3)
	assert.Equal(t, "PUSH1", insts[0].Opcode)
	assert.Equal(t, "PUSH1", insts[1].Opcode)
	assert.Equal(t, "RETURN", insts[2].Opcode)
}

func TestDisassemble_PushImmediateNotDecodedAsOpcode(t *testing.T) {
	// PUSH1 0x60, then 0x42 (TIMESTAMP's byte) decoded as the *next*
	// opcode, not as part of the immediate.
	insts, err := Disassemble("0x606042")
	require.NoError(t, err)
	require.Len(t, insts, 2)
	assert.Equal(t, "PUSH1", insts[0].Opcode)
	assert.Equal(t, []byte{0x60}, insts[0].Argument)
	assert.Equal(t, 0, insts[0].Address)
	assert.Equal(t, "TIMESTAMP", insts[1].Opcode)
	assert.Equal(t, 2, insts[1].Address)
}

func TestDisassemble_TruncatedPushImmediate(t *testing.T) {
	// PUSH2 with only one immediate byte available.
	insts, err := Disassemble("0x6160")
	require.NoError(t, err)
	require.Len(t, insts, 1)
	assert.Equal(t, "PUSH2", insts[0].Opcode)
	assert.Equal(t, []byte{0x60}, insts[0].Argument)
}

func TestDisassemble_MonotonicAddresses(t *testing.T) {
	insts, err := Disassemble("0x60016002600360ff5b00")
	require.NoError(t, err)
	for i := 1; i < len(insts); i++ {
		assert.Greater(t, insts[i].Address, insts[i-1].Address)
	}
}

func TestDisassemble_InvalidByteAdvancesOne(t *testing.T) {
	// 0x0c/0x0d/0x0e/0x0f are unassigned.
	insts, err := Disassemble("0x0c0d")
	require.NoError(t, err)
	require.Len(t, insts, 2)
	assert.Equal(t, Invalid, insts[0].Opcode)
	assert.Equal(t, 0, insts[0].Address)
	assert.Equal(t, Invalid, insts[1].Opcode)
	assert.Equal(t, 1, insts[1].Address)
}

func TestDisassemble_MetadataTrim(t *testing.T) {
	// A TIMESTAMP that only appears inside the trailing bzzr metadata
	// blob must not surface as a decoded instruction once trimmed.
	body := "6000" // PUSH1 0x00
	meta := strings.Repeat("00", 19) + "42" /* TIMESTAMP */ + "627a7a7231" /* "bzzr1" ascii */ + strings.Repeat("00", 15)
	// body (2 bytes) + meta must total at least 43 trailing bytes for
	// the trim window; pad meta to exactly 43 bytes.
	metaBytes := len(meta) / 2
	if metaBytes < 43 {
		meta = meta + strings.Repeat("00", 43-metaBytes)
	}
	insts, err := Disassemble("0x" + body + meta)
	require.NoError(t, err)
	for _, ins := range insts {
		assert.NotEqual(t, "TIMESTAMP", ins.Opcode)
	}
}

func TestDisassemble_ShortBufferMetadataTrimIsNoop(t *testing.T) {
	// Bytecode shorter than the 43-byte trim window: nothing is
	// trimmed even if it happens to contain "bzzr".
	insts, err := Disassemble("0x" + "627a7a72") // "bzzr" ascii, 4 bytes
	require.NoError(t, err)
	assert.NotEmpty(t, insts)
}

func TestScanForTimeLock_ShortCircuitsOnTimestamp(t *testing.T) {
	// PUSH1 0x00, TIMESTAMP, then more code that would otherwise decode.
	found, insts, err := ScanForTimeLock("0x6000" + "42" + "600160026003")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Nil(t, insts)
}

func TestScanForTimeLock_ShortCircuitsOnNumber(t *testing.T) {
	found, _, err := ScanForTimeLock("0x6000" + "43")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestScanForTimeLock_NumberInPushImmediateDoesNotTrigger(t *testing.T) {
	// PUSH1 0x43 - the NUMBER opcode's byte value, but here it is an
	// immediate, not an opcode.
	found, insts, err := ScanForTimeLock("0x6043")
	require.NoError(t, err)
	assert.False(t, found)
	require.Len(t, insts, 1)
	assert.Equal(t, "PUSH1", insts[0].Opcode)
}

func TestScanForTimeLock_NoTimeLockReturnsFullList(t *testing.T) {
	found, insts, err := ScanForTimeLock("0x60006000f3")
	require.NoError(t, err)
	assert.False(t, found)
	require.Len(t, insts, 3)
	assert.Equal(t, "RETURN", insts[2].Opcode)
}

func TestScanForTimeLock_EmptyBytecode(t *testing.T) {
	found, insts, err := ScanForTimeLock("0x")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, insts)
}

func TestRoundTrip_DecodeHex(t *testing.T) {
	cases := []string{"0x60006000f3", "606042", "0X6043"}
	for _, c := range cases {
		b, err := DecodeHex(c)
		require.NoError(t, err)
		assert.Equal(t, strings.ToLower(strings.TrimPrefix(strings.TrimPrefix(c, "0x"), "0X")), hexEncode(b))
	}
}

func hexEncode(b []byte) string {
	const hexdigits = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, v := range b {
		out[i*2] = hexdigits[v>>4]
		out[i*2+1] = hexdigits[v&0x0f]
	}
	return string(out)
}
