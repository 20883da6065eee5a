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

// Package evm implements the partial EVM disassembler and the
// time-lock presence classifier built on top of it (components C1/C2).
// It deliberately stops short of a full decompiler or symbolic
// executor: it only needs to answer "does this bytecode ever reach a
// TIMESTAMP or NUMBER opcode at an instruction boundary".
package evm

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/tlscan/tlscan/params"
)

// ErrMalformedBytecode is returned when the input is not valid hex.
var ErrMalformedBytecode = errors.New("evm: malformed bytecode")

// Instruction is one decoded step of a linear disassembly.
type Instruction struct {
	Address  int
	Opcode   string
	Argument []byte // PUSHn immediate, nil for non-PUSH opcodes
}

func (i Instruction) String() string {
	if i.Argument == nil {
		return i.Opcode
	}
	return fmt.Sprintf("%s 0x%x", i.Opcode, i.Argument)
}

// DecodeHex decodes a bytecode string that is optionally 0x-prefixed.
func DecodeHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(s, "0x")
	s = strings.TrimPrefix(s, "0X")
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBytecode, err)
	}
	return b, nil
}

// effectiveLength trims the trailing Solidity metadata blob when
// present: if the last params.MetadataTrimLength bytes contain the
// legacy "bzzr" marker, those bytes are excluded from decoding. The
// trim is best-effort — absence of the marker decodes the whole
// buffer, and a buffer shorter than the trim window is left alone.
func effectiveLength(code []byte) int {
	if len(code) < params.MetadataTrimLength {
		return len(code)
	}
	tail := code[len(code)-params.MetadataTrimLength:]
	if strings.Contains(string(tail), params.MetadataMarker) {
		return len(code) - params.MetadataTrimLength
	}
	return len(code)
}

// Disassemble linearly decodes code, skipping PUSHn immediates and the
// trailing metadata blob. It never short-circuits: callers wanting the
// early time-lock exit should use ScanForTimeLock instead.
func Disassemble(hexBytecode string) ([]Instruction, error) {
	code, err := DecodeHex(hexBytecode)
	if err != nil {
		return nil, err
	}
	return disassemble(code, false)
}

// ScanForTimeLock walks code exactly like Disassemble but returns as
// soon as it decodes TIMESTAMP or NUMBER at an instruction boundary,
// reporting found=true without completing the walk. If neither opcode
// is ever reached, it returns the full instruction list and found=false.
func ScanForTimeLock(hexBytecode string) (found bool, insts []Instruction, err error) {
	code, err := DecodeHex(hexBytecode)
	if err != nil {
		return false, nil, err
	}
	insts, err = disassemble(code, true)
	if err != nil {
		return false, nil, err
	}
	return insts == nil, insts, nil
}

// disassemble is the shared walk. When shortCircuit is true it returns
// (nil, nil) the instant a time-lock opcode is decoded. ScanForTimeLock
// uses the nil-vs-non-nil slice itself as the sentinel, since an empty
// bytecode yields an empty but non-nil slice; see disassemble's
// allocation below.
func disassemble(code []byte, shortCircuit bool) ([]Instruction, error) {
	length := effectiveLength(code)
	insts := make([]Instruction, 0, length)

	for addr := 0; addr < length; {
		b := code[addr]
		op := OpCodes[b]

		if shortCircuit && TimeLockOpcodes[op] {
			return nil, nil
		}

		if op == Invalid {
			insts = append(insts, Instruction{Address: addr, Opcode: Invalid})
			addr++
			continue
		}

		n, isPush := PushImmediateSize[op]
		if !isPush {
			insts = append(insts, Instruction{Address: addr, Opcode: op})
			addr++
			continue
		}

		end := addr + 1 + n
		if end > length {
			end = length
		}
		arg := append([]byte(nil), code[addr+1:end]...)
		insts = append(insts, Instruction{Address: addr, Opcode: op, Argument: arg})
		addr += 1 + n
	}

	return insts, nil
}
