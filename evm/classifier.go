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
	"github.com/tlscan/tlscan/common"
	"github.com/tlscan/tlscan/params"
)

// Classifier answers whether a contract's deployed bytecode is a TLSC
// candidate, memoizing results by the raw bytecode string: factory
// clones and common ERC-20/proxy boilerplate redeploy the same init
// code across many addresses, so the cache has a real hit rate in
// practice.
type Classifier struct {
	cache *common.BoolCache
}

// NewClassifier builds a Classifier with the default cache size.
func NewClassifier() *Classifier {
	cache, err := common.NewBoolCache(params.DisassemblyCacheSize)
	if err != nil {
		// Only fails for a non-positive size, which the constant above
		// never is.
		panic(err)
	}
	return &Classifier{cache: cache}
}

// IsPotentiallyTimeLocked reports whether bytecode is over-approximated
// as a time-lock candidate: it returns true the moment disassembly
// observes TIMESTAMP or NUMBER at an instruction boundary, regardless
// of whether that opcode actually guards a branch. It deliberately
// accepts false positives and must never produce a false negative for
// opcode *presence*.
func (c *Classifier) IsPotentiallyTimeLocked(hexBytecode string) (bool, error) {
	if v, ok := c.cache.Get(hexBytecode); ok {
		return v, nil
	}
	found, _, err := ScanForTimeLock(hexBytecode)
	if err != nil {
		return false, err
	}
	c.cache.Add(hexBytecode, found)
	return found, nil
}

// IsPotentiallyTimeLocked is the uncached, package-level form, useful
// for one-off calls (tests, the analyzer CLI) that don't want to carry
// a Classifier around.
func IsPotentiallyTimeLocked(hexBytecode string) (bool, error) {
	found, _, err := ScanForTimeLock(hexBytecode)
	return found, err
}
