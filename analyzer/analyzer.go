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

// Package analyzer wires the seam a full symbolic-execution classifier
// would occupy. spec.md §9 ("Unfinished paths") is explicit that the
// repository this was distilled from only ever got as far as stub
// drafts of that engine; tlscan does not attempt to build one. What it
// does provide is the invocation surface (cmd/tlscan-analyze) and the
// CSV side-channel output the original's analyzer script produced, so
// a real symbolic engine can be dropped in behind DeepClassify without
// touching the CLI or output format.
package analyzer

import (
	"github.com/tlscan/tlscan/evm"
)

// DeepClassify is the seam: today it simply defers to the
// presence-based classifier (component C2), exactly as the over-
// approximating fast gate the rest of tlscan relies on. A real
// implementation would trace whether the time opcode's value actually
// flows into a JUMPI condition rather than merely appearing in the
// bytecode.
func DeepClassify(hexBytecode string) (bool, error) {
	return evm.IsPotentiallyTimeLocked(hexBytecode)
}
