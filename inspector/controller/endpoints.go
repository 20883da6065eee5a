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
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"
)

// LoadEndpoints reads the RPC host list the controller assigns to
// workers: a CSV file with one "ip" (host/URL) per line, per spec.md
// §6. Blank lines are skipped. The result is sorted, matching "a
// sorted sequence of RPC endpoints" in spec.md §4.7's inputs.
func LoadEndpoints(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("controller: open endpoints file %s: %w", path, err)
	}
	defer f.Close()

	var out []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line == "ip" {
			continue
		}
		// Tolerate a one-column CSV with a trailing comma/whitespace.
		line = strings.TrimSuffix(line, ",")
		out = append(out, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("controller: read endpoints file %s: %w", path, err)
	}
	sort.Strings(out)
	return out, nil
}
