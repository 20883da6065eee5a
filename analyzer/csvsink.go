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
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/tlscan/tlscan/params"
)

// CSVSink appends "<address>,<bool>" rows to tlsc_<workerIndex>.csv,
// flushing every params.AnalyzerFlushBatch rows, reproducing
// original_source/analyze_contracts.py's output side-channel exactly.
type CSVSink struct {
	f       *os.File
	w       *csv.Writer
	pending int
}

// NewCSVSink opens (creating if needed, appending if present) the
// per-worker output file.
func NewCSVSink(workerIndex int) (*CSVSink, error) {
	path := fmt.Sprintf("tlsc_%d.csv", workerIndex)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("analyzer: open %s: %w", path, err)
	}
	return &CSVSink{f: f, w: csv.NewWriter(f)}, nil
}

// Write appends one row and flushes once params.AnalyzerFlushBatch
// rows have accumulated since the last flush.
func (s *CSVSink) Write(address string, isTimeLocked bool) error {
	if err := s.w.Write([]string{address, strconv.FormatBool(isTimeLocked)}); err != nil {
		return fmt.Errorf("analyzer: write row: %w", err)
	}
	s.pending++
	if s.pending >= params.AnalyzerFlushBatch {
		s.w.Flush()
		s.pending = 0
		if err := s.w.Error(); err != nil {
			return fmt.Errorf("analyzer: flush: %w", err)
		}
	}
	return nil
}

// Close flushes any buffered rows and closes the underlying file.
func (s *CSVSink) Close() error {
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		s.f.Close()
		return fmt.Errorf("analyzer: final flush: %w", err)
	}
	return s.f.Close()
}
