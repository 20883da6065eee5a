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

package inspector

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tlscan/tlscan/log"
	"github.com/tlscan/tlscan/metrics"
)

type fakeInspector struct {
	kind       Kind
	subBatches []SubBatch
	runErr     error
	persisted  int32
	mu         sync.Mutex
	committed  []int
}

func (f *fakeInspector) Kind() Kind { return f.kind }
func (f *fakeInspector) ResumePoint(ctx context.Context, lower, upper uint64) (uint64, error) {
	return lower, nil
}
func (f *fakeInspector) PlanSubBatches(task TaskBatch, batchSize int) []SubBatch {
	return f.subBatches
}
func (f *fakeInspector) RunSubBatch(ctx context.Context, b SubBatch) (Outcome, error) {
	if f.runErr != nil && b.Index == 1 {
		return nil, f.runErr
	}
	return b.Index, nil
}
func (f *fakeInspector) Persist(ctx context.Context, o Outcome) error {
	atomic.AddInt32(&f.persisted, 1)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.committed = append(f.committed, o.(int))
	return nil
}

func testLogger() *log.Logger {
	return log.New("test", io.Discard, log.LevelDebug)
}

func TestRunMany_NoSubBatchesIsNoop(t *testing.T) {
	f := &fakeInspector{kind: KindTLSC}
	err := RunMany(context.Background(), f, TaskBatch{Lower: 0, Upper: 0}, 20, 1, testLogger(), metrics.NewRegistry())
	require.NoError(t, err)
	assert.Equal(t, int32(0), f.persisted)
}

func TestRunMany_AllSubBatchesCommit(t *testing.T) {
	f := &fakeInspector{kind: KindTLSC, subBatches: []SubBatch{{Index: 0}, {Index: 1}, {Index: 2}}}
	err := RunMany(context.Background(), f, TaskBatch{Lower: 0, Upper: 60}, 20, 2, testLogger(), metrics.NewRegistry())
	require.NoError(t, err)
	assert.Equal(t, int32(3), f.persisted)
	assert.ElementsMatch(t, []int{0, 1, 2}, f.committed)
}

func TestRunMany_PropagatesFirstError(t *testing.T) {
	boom := errors.New("boom")
	f := &fakeInspector{kind: KindBlock, subBatches: []SubBatch{{Index: 0}, {Index: 1}}, runErr: boom}
	err := RunMany(context.Background(), f, TaskBatch{Lower: 0, Upper: 40}, 20, 1, testLogger(), metrics.NewRegistry())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "tlsc", KindTLSC.String())
	assert.Equal(t, "block", KindBlock.String())
	assert.Equal(t, "contract", KindContract.String())
	assert.Equal(t, "block-attributes", KindBlockAttributes.String())
}
