/*
Copyright 2026 The Aidb Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

     http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package btree

import (
	"context"
	"math"

	"github.com/NKID00/aidb/internal/cache"
	"github.com/NKID00/aidb/internal/storage"
)

// ExactStage is the point-lookup resumable state machine's current stage.
type ExactStage int

const (
	ExactInitialized ExactStage = iota
	ExactDone
)

// ExactState drives a point lookup: Initialized performs the lookup and
// moves to Done; Done always yields nothing further.
type ExactState struct {
	Stage ExactStage
}

// Reset rearms the state machine to Initialized.
func (s *ExactState) Reset() { s.Stage = ExactInitialized }

// Select performs a point lookup for key under root. A zero root (no
// index) always misses. Subsequent calls with the same state after the
// first successful call return (false, nil), modeling a single-shot
// resumable iterator.
func Select(ctx context.Context, c *cache.Cache, root storage.BlockIndex, key int64, state *ExactState) (bool, storage.DataPointer, error) {
	if root == 0 {
		return false, storage.DataPointer{}, nil
	}
	if state.Stage == ExactDone {
		return false, storage.DataPointer{}, nil
	}
	leafI, err := seekLeaf(ctx, c, root, key)
	if err != nil {
		return false, storage.DataPointer{}, err
	}
	l, err := readLeaf(ctx, c, leafI)
	if err != nil {
		return false, storage.DataPointer{}, err
	}
	state.Stage = ExactDone
	for _, rec := range l.Records {
		if rec.Key == key {
			return true, rec.Ptr, nil
		}
	}
	return false, storage.DataPointer{}, nil
}

// BoundKind distinguishes an open, closed or unbounded endpoint of a range.
type BoundKind int

const (
	Unbounded BoundKind = iota
	Included
	Excluded
)

// Bound is one endpoint of a key range.
type Bound struct {
	Kind  BoundKind
	Value int64
}

// effectiveBounds translates (lo, hi) into an inclusive [left, right]
// interval, saturating at the i64 extremes and reporting ok=false for an
// empty or impossible interval (e.g. Excluded(MaxInt64) as a lower bound).
//
// The upper bound is derived from hi, not lo: a transcription of the
// original implementation read range.0 twice here, silently collapsing
// every range scan's upper bound onto the lower bound's.
func effectiveBounds(lo, hi Bound) (left, right int64, ok bool) {
	switch lo.Kind {
	case Included:
		left = lo.Value
	case Excluded:
		if lo.Value == math.MaxInt64 {
			return 0, 0, false
		}
		left = lo.Value + 1
	default:
		left = math.MinInt64
	}
	switch hi.Kind {
	case Included:
		right = hi.Value
	case Excluded:
		if hi.Value == math.MinInt64 {
			return 0, 0, false
		}
		right = hi.Value - 1
	default:
		right = math.MaxInt64
	}
	return left, right, left <= right
}

// RangeStage is the range-scan resumable state machine's current stage.
type RangeStage int

const (
	RangeInitialized RangeStage = iota
	RangeRunning
	RangeExhausted
)

// RangeState drives a range scan across linked leaves.
type RangeState struct {
	Stage   RangeStage
	Next    storage.BlockIndex
	Pending []leafRecord
	cursor  int
}

// Reset rearms the state machine to Initialized.
func (s *RangeState) Reset() {
	*s = RangeState{}
}

// SelectRange advances a range scan one step, returning the next matching
// record, or ok=false once the scan is exhausted.
func SelectRange(ctx context.Context, c *cache.Cache, root storage.BlockIndex, lo, hi Bound, state *RangeState) (bool, storage.DataPointer, error) {
	if root == 0 {
		state.Stage = RangeExhausted
		return false, storage.DataPointer{}, nil
	}
	left, right, ok := effectiveBounds(lo, hi)
	if !ok {
		state.Stage = RangeExhausted
		return false, storage.DataPointer{}, nil
	}

	if state.Stage == RangeInitialized {
		leafI, err := seekLeaf(ctx, c, root, left)
		if err != nil {
			return false, storage.DataPointer{}, err
		}
		l, err := readLeaf(ctx, c, leafI)
		if err != nil {
			return false, storage.DataPointer{}, err
		}
		state.Stage = RangeRunning
		state.Next = l.Next
		state.Pending = l.Records
		state.cursor = 0
	}

	if state.Stage == RangeExhausted {
		return false, storage.DataPointer{}, nil
	}

	for {
		for state.cursor < len(state.Pending) {
			rec := state.Pending[state.cursor]
			state.cursor++
			if rec.Key < left {
				continue
			}
			if rec.Key > right {
				state.Stage = RangeExhausted
				return false, storage.DataPointer{}, nil
			}
			return true, rec.Ptr, nil
		}
		if state.Next == 0 {
			state.Stage = RangeExhausted
			return false, storage.DataPointer{}, nil
		}
		l, err := readLeaf(ctx, c, state.Next)
		if err != nil {
			return false, storage.DataPointer{}, err
		}
		state.Next = l.Next
		state.Pending = l.Records
		state.cursor = 0
	}
}
