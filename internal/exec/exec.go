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

// Package exec implements the resumable iterator executor that drives a
// planner.Node physical plan one row at a time: each node type is a Go
// value implementing a small Next/Reset interface, in the style of
// perkeep's pkg/blobserver enumeration callbacks.
package exec

import (
	"context"

	"github.com/NKID00/aidb/internal/btree"
	"github.com/NKID00/aidb/internal/cache"
	"github.com/NKID00/aidb/internal/planner"
	"github.com/NKID00/aidb/internal/record"
	"github.com/NKID00/aidb/internal/schema"
	"github.com/NKID00/aidb/internal/segment"
	"github.com/NKID00/aidb/internal/storage"
	"github.com/NKID00/aidb/internal/types"
)

// Iterator is the contract every physical-plan node implements: pull the
// next row or report exhaustion, and rearm to the initial state.
type Iterator interface {
	Next(ctx context.Context) ([]types.Value, bool, error)
	Reset()
}

// Build lowers a physical plan Node into a ready-to-pull Iterator tree.
func Build(n planner.Node, c *cache.Cache) Iterator {
	switch {
	case n.Scan != nil:
		return &scanIter{c: c, table: n.Scan.Table, rowSize: n.Scan.RowSize, firstBlock: n.Scan.FirstBlock}
	case n.BTreeExact != nil:
		return &btreeExactIter{c: c, table: n.BTreeExact.Table, root: n.BTreeExact.Root, key: n.BTreeExact.Key}
	case n.BTreeRange != nil:
		return &btreeRangeIter{c: c, table: n.BTreeRange.Table, root: n.BTreeRange.Root, lo: toBtreeBound(n.BTreeRange.Lo), hi: toBtreeBound(n.BTreeRange.Hi)}
	case n.CartesianProduct != nil:
		children := make([]Iterator, len(n.CartesianProduct.Children))
		for i, ch := range n.CartesianProduct.Children {
			children[i] = Build(ch, c)
		}
		return &cartesianIter{children: children, rows: make([][]types.Value, len(children))}
	case n.Selection != nil:
		return &selectionIter{inner: Build(n.Selection.Inner, c), constraints: n.Selection.Constraints}
	case n.Projection != nil:
		return &projectionIter{inner: Build(n.Projection.Inner, c), items: n.Projection.Items}
	case n.Limit != nil:
		return &limitIter{inner: Build(n.Limit.Inner, c), n: n.Limit.N}
	default:
		return &emptyIter{}
	}
}

type emptyIter struct{ done bool }

func (e *emptyIter) Next(ctx context.Context) ([]types.Value, bool, error) {
	if e.done {
		return nil, false, nil
	}
	e.done = true
	return nil, false, nil
}
func (e *emptyIter) Reset() { e.done = false }

// scanIter walks a table's data chain, returning each valid row in slot
// order and skipping empty/tombstoned slots in place.
type scanIter struct {
	c          *cache.Cache
	table      *schema.Schema
	rowSize    int
	firstBlock storage.BlockIndex

	started bool
	done    bool
	block   storage.BlockIndex
	buf     *storage.Block
	cursor  int
}

func (s *scanIter) Next(ctx context.Context) ([]types.Value, bool, error) {
	if s.done {
		return nil, false, nil
	}
	if !s.started {
		s.started = true
		if s.firstBlock == 0 {
			s.done = true
			return nil, false, nil
		}
		buf, err := s.c.GetBlock(ctx, s.firstBlock)
		if err != nil {
			s.done = true
			return nil, false, err
		}
		s.block = s.firstBlock
		s.buf = buf
		s.cursor = segment.HeaderWidth
	}

	for {
		for s.cursor+s.rowSize <= storage.BlockSize {
			slot := s.buf[s.cursor : s.cursor+s.rowSize]
			s.cursor += s.rowSize
			if record.SlotIsEmpty(slot) {
				continue
			}
			row, err := record.DecodeRow(ctx, s.c, nil, s.table.ColumnTypes(), append([]byte(nil), slot...))
			if err != nil {
				s.done = true
				return nil, false, err
			}
			return row, true, nil
		}
		next, _ := segment.ReadHeaderFromBuf(s.buf)
		s.c.PutBlock(s.block, s.buf)
		s.buf = nil
		if next == 0 {
			s.done = true
			return nil, false, nil
		}
		buf, err := s.c.GetBlock(ctx, next)
		if err != nil {
			s.done = true
			return nil, false, err
		}
		s.block = next
		s.buf = buf
		s.cursor = segment.HeaderWidth
	}
}

func (s *scanIter) Reset() {
	if s.buf != nil {
		s.c.PutBlock(s.block, s.buf)
		s.buf = nil
	}
	s.started = false
	s.done = false
}

// btreeExactIter delegates to btree.Select and materializes the matched
// row, if any, by reading its referenced data block.
type btreeExactIter struct {
	c     *cache.Cache
	table *schema.Schema
	root  storage.BlockIndex
	key   int64
	state btree.ExactState
}

func (b *btreeExactIter) Next(ctx context.Context) ([]types.Value, bool, error) {
	ok, ptr, err := btree.Select(ctx, b.c, b.root, b.key, &b.state)
	if err != nil || !ok {
		return nil, false, err
	}
	row, err := segment.ReadRowAt(ctx, b.c, b.table, ptr.Block, ptr.Offset)
	if err != nil {
		return nil, false, err
	}
	return row, true, nil
}

func (b *btreeExactIter) Reset() { b.state.Reset() }

// toBtreeBound translates a planner.Bound into the btree package's own
// Bound type, which this package otherwise keeps out of planner to avoid
// coupling the plan representation to the index's traversal internals.
func toBtreeBound(b planner.Bound) btree.Bound {
	switch b.Kind {
	case planner.Included:
		return btree.Bound{Kind: btree.Included, Value: b.Value}
	case planner.Excluded:
		return btree.Bound{Kind: btree.Excluded, Value: b.Value}
	default:
		return btree.Bound{Kind: btree.Unbounded}
	}
}

// btreeRangeIter delegates to btree.SelectRange and materializes each
// matched row by reading its referenced data block.
type btreeRangeIter struct {
	c      *cache.Cache
	table  *schema.Schema
	root   storage.BlockIndex
	lo, hi btree.Bound
	state  btree.RangeState
}

func (b *btreeRangeIter) Next(ctx context.Context) ([]types.Value, bool, error) {
	ok, ptr, err := btree.SelectRange(ctx, b.c, b.root, b.lo, b.hi, &b.state)
	if err != nil || !ok {
		return nil, false, err
	}
	row, err := segment.ReadRowAt(ctx, b.c, b.table, ptr.Block, ptr.Offset)
	if err != nil {
		return nil, false, err
	}
	return row, true, nil
}

func (b *btreeRangeIter) Reset() { b.state.Reset() }

// cartesianIter combines child rows left to right. On exhaustion of
// child i, it is reset (re-primed) and the next child to its right is
// advanced, matching the odometer-style sweep in which the leftmost
// child varies fastest.
type cartesianIter struct {
	children []Iterator
	rows     [][]types.Value
	primed   bool
	done     bool
	emptied  bool
}

func concatRows(rows [][]types.Value) []types.Value {
	var out []types.Value
	for _, r := range rows {
		out = append(out, r...)
	}
	return out
}

func (p *cartesianIter) Next(ctx context.Context) ([]types.Value, bool, error) {
	if len(p.children) == 0 {
		if p.emptied {
			return nil, false, nil
		}
		p.emptied = true
		return []types.Value{}, true, nil
	}
	if p.done {
		return nil, false, nil
	}
	if !p.primed {
		for i, ch := range p.children {
			row, ok, err := ch.Next(ctx)
			if err != nil {
				return nil, false, err
			}
			if !ok {
				p.done = true
				return nil, false, nil
			}
			p.rows[i] = row
		}
		p.primed = true
		return concatRows(p.rows), true, nil
	}

	for i := 0; i < len(p.children); i++ {
		row, ok, err := p.children[i].Next(ctx)
		if err != nil {
			return nil, false, err
		}
		if ok {
			p.rows[i] = row
			return concatRows(p.rows), true, nil
		}
		p.children[i].Reset()
		row2, ok2, err := p.children[i].Next(ctx)
		if err != nil {
			return nil, false, err
		}
		if !ok2 {
			p.done = true
			return nil, false, nil
		}
		p.rows[i] = row2
	}
	p.done = true
	return nil, false, nil
}

func (p *cartesianIter) Reset() {
	for _, c := range p.children {
		c.Reset()
	}
	p.primed = false
	p.done = false
	p.emptied = false
}

// selectionIter filters rows pulled from inner by a conjunction of
// equality and "<=" constraints over the concatenated row.
type selectionIter struct {
	inner       Iterator
	constraints []planner.Constraint
}

func (s *selectionIter) matches(row []types.Value) bool {
	for _, c := range s.constraints {
		switch c.Kind {
		case planner.EqColumn:
			if !row[c.Left].Equal(row[c.Right]) {
				return false
			}
		case planner.LeConst:
			if !row[c.Left].LessEqual(c.Value) {
				return false
			}
		default: // EqConst
			if !row[c.Left].Equal(c.Value) {
				return false
			}
		}
	}
	return true
}

func (s *selectionIter) Next(ctx context.Context) ([]types.Value, bool, error) {
	for {
		row, ok, err := s.inner.Next(ctx)
		if err != nil || !ok {
			return nil, false, err
		}
		if s.matches(row) {
			return row, true, nil
		}
	}
}

func (s *selectionIter) Reset() { s.inner.Reset() }

// projectionIter pulls one inner row and emits a permutation/constant
// output row per Items.
type projectionIter struct {
	inner Iterator
	items []planner.ProjItem
}

func (p *projectionIter) Next(ctx context.Context) ([]types.Value, bool, error) {
	row, ok, err := p.inner.Next(ctx)
	if err != nil || !ok {
		return nil, false, err
	}
	out := make([]types.Value, len(p.items))
	for i, item := range p.items {
		if item.FromRow {
			out[i] = row[item.RowIndex]
		} else {
			out[i] = item.Constant
		}
	}
	return out, true, nil
}

func (p *projectionIter) Reset() { p.inner.Reset() }

// limitIter stops pulling after n rows.
type limitIter struct {
	inner   Iterator
	n       int64
	emitted int64
}

func (l *limitIter) Next(ctx context.Context) ([]types.Value, bool, error) {
	if l.emitted >= l.n {
		return nil, false, nil
	}
	row, ok, err := l.inner.Next(ctx)
	if err != nil || !ok {
		return nil, false, err
	}
	l.emitted++
	return row, true, nil
}

func (l *limitIter) Reset() {
	l.inner.Reset()
	l.emitted = 0
}
