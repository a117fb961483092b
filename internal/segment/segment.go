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

// Package segment implements the data segment: the per-table chain of
// blocks holding row slots, row insertion with slot reuse, and the index
// maintenance that accompanies every inserted row, built against the
// cache.Cache get/put loan idiom.
package segment

import (
	"context"
	"errors"
	"fmt"

	"github.com/NKID00/aidb/internal/btree"
	"github.com/NKID00/aidb/internal/cache"
	"github.com/NKID00/aidb/internal/record"
	"github.com/NKID00/aidb/internal/schema"
	"github.com/NKID00/aidb/internal/storage"
	"github.com/NKID00/aidb/internal/types"
)

// Data-block header width: next_data_block (u64) + is_full (u8).
const headerWidth = 9

var (
	ErrColumnSpecifiedMultipleTimes = errors.New("column specified multiple times")
	ErrTooManyValues                = errors.New("too much values")
	ErrMissingValues                = errors.New("missing values")
	ErrDatatypeMismatch             = errors.New("datatype mismatch")
	ErrIndexedColumnMustBeNonNull   = errors.New("indexed column must be non-null")
)

func readHeader(b *storage.Block) (next storage.BlockIndex, isFull bool) {
	next = storage.BlockIndex(le64(b[0:8]))
	isFull = b[8] != 0
	return
}

// ReadHeaderFromBuf exposes the data-block header decode for callers
// (the scan iterator) that already hold the block on loan and must not
// issue a second GetBlock for it.
func ReadHeaderFromBuf(b *storage.Block) (next storage.BlockIndex, isFull bool) {
	return readHeader(b)
}

func writeHeader(b *storage.Block, next storage.BlockIndex, isFull bool) {
	putLE64(b[0:8], uint64(next))
	if isFull {
		b[8] = 1
	} else {
		b[8] = 0
	}
}

func le64(b []byte) uint64 {
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}

func putLE64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v)
		v >>= 8
	}
}

// resolvePermutation maps the caller's column subset (by name) onto schema
// positions. An empty subset means "all columns in declared order".
func resolvePermutation(s *schema.Schema, columns []string) ([]int, error) {
	if len(columns) == 0 {
		perm := make([]int, len(s.Columns))
		for i := range perm {
			perm[i] = i
		}
		return perm, nil
	}
	seen := make(map[string]bool, len(columns))
	perm := make([]int, 0, len(columns))
	for _, name := range columns {
		if seen[name] {
			return nil, ErrColumnSpecifiedMultipleTimes
		}
		seen[name] = true
		idx := s.ColumnIndex(name)
		if idx < 0 {
			return nil, fmt.Errorf("segment: column %q not found", name)
		}
		perm = append(perm, idx)
	}
	return perm, nil
}

// assembleRow expands a caller-supplied value list (ordered per
// permutation) into a full schema-width row, defaulting unset columns to
// Null.
func assembleRow(s *schema.Schema, permutation []int, values []types.Value) ([]types.Value, error) {
	if len(values) > len(permutation) {
		return nil, ErrTooManyValues
	}
	if len(values) < len(permutation) {
		return nil, ErrMissingValues
	}
	full := make([]types.Value, len(s.Columns))
	for i := range full {
		full[i] = types.Null
	}
	for i, colIdx := range permutation {
		full[colIdx] = values[i]
	}
	return full, nil
}

// rowSize returns the fixed on-block width of a row slot for s.
func rowSize(s *schema.Schema) int {
	return record.RowWidth(s.ColumnTypes())
}

// InsertRows inserts rows (each a value list aligned to columns, or all
// columns if columns is empty) into table s, maintaining every B+tree
// index, and returns the number of rows inserted.
func InsertRows(ctx context.Context, c *cache.Cache, reg *schema.Registry, s *schema.Schema, columns []string, rows [][]types.Value) (int, error) {
	permutation, err := resolvePermutation(s, columns)
	if err != nil {
		return 0, err
	}

	if s.DataBlock == 0 {
		block, buf := c.NewBlock()
		writeHeader(buf, 0, false)
		c.MarkBlockDirty(block)
		c.PutBlock(block, buf)
		s.DataBlock = block
		if err := reg.PutSchema(ctx, s); err != nil {
			return 0, err
		}
	}

	width := rowSize(s)
	affected := 0
	for _, values := range rows {
		full, err := assembleRow(s, permutation, values)
		if err != nil {
			return affected, err
		}

		block, offset, err := findSlot(ctx, c, s.DataBlock, width)
		if err != nil {
			return affected, err
		}

		ptr := storage.DataPointer{Block: block, Offset: offset}

		for _, idx := range s.Indices {
			key := full[idx.ColumnIndex]
			if key.IsNull() {
				return affected, ErrIndexedColumnMustBeNonNull
			}
			if key.Kind() != types.KindInteger {
				return affected, ErrDatatypeMismatch
			}
			if idx.RootBlock == 0 {
				root, err := btree.New(ctx, c, key.Integer(), ptr)
				if err != nil {
					return affected, err
				}
				idx.RootBlock = root
				for i := range s.Indices {
					if s.Indices[i].ColumnIndex == idx.ColumnIndex {
						s.Indices[i].RootBlock = root
					}
				}
				if err := reg.PutSchema(ctx, s); err != nil {
					return affected, err
				}
			} else if err := btree.Insert(ctx, c, idx.RootBlock, key.Integer(), ptr); err != nil {
				return affected, err
			}
		}

		if err := writeRowAt(ctx, c, nil, s.ColumnTypes(), full, block, offset); err != nil {
			return affected, err
		}
		affected++
	}
	return affected, nil
}

// findSlot walks the data chain from head, reusing the first empty slot
// it finds, or extending the chain (allocating a new block if needed)
// when none is available. It returns the block and byte offset at which
// the row must be written.
func findSlot(ctx context.Context, c *cache.Cache, head storage.BlockIndex, width int) (storage.BlockIndex, uint16, error) {
	block := head
	for {
		buf, err := c.GetBlock(ctx, block)
		if err != nil {
			return 0, 0, err
		}
		next, isFull := readHeader(buf)

		if !isFull {
			cursor := headerWidth
			for cursor+width <= storage.BlockSize {
				slot := buf[cursor : cursor+width]
				if record.SlotIsEmpty(slot) {
					c.PutBlock(block, buf)
					return block, uint16(cursor), nil
				}
				cursor += width
			}
			writeHeader(buf, next, true)
			c.MarkBlockDirty(block)
		}

		if next == 0 {
			newBlock, newBuf := c.NewBlock()
			writeHeader(newBuf, 0, false)
			c.MarkBlockDirty(newBlock)
			c.PutBlock(newBlock, newBuf)

			writeHeader(buf, newBlock, true)
			c.MarkBlockDirty(block)
			c.PutBlock(block, buf)

			block = newBlock
			continue
		}
		c.PutBlock(block, buf)
		block = next
	}
}

// writeRowAt encodes full into the slot at (block, offset). store is
// accepted for symmetry with record.EncodeRow/DecodeRow but is unused
// here: text spill allocation goes entirely through the cache.
func writeRowAt(ctx context.Context, c *cache.Cache, store *storage.Store, columnTypes []types.DataType, full []types.Value, block storage.BlockIndex, offset uint16) error {
	slot, err := record.EncodeRow(ctx, c, store, columnTypes, full)
	if err != nil {
		return err
	}
	buf, err := c.GetBlock(ctx, block)
	if err != nil {
		return err
	}
	copy(buf[offset:int(offset)+len(slot)], slot)
	c.MarkBlockDirty(block)
	c.PutBlock(block, buf)
	return nil
}

// ReadRowAt decodes the row at (block, offset) for the given schema.
func ReadRowAt(ctx context.Context, c *cache.Cache, s *schema.Schema, block storage.BlockIndex, offset uint16) ([]types.Value, error) {
	width := rowSize(s)
	buf, err := c.GetBlock(ctx, block)
	if err != nil {
		return nil, err
	}
	slot := append([]byte(nil), buf[offset:int(offset)+width]...)
	c.PutBlock(block, buf)
	return record.DecodeRow(ctx, c, nil, s.ColumnTypes(), slot)
}

// DataHeader exposes the data-block header fields for the scan iterator.
type DataHeader struct {
	NextDataBlock storage.BlockIndex
	IsFull        bool
}

// ReadDataHeader reads the header of a data block without consuming its
// row slots.
func ReadDataHeader(ctx context.Context, c *cache.Cache, block storage.BlockIndex) (DataHeader, error) {
	buf, err := c.GetBlock(ctx, block)
	if err != nil {
		return DataHeader{}, err
	}
	next, isFull := readHeader(buf)
	c.PutBlock(block, buf)
	return DataHeader{NextDataBlock: next, IsFull: isFull}, nil
}

// RowWidth returns the fixed on-block row slot width for s, exported for
// the scan iterator's slot-stepping logic.
func RowWidth(s *schema.Schema) int { return rowSize(s) }

// MutateAction tells MutateRows what to do with the row a callback just
// inspected.
type MutateAction int

const (
	MutateSkip MutateAction = iota
	MutateUpdate
	MutateDelete
)

// MutateRows walks s's entire data chain and invokes fn with every valid
// row it finds. fn returns MutateSkip to leave the slot untouched,
// MutateUpdate with a replacement row to re-encode it in place (same
// DataPointer), or MutateDelete to tombstone the slot so a later insert
// may reuse it. It does not touch any B+tree index: callers must reject
// mutations that would invalidate one before calling this (this engine
// has no B+tree removal, so UPDATE/DELETE FROM are restricted to
// non-indexed columns and whole-row tombstoning respectively).
func MutateRows(ctx context.Context, c *cache.Cache, s *schema.Schema, fn func(row []types.Value) (MutateAction, []types.Value, error)) (int, error) {
	width := rowSize(s)
	columnTypes := s.ColumnTypes()
	affected := 0
	block := s.DataBlock
	for block != 0 {
		buf, err := c.GetBlock(ctx, block)
		if err != nil {
			return affected, err
		}
		next, _ := readHeader(buf)
		dirty := false
		cursor := headerWidth
		for cursor+width <= storage.BlockSize {
			slot := buf[cursor : cursor+width]
			if !record.SlotIsEmpty(slot) {
				row, err := record.DecodeRow(ctx, c, nil, columnTypes, append([]byte(nil), slot...))
				if err != nil {
					c.PutBlock(block, buf)
					return affected, err
				}
				action, newRow, err := fn(row)
				if err != nil {
					c.PutBlock(block, buf)
					return affected, err
				}
				switch action {
				case MutateDelete:
					slot[0] = 0
					dirty = true
					affected++
				case MutateUpdate:
					encoded, err := record.EncodeRow(ctx, c, nil, columnTypes, newRow)
					if err != nil {
						c.PutBlock(block, buf)
						return affected, err
					}
					copy(slot, encoded)
					dirty = true
					affected++
				}
			}
			cursor += width
		}
		if dirty {
			c.MarkBlockDirty(block)
		}
		c.PutBlock(block, buf)
		block = next
	}
	return affected, nil
}

// HeaderWidth is the fixed width of a data block's header.
const HeaderWidth = headerWidth
