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

// Package schema implements the schema chain: one block per table,
// singly linked from the superblock, carrying column definitions and
// index metadata. The chained-enumeration style follows perkeep's
// pkg/blobserver chained-index idiom, adapted here to a single linked
// chain of fixed schema records instead of a sorted index.
package schema

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/NKID00/aidb/internal/cache"
	"github.com/NKID00/aidb/internal/storage"
	"github.com/NKID00/aidb/internal/types"
)

// IndexKind enumerates the supported index implementations. BTree is the
// only kind this core implements.
type IndexKind uint8

const BTree IndexKind = 1

// IndexInfo describes one column's secondary index.
type IndexInfo struct {
	ColumnIndex int
	Kind        IndexKind
	RootBlock   storage.BlockIndex
}

// Column is one column's name and declared type.
type Column struct {
	Name string
	Type types.DataType
}

// Schema is one table's definition: its columns, its indices, and the
// head of its data chain. BlockIndex is derived at load time, not
// serialized as part of the on-block record itself (it is implied by
// where the chain walk found it).
type Schema struct {
	BlockIndex      storage.BlockIndex
	NextSchemaBlock storage.BlockIndex
	Name            string
	Columns         []Column
	Indices         []IndexInfo
	DataBlock       storage.BlockIndex
}

// ColumnTypes returns the declared type of every column, in on-disk order.
func (s *Schema) ColumnTypes() []types.DataType {
	out := make([]types.DataType, len(s.Columns))
	for i, c := range s.Columns {
		out[i] = c.Type
	}
	return out
}

// ColumnIndex returns the position of the named column, or -1.
func (s *Schema) ColumnIndex(name string) int {
	for i, c := range s.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// ErrTableExists is returned by CreateTable when the name is already in
// the chain.
var ErrTableExists = errors.New("Table exists")

// ErrTableNotFound is returned by GetSchema/DropTable for an unknown name.
var ErrTableNotFound = errors.New("table not found")

// ErrIndexOnNonInteger is returned when a non-integer column is flagged
// for indexing.
var ErrIndexOnNonInteger = errors.New("index is implemented on integer column only")

// Registry walks and mutates the schema chain through the block cache.
type Registry struct {
	cache *cache.Cache
}

// NewRegistry returns a registry bound to cache c.
func NewRegistry(c *cache.Cache) *Registry {
	return &Registry{cache: c}
}

// walk invokes fn for every schema in chain order, stopping early if fn
// returns true.
func (r *Registry) walk(ctx context.Context, fn func(s *Schema) bool) error {
	block := r.cache.Superblock().FirstSchemaBlock
	for block != 0 {
		s, err := r.load(ctx, block)
		if err != nil {
			return err
		}
		if fn(s) {
			return nil
		}
		block = s.NextSchemaBlock
	}
	return nil
}

// GetSchema returns the named table's schema, or ErrTableNotFound.
func (r *Registry) GetSchema(ctx context.Context, name string) (*Schema, error) {
	var found *Schema
	err := r.walk(ctx, func(s *Schema) bool {
		if s.Name == name {
			found = s
			return true
		}
		return false
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, fmt.Errorf("schema: %q: %w", name, ErrTableNotFound)
	}
	return found, nil
}

// ListTables returns every table name in chain order.
func (r *Registry) ListTables(ctx context.Context) ([]string, error) {
	var names []string
	err := r.walk(ctx, func(s *Schema) bool {
		names = append(names, s.Name)
		return false
	})
	return names, err
}

// CreateTable appends a new schema to the tail of the chain.
func (r *Registry) CreateTable(ctx context.Context, name string, columns []Column, indexedColumns []int) (*Schema, error) {
	exists, err := r.GetSchema(ctx, name)
	if err == nil && exists != nil {
		return nil, fmt.Errorf("schema: %q: %w", name, ErrTableExists)
	}
	if err != nil && !errors.Is(err, ErrTableNotFound) {
		return nil, err
	}

	var indices []IndexInfo
	for _, ci := range indexedColumns {
		if ci < 0 || ci >= len(columns) {
			return nil, fmt.Errorf("schema: index column %d out of range", ci)
		}
		if columns[ci].Type != types.Integer {
			return nil, ErrIndexOnNonInteger
		}
		indices = append(indices, IndexInfo{ColumnIndex: ci, Kind: BTree, RootBlock: 0})
	}

	s := &Schema{
		Name:    name,
		Columns: append([]Column(nil), columns...),
		Indices: indices,
	}

	block, buf := r.cache.NewBlock()
	s.BlockIndex = block
	if err := r.put(ctx, s, buf); err != nil {
		return nil, err
	}

	if err := r.linkTail(ctx, s.BlockIndex); err != nil {
		return nil, err
	}
	return s, nil
}

// linkTail appends block to the end of the schema chain (or sets it as
// the head if the chain was empty).
func (r *Registry) linkTail(ctx context.Context, block storage.BlockIndex) error {
	sb := r.cache.Superblock()
	if sb.FirstSchemaBlock == 0 {
		sb.FirstSchemaBlock = block
		r.cache.MarkSuperblockDirty()
		return nil
	}
	cur := sb.FirstSchemaBlock
	for {
		s, err := r.load(ctx, cur)
		if err != nil {
			return err
		}
		if s.NextSchemaBlock == 0 {
			s.NextSchemaBlock = block
			buf, err := r.cache.GetBlock(ctx, cur)
			if err != nil {
				return err
			}
			if err := r.put(ctx, s, buf); err != nil {
				return err
			}
			return nil
		}
		cur = s.NextSchemaBlock
	}
}

// PutSchema persists changes to an already-loaded schema back to its
// recorded block.
func (r *Registry) PutSchema(ctx context.Context, s *Schema) error {
	buf, err := r.cache.GetBlock(ctx, s.BlockIndex)
	if err != nil {
		return err
	}
	return r.put(ctx, s, buf)
}

// DropTable splices name out of the chain. The vacated block is not
// reclaimed.
func (r *Registry) DropTable(ctx context.Context, name string) error {
	sb := r.cache.Superblock()
	if sb.FirstSchemaBlock == 0 {
		return fmt.Errorf("schema: %q: %w", name, ErrTableNotFound)
	}
	first, err := r.load(ctx, sb.FirstSchemaBlock)
	if err != nil {
		return err
	}
	if first.Name == name {
		sb.FirstSchemaBlock = first.NextSchemaBlock
		r.cache.MarkSuperblockDirty()
		return nil
	}
	prev := first
	cur := first.NextSchemaBlock
	for cur != 0 {
		s, err := r.load(ctx, cur)
		if err != nil {
			return err
		}
		if s.Name == name {
			prev.NextSchemaBlock = s.NextSchemaBlock
			buf, err := r.cache.GetBlock(ctx, prev.BlockIndex)
			if err != nil {
				return err
			}
			return r.put(ctx, prev, buf)
		}
		prev = s
		cur = s.NextSchemaBlock
	}
	return fmt.Errorf("schema: %q: %w", name, ErrTableNotFound)
}

// load reads and decodes the schema at block, stamping BlockIndex from
// where it was found, and returns the block to the cache.
func (r *Registry) load(ctx context.Context, block storage.BlockIndex) (*Schema, error) {
	buf, err := r.cache.GetBlock(ctx, block)
	if err != nil {
		return nil, fmt.Errorf("schema: load block %d: %w", block, err)
	}
	s, err := decode(buf)
	if err != nil {
		r.cache.PutBlock(block, buf)
		return nil, fmt.Errorf("schema: decode block %d: %w", block, err)
	}
	s.BlockIndex = block
	r.cache.PutBlock(block, buf)
	return s, nil
}

// put encodes s into buf, marks the block and schema dirty, notes the
// schema's block for Submit, and returns buf to the cache.
func (r *Registry) put(ctx context.Context, s *Schema, buf *storage.Block) error {
	if err := encode(s, buf); err != nil {
		r.cache.PutBlock(s.BlockIndex, buf)
		return err
	}
	r.cache.MarkBlockDirty(s.BlockIndex)
	r.cache.MarkSchemaDirty(s.Name)
	r.cache.NoteSchemaBlock(s.Name, s.BlockIndex)
	r.cache.PutBlock(s.BlockIndex, buf)
	return nil
}

// encode serializes s into the on-block schema record layout:
// next_schema_block(u64) name_len(u16) name columns_count(u16)
// [name_len(u16) name type(u8)]... indices_count(u16)
// [column_index(u16) kind(u8) root_block(u64)]... data_block(u64)
func encode(s *Schema, b *storage.Block) error {
	buf := make([]byte, 0, len(b))
	buf = appendU64(buf, s.NextSchemaBlock)
	buf = appendString(buf, s.Name)
	buf = appendU16(buf, uint16(len(s.Columns)))
	for _, c := range s.Columns {
		buf = appendString(buf, c.Name)
		buf = append(buf, byte(c.Type))
	}
	buf = appendU16(buf, uint16(len(s.Indices)))
	for _, idx := range s.Indices {
		buf = appendU16(buf, uint16(idx.ColumnIndex))
		buf = append(buf, byte(idx.Kind))
		buf = appendU64(buf, idx.RootBlock)
	}
	buf = appendU64(buf, s.DataBlock)
	if len(buf) > len(b) {
		return fmt.Errorf("schema: encoded schema %d bytes exceeds block size %d", len(buf), len(b))
	}
	copy(b[:], buf)
	for i := len(buf); i < len(b); i++ {
		b[i] = 0
	}
	return nil
}

func decode(b *storage.Block) (*Schema, error) {
	r := &byteReader{buf: b[:]}
	s := &Schema{}
	var err error
	if s.NextSchemaBlock, err = r.u64(); err != nil {
		return nil, err
	}
	if s.Name, err = r.str(); err != nil {
		return nil, err
	}
	n, err := r.u16()
	if err != nil {
		return nil, err
	}
	s.Columns = make([]Column, n)
	for i := range s.Columns {
		name, err := r.str()
		if err != nil {
			return nil, err
		}
		dt, err := r.u8()
		if err != nil {
			return nil, err
		}
		s.Columns[i] = Column{Name: name, Type: types.DataType(dt)}
	}
	nIdx, err := r.u16()
	if err != nil {
		return nil, err
	}
	s.Indices = make([]IndexInfo, nIdx)
	for i := range s.Indices {
		ci, err := r.u16()
		if err != nil {
			return nil, err
		}
		kind, err := r.u8()
		if err != nil {
			return nil, err
		}
		root, err := r.u64()
		if err != nil {
			return nil, err
		}
		s.Indices[i] = IndexInfo{ColumnIndex: int(ci), Kind: IndexKind(kind), RootBlock: root}
	}
	if s.DataBlock, err = r.u64(); err != nil {
		return nil, err
	}
	return s, nil
}

func appendU64(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}

func appendU16(buf []byte, v uint16) []byte {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	return append(buf, b[:]...)
}

func appendString(buf []byte, s string) []byte {
	buf = appendU16(buf, uint16(len(s)))
	return append(buf, s...)
}

type byteReader struct {
	buf []byte
	pos int
}

func (r *byteReader) u8() (uint8, error) {
	if r.pos+1 > len(r.buf) {
		return 0, fmt.Errorf("schema: short buffer")
	}
	v := r.buf[r.pos]
	r.pos++
	return v, nil
}

func (r *byteReader) u16() (uint16, error) {
	if r.pos+2 > len(r.buf) {
		return 0, fmt.Errorf("schema: short buffer")
	}
	v := binary.LittleEndian.Uint16(r.buf[r.pos:])
	r.pos += 2
	return v, nil
}

func (r *byteReader) u64() (uint64, error) {
	if r.pos+8 > len(r.buf) {
		return 0, fmt.Errorf("schema: short buffer")
	}
	v := binary.LittleEndian.Uint64(r.buf[r.pos:])
	r.pos += 8
	return v, nil
}

func (r *byteReader) str() (string, error) {
	n, err := r.u16()
	if err != nil {
		return "", err
	}
	if r.pos+int(n) > len(r.buf) {
		return "", fmt.Errorf("schema: short buffer")
	}
	s := string(r.buf[r.pos : r.pos+int(n)])
	r.pos += int(n)
	return s, nil
}
