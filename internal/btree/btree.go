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

// Package btree implements the three-level B+tree secondary index: a
// root block and an internal node block route to leaf blocks carrying
// (key, DataPointer) records in ascending order, leaves linked for range
// scans, encoded and decoded explicitly over storage.Block buffers.
package btree

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/NKID00/aidb/internal/cache"
	"github.com/NKID00/aidb/internal/storage"
)

// N is the maximum number of children/records a node holds before it must
// split. The conservative 20-byte-per-entry, 10-byte-header budget covers
// both the (BlockIndex, i64) shape of root/internal entries and the
// slightly wider (i64, DataPointer) shape of leaf entries.
const N = (storage.BlockSize-10)/20 - 1

// ErrRootFull is returned when an insert would need to split the root
// itself. This implementation never splits the root: three levels are
// fixed for the life of the index.
var ErrRootFull = errors.New("btree: root is full")

// ErrUniqueKeyExists is returned by Insert on a duplicate key.
var ErrUniqueKeyExists = errors.New("unique key exists")

type childEntry struct {
	Child storage.BlockIndex
	Key   int64
}

type rootOrNode struct {
	Children []childEntry
}

type leafRecord struct {
	Key int64
	Ptr storage.DataPointer
}

type leaf struct {
	Next    storage.BlockIndex
	Records []leafRecord
}

func encodeNode(n rootOrNode, b *storage.Block) error {
	if len(n.Children) == 0 || len(n.Children) > N+1 {
		return fmt.Errorf("btree: node has %d children, capacity is %d", len(n.Children), N+1)
	}
	buf := make([]byte, 0, 2+len(n.Children)*16)
	buf = appendU16(buf, uint16(len(n.Children)))
	for _, c := range n.Children {
		buf = appendU64(buf, c.Child)
		buf = appendI64(buf, c.Key)
	}
	if len(buf) > len(b) {
		return fmt.Errorf("btree: encoded node %d bytes exceeds block size", len(buf))
	}
	copy(b[:], buf)
	for i := len(buf); i < len(b); i++ {
		b[i] = 0
	}
	return nil
}

func decodeNode(b *storage.Block) (rootOrNode, error) {
	r := &reader{buf: b[:]}
	count, err := r.u16()
	if err != nil {
		return rootOrNode{}, err
	}
	children := make([]childEntry, count)
	for i := range children {
		blk, err := r.u64()
		if err != nil {
			return rootOrNode{}, err
		}
		key, err := r.i64()
		if err != nil {
			return rootOrNode{}, err
		}
		children[i] = childEntry{Child: blk, Key: key}
	}
	return rootOrNode{Children: children}, nil
}

func encodeLeaf(l leaf, b *storage.Block) error {
	if len(l.Records) == 0 || len(l.Records) > N+1 {
		return fmt.Errorf("btree: leaf has %d records, capacity is %d", len(l.Records), N+1)
	}
	buf := make([]byte, 0, 10+len(l.Records)*18)
	buf = appendU64(buf, l.Next)
	buf = appendU16(buf, uint16(len(l.Records)))
	for _, r := range l.Records {
		buf = appendI64(buf, r.Key)
		buf = appendU64(buf, r.Ptr.Block)
		buf = appendU16(buf, r.Ptr.Offset)
	}
	if len(buf) > len(b) {
		return fmt.Errorf("btree: encoded leaf %d bytes exceeds block size", len(buf))
	}
	copy(b[:], buf)
	for i := len(buf); i < len(b); i++ {
		b[i] = 0
	}
	return nil
}

func decodeLeaf(b *storage.Block) (leaf, error) {
	r := &reader{buf: b[:]}
	next, err := r.u64()
	if err != nil {
		return leaf{}, err
	}
	count, err := r.u16()
	if err != nil {
		return leaf{}, err
	}
	records := make([]leafRecord, count)
	for i := range records {
		key, err := r.i64()
		if err != nil {
			return leaf{}, err
		}
		blk, err := r.u64()
		if err != nil {
			return leaf{}, err
		}
		off, err := r.u16()
		if err != nil {
			return leaf{}, err
		}
		records[i] = leafRecord{Key: key, Ptr: storage.DataPointer{Block: blk, Offset: off}}
	}
	return leaf{Next: next, Records: records}, nil
}

// New allocates a fresh three-level tree (leaf, internal node, root) seeded
// with one entry, and returns the root block index.
func New(ctx context.Context, c *cache.Cache, key int64, record storage.DataPointer) (storage.BlockIndex, error) {
	leafI, leafB := c.NewBlock()
	if err := encodeLeaf(leaf{Next: 0, Records: []leafRecord{{Key: key, Ptr: record}}}, leafB); err != nil {
		return 0, err
	}
	c.PutBlock(leafI, leafB)
	c.MarkBlockDirty(leafI)

	nodeI, nodeB := c.NewBlock()
	if err := encodeNode(rootOrNode{Children: []childEntry{{Child: leafI, Key: 0}}}, nodeB); err != nil {
		return 0, err
	}
	c.PutBlock(nodeI, nodeB)
	c.MarkBlockDirty(nodeI)

	rootI, rootB := c.NewBlock()
	if err := encodeNode(rootOrNode{Children: []childEntry{{Child: nodeI, Key: 0}}}, rootB); err != nil {
		return 0, err
	}
	c.PutBlock(rootI, rootB)
	c.MarkBlockDirty(rootI)

	return rootI, nil
}

func readRootOrNode(ctx context.Context, c *cache.Cache, block storage.BlockIndex) (rootOrNode, error) {
	b, err := c.GetBlock(ctx, block)
	if err != nil {
		return rootOrNode{}, err
	}
	n, err := decodeNode(b)
	c.PutBlock(block, b)
	return n, err
}

func writeRootOrNode(ctx context.Context, c *cache.Cache, block storage.BlockIndex, n rootOrNode) error {
	b, err := c.GetBlock(ctx, block)
	if err != nil {
		return err
	}
	if err := encodeNode(n, b); err != nil {
		c.PutBlock(block, b)
		return err
	}
	c.PutBlock(block, b)
	c.MarkBlockDirty(block)
	return nil
}

func readLeaf(ctx context.Context, c *cache.Cache, block storage.BlockIndex) (leaf, error) {
	b, err := c.GetBlock(ctx, block)
	if err != nil {
		return leaf{}, err
	}
	l, err := decodeLeaf(b)
	c.PutBlock(block, b)
	return l, err
}

func writeLeaf(ctx context.Context, c *cache.Cache, block storage.BlockIndex, l leaf) error {
	b, err := c.GetBlock(ctx, block)
	if err != nil {
		return err
	}
	if err := encodeLeaf(l, b); err != nil {
		c.PutBlock(block, b)
		return err
	}
	c.PutBlock(block, b)
	c.MarkBlockDirty(block)
	return nil
}

// seekChild picks the first child whose separator key is strictly greater
// than key, else the last child, mirroring the root/node routing rule.
func seekChild(n rootOrNode, key int64) storage.BlockIndex {
	last := n.Children[len(n.Children)-1].Child
	for _, c := range n.Children[:len(n.Children)-1] {
		if key < c.Key {
			return c.Child
		}
	}
	return last
}

func seekNode(ctx context.Context, c *cache.Cache, root storage.BlockIndex, key int64) (storage.BlockIndex, error) {
	r, err := readRootOrNode(ctx, c, root)
	if err != nil {
		return 0, err
	}
	return seekChild(r, key), nil
}

func seekLeaf(ctx context.Context, c *cache.Cache, root storage.BlockIndex, key int64) (storage.BlockIndex, error) {
	nodeI, err := seekNode(ctx, c, root, key)
	if err != nil {
		return 0, err
	}
	n, err := readRootOrNode(ctx, c, nodeI)
	if err != nil {
		return 0, err
	}
	return seekChild(n, key), nil
}

// insertRouting inserts (key, child) into the routing node at block,
// swapping key into the slot that previously routed to the insertion
// point, per the original's "swap-then-insert" separator maintenance.
func insertRouting(n *rootOrNode, key int64, child storage.BlockIndex) {
	index := len(n.Children) - 1
	for i, c := range n.Children[:len(n.Children)-1] {
		if key < c.Key {
			index = i
			break
		}
	}
	n.Children[index].Key, key = key, n.Children[index].Key
	rest := append([]childEntry{{Child: child, Key: key}}, n.Children[index+1:]...)
	n.Children = append(n.Children[:index+1], rest...)
}

func insertIntoRoot(ctx context.Context, c *cache.Cache, root storage.BlockIndex, key int64, child storage.BlockIndex) error {
	r, err := readRootOrNode(ctx, c, root)
	if err != nil {
		return err
	}
	if len(r.Children)+1 > N+1 {
		return ErrRootFull
	}
	insertRouting(&r, key, child)
	return writeRootOrNode(ctx, c, root, r)
}

func insertIntoNode(ctx context.Context, c *cache.Cache, root storage.BlockIndex, key int64, child storage.BlockIndex) error {
	nodeI, err := seekNode(ctx, c, root, key)
	if err != nil {
		return err
	}
	n, err := readRootOrNode(ctx, c, nodeI)
	if err != nil {
		return err
	}
	insertRouting(&n, key, child)
	if len(n.Children) > N+1 {
		nextNodeI, nextNodeB := c.NewBlock()
		splitAt := ceilDiv(len(n.Children), 2)
		nextChildren := append([]childEntry(nil), n.Children[splitAt:]...)
		n.Children = n.Children[:splitAt]
		nextKey := n.Children[splitAt-1].Key
		if err := encodeNode(rootOrNode{Children: nextChildren}, nextNodeB); err != nil {
			return err
		}
		c.PutBlock(nextNodeI, nextNodeB)
		c.MarkBlockDirty(nextNodeI)
		if err := insertIntoRoot(ctx, c, root, nextKey, nextNodeI); err != nil {
			return err
		}
	}
	return writeRootOrNode(ctx, c, nodeI, n)
}

func insertIntoLeaf(ctx context.Context, c *cache.Cache, root storage.BlockIndex, key int64, record storage.DataPointer) error {
	leafI, err := seekLeaf(ctx, c, root, key)
	if err != nil {
		return err
	}
	l, err := readLeaf(ctx, c, leafI)
	if err != nil {
		return err
	}
	index := len(l.Records)
	for i, rec := range l.Records {
		if rec.Key > key {
			index = i
			break
		}
	}
	l.Records = append(l.Records, leafRecord{})
	copy(l.Records[index+1:], l.Records[index:])
	l.Records[index] = leafRecord{Key: key, Ptr: record}

	if len(l.Records) > N+1 {
		nextLeafI, nextLeafB := c.NewBlock()
		splitAt := ceilDiv(len(l.Records), 2)
		nextRecords := append([]leafRecord(nil), l.Records[splitAt:]...)
		l.Records = l.Records[:splitAt]
		nextKey := nextRecords[0].Key
		if err := encodeLeaf(leaf{Next: l.Next, Records: nextRecords}, nextLeafB); err != nil {
			return err
		}
		c.PutBlock(nextLeafI, nextLeafB)
		c.MarkBlockDirty(nextLeafI)
		l.Next = nextLeafI
		if err := insertIntoNode(ctx, c, root, nextKey, nextLeafI); err != nil {
			return err
		}
	}
	return writeLeaf(ctx, c, leafI, l)
}

// Insert adds (key, record) to the tree rooted at root, failing with
// ErrUniqueKeyExists if key is already present.
func Insert(ctx context.Context, c *cache.Cache, root storage.BlockIndex, key int64, record storage.DataPointer) error {
	var st ExactState
	found, _, err := Select(ctx, c, root, key, &st)
	if err != nil {
		return err
	}
	if found {
		return ErrUniqueKeyExists
	}
	return insertIntoLeaf(ctx, c, root, key, record)
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

func appendU64(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}

func appendI64(buf []byte, v int64) []byte {
	return appendU64(buf, uint64(v))
}

func appendU16(buf []byte, v uint16) []byte {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	return append(buf, b[:]...)
}

type reader struct {
	buf []byte
	pos int
}

func (r *reader) u16() (uint16, error) {
	if r.pos+2 > len(r.buf) {
		return 0, fmt.Errorf("btree: short buffer")
	}
	v := binary.LittleEndian.Uint16(r.buf[r.pos:])
	r.pos += 2
	return v, nil
}

func (r *reader) u64() (uint64, error) {
	if r.pos+8 > len(r.buf) {
		return 0, fmt.Errorf("btree: short buffer")
	}
	v := binary.LittleEndian.Uint64(r.buf[r.pos:])
	r.pos += 8
	return v, nil
}

func (r *reader) i64() (int64, error) {
	v, err := r.u64()
	return int64(v), err
}
