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

package record

import (
	"context"
	"fmt"

	"github.com/NKID00/aidb/internal/cache"
	"github.com/NKID00/aidb/internal/storage"
)

// ErrTextTooLong is returned when a text payload does not fit in a single
// block, which can never be spilled under the "text never crosses block
// boundaries" invariant.
var ErrTextTooLong = fmt.Errorf("text too long")

// insertText appends s to the text-spill heap at the superblock's append
// cursor, allocating a fresh block when the current one lacks room or has
// never been allocated. Empty strings short-circuit to the sentinel
// pointer (0, 0) without touching the heap.
func insertText(ctx context.Context, c *cache.Cache, store *storage.Store, s string) (storage.DataPointer, uint16, error) {
	if s == "" {
		return storage.DataPointer{}, 0, nil
	}
	data := []byte(s)
	if len(data) > storage.BlockSize {
		return storage.DataPointer{}, 0, ErrTextTooLong
	}

	sb := c.Superblock()
	blockIdx := sb.NextTextBlock
	offset := sb.NextTextOffset

	var block *storage.Block
	var err error
	if blockIdx == 0 || int(offset)+len(data) > storage.BlockSize {
		blockIdx, block = c.NewBlock()
		offset = 0
	} else {
		block, err = c.GetBlock(ctx, blockIdx)
		if err != nil {
			return storage.DataPointer{}, 0, fmt.Errorf("record: insert text: %w", err)
		}
	}

	copy(block[offset:], data)
	ptr := storage.DataPointer{Block: blockIdx, Offset: offset}
	c.MarkBlockDirty(blockIdx)
	c.PutBlock(blockIdx, block)

	sb.NextTextBlock = blockIdx
	sb.NextTextOffset = offset + uint16(len(data))
	c.MarkSuperblockDirty()

	return ptr, uint16(len(data)), nil
}

// readText fetches a length-bounded payload previously written by
// insertText. The sentinel pointer (0, 0) with zero length reads back as
// the empty string without touching the heap.
func readText(ctx context.Context, c *cache.Cache, store *storage.Store, ptr storage.DataPointer, length uint16) (string, error) {
	if length == 0 && ptr.Block == 0 && ptr.Offset == 0 {
		return "", nil
	}
	block, err := c.GetBlock(ctx, ptr.Block)
	if err != nil {
		return "", fmt.Errorf("record: read text: %w", err)
	}
	if int(ptr.Offset)+int(length) > storage.BlockSize {
		c.PutBlock(ptr.Block, block)
		return "", fmt.Errorf("record: read text: pointer %+v length %d overruns block", ptr, length)
	}
	data := make([]byte, length)
	copy(data, block[ptr.Offset:int(ptr.Offset)+int(length)])
	c.PutBlock(ptr.Block, block)
	return string(data), nil
}
