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

// Package superblock implements the codec for block 0, the reserved block
// carrying the store's global allocation and schema-chain metadata: a
// fixed magic prefix before a packed binary struct, following perkeep's
// wire-format conventions in pkg/blob.
package superblock

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/NKID00/aidb/internal/storage"
)

// Magic identifies a block as a valid superblock.
var Magic = [4]byte{'a', 'i', 'd', 'b'}

// SuperBlock carries the store's global allocation and schema-chain state.
// Exactly one lives at BlockIndex 0.
type SuperBlock struct {
	// NextEmptyBlock is the next free BlockIndex, post-incremented on
	// every allocation.
	NextEmptyBlock storage.BlockIndex
	// FirstSchemaBlock is the head of the schema chain, 0 if none.
	FirstSchemaBlock storage.BlockIndex
	// NextTextBlock, NextTextOffset is the append cursor into the
	// text-spill area.
	NextTextBlock  storage.BlockIndex
	NextTextOffset uint16
}

// New returns the default superblock for a freshly initialized store.
func New() *SuperBlock {
	return &SuperBlock{NextEmptyBlock: 1}
}

// Clone returns a deep copy, used to snapshot the superblock before a
// statement or transaction in case it must be rolled back.
func (s *SuperBlock) Clone() *SuperBlock {
	c := *s
	return &c
}

const encodedSize = 4 + 8 + 8 + 8 + 2

// Encode serializes the superblock into the front of a block buffer.
func (s *SuperBlock) Encode(b *storage.Block) error {
	if encodedSize > len(b) {
		return fmt.Errorf("superblock: encoded size %d exceeds block size %d", encodedSize, len(b))
	}
	var buf bytes.Buffer
	buf.Grow(encodedSize)
	buf.Write(Magic[:])
	binary.Write(&buf, binary.LittleEndian, s.NextEmptyBlock)
	binary.Write(&buf, binary.LittleEndian, s.FirstSchemaBlock)
	binary.Write(&buf, binary.LittleEndian, s.NextTextBlock)
	binary.Write(&buf, binary.LittleEndian, s.NextTextOffset)
	copy(b[:], buf.Bytes())
	for i := buf.Len(); i < len(b); i++ {
		b[i] = 0
	}
	return nil
}

// ErrBadMagic is returned by Decode when the block does not begin with the
// superblock magic bytes.
var ErrBadMagic = fmt.Errorf("superblock: bad magic bytes")

// Decode parses a superblock from the front of a block buffer.
func Decode(b *storage.Block) (*SuperBlock, error) {
	if len(b) < encodedSize {
		return nil, fmt.Errorf("superblock: block too small")
	}
	if !bytes.Equal(b[:4], Magic[:]) {
		return nil, ErrBadMagic
	}
	r := bytes.NewReader(b[4:encodedSize])
	var s SuperBlock
	if err := binary.Read(r, binary.LittleEndian, &s.NextEmptyBlock); err != nil {
		return nil, fmt.Errorf("superblock: decode next_empty_block: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &s.FirstSchemaBlock); err != nil {
		return nil, fmt.Errorf("superblock: decode first_schema_block: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &s.NextTextBlock); err != nil {
		return nil, fmt.Errorf("superblock: decode next_text_block: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &s.NextTextOffset); err != nil {
		return nil, fmt.Errorf("superblock: decode next_text_offset: %w", err)
	}
	return &s, nil
}
