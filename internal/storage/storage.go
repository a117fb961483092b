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

// Package storage implements the paged block store: fixed-size blocks
// addressed by integer index, read and written through a blob.Driver, with
// every physical access recorded in an IoLog for visualization and
// testing. Wrapping an opaque byte store behind a small, explicit
// interface follows perkeep's pkg/sorted key-value drivers.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"

	"github.com/NKID00/aidb/internal/blob"
)

// BlockIndex identifies one block in the underlying blob store. Index 0 is
// reserved for the superblock.
type BlockIndex = uint64

// BlockSize is the fixed size of every block, in bytes.
const BlockSize = 8 * 1024

// Block is an opaque, fixed-size byte buffer.
type Block [BlockSize]byte

// NewBlock returns a zero-filled block buffer.
func NewBlock() *Block {
	return &Block{}
}

// DataPointer identifies a row slot within a data block, or a text payload
// within a text-spill block.
type DataPointer struct {
	Block  BlockIndex
	Offset uint16
}

// IoLog records which blocks were physically read and written since the
// last reset, for EXPLAIN-style visualization and for testing.
type IoLog struct {
	Read    map[BlockIndex]bool
	Written map[BlockIndex]bool
}

func newIoLog() *IoLog {
	return &IoLog{Read: make(map[BlockIndex]bool), Written: make(map[BlockIndex]bool)}
}

// Store mediates every physical read and write of a block through a
// blob.Driver, zero-padding short reads and truncating over-long ones.
type Store struct {
	driver blob.Driver
	log    *IoLog
}

// New wraps driver as a block store.
func New(driver blob.Driver) *Store {
	return &Store{driver: driver, log: newIoLog()}
}

// ErrNotFound is returned by ReadPhysical when the backing driver has never
// seen the given block index.
var ErrNotFound = blob.ErrNotFound

func blockKey(index BlockIndex) string {
	return strconv.FormatUint(index, 10)
}

// ReadPhysical fetches block index from the driver, zero-padding a short
// read (with a warning) and truncating an over-long one (with an error-level
// log), and records the read in the I/O log.
func (s *Store) ReadPhysical(ctx context.Context, index BlockIndex) (*Block, error) {
	raw, err := s.driver.Read(ctx, blockKey(index))
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return nil, fmt.Errorf("storage: read block %d: %w", index, ErrNotFound)
		}
		return nil, fmt.Errorf("storage: read block %d: %w", index, err)
	}
	var b Block
	switch {
	case len(raw) < BlockSize:
		log.Printf("storage: block %d is %d bytes, smaller than block size %d, padding with zero", index, len(raw), BlockSize)
		copy(b[:], raw)
	case len(raw) > BlockSize:
		log.Printf("storage: block %d is %d bytes, larger than block size %d, truncating", index, len(raw), BlockSize)
		copy(b[:], raw[:BlockSize])
	default:
		copy(b[:], raw)
	}
	s.log.Read[index] = true
	return &b, nil
}

// WritePhysical writes the full block to the driver and records the write
// in the I/O log.
func (s *Store) WritePhysical(ctx context.Context, index BlockIndex, b *Block) error {
	if err := s.driver.Write(ctx, blockKey(index), b[:]); err != nil {
		return fmt.Errorf("storage: write block %d: %w", index, err)
	}
	s.log.Written[index] = true
	return nil
}

// ResetIoLog clears the read/written sets.
func (s *Store) ResetIoLog() {
	s.log = newIoLog()
}

// IoLogSnapshot returns a snapshot of the current read/written sets.
func (s *Store) IoLogSnapshot() IoLog {
	out := newIoLog()
	for k := range s.log.Read {
		out.Read[k] = true
	}
	for k := range s.log.Written {
		out.Written[k] = true
	}
	return *out
}
