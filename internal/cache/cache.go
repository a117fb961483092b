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

// Package cache implements the write-back block and schema cache, the
// superblock dirty-tracking, and the transaction state machine that sits
// between the relational layers and the physical block store. The
// read-modify-write locking follows perkeep's pkg/blobserver/memory
// idiom, generalized here to an explicit get/put loan protocol over
// blocks and schema buffers instead of whole blobs.
package cache

import (
	"context"
	"fmt"

	"github.com/NKID00/aidb/internal/sieve"
	"github.com/NKID00/aidb/internal/storage"
	"github.com/NKID00/aidb/internal/superblock"
)

// cleanBlockCapacity bounds how many clean (already-flushed) blocks stay
// resident in memory at once. Dirty blocks are never subject to this
// bound: they remain until Submit flushes them, however many there are.
const cleanBlockCapacity = 256

// State is the transaction state machine's current mode.
type State int

const (
	Idle State = iota
	InTransaction
)

func (s State) String() string {
	if s == InTransaction {
		return "InTransaction"
	}
	return "Idle"
}

// Cache mediates every logical access to blocks and the superblock,
// buffering dirty entities in memory until Submit flushes them to the
// underlying store.
type Cache struct {
	store *storage.Store

	superblock *superblock.SuperBlock

	blocks      map[storage.BlockIndex]*storage.Block
	dirtyBlocks map[storage.BlockIndex]bool
	loaned      map[storage.BlockIndex]bool

	// clean tracks which resident blocks are eligible for eviction under
	// the SIEVE algorithm (grounded on internal/sieve): every block
	// PutBlock returns is added here whatever its dirty state, and
	// evicting one here removes it from blocks too unless it is dirty at
	// that moment, so a dirty block is never dropped before Submit
	// flushes it.
	clean *sieve.Sieve[storage.BlockIndex, storage.BlockIndex]

	superblockDirty bool

	// schemaBlocks maps a schema name to the block index its schema
	// chain entry currently lives at, for Submit to persist under.
	schemaBlocks map[string]storage.BlockIndex
	dirtySchemas map[string]bool

	state State

	// superblockBackup is the snapshot captured at the start of the
	// current statement, restored verbatim by Rollback.
	superblockBackup *superblock.SuperBlock
}

// Open loads (or initializes) the superblock from store and returns a
// ready-to-use cache in the Idle state.
func Open(ctx context.Context, store *storage.Store) (*Cache, error) {
	c := &Cache{
		store:        store,
		blocks:       make(map[storage.BlockIndex]*storage.Block),
		dirtyBlocks:  make(map[storage.BlockIndex]bool),
		loaned:       make(map[storage.BlockIndex]bool),
		schemaBlocks: make(map[string]storage.BlockIndex),
		dirtySchemas: make(map[string]bool),
		state:        Idle,
	}
	c.clean = newCleanSieve(c)
	b, err := store.ReadPhysical(ctx, 0)
	if err != nil {
		if err2 := ignoreIfNotFound(err); err2 == nil {
			c.superblock = superblock.New()
			c.superblockDirty = true
			return c, nil
		}
		return nil, fmt.Errorf("cache: load superblock: %w", err)
	}
	sb, err := superblock.Decode(b)
	if err != nil {
		return nil, fmt.Errorf("cache: decode superblock: %w", err)
	}
	c.superblock = sb
	return c, nil
}

// newCleanSieve returns a SIEVE-ordered tracker of c's resident blocks.
// Every block PutBlock returns is tracked here regardless of dirty state
// (callers mark a block dirty before or after PutBlock-ing it, so the
// tracker can't assume an ordering); the eviction callback re-checks
// dirtyBlocks at the moment SIEVE actually picks a victim and only then
// drops it from c.blocks. A block that turns out to still be dirty simply
// survives, uncounted against the capacity until Submit re-tracks it.
func newCleanSieve(c *Cache) *sieve.Sieve[storage.BlockIndex, storage.BlockIndex] {
	return sieve.New[storage.BlockIndex, storage.BlockIndex](cleanBlockCapacity, func(i storage.BlockIndex) {
		if c.dirtyBlocks[i] {
			return
		}
		delete(c.blocks, i)
	})
}

func ignoreIfNotFound(err error) error {
	if err == nil {
		return nil
	}
	for e := err; e != nil; {
		if e == storage.ErrNotFound {
			return nil
		}
		u, ok := e.(interface{ Unwrap() error })
		if !ok {
			break
		}
		e = u.Unwrap()
	}
	return err
}

// Superblock returns the current in-memory superblock. Callers must not
// retain the pointer across a Rollback.
func (c *Cache) Superblock() *superblock.SuperBlock { return c.superblock }

// State reports the current transaction state.
func (c *Cache) State() State { return c.state }

// BeginStatement captures the superblock snapshot that Rollback restores to,
// per the "capture before dispatch" rule applied to every statement whether
// or not a transaction is open.
func (c *Cache) BeginStatement() {
	c.superblockBackup = c.superblock.Clone()
}

// StartTransaction moves Idle to InTransaction; a no-op if already in one.
func (c *Cache) StartTransaction() {
	c.state = InTransaction
}

// Commit moves InTransaction to Idle. The caller is responsible for calling
// Submit afterward to actually persist.
func (c *Cache) Commit() {
	c.state = Idle
}

// Rollback discards every in-memory mutation and restores the superblock
// snapshot taken by the most recent BeginStatement, returning to Idle.
// It never flushes to the store.
func (c *Cache) Rollback() {
	c.blocks = make(map[storage.BlockIndex]*storage.Block)
	c.dirtyBlocks = make(map[storage.BlockIndex]bool)
	c.loaned = make(map[storage.BlockIndex]bool)
	c.clean = newCleanSieve(c)
	c.schemaBlocks = make(map[string]storage.BlockIndex)
	c.dirtySchemas = make(map[string]bool)
	c.superblockDirty = false
	if c.superblockBackup != nil {
		c.superblock = c.superblockBackup.Clone()
	}
	c.state = Idle
}

// InTransaction reports whether a transaction is currently open.
func (c *Cache) InTransaction() bool { return c.state == InTransaction }

// NewBlock allocates a fresh block index by post-incrementing the
// superblock counter, marks the superblock dirty, and returns a zeroed
// buffer already loaned to the caller.
func (c *Cache) NewBlock() (storage.BlockIndex, *storage.Block) {
	i := c.superblock.NextEmptyBlock
	c.superblock.NextEmptyBlock++
	c.superblockDirty = true
	b := storage.NewBlock()
	c.loaned[i] = true
	return i, b
}

// ErrAlreadyLoaned is returned by GetBlock when the block is currently on
// loan to another caller.
var ErrAlreadyLoaned = fmt.Errorf("cache: block already on loan")

// GetBlock hands out exclusive ownership of block i: from the in-memory
// cache if present, else by reading through to the store. The caller must
// return it with PutBlock when done.
func (c *Cache) GetBlock(ctx context.Context, i storage.BlockIndex) (*storage.Block, error) {
	if c.loaned[i] {
		return nil, ErrAlreadyLoaned
	}
	if b, ok := c.blocks[i]; ok {
		delete(c.blocks, i)
		c.clean.Delete(i)
		c.loaned[i] = true
		return b, nil
	}
	b, err := c.store.ReadPhysical(ctx, i)
	if err != nil {
		return nil, err
	}
	c.loaned[i] = true
	return b, nil
}

// PutBlock returns exclusive ownership of block i to the cache, tracking
// it for possible SIEVE eviction. A block still dirty when SIEVE selects
// it is left alone (see newCleanSieve), so it survives regardless of
// whether the caller marks it dirty before or after calling PutBlock.
func (c *Cache) PutBlock(i storage.BlockIndex, b *storage.Block) {
	c.blocks[i] = b
	delete(c.loaned, i)
	c.clean.Add(i, i)
}

// MarkBlockDirty flags block i to be flushed on the next Submit.
func (c *Cache) MarkBlockDirty(i storage.BlockIndex) {
	c.dirtyBlocks[i] = true
}

// MarkSuperblockDirty flags the superblock to be flushed on the next Submit.
func (c *Cache) MarkSuperblockDirty() {
	c.superblockDirty = true
}

// MarkSchemaDirty flags the named schema to be flushed on the next Submit,
// at the block index most recently recorded via NoteSchemaBlock.
func (c *Cache) MarkSchemaDirty(name string) {
	c.dirtySchemas[name] = true
}

// NoteSchemaBlock records which block index a schema's chain entry lives
// at, so that Submit knows where to persist it.
func (c *Cache) NoteSchemaBlock(name string, block storage.BlockIndex) {
	c.schemaBlocks[name] = block
}

// Submit flushes the dirty superblock (if any), then every dirty schema
// block, then every dirty data block, to the underlying store, clearing
// all dirty sets afterward. It is called at the end of a statement outside
// a transaction, or explicitly on COMMIT/FLUSH TABLES.
func (c *Cache) Submit(ctx context.Context, writeSchemaBlock func(ctx context.Context, name string, block storage.BlockIndex) error) error {
	if c.superblockDirty {
		b := storage.NewBlock()
		if err := c.superblock.Encode(b); err != nil {
			return fmt.Errorf("cache: encode superblock: %w", err)
		}
		if err := c.store.WritePhysical(ctx, 0, b); err != nil {
			return fmt.Errorf("cache: submit superblock: %w", err)
		}
		c.superblockDirty = false
	}
	for name := range c.dirtySchemas {
		block, ok := c.schemaBlocks[name]
		if !ok {
			return fmt.Errorf("cache: submit: schema %q has no recorded block", name)
		}
		if writeSchemaBlock != nil {
			if err := writeSchemaBlock(ctx, name, block); err != nil {
				return fmt.Errorf("cache: submit schema %q: %w", name, err)
			}
		}
	}
	c.dirtySchemas = make(map[string]bool)
	for i := range c.dirtyBlocks {
		b, ok := c.blocks[i]
		if !ok {
			// Block is still on loan; its owner will PutBlock and mark
			// it dirty again, or has already written it through
			// another path. Nothing to flush yet.
			continue
		}
		if err := c.store.WritePhysical(ctx, i, b); err != nil {
			return fmt.Errorf("cache: submit block %d: %w", i, err)
		}
		// Now flushed and clean: it may be evicted under memory pressure
		// like any other clean block.
		c.clean.Add(i, i)
	}
	c.dirtyBlocks = make(map[storage.BlockIndex]bool)
	return nil
}

// EvictAll clears the in-memory block cache, used by FLUSH TABLES after a
// successful Submit.
func (c *Cache) EvictAll() {
	c.blocks = make(map[storage.BlockIndex]*storage.Block)
	c.clean = newCleanSieve(c)
}
