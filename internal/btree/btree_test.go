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
	"errors"
	"testing"

	"github.com/NKID00/aidb/internal/blob/memblob"
	"github.com/NKID00/aidb/internal/cache"
	"github.com/NKID00/aidb/internal/storage"
)

func openCache(t *testing.T) *cache.Cache {
	t.Helper()
	store := storage.New(memblob.New())
	c, err := cache.Open(context.Background(), store)
	if err != nil {
		t.Fatalf("cache.Open: %v", err)
	}
	return c
}

func TestNewAndSelect(t *testing.T) {
	ctx := context.Background()
	c := openCache(t)
	root, err := New(ctx, c, 10, storage.DataPointer{Block: 5, Offset: 3})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var st ExactState
	ok, ptr, err := Select(ctx, c, root, 10, &st)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if !ok || ptr.Block != 5 || ptr.Offset != 3 {
		t.Fatalf("Select(10) = %v, %+v, want found (5,3)", ok, ptr)
	}

	st.Reset()
	ok, _, err = Select(ctx, c, root, 11, &st)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if ok {
		t.Fatal("Select(11) should miss")
	}
}

func TestSelectOnZeroRootMisses(t *testing.T) {
	ctx := context.Background()
	c := openCache(t)
	var st ExactState
	ok, _, err := Select(ctx, c, 0, 1, &st)
	if err != nil || ok {
		t.Fatalf("expected miss on zero root, got ok=%v err=%v", ok, err)
	}
}

func TestInsertDuplicateFails(t *testing.T) {
	ctx := context.Background()
	c := openCache(t)
	root, err := New(ctx, c, 1, storage.DataPointer{Block: 1})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := Insert(ctx, c, root, 1, storage.DataPointer{Block: 2}); !errors.Is(err, ErrUniqueKeyExists) {
		t.Fatalf("expected ErrUniqueKeyExists, got %v", err)
	}
}

func TestInsertManyAndSelectAll(t *testing.T) {
	ctx := context.Background()
	c := openCache(t)
	const count = 900 // forces several leaf splits (N=408); the internal node does not split

	root, err := New(ctx, c, 0, storage.DataPointer{Block: 1000})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for i := int64(1); i < count; i++ {
		if err := Insert(ctx, c, root, i, storage.DataPointer{Block: storage.BlockIndex(i), Offset: uint16(i % 100)}); err != nil {
			t.Fatalf("Insert(%d): %v", i, err)
		}
	}

	for i := int64(0); i < count; i++ {
		var st ExactState
		ok, ptr, err := Select(ctx, c, root, i, &st)
		if err != nil {
			t.Fatalf("Select(%d): %v", i, err)
		}
		if !ok {
			t.Fatalf("Select(%d) missed", i)
		}
		wantBlock := storage.BlockIndex(i)
		if i == 0 {
			wantBlock = 1000
		}
		if ptr.Block != wantBlock {
			t.Fatalf("Select(%d) = block %d, want %d", i, ptr.Block, wantBlock)
		}
	}
}

func TestSelectRangeInclusive(t *testing.T) {
	ctx := context.Background()
	c := openCache(t)
	root, err := New(ctx, c, 0, storage.DataPointer{Block: 0})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for i := int64(1); i < 50; i++ {
		if err := Insert(ctx, c, root, i, storage.DataPointer{Block: storage.BlockIndex(i)}); err != nil {
			t.Fatalf("Insert(%d): %v", i, err)
		}
	}

	var st RangeState
	var got []int64
	for {
		ok, ptr, err := SelectRange(ctx, c, root, Bound{Kind: Included, Value: 10}, Bound{Kind: Included, Value: 15}, &st)
		if err != nil {
			t.Fatalf("SelectRange: %v", err)
		}
		if !ok {
			break
		}
		got = append(got, int64(ptr.Block))
	}
	want := []int64{10, 11, 12, 13, 14, 15}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestSelectRangeAsymmetricBoundsUseBothEndpoints(t *testing.T) {
	ctx := context.Background()
	c := openCache(t)
	root, err := New(ctx, c, 0, storage.DataPointer{Block: 0})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for i := int64(1); i < 20; i++ {
		Insert(ctx, c, root, i, storage.DataPointer{Block: storage.BlockIndex(i)})
	}

	var st RangeState
	var got []int64
	for {
		ok, ptr, err := SelectRange(ctx, c, root, Bound{Kind: Excluded, Value: 2}, Bound{Kind: Excluded, Value: 8}, &st)
		if err != nil {
			t.Fatalf("SelectRange: %v", err)
		}
		if !ok {
			break
		}
		got = append(got, int64(ptr.Block))
	}
	want := []int64{3, 4, 5, 6, 7}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v (lower and upper bounds must use their own endpoints, not the same one twice)", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestSelectRangeImpossibleIntervalYieldsNothing(t *testing.T) {
	ctx := context.Background()
	c := openCache(t)
	root, _ := New(ctx, c, 0, storage.DataPointer{Block: 0})

	var st RangeState
	ok, _, err := SelectRange(ctx, c, root, Bound{Kind: Included, Value: 10}, Bound{Kind: Included, Value: 5}, &st)
	if err != nil {
		t.Fatalf("SelectRange: %v", err)
	}
	if ok {
		t.Fatal("expected no results for an impossible interval")
	}
}
