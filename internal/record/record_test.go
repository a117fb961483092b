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
	"testing"

	"github.com/NKID00/aidb/internal/blob/memblob"
	"github.com/NKID00/aidb/internal/cache"
	"github.com/NKID00/aidb/internal/storage"
	"github.com/NKID00/aidb/internal/types"
)

func openCache(t *testing.T) (*cache.Cache, *storage.Store) {
	t.Helper()
	store := storage.New(memblob.New())
	c, err := cache.Open(context.Background(), store)
	if err != nil {
		t.Fatalf("cache.Open: %v", err)
	}
	return c, store
}

func TestRowWidth(t *testing.T) {
	w := RowWidth([]types.DataType{types.Integer, types.Text, types.Real})
	if w != 1+9+13+9 {
		t.Fatalf("RowWidth = %d, want %d", w, 1+9+13+9)
	}
}

func TestEncodeDecodeRowRoundTrip(t *testing.T) {
	ctx := context.Background()
	c, store := openCache(t)
	cols := []types.DataType{types.Integer, types.Text, types.Real}
	row := []types.Value{types.NewInteger(42), types.NewText("hello"), types.NewReal(3.5)}

	slot, err := EncodeRow(ctx, c, store, cols, row)
	if err != nil {
		t.Fatalf("EncodeRow: %v", err)
	}
	if len(slot) != RowWidth(cols) {
		t.Fatalf("slot length = %d, want %d", len(slot), RowWidth(cols))
	}

	got, err := DecodeRow(ctx, c, store, cols, slot)
	if err != nil {
		t.Fatalf("DecodeRow: %v", err)
	}
	for i := range row {
		if !got[i].Equal(row[i]) && !(got[i].IsNull() && row[i].IsNull()) {
			t.Fatalf("column %d: got %v, want %v", i, got[i], row[i])
		}
	}
}

func TestEncodeDecodeRowWithNulls(t *testing.T) {
	ctx := context.Background()
	c, store := openCache(t)
	cols := []types.DataType{types.Integer, types.Text, types.Real}
	row := []types.Value{types.Null, types.Null, types.Null}

	slot, err := EncodeRow(ctx, c, store, cols, row)
	if err != nil {
		t.Fatalf("EncodeRow: %v", err)
	}
	got, err := DecodeRow(ctx, c, store, cols, slot)
	if err != nil {
		t.Fatalf("DecodeRow: %v", err)
	}
	for i, v := range got {
		if !v.IsNull() {
			t.Fatalf("column %d: expected null, got %v", i, v)
		}
	}
}

func TestEmptyTextSentinelPointer(t *testing.T) {
	ctx := context.Background()
	c, store := openCache(t)
	cols := []types.DataType{types.Text}
	row := []types.Value{types.NewText("")}

	slot, err := EncodeRow(ctx, c, store, cols, row)
	if err != nil {
		t.Fatalf("EncodeRow: %v", err)
	}
	got, err := DecodeRow(ctx, c, store, cols, slot)
	if err != nil {
		t.Fatalf("DecodeRow: %v", err)
	}
	if got[0].Text() != "" {
		t.Fatalf("expected empty text, got %q", got[0].Text())
	}
}

func TestTextTooLong(t *testing.T) {
	ctx := context.Background()
	c, store := openCache(t)
	cols := []types.DataType{types.Text}
	big := make([]byte, storage.BlockSize+1)
	row := []types.Value{types.NewText(string(big))}

	if _, err := EncodeRow(ctx, c, store, cols, row); err == nil {
		t.Fatal("expected error for oversized text")
	}
}

func TestSlotIsEmpty(t *testing.T) {
	if !SlotIsEmpty([]byte{0}) {
		t.Fatal("zero length byte should be empty")
	}
	if !SlotIsEmpty([]byte{0xFF}) {
		t.Fatal("negative length byte should be empty")
	}
	if SlotIsEmpty([]byte{5}) {
		t.Fatal("positive length byte should not be empty")
	}
}
