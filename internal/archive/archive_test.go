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

package archive

import (
	"bytes"
	"context"
	"testing"

	"github.com/NKID00/aidb/internal/blob/memblob"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := memblob.New()
	if err := src.Write(ctx, "0", []byte("superblock")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := src.Write(ctx, "1", bytes.Repeat([]byte{0xAB}, 128)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := src.Write(ctx, "2", []byte{}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	var buf bytes.Buffer
	if err := Save(ctx, src, &buf); err != nil {
		t.Fatalf("Save: %v", err)
	}

	dst := memblob.New()
	if err := Load(ctx, dst, &buf); err != nil {
		t.Fatalf("Load: %v", err)
	}

	for _, key := range []string{"0", "1", "2"} {
		want, err := src.Read(ctx, key)
		if err != nil {
			t.Fatalf("src.Read(%q): %v", key, err)
		}
		got, err := dst.Read(ctx, key)
		if err != nil {
			t.Fatalf("dst.Read(%q): %v", key, err)
		}
		if !bytes.Equal(want, got) {
			t.Fatalf("key %q: got %v, want %v", key, got, want)
		}
	}
}

func TestSaveEmptyDriverProducesEmptyArchive(t *testing.T) {
	ctx := context.Background()
	src := memblob.New()
	var buf bytes.Buffer
	if err := Save(ctx, src, &buf); err != nil {
		t.Fatalf("Save: %v", err)
	}
	dst := memblob.New()
	if err := Load(ctx, dst, &buf); err != nil {
		t.Fatalf("Load: %v", err)
	}
	keys, err := dst.List(ctx, "", true)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(keys) != 0 {
		t.Fatalf("expected no keys, got %v", keys)
	}
}
