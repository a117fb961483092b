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

package superblock

import (
	"testing"

	"github.com/NKID00/aidb/internal/storage"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	s := &SuperBlock{
		NextEmptyBlock:   42,
		FirstSchemaBlock: 7,
		NextTextBlock:    3,
		NextTextOffset:   128,
	}
	b := storage.NewBlock()
	if err := s.Encode(b); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(b)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if *got != *s {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, s)
	}
}

func TestDecodeBadMagic(t *testing.T) {
	b := storage.NewBlock()
	copy(b[:4], "nope")
	if _, err := Decode(b); err == nil {
		t.Fatal("expected error for bad magic")
	}
}

func TestNewDefaults(t *testing.T) {
	s := New()
	if s.NextEmptyBlock != 1 {
		t.Fatalf("NextEmptyBlock = %d, want 1", s.NextEmptyBlock)
	}
	if s.FirstSchemaBlock != 0 || s.NextTextBlock != 0 || s.NextTextOffset != 0 {
		t.Fatalf("expected zero-valued remaining fields, got %+v", s)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	s := New()
	c := s.Clone()
	c.NextEmptyBlock = 99
	if s.NextEmptyBlock == 99 {
		t.Fatal("mutating clone affected original")
	}
}
