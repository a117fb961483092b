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

package storage

import (
	"context"
	"testing"

	"github.com/NKID00/aidb/internal/blob/memblob"
)

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := New(memblob.New())

	b := NewBlock()
	copy(b[:], "aidb block contents")
	if err := s.WritePhysical(ctx, 5, b); err != nil {
		t.Fatalf("WritePhysical: %v", err)
	}
	got, err := s.ReadPhysical(ctx, 5)
	if err != nil {
		t.Fatalf("ReadPhysical: %v", err)
	}
	if *got != *b {
		t.Fatalf("round trip mismatch")
	}
}

func TestReadPhysicalNotFound(t *testing.T) {
	s := New(memblob.New())
	if _, err := s.ReadPhysical(context.Background(), 99); err == nil {
		t.Fatal("expected error reading unwritten block")
	}
}

func TestIoLog(t *testing.T) {
	ctx := context.Background()
	s := New(memblob.New())
	b := NewBlock()
	s.WritePhysical(ctx, 1, b)
	s.WritePhysical(ctx, 2, b)
	s.ReadPhysical(ctx, 1)

	log := s.IoLogSnapshot()
	if !log.Written[1] || !log.Written[2] {
		t.Fatalf("expected blocks 1 and 2 written, got %v", log.Written)
	}
	if !log.Read[1] {
		t.Fatalf("expected block 1 read, got %v", log.Read)
	}
	if log.Read[2] {
		t.Fatalf("did not expect block 2 to be read")
	}

	s.ResetIoLog()
	log = s.IoLogSnapshot()
	if len(log.Read) != 0 || len(log.Written) != 0 {
		t.Fatalf("expected empty log after reset, got %+v", log)
	}
}

func TestShortReadIsPadded(t *testing.T) {
	ctx := context.Background()
	drv := memblob.New()
	if err := drv.Write(ctx, "7", []byte("short")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	s := New(drv)
	b, err := s.ReadPhysical(ctx, 7)
	if err != nil {
		t.Fatalf("ReadPhysical: %v", err)
	}
	if string(b[:5]) != "short" {
		t.Fatalf("expected leading bytes %q, got %q", "short", b[:5])
	}
	for _, c := range b[5:] {
		if c != 0 {
			t.Fatalf("expected zero padding after short read")
		}
	}
}

func TestLongReadIsTruncated(t *testing.T) {
	ctx := context.Background()
	drv := memblob.New()
	over := make([]byte, BlockSize+100)
	for i := range over {
		over[i] = 0xAB
	}
	if err := drv.Write(ctx, "9", over); err != nil {
		t.Fatalf("Write: %v", err)
	}
	s := New(drv)
	b, err := s.ReadPhysical(ctx, 9)
	if err != nil {
		t.Fatalf("ReadPhysical: %v", err)
	}
	if len(b) != BlockSize {
		t.Fatalf("block length = %d, want %d", len(b), BlockSize)
	}
}
