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

// Package blobtest is a conformance suite for blob.Driver implementations,
// in the style of perkeep's pkg/blobserver/storagetest: callers supply
// a constructor, the suite drives every Driver method and reports failures
// through a *testing.T.
package blobtest

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/NKID00/aidb/internal/blob"
)

// Opts configures the conformance run. New is required and must return a
// fresh, empty driver plus an optional cleanup func.
type Opts struct {
	New func(t *testing.T) (d blob.Driver, cleanup func())
}

// Test runs the full conformance suite against the driver returned by fn.
func Test(t *testing.T, fn func(t *testing.T) (blob.Driver, func())) {
	TestOpt(t, Opts{New: fn})
}

func TestOpt(t *testing.T, opt Opts) {
	ctx := context.Background()

	t.Run("ReadMissingIsNotFound", func(t *testing.T) {
		d, cleanup := opt.New(t)
		if cleanup != nil {
			defer cleanup()
		}
		if _, err := d.Read(ctx, "nope"); !errors.Is(err, blob.ErrNotFound) {
			t.Fatalf("Read of missing key: got err %v, want blob.ErrNotFound", err)
		}
	})

	t.Run("WriteThenRead", func(t *testing.T) {
		d, cleanup := opt.New(t)
		if cleanup != nil {
			defer cleanup()
		}
		want := []byte("hello, block")
		if err := d.Write(ctx, "1", want); err != nil {
			t.Fatalf("Write: %v", err)
		}
		got, err := d.Read(ctx, "1")
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		if string(got) != string(want) {
			t.Fatalf("Read = %q, want %q", got, want)
		}
	})

	t.Run("WriteOverwrites", func(t *testing.T) {
		d, cleanup := opt.New(t)
		if cleanup != nil {
			defer cleanup()
		}
		if err := d.Write(ctx, "1", []byte("first")); err != nil {
			t.Fatalf("Write: %v", err)
		}
		if err := d.Write(ctx, "1", []byte("second")); err != nil {
			t.Fatalf("Write: %v", err)
		}
		got, err := d.Read(ctx, "1")
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		if string(got) != "second" {
			t.Fatalf("Read = %q, want %q", got, "second")
		}
	})

	t.Run("List", func(t *testing.T) {
		d, cleanup := opt.New(t)
		if cleanup != nil {
			defer cleanup()
		}
		for _, k := range []string{"1", "2", "3"} {
			if err := d.Write(ctx, k, []byte(k)); err != nil {
				t.Fatalf("Write(%s): %v", k, err)
			}
		}
		got, err := d.List(ctx, "", true)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		sort.Strings(got)
		want := []string{"1", "2", "3"}
		if len(got) != len(want) {
			t.Fatalf("List = %v, want %v", got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("List = %v, want %v", got, want)
			}
		}
	})

	t.Run("DeleteIsIdempotent", func(t *testing.T) {
		d, cleanup := opt.New(t)
		if cleanup != nil {
			defer cleanup()
		}
		if err := d.Write(ctx, "1", []byte("x")); err != nil {
			t.Fatalf("Write: %v", err)
		}
		if err := d.Delete(ctx, []string{"1", "nonexistent"}); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if _, err := d.Read(ctx, "1"); !errors.Is(err, blob.ErrNotFound) {
			t.Fatalf("Read after delete: got err %v, want blob.ErrNotFound", err)
		}
		if err := d.Delete(ctx, []string{"1"}); err != nil {
			t.Fatalf("second Delete of already-deleted key: %v", err)
		}
	})
}
