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

// Package blob defines the keyed byte-blob driver consumed by the block
// store, and the small conformance suite every driver implementation must
// pass.
package blob

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Driver.Read when the key does not exist.
var ErrNotFound = errors.New("blob: key not found")

// Driver is the keyed-bytes backend the block store reads and writes
// through. Keys are the decimal ASCII representation of a storage.BlockIndex.
//
// Implementations must be safe for concurrent use; calls made through the
// engine are serialized by its caller (see internal/mysqlwire), but an archive import/export or a test
// conformance suite may call a Driver directly from multiple goroutines.
type Driver interface {
	// Read returns the bytes stored under key, or ErrNotFound if there is
	// no such key.
	Read(ctx context.Context, key string) ([]byte, error)

	// Write stores data under key, replacing any previous value.
	Write(ctx context.Context, key string, data []byte) error

	// List returns every key with the given prefix. If recursive is
	// false and the driver models keys hierarchically, only the
	// immediate children of prefix are returned; aidb always calls List
	// with recursive=true, since block keys are flat.
	List(ctx context.Context, prefix string, recursive bool) ([]string, error)

	// Delete removes the given keys. Deleting a key that does not exist
	// is not an error.
	Delete(ctx context.Context, keys []string) error
}
