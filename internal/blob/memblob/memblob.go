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

// Package memblob implements an in-memory blob.Driver, for tests and
// ephemeral instances.
package memblob

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/NKID00/aidb/internal/blob"
)

// Driver is an in-memory implementation of blob.Driver backed by a map. The
// zero value is ready to use.
type Driver struct {
	mu sync.RWMutex
	m  map[string][]byte
}

// New returns an empty in-memory driver.
func New() *Driver {
	return &Driver{m: make(map[string][]byte)}
}

func (d *Driver) Read(ctx context.Context, key string) ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	b, ok := d.m[key]
	if !ok {
		return nil, blob.ErrNotFound
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

func (d *Driver) Write(ctx context.Context, key string, data []byte) error {
	cp := make([]byte, len(data))
	copy(cp, data)
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.m == nil {
		d.m = make(map[string][]byte)
	}
	d.m[key] = cp
	return nil
}

func (d *Driver) List(ctx context.Context, prefix string, recursive bool) ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []string
	for k := range d.m {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (d *Driver) Delete(ctx context.Context, keys []string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, k := range keys {
		delete(d.m, k)
	}
	return nil
}
