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

package diskblob

import (
	"testing"

	"github.com/NKID00/aidb/internal/blob"
	"github.com/NKID00/aidb/internal/blob/blobtest"
)

func TestConformance(t *testing.T) {
	blobtest.Test(t, func(t *testing.T) (blob.Driver, func()) {
		d, err := New(t.TempDir())
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		return d, nil
	})
}
