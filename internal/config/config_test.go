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

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTemp(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "aidb.toml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeTemp(t, "")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Driver != DriverMemory {
		t.Fatalf("driver = %q, want memory", cfg.Driver)
	}
	if cfg.Listen == "" {
		t.Fatalf("expected a default listen address")
	}
}

func TestLoadDiskDriverRequiresRoot(t *testing.T) {
	path := writeTemp(t, `driver = "disk"`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected missing disk_root to fail validation")
	}
}

func TestLoadDiskDriverWithRoot(t *testing.T) {
	path := writeTemp(t, "driver = \"disk\"\ndisk_root = \"/tmp/aidb-data\"\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DiskRoot != "/tmp/aidb-data" {
		t.Fatalf("disk_root = %q", cfg.DiskRoot)
	}
}

func TestLoadUnknownDriverRejected(t *testing.T) {
	path := writeTemp(t, `driver = "ftp"`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected unknown driver to fail validation")
	}
}

func TestLoadMismatchedBlockSizeRejected(t *testing.T) {
	path := writeTemp(t, "block_size = 4096")
	if _, err := Load(path); err == nil {
		t.Fatalf("expected mismatched block_size to fail validation")
	}
}

func TestLoadMatchingBlockSizeAccepted(t *testing.T) {
	path := writeTemp(t, "block_size = 8192")
	if _, err := Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}
}
