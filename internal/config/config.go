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

// Package config loads aidb's TOML configuration file. Like perkeep's
// pkg/jsonconfig, it reads a config file into a typed Go value and
// reports every validation problem it finds rather than failing on the
// first one.
package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/NKID00/aidb/internal/storage"
)

// Driver selects which blob.Driver backs the block store.
type Driver string

const (
	DriverMemory Driver = "memory"
	DriverDisk   Driver = "disk"
)

// Config is the decoded form of aidb.toml.
type Config struct {
	// Listen is the TCP address mysqlwire.Server listens on, e.g.
	// "127.0.0.1:3306".
	Listen string `toml:"listen"`

	// Driver selects the blob.Driver backend: "memory" or "disk".
	Driver Driver `toml:"driver"`

	// DiskRoot is the root directory for the disk driver. Required
	// when Driver is "disk".
	DiskRoot string `toml:"disk_root"`

	// BlockSize must equal storage.BlockSize when set; zero means
	// "unset". storage.Block is a fixed-size array, so this core cannot
	// actually vary the block size at runtime: the field exists so a
	// config file that disagrees with the build it's loaded into fails
	// fast with a clear error instead of silently truncating or
	// zero-padding every block.
	BlockSize int `toml:"block_size"`
}

// Default returns a Config with every field set to its default value.
func Default() Config {
	return Config{
		Listen: "127.0.0.1:3306",
		Driver: DriverMemory,
	}
}

// Load reads and decodes the TOML file at path, filling in unset fields
// from Default, then validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate collects every configuration problem into one error, reporting
// every bad key at once instead of stopping at the first.
func (c Config) Validate() error {
	var problems []string

	switch c.Driver {
	case DriverMemory:
	case DriverDisk:
		if c.DiskRoot == "" {
			problems = append(problems, `disk_root is required when driver = "disk"`)
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown driver %q (want \"memory\" or \"disk\")", c.Driver))
	}

	if c.Listen == "" {
		problems = append(problems, "listen must not be empty")
	}

	if c.BlockSize != 0 && c.BlockSize != storage.BlockSize {
		problems = append(problems, fmt.Sprintf("block_size %d does not match the compiled-in block size %d", c.BlockSize, storage.BlockSize))
	}

	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("config: invalid configuration:\n  %s", strings.Join(problems, "\n  "))
}
