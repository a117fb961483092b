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

package main

import (
	"flag"
	"fmt"

	"github.com/NKID00/aidb/internal/blob"
	"github.com/NKID00/aidb/internal/blob/diskblob"
	"github.com/NKID00/aidb/internal/blob/memblob"
	"github.com/NKID00/aidb/internal/cmdmain"
	"github.com/NKID00/aidb/internal/config"
)

// storeFlags holds the subset of aidb.toml every subcommand that opens a
// backing store accepts directly on the command line, overriding whatever
// a -config file sets.
type storeFlags struct {
	configPath string
	driver     string
	diskRoot   string
}

func (f *storeFlags) register(flags *flag.FlagSet) {
	flags.StringVar(&f.configPath, "config", "", "Path to aidb.toml. If empty, defaults are used.")
	flags.StringVar(&f.driver, "driver", "", "Override the configured driver: memory or disk.")
	flags.StringVar(&f.diskRoot, "disk-root", "", "Override the configured disk driver root directory.")
}

// load resolves f into a config.Config, starting from -config (or
// config.Default()) and layering the explicit -driver/-disk-root
// overrides on top.
func (f *storeFlags) load() (config.Config, error) {
	cfg := config.Default()
	if f.configPath != "" {
		loaded, err := config.Load(f.configPath)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}
	if f.driver != "" {
		cfg.Driver = config.Driver(f.driver)
	}
	if f.diskRoot != "" {
		cfg.DiskRoot = f.diskRoot
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// openDriver builds the blob.Driver cfg describes.
func openDriver(cfg config.Config) (blob.Driver, error) {
	switch cfg.Driver {
	case config.DriverDisk:
		return diskblob.New(cfg.DiskRoot)
	case config.DriverMemory:
		return memblob.New(), nil
	default:
		return nil, fmt.Errorf("aidb: unknown driver %q", cfg.Driver)
	}
}

func usageError(format string, args ...interface{}) error {
	return cmdmain.UsageError(fmt.Sprintf(format, args...))
}
