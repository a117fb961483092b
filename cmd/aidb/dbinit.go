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
	"context"
	"flag"
	"fmt"

	"github.com/NKID00/aidb/internal/cmdmain"
	"github.com/NKID00/aidb/internal/engine"
)

type dbinitCmd struct {
	store storeFlags
	wipe  bool
}

func init() {
	cmdmain.RegisterCommand("dbinit", func(flags *flag.FlagSet) cmdmain.CommandRunner {
		cmd := new(dbinitCmd)
		cmd.store.register(flags)
		flags.BoolVar(&cmd.wipe, "wipe", false, "Delete every existing block before initializing.")
		return cmd
	})
}

func (c *dbinitCmd) Describe() string {
	return "Create (or wipe and re-create) a store's superblock."
}

func (c *dbinitCmd) Usage() {
	fmt.Fprintf(cmdmain.Stderr, "Usage: aidb dbinit [-config aidb.toml] [-driver memory|disk] [-disk-root dir] [-wipe]\n")
}

func (c *dbinitCmd) RunCommand(args []string) error {
	if len(args) != 0 {
		return usageError("dbinit takes no positional arguments")
	}
	cfg, err := c.store.load()
	if err != nil {
		return err
	}
	driver, err := openDriver(cfg)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if c.wipe {
		keys, err := driver.List(ctx, "", true)
		if err != nil {
			return fmt.Errorf("aidb: list existing blocks: %w", err)
		}
		if err := driver.Delete(ctx, keys); err != nil {
			return fmt.Errorf("aidb: wipe existing blocks: %w", err)
		}
	}

	e, err := engine.Open(ctx, driver)
	if err != nil {
		return fmt.Errorf("aidb: open engine: %w", err)
	}
	// FLUSH TABLES forces the freshly-initialized superblock through to
	// the driver even though nothing has been written yet, so dbinit
	// leaves a store other commands can open directly.
	if _, err := e.Query(ctx, "FLUSH TABLES"); err != nil {
		return fmt.Errorf("aidb: persist superblock: %w", err)
	}
	return nil
}
