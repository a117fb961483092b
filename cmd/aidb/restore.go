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
	"os"

	"github.com/NKID00/aidb/internal/archive"
	"github.com/NKID00/aidb/internal/cmdmain"
)

type restoreCmd struct {
	store storeFlags
	in    string
}

func init() {
	cmdmain.RegisterCommand("restore", func(flags *flag.FlagSet) cmdmain.CommandRunner {
		cmd := new(restoreCmd)
		cmd.store.register(flags)
		flags.StringVar(&cmd.in, "in", "", "Archive file to read (required).")
		return cmd
	})
}

func (c *restoreCmd) Describe() string {
	return "Load a gzip-compressed tar archive back into a store's block keyspace."
}

func (c *restoreCmd) Usage() {
	fmt.Fprintf(cmdmain.Stderr, "Usage: aidb restore [-config aidb.toml] [-driver memory|disk] [-disk-root dir] -in archive.tar.gz\n")
}

func (c *restoreCmd) RunCommand(args []string) error {
	if len(args) != 0 {
		return usageError("restore takes no positional arguments")
	}
	if c.in == "" {
		return usageError("-in is required")
	}
	cfg, err := c.store.load()
	if err != nil {
		return err
	}
	driver, err := openDriver(cfg)
	if err != nil {
		return err
	}

	f, err := os.Open(c.in)
	if err != nil {
		return fmt.Errorf("aidb: open %s: %w", c.in, err)
	}
	defer f.Close()

	ctx := context.Background()
	return archive.Load(ctx, driver, f)
}
