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

type dumpCmd struct {
	store storeFlags
	out   string
}

func init() {
	cmdmain.RegisterCommand("dump", func(flags *flag.FlagSet) cmdmain.CommandRunner {
		cmd := new(dumpCmd)
		cmd.store.register(flags)
		flags.StringVar(&cmd.out, "out", "", "Archive file to write (required).")
		return cmd
	})
}

func (c *dumpCmd) Describe() string {
	return "Write a gzip-compressed tar archive of a store's block keyspace."
}

func (c *dumpCmd) Usage() {
	fmt.Fprintf(cmdmain.Stderr, "Usage: aidb dump [-config aidb.toml] [-driver memory|disk] [-disk-root dir] -out archive.tar.gz\n")
}

func (c *dumpCmd) RunCommand(args []string) error {
	if len(args) != 0 {
		return usageError("dump takes no positional arguments")
	}
	if c.out == "" {
		return usageError("-out is required")
	}
	cfg, err := c.store.load()
	if err != nil {
		return err
	}
	driver, err := openDriver(cfg)
	if err != nil {
		return err
	}

	f, err := os.Create(c.out)
	if err != nil {
		return fmt.Errorf("aidb: create %s: %w", c.out, err)
	}

	ctx := context.Background()
	if err := archive.Save(ctx, driver, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
