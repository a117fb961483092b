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
	"log"
	"net"

	"github.com/NKID00/aidb/internal/cmdmain"
	"github.com/NKID00/aidb/internal/engine"
	"github.com/NKID00/aidb/internal/mysqlwire"
)

type serveCmd struct {
	store  storeFlags
	listen string
}

func init() {
	cmdmain.RegisterCommand("serve", func(flags *flag.FlagSet) cmdmain.CommandRunner {
		cmd := new(serveCmd)
		cmd.store.register(flags)
		flags.StringVar(&cmd.listen, "listen", "", "Override the configured TCP listen address.")
		return cmd
	})
}

func (c *serveCmd) Describe() string {
	return "Run the MySQL-compatible wire listener against a backing store."
}

func (c *serveCmd) Usage() {
	fmt.Fprintf(cmdmain.Stderr, "Usage: aidb serve [-config aidb.toml] [-driver memory|disk] [-disk-root dir] [-listen host:port]\n")
}

func (c *serveCmd) RunCommand(args []string) error {
	if len(args) != 0 {
		return usageError("serve takes no positional arguments")
	}
	cfg, err := c.store.load()
	if err != nil {
		return err
	}
	if c.listen != "" {
		cfg.Listen = c.listen
	}

	driver, err := openDriver(cfg)
	if err != nil {
		return err
	}
	ctx := context.Background()
	e, err := engine.Open(ctx, driver)
	if err != nil {
		return fmt.Errorf("aidb: open engine: %w", err)
	}

	ln, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return fmt.Errorf("aidb: listen on %s: %w", cfg.Listen, err)
	}
	defer ln.Close()
	log.Printf("aidb: listening on %s (driver=%s)", cfg.Listen, cfg.Driver)

	srv := mysqlwire.NewServer(e)
	return srv.Serve(ctx, ln)
}
