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
	"strings"
	"text/tabwriter"

	"github.com/NKID00/aidb/internal/cmdmain"
	"github.com/NKID00/aidb/internal/engine"
)

type queryCmd struct {
	store storeFlags
}

func init() {
	cmdmain.RegisterCommand("query", func(flags *flag.FlagSet) cmdmain.CommandRunner {
		cmd := new(queryCmd)
		cmd.store.register(flags)
		return cmd
	})
}

func (c *queryCmd) Describe() string {
	return "Run one SQL statement against a backing store and print the result."
}

func (c *queryCmd) Usage() {
	fmt.Fprintf(cmdmain.Stderr, "Usage: aidb query [-config aidb.toml] [-driver memory|disk] [-disk-root dir] '<sql>'\n")
}

func (c *queryCmd) RunCommand(args []string) error {
	if len(args) != 1 {
		return usageError("query takes exactly one argument: the SQL statement")
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
	e, err := engine.Open(ctx, driver)
	if err != nil {
		return fmt.Errorf("aidb: open engine: %w", err)
	}

	resp, err := e.Query(ctx, args[0])
	if err != nil {
		return err
	}
	printResponse(resp)
	return nil
}

func printResponse(resp engine.Response) {
	if resp.Meta != nil {
		fmt.Fprintf(cmdmain.Stdout, "OK, %d row(s) affected\n", resp.Meta.AffectedRows)
		return
	}
	rows := resp.Rows
	tw := tabwriter.NewWriter(cmdmain.Stdout, 0, 2, 2, ' ', 0)
	names := make([]string, len(rows.Columns))
	for i, col := range rows.Columns {
		names[i] = col.Name
	}
	fmt.Fprintln(tw, strings.Join(names, "\t"))
	for _, row := range rows.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = v.String()
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	tw.Flush()
	fmt.Fprintf(cmdmain.Stdout, "%d row(s)\n", len(rows.Rows))
}
