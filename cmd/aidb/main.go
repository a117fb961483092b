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

// Command aidb is the CLI for the aidb relational database engine: serve
// (run the MySQL-compatible wire listener), query (one-shot SQL against a
// store), dump/restore (archive a store's blob keyspace), and dbinit
// (create or wipe the backing store). Like perkeep's cmd/pk, it is a thin
// cmdmain.Main() call plus one file per mode.
package main

import (
	"log"

	"github.com/NKID00/aidb/internal/cmdmain"
)

func init() {
	log.SetOutput(cmdmain.Stderr)
}

func main() {
	cmdmain.Main()
}
