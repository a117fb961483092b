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

// Package cmdmain contains the shared subcommand registry used by
// cmd/aidb, following perkeep's pkg/cmdmain, which backs camget, camput,
// camtool and friends with the same register-then-dispatch idiom.
package cmdmain

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
)

var (
	FlagHelp    = flag.Bool("help", false, "print usage")
	FlagVerbose = flag.Bool("verbose", false, "extra debug logging")
)

var ErrUsage = UsageError("invalid command")

// UsageError marks an error that should be reported with a mode's usage
// text rather than just its message.
type UsageError string

func (ue UsageError) Error() string {
	return "Usage error: " + string(ue)
}

var (
	modeCommand = make(map[string]CommandRunner)
	modeFlags   = make(map[string]*flag.FlagSet)
	wantHelp    = make(map[string]*bool)

	// Indirections for replacement by tests.
	Stderr io.Writer = os.Stderr
	Stdout io.Writer = os.Stdout
	Stdin  io.Reader = os.Stdin

	Exit = realExit
)

func realExit(code int) {
	os.Exit(code)
}

// CommandRunner is the type a subcommand mode implements.
type CommandRunner interface {
	Usage()
	RunCommand(args []string) error
}

type describer interface {
	Describe() string
}

// RegisterCommand adds a mode to the set of modes cmd/aidb dispatches on.
// It is meant to be called from init() in each subcommand's file.
func RegisterCommand(mode string, makeCmd func(flags *flag.FlagSet) CommandRunner) {
	if _, dup := modeCommand[mode]; dup {
		log.Fatalf("cmdmain: duplicate command %q registered", mode)
	}
	flags := flag.NewFlagSet(mode+" options", flag.ContinueOnError)
	flags.Usage = func() {}

	var cmdHelp bool
	flags.BoolVar(&cmdHelp, "help", false, "Help for this mode.")
	wantHelp[mode] = &cmdHelp
	modeFlags[mode] = flags
	modeCommand[mode] = makeCmd(flags)
}

func hasFlags(flags *flag.FlagSet) bool {
	any := false
	flags.VisitAll(func(*flag.Flag) {
		any = true
	})
	return any
}

// Errorf prints to Stderr.
func Errorf(format string, args ...interface{}) {
	fmt.Fprintf(Stderr, format, args...)
}

func usage(msg string) {
	cmdName := filepath.Base(os.Args[0])
	if msg != "" {
		Errorf("Error: %v\n", msg)
	}
	Errorf(`
Usage: ` + cmdName + ` [globalopts] <mode> [commandopts] [commandargs]

Modes:

`)
	modes := make([]string, 0, len(modeCommand))
	for mode := range modeCommand {
		modes = append(modes, mode)
	}
	sort.Strings(modes)
	for _, mode := range modes {
		if des, ok := modeCommand[mode].(describer); ok {
			Errorf("  %s: %s\n", mode, des.Describe())
		} else {
			Errorf("  %s\n", mode)
		}
	}
	Errorf(`
For mode-specific help:

  ` + cmdName + ` <mode> -help

Global options:
`)
	flag.PrintDefaults()
	Exit(1)
}

func help(mode string) {
	cmd := modeCommand[mode]
	cmdFlags := modeFlags[mode]
	cmdFlags.SetOutput(Stderr)
	if des, ok := cmd.(describer); ok {
		Errorf("%s\n", des.Describe())
	}
	Errorf("\n")
	cmd.Usage()
	if hasFlags(cmdFlags) {
		cmdFlags.PrintDefaults()
	}
}

// Main parses os.Args, dispatches to the registered mode, and exits the
// process with an appropriate status code. It is meant to be the entire
// body of cmd/aidb's main().
func Main() {
	flag.Parse()
	args := flag.Args()

	if *FlagHelp {
		usage("")
	}
	if len(args) == 0 {
		usage("No mode given.")
	}

	mode := args[0]
	cmd, ok := modeCommand[mode]
	if !ok {
		usage(fmt.Sprintf("Unknown mode %q", mode))
	}

	cmdFlags := modeFlags[mode]
	cmdFlags.SetOutput(Stderr)
	err := cmdFlags.Parse(args[1:])
	if err != nil {
		err = ErrUsage
	} else {
		if *wantHelp[mode] {
			help(mode)
			return
		}
		err = cmd.RunCommand(cmdFlags.Args())
	}
	if ue, isUsage := err.(UsageError); isUsage {
		Errorf("%s\n", ue)
		cmd.Usage()
		if hasFlags(cmdFlags) {
			Errorf("\nOptions for mode %q:\n", mode)
			cmdFlags.PrintDefaults()
		}
		Exit(1)
	}
	if err != nil {
		Errorf("Error: %v\n", err)
		Exit(2)
	}
}
