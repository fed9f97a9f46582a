// Copyright 2026 The gVisor Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"rvtrap.dev/rvtrap/pkg/scenario"
	"rvtrap.dev/rvtrap/rvtrap/cmd/util"
	"rvtrap.dev/rvtrap/rvtrap/flag"
)

// Scenarios implements subcommands.Command for the "scenarios" command.
type Scenarios struct{}

// Name implements subcommands.Command.Name.
func (*Scenarios) Name() string {
	return "scenarios"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Scenarios) Synopsis() string {
	return "list built-in scenarios"
}

// Usage implements subcommands.Command.Usage.
func (*Scenarios) Usage() string {
	return "scenarios - list built-in scenarios, runnable with 'run -builtin <name>'.\n"
}

// SetFlags implements subcommands.Command.SetFlags.
func (*Scenarios) SetFlags(*flag.FlagSet) {}

// Execute implements subcommands.Command.Execute.
func (*Scenarios) Execute(_ context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if f.NArg() != 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	w := newTable(os.Stdout)
	fmt.Fprintf(w, "NAME\tHARTS\tDESCRIPTION\n")
	for _, s := range scenario.Builtins() {
		harts := "default"
		if s.Harts != 0 {
			harts = fmt.Sprint(s.Harts)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", s.Name, harts, s.Description)
	}
	if err := w.Flush(); err != nil {
		return util.Errorf("scenarios: %v", err)
	}
	return subcommands.ExitSuccess
}
