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
	"rvtrap.dev/rvtrap/pkg/ring0"
	"rvtrap.dev/rvtrap/rvtrap/cmd/util"
	"rvtrap.dev/rvtrap/rvtrap/flag"
)

// Vectors implements subcommands.Command for the "vectors" command.
type Vectors struct{}

// Name implements subcommands.Command.Name.
func (*Vectors) Name() string {
	return "vectors"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Vectors) Synopsis() string {
	return "list all trap vectors and their handlers"
}

// Usage implements subcommands.Command.Usage.
func (*Vectors) Usage() string {
	return "vectors - list all trap vectors and their handlers.\n"
}

// SetFlags implements subcommands.Command.SetFlags.
func (*Vectors) SetFlags(*flag.FlagSet) {}

// Execute implements subcommands.Command.Execute.
func (*Vectors) Execute(_ context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if f.NArg() != 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	w := newTable(os.Stdout)
	fmt.Fprintf(w, "SCAUSE\tCAUSE\tHANDLER\n")
	for _, v := range ring0.Vectors() {
		if v == ring0.UnknownException || v == ring0.UnknownInterrupt {
			continue
		}
		describeCause(w, ring0.Cause{Vector: v, Code: ring0.CodeOf(v)})
	}
	if err := w.Flush(); err != nil {
		return util.Errorf("vectors: %v", err)
	}
	return subcommands.ExitSuccess
}
