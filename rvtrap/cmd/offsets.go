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
	"io"
	"os"

	"github.com/google/subcommands"
	"rvtrap.dev/rvtrap/pkg/ring0"
	"rvtrap.dev/rvtrap/rvtrap/cmd/util"
	"rvtrap.dev/rvtrap/rvtrap/flag"
)

// Offsets implements subcommands.Command for the "offsets" command.
type Offsets struct {
	out string
}

// Name implements subcommands.Command.Name.
func (*Offsets) Name() string {
	return "offsets"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Offsets) Synopsis() string {
	return "print the definitions the trap entry stub is assembled with"
}

// Usage implements subcommands.Command.Usage.
func (*Offsets) Usage() string {
	return "offsets [-out <file>] - print context offsets, CSR numbers and cause values as assembler definitions.\n"
}

// SetFlags implements subcommands.Command.SetFlags.
func (o *Offsets) SetFlags(f *flag.FlagSet) {
	f.StringVar(&o.out, "out", "", "file to write to instead of stdout.")
}

// Execute implements subcommands.Command.Execute.
func (o *Offsets) Execute(_ context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if f.NArg() != 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	var w io.Writer = os.Stdout
	if o.out != "" {
		file, err := os.Create(o.out)
		if err != nil {
			return util.Errorf("offsets: %v", err)
		}
		defer file.Close()
		w = file
	}
	ring0.Emit(w)
	return subcommands.ExitSuccess
}
