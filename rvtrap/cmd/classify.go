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
	"os"

	"github.com/google/subcommands"
	"rvtrap.dev/rvtrap/pkg/ring0"
	"rvtrap.dev/rvtrap/rvtrap/cmd/util"
	"rvtrap.dev/rvtrap/rvtrap/flag"
)

// Classify implements subcommands.Command for the "classify" command.
type Classify struct{}

// Name implements subcommands.Command.Name.
func (*Classify) Name() string {
	return "classify"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Classify) Synopsis() string {
	return "classify scause values and show the handler each one reaches"
}

// Usage implements subcommands.Command.Usage.
func (*Classify) Usage() string {
	return `classify <scause>... - classify trap causes.

Each argument is a raw scause value (for example 3 or 0x8000000000000005), a
cause label such as "Exception(Breakpoint)" or a name such as load_fault.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (*Classify) SetFlags(*flag.FlagSet) {}

// Execute implements subcommands.Command.Execute.
func (*Classify) Execute(_ context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if f.NArg() == 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	causes := make([]ring0.Cause, 0, f.NArg())
	for _, arg := range f.Args() {
		c, err := ring0.ParseCause(arg)
		if err != nil {
			return util.Errorf("classify: %v", err)
		}
		causes = append(causes, c)
	}

	w := newTable(os.Stdout)
	for _, c := range causes {
		describeCause(w, c)
	}
	if err := w.Flush(); err != nil {
		return util.Errorf("classify: %v", err)
	}
	return subcommands.ExitSuccess
}
