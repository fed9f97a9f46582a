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
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/google/subcommands"
	"rvtrap.dev/rvtrap/pkg/log"
	"rvtrap.dev/rvtrap/pkg/scenario"
	"rvtrap.dev/rvtrap/rvtrap/cmd/util"
	"rvtrap.dev/rvtrap/rvtrap/config"
	"rvtrap.dev/rvtrap/rvtrap/flag"
)

// Run implements subcommands.Command for the "run" command.
type Run struct {
	builtin string
	all     bool
	metrics bool
	format  string
}

// Name implements subcommands.Command.Name.
func (*Run) Name() string {
	return "run"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Run) Synopsis() string {
	return "run a trap scenario on simulated harts"
}

// Usage implements subcommands.Command.Usage.
func (*Run) Usage() string {
	return `run [flags] <scenario.toml> - run a scenario file.
run [flags] -builtin <name>   - run a built-in scenario.
run [flags] -all              - run every built-in scenario.

The exit status is non-zero if the scenario cannot run or its expectations
are not met.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (r *Run) SetFlags(f *flag.FlagSet) {
	f.StringVar(&r.builtin, "builtin", "", "name of a built-in scenario to run.")
	f.BoolVar(&r.all, "all", false, "run every built-in scenario.")
	f.BoolVar(&r.metrics, "metrics", false, "print trap counters after each run.")
	f.StringVar(&r.format, "format", "text", "output format: text (default) or json.")
}

// Execute implements subcommands.Command.Execute.
func (r *Run) Execute(ctx context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	conf := args[0].(*config.Config)

	var scenarios []*scenario.Scenario
	switch {
	case r.all && r.builtin == "" && f.NArg() == 0:
		scenarios = scenario.Builtins()
	case r.builtin != "" && !r.all && f.NArg() == 0:
		s, ok := scenario.Builtin(r.builtin)
		if !ok {
			return util.Errorf("no built-in scenario %q, see 'rvtrap scenarios'", r.builtin)
		}
		scenarios = append(scenarios, s)
	case r.builtin == "" && !r.all && f.NArg() == 1:
		s, err := scenario.LoadFile(f.Arg(0))
		if err != nil {
			return util.Errorf("loading scenario: %v", err)
		}
		scenarios = append(scenarios, s)
	default:
		f.Usage()
		return subcommands.ExitUsageError
	}
	if r.format != "text" && r.format != "json" {
		return util.Errorf("invalid format %q, must be 'text' or 'json'", r.format)
	}

	status := subcommands.ExitSuccess
	for _, s := range scenarios {
		res, err := scenario.Run(ctx, s, conf.ScenarioDefaults())
		if err != nil {
			return util.Errorf("%v", err)
		}
		checkErr := s.Check(res)
		if err := r.report(os.Stdout, res, checkErr); err != nil {
			return util.Errorf("writing report: %v", err)
		}
		if checkErr != nil {
			log.Warningf("Scenario %q failed: %v", s.Name, checkErr)
			status = subcommands.ExitFailure
		}
	}
	return status
}

// jsonReport is the JSON form of a run.
type jsonReport struct {
	*scenario.Result
	Passed bool   `json:"passed"`
	Error  string `json:"error,omitempty"`
}

func (r *Run) report(w io.Writer, res *scenario.Result, checkErr error) error {
	if r.format == "json" {
		out := jsonReport{Result: res, Passed: checkErr == nil}
		if checkErr != nil {
			out.Error = checkErr.Error()
		}
		if !r.metrics {
			out.Metrics = nil
		}
		b, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s\n", b)
		return err
	}

	fmt.Fprintf(w, "=== %s\n", res.Name)
	if res.Console != "" {
		fmt.Fprintf(w, "%s", res.Console)
	}
	t := newTable(w)
	fmt.Fprintf(t, "HART\tPC\tTICKS\tSTATE\n")
	for _, h := range res.Harts {
		state := "running"
		if h.Halted {
			state = "halted"
		}
		fmt.Fprintf(t, "%d\t%#x\t%d\t%s\n", h.ID, h.PC, h.Ticks, state)
	}
	if err := t.Flush(); err != nil {
		return err
	}
	if r.metrics {
		if _, err := res.Metrics.WriteTo(w); err != nil {
			return err
		}
	}
	switch {
	case checkErr != nil:
		_, err := fmt.Fprintf(w, "--- FAIL: %s\n%v\n", res.Name, checkErr)
		return err
	default:
		_, err := fmt.Fprintf(w, "--- PASS: %s\n", res.Name)
		return err
	}
}
