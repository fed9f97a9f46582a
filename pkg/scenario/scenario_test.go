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

package scenario

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"rvtrap.dev/rvtrap/pkg/hart"
	"rvtrap.dev/rvtrap/pkg/ring0"
)

func TestBuiltins(t *testing.T) {
	all := Builtins()
	if len(all) == 0 {
		t.Fatalf("no built-in scenarios")
	}
	for _, s := range all {
		t.Run(s.Name, func(t *testing.T) {
			res, err := Run(context.Background(), s, Defaults{})
			if err != nil {
				t.Fatalf("Run failed: %v", err)
			}
			if err := s.Check(res); err != nil {
				t.Errorf("Check failed: %v\nconsole:\n%s", err, res.Console)
			}
		})
	}
}

func TestBreakpoint(t *testing.T) {
	s, ok := Builtin("breakpoint")
	if !ok {
		t.Fatalf("breakpoint scenario not found")
	}
	res, err := Run(context.Background(), s, Defaults{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	want := []HartReport{{ID: 0, PC: DefaultPC + 2}}
	if diff := cmp.Diff(want, res.Harts); diff != "" {
		t.Errorf("hart reports mismatch (-want +got):\n%s", diff)
	}
	if got := res.Metrics["/hart/traps"]["0,Exception(Breakpoint)"]; got != 1 {
		t.Errorf("breakpoint trap count = %d, want 1", got)
	}
}

func TestSMPTicks(t *testing.T) {
	s, ok := Builtin("smp")
	if !ok {
		t.Fatalf("smp scenario not found")
	}
	res, err := Run(context.Background(), s, Defaults{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	want := []HartReport{
		{ID: 0, PC: DefaultPC + 6, Ticks: 10},
		{ID: 1, PC: DefaultPC + 6, Ticks: 10},
		{ID: 2, PC: DefaultPC + 6, Ticks: 10},
		{ID: 3, PC: DefaultEntry, Ticks: 10, Halted: true},
	}
	if diff := cmp.Diff(want, res.Harts); diff != "" {
		t.Errorf("hart reports mismatch (-want +got):\n%s", diff)
	}
	if res.Ticks != 40 {
		t.Errorf("kernel ticks = %d, want 40", res.Ticks)
	}
}

func TestLoad(t *testing.T) {
	const doc = `
name = "custom"
harts = 2
breakpoint_policy = "zero"
timer_interval = 50

[[event]]
cause = "0x8000000000000005"
repeat = 2

[[event]]
advance = 100
hart = 1

[expect]
ticks = 2
`
	s, err := Load(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	one := 1
	two := uint64(2)
	want := &Scenario{
		Name:             "custom",
		Harts:            2,
		BreakpointPolicy: "zero",
		TimerInterval:    50,
		Events: []Event{
			{Cause: "0x8000000000000005", Repeat: 2},
			{Advance: 100, Hart: &one},
		},
		Expect: &Expect{Ticks: &two},
	}
	if diff := cmp.Diff(want, s); diff != "" {
		t.Errorf("scenario mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadUnknownKey(t *testing.T) {
	if _, err := Load(strings.NewReader("name = \"x\"\nhartz = 2\n")); err == nil || !strings.Contains(err.Error(), "hartz") {
		t.Errorf("Load with unknown key = %v, want error naming the key", err)
	}
}

func TestResolveDoesNotModify(t *testing.T) {
	s := &Scenario{Name: "x", Events: []Event{{Cause: "breakpoint"}}}
	c, err := s.resolve(Defaults{Harts: 3, BreakpointPolicy: ring0.BreakpointZero})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if c.Harts != 3 || c.BreakpointPolicy != "zero" || c.Events[0].Repeat != 1 || c.Entry != DefaultEntry {
		t.Errorf("resolve = %+v, defaults not applied", c)
	}
	if diff := cmp.Diff(&Scenario{Name: "x", Events: []Event{{Cause: "breakpoint"}}}, s); diff != "" {
		t.Errorf("resolve modified its receiver (-want +got):\n%s", diff)
	}
}

func TestValidate(t *testing.T) {
	five := 5
	for _, tc := range []struct {
		name string
		s    Scenario
	}{
		{"too many harts", Scenario{Harts: MaxHarts + 1}},
		{"bad policy", Scenario{BreakpointPolicy: "reset"}},
		{"misaligned entry", Scenario{Entry: 0x80200002}},
		{"bad cause", Scenario{Events: []Event{{Cause: "nope"}}}},
		{"empty event", Scenario{Events: []Event{{}}}},
		{"two actions", Scenario{Events: []Event{{Cause: "breakpoint", Timer: 1}}}},
		{"hart out of range", Scenario{Events: []Event{{Timer: 1, Hart: &five}}}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := tc.s.resolve(Defaults{}); err == nil {
				t.Errorf("resolve succeeded, want error")
			}
		})
	}
}

func TestTimerDisabledFails(t *testing.T) {
	s := &Scenario{Name: "no-timer", NoTimer: true, Events: []Event{{Timer: 1}}}
	if _, err := Run(context.Background(), s, Defaults{}); !errors.Is(err, hart.ErrTimerDisabled) {
		t.Errorf("Run = %v, want %v", err, hart.ErrTimerDisabled)
	}
}

func TestCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := &Scenario{Name: "canceled", Events: []Event{{Cause: "breakpoint"}}}
	if _, err := Run(ctx, s, Defaults{}); !errors.Is(err, context.Canceled) {
		t.Errorf("Run = %v, want %v", err, context.Canceled)
	}
}

func TestCheck(t *testing.T) {
	halted := true
	s := &Scenario{Expect: &Expect{Halted: &halted, Console: []string{"load fault"}}}
	res := &Result{Harts: []HartReport{{ID: 0}}, Console: "Breakpoint at 0x0\n"}
	err := s.Check(res)
	if err == nil {
		t.Fatalf("Check succeeded, want error")
	}
	for _, want := range []string{"halted = false, want true", "load fault"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Check error %q does not mention %q", err, want)
		}
	}
}
