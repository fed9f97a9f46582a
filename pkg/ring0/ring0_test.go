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

package ring0

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"rvtrap.dev/rvtrap/pkg/arch"
	"rvtrap.dev/rvtrap/pkg/riscv"
)

// haltPanic unwinds the stack when the test machine halts, so that tests can
// observe that a handler never returned.
type haltPanic struct{}

type testMachine struct {
	csrs  map[riscv.CSR]uint64
	halts int
}

func newTestMachine() *testMachine {
	return &testMachine{csrs: make(map[riscv.CSR]uint64)}
}

func (m *testMachine) ReadCSR(csr riscv.CSR) uint64 {
	return m.csrs[csr]
}

func (m *testMachine) WriteCSR(csr riscv.CSR, v uint64) {
	m.csrs[csr] = v
}

func (m *testMachine) Halt() {
	m.halts++
	panic(haltPanic{})
}

type testClock struct {
	now       uint64
	deadlines []uint64
}

func (c *testClock) Now() uint64 {
	return c.now
}

func (c *testClock) SetTimer(deadline uint64) {
	c.deadlines = append(c.deadlines, deadline)
}

type testCPU struct {
	*CPU
	machine *testMachine
	console *bytes.Buffer
}

func newTestCPU(policy BreakpointPolicy) testCPU {
	console := &bytes.Buffer{}
	k := &Kernel{BreakpointPolicy: policy, Console: console}
	m := newTestMachine()
	c := &CPU{}
	c.Init(k, 0, m)
	c.Install(0x80200000)
	return testCPU{CPU: c, machine: m, console: console}
}

// handle calls HandleTrap and reports whether it returned or halted.
func (c testCPU) handle(ctx *arch.Context, scause, stval uint64) (returned, halted bool) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(haltPanic); !ok {
				panic(r)
			}
			halted = true
		}
	}()
	c.HandleTrap(ctx, scause, stval)
	return true, false
}

func sampleContext() arch.Context {
	var ctx arch.Context
	for i := range ctx.Regs {
		ctx.Regs[i] = uint64(0x1000 + i)
	}
	ctx.Regs[riscv.RegZero] = 0
	ctx.Sstatus = riscv.SstatusSPP | riscv.SstatusSPIE
	ctx.Sepc = 0x80200100
	return ctx
}

func TestInstallWritesDirectVector(t *testing.T) {
	c := newTestCPU(BreakpointSkip)
	stvec := c.machine.csrs[riscv.Stvec]
	if got := riscv.StvecBase(stvec); got != 0x80200000 {
		t.Errorf("stvec base = %#x, want 0x80200000", got)
	}
	if got := riscv.StvecMode(stvec); got != riscv.TrapModeDirect {
		t.Errorf("stvec mode = %v, want Direct", got)
	}
	if !c.Installed() {
		t.Errorf("Installed() = false after Install")
	}
}

func TestInstallTwicePanics(t *testing.T) {
	c := newTestCPU(BreakpointSkip)
	defer func() {
		if recover() == nil {
			t.Errorf("second Install did not panic")
		}
	}()
	c.Install(0x80200000)
}

func TestInstallMisalignedPanics(t *testing.T) {
	c := &CPU{}
	c.Init(&Kernel{}, 0, newTestMachine())
	defer func() {
		if recover() == nil {
			t.Errorf("Install(0x80200002) did not panic")
		}
	}()
	c.Install(0x80200002)
}

func TestBreakpointSkip(t *testing.T) {
	c := newTestCPU(BreakpointSkip)
	ctx := sampleContext()
	want := ctx
	want.Sepc += 2

	returned, halted := c.handle(&ctx, riscv.ExceptionCause(riscv.CauseBreakpoint), 0)
	if !returned || halted {
		t.Fatalf("breakpoint: returned=%v halted=%v, want returned", returned, halted)
	}
	if diff := cmp.Diff(want, ctx); diff != "" {
		t.Errorf("context mismatch (-want +got):\n%s", diff)
	}
	if got := c.console.String(); got != "Breakpoint at 0x80200100\n" {
		t.Errorf("console = %q", got)
	}
}

func TestBreakpointZero(t *testing.T) {
	c := newTestCPU(BreakpointZero)
	ctx := sampleContext()
	want := ctx
	want.Sepc = 0

	if returned, _ := c.handle(&ctx, riscv.ExceptionCause(riscv.CauseBreakpoint), 0); !returned {
		t.Fatalf("breakpoint did not return")
	}
	if diff := cmp.Diff(want, ctx); diff != "" {
		t.Errorf("context mismatch (-want +got):\n%s", diff)
	}
}

func TestTimerCountsTicks(t *testing.T) {
	c := newTestCPU(BreakpointSkip)
	ctx := sampleContext()
	want := ctx

	const n = 10
	for i := 0; i < n; i++ {
		if returned, halted := c.handle(&ctx, riscv.InterruptCause(riscv.CauseSupervisorTimer), 0); !returned || halted {
			t.Fatalf("timer %d: returned=%v halted=%v", i, returned, halted)
		}
	}
	if got := c.Ticks(); got != n {
		t.Errorf("Ticks() = %d, want %d", got, n)
	}
	if got := c.Kernel().Ticks(); got != n {
		t.Errorf("Kernel().Ticks() = %d, want %d", got, n)
	}
	if diff := cmp.Diff(want, ctx); diff != "" {
		t.Errorf("timer modified context (-want +got):\n%s", diff)
	}
	if c.console.Len() != 0 {
		t.Errorf("timer emitted diagnostics: %q", c.console.String())
	}
}

func TestLoadFaultHalts(t *testing.T) {
	c := newTestCPU(BreakpointSkip)
	ctx := sampleContext()

	returned, halted := c.handle(&ctx, riscv.ExceptionCause(riscv.CauseLoadFault), 0xDEADBEEF)
	if returned || !halted {
		t.Fatalf("load fault: returned=%v halted=%v, want halted", returned, halted)
	}
	out := c.console.String()
	for _, want := range []string{"load fault on hart 0: context:\n", "stval: 0xdeadbeef", "sepc    0x0000000080200100  sstatus 0x"} {
		if !strings.Contains(out, want) {
			t.Errorf("console does not contain %q:\n%s", want, out)
		}
	}
	if c.machine.halts != 1 {
		t.Errorf("Halt called %d times, want 1", c.machine.halts)
	}
}

func TestFallbackHalts(t *testing.T) {
	for _, tc := range []struct {
		scause uint64
		label  string
	}{
		{riscv.ExceptionCause(riscv.CauseIllegalInstruction), "Exception(IllegalInstruction)"},
		{riscv.ExceptionCause(riscv.CauseStoreFault), "Exception(StoreFault)"},
		{riscv.ExceptionCause(riscv.CauseLoadPageFault), "Exception(LoadPageFault)"},
		{riscv.ExceptionCause(24), "Exception(Unknown(24))"},
		{riscv.InterruptCause(riscv.CauseSupervisorExternal), "Interrupt(SupervisorExternal)"},
		{riscv.InterruptCause(riscv.CauseUserTimer), "Interrupt(UserTimer)"},
		{riscv.InterruptCause(13), "Interrupt(Unknown(13))"},
	} {
		t.Run(tc.label, func(t *testing.T) {
			c := newTestCPU(BreakpointSkip)
			ctx := sampleContext()
			returned, halted := c.handle(&ctx, tc.scause, 0x42)
			if returned || !halted {
				t.Fatalf("returned=%v halted=%v, want halted", returned, halted)
			}
			out := c.console.String()
			if !strings.Contains(out, "unresolved trap on hart 0: "+tc.label) {
				t.Errorf("console does not name %s:\n%s", tc.label, out)
			}
			if !strings.Contains(out, "stval: 0x42") {
				t.Errorf("console does not contain stval:\n%s", out)
			}
			if c.Ticks() != 0 {
				t.Errorf("fallback counted a tick")
			}
		})
	}
}

// TestDispatchTotal checks that every vector reaches exactly one handler.
func TestDispatchTotal(t *testing.T) {
	for _, v := range Vectors() {
		cause := Cause{Vector: v, Code: CodeOf(v)}
		if v == UnknownException || v == UnknownInterrupt {
			cause.Code = 62
		}
		c := newTestCPU(BreakpointSkip)
		ctx := sampleContext()
		returned, halted := c.handle(&ctx, cause.Raw(), 0)
		if returned == halted {
			t.Errorf("%s: returned=%v halted=%v, want exactly one", cause, returned, halted)
		}
		var handler string
		switch {
		case returned && ctx.Sepc == 0x80200102:
			handler = "breakpoint"
		case returned && c.Ticks() == 1:
			handler = "timer"
		case halted && strings.HasPrefix(c.console.String(), "load fault"):
			handler = "load-fault"
		case halted && strings.HasPrefix(c.console.String(), "unresolved trap"):
			handler = "fallback"
		}
		want := HandlerOf(cause)
		if handler != want {
			t.Errorf("%s handled by %q, want %q", cause, handler, want)
		}
	}
}

func TestStartTimer(t *testing.T) {
	c := newTestCPU(BreakpointSkip)
	clock := &testClock{now: 1000}
	c.StartTimer(clock, 100)

	if c.machine.csrs[riscv.Sie]&riscv.SieSTIE == 0 {
		t.Errorf("sie.STIE not set")
	}
	if c.machine.csrs[riscv.Sstatus]&riscv.SstatusSIE == 0 {
		t.Errorf("sstatus.SIE not set")
	}

	ctx := sampleContext()
	clock.now = 1100
	c.handle(&ctx, riscv.InterruptCause(riscv.CauseSupervisorTimer), 0)
	if diff := cmp.Diff([]uint64{1100, 1200}, clock.deadlines); diff != "" {
		t.Errorf("deadlines mismatch (-want +got):\n%s", diff)
	}
}

func TestStartTimerBeforeInstallPanics(t *testing.T) {
	c := &CPU{}
	c.Init(&Kernel{}, 0, newTestMachine())
	defer func() {
		if recover() == nil {
			t.Errorf("StartTimer before Install did not panic")
		}
	}()
	c.StartTimer(&testClock{}, 100)
}

func TestKernelTicksSumsCPUs(t *testing.T) {
	k := &Kernel{}
	cpus := make([]*CPU, 3)
	for i := range cpus {
		cpus[i] = &CPU{}
		cpus[i].Init(k, i, newTestMachine())
		for j := 0; j <= i; j++ {
			cpus[i].supervisorTimer()
		}
	}
	if got := k.Ticks(); got != 1+2+3 {
		t.Errorf("Kernel.Ticks() = %d, want 6", got)
	}
	if got := cpus[2].Ticks(); got != 3 {
		t.Errorf("cpus[2].Ticks() = %d, want 3", got)
	}
}

func TestNilConsole(t *testing.T) {
	k := &Kernel{}
	c := &CPU{}
	c.Init(k, 0, newTestMachine())
	c.Install(0x1000)
	ctx := sampleContext()
	c.HandleTrap(&ctx, riscv.ExceptionCause(riscv.CauseBreakpoint), 0)
	if ctx.Sepc != 0x80200102 {
		t.Errorf("Sepc = %#x, want 0x80200102", ctx.Sepc)
	}
}

func TestParseBreakpointPolicy(t *testing.T) {
	for _, tc := range []struct {
		in      string
		want    BreakpointPolicy
		wantErr bool
	}{
		{"skip", BreakpointSkip, false},
		{"", BreakpointSkip, false},
		{"zero", BreakpointZero, false},
		{"reset", 0, true},
	} {
		got, err := ParseBreakpointPolicy(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParseBreakpointPolicy(%q) error = %v, wantErr %v", tc.in, err, tc.wantErr)
			continue
		}
		if err == nil && got != tc.want {
			t.Errorf("ParseBreakpointPolicy(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
