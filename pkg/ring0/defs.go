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

// Package ring0 is the supervisor trap core.
//
// It installs the trap vector, classifies trap causes and dispatches each
// trap to the breakpoint, load fault, timer or fallback handler. Entry and
// exit (saving registers into an arch.Context, reading scause and stval,
// sret) belong to the entry stub, which calls CPU.HandleTrap.
package ring0

import (
	"fmt"
	"io"

	"rvtrap.dev/rvtrap/pkg/atomicbitops"
	"rvtrap.dev/rvtrap/pkg/riscv"
	"rvtrap.dev/rvtrap/pkg/sync"
)

// Machine is the privileged interface of a single hart.
type Machine interface {
	riscv.CSRFile

	// Halt stops the hart permanently. It must not return; if it does, the
	// caller calls it again.
	Halt()
}

// Clock is the supervisor timer source (the SBI set_timer call).
type Clock interface {
	// Now returns the current value of the time CSR.
	Now() uint64

	// SetTimer requests a supervisor timer interrupt once time reaches
	// deadline. It also clears any pending timer interrupt.
	SetTimer(deadline uint64)
}

// BreakpointPolicy selects where execution resumes after a breakpoint.
type BreakpointPolicy int

const (
	// BreakpointSkip resumes after the c.ebreak instruction.
	BreakpointSkip BreakpointPolicy = iota

	// BreakpointZero resumes at address zero, forcing a controlled
	// instruction fault on the next fetch.
	BreakpointZero
)

// String implements fmt.Stringer.String.
func (p BreakpointPolicy) String() string {
	switch p {
	case BreakpointSkip:
		return "skip"
	case BreakpointZero:
		return "zero"
	default:
		return fmt.Sprintf("BreakpointPolicy(%d)", int(p))
	}
}

// Set implements flag.Value.Set.
func (p *BreakpointPolicy) Set(s string) error {
	v, err := ParseBreakpointPolicy(s)
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Get implements flag.Getter.Get.
func (p *BreakpointPolicy) Get() any {
	return *p
}

// ParseBreakpointPolicy parses "skip" or "zero".
func ParseBreakpointPolicy(s string) (BreakpointPolicy, error) {
	switch s {
	case "skip", "":
		return BreakpointSkip, nil
	case "zero":
		return BreakpointZero, nil
	default:
		return 0, fmt.Errorf("invalid breakpoint policy %q, must be one of: skip, zero", s)
	}
}

// Kernel is the global kernel object.
//
// The exported fields are configuration and must not change once a CPU has
// been initialized with the kernel.
type Kernel struct {
	// BreakpointPolicy selects the breakpoint resume behavior.
	BreakpointPolicy BreakpointPolicy

	// Console is the diagnostic sink. Writes are best effort and errors are
	// ignored. If nil, diagnostics are discarded.
	Console io.Writer

	// mu protects cpus.
	mu sync.Mutex

	// cpus are all CPUs initialized with this kernel.
	cpus []*CPU
}

// Ticks returns the total number of timer interrupts observed by all CPUs.
func (k *Kernel) Ticks() uint64 {
	k.mu.Lock()
	defer k.mu.Unlock()
	var total uint64
	for _, c := range k.cpus {
		total += c.Ticks()
	}
	return total
}

// printf writes a diagnostic to the console.
func (k *Kernel) printf(format string, v ...any) {
	if k.Console == nil {
		return
	}
	fmt.Fprintf(k.Console, format, v...)
}

// CPU is the per-hart state.
type CPU struct {
	// kernel is the kernel this CPU was initialized with.
	kernel *Kernel

	// id is the hart ID.
	id int

	// machine is the privileged register file of this hart.
	machine Machine

	// ticks counts supervisor timer interrupts. Only the timer handler
	// increments it; any goroutine may read it.
	ticks atomicbitops.Uint64

	// installed is set by Install.
	installed bool

	// clock and interval are set by StartTimer. If clock is nil, the timer
	// handler does not re-arm the timer.
	clock    Clock
	interval uint64
}

// Init initializes a CPU.
func (c *CPU) Init(k *Kernel, id int, m Machine) {
	c.kernel = k
	c.id = id
	c.machine = m

	k.mu.Lock()
	k.cpus = append(k.cpus, c)
	k.mu.Unlock()
}

// ID returns the hart ID.
func (c *CPU) ID() int {
	return c.id
}

// Kernel returns the kernel the CPU was initialized with.
func (c *CPU) Kernel() *Kernel {
	return c.kernel
}

// Ticks returns the number of timer interrupts this CPU has observed.
//
//go:nosplit
func (c *CPU) Ticks() uint64 {
	return c.ticks.Load()
}
