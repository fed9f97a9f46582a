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
	"rvtrap.dev/rvtrap/pkg/arch"
	"rvtrap.dev/rvtrap/pkg/riscv"
)

// HandleTrap is called by the entry stub on every trap, with the saved
// registers, the raw scause value and stval.
//
// It returns only for breakpoints and supervisor timer interrupts, after
// which the stub restores ctx and executes sret. Every other cause halts the
// hart.
func (c *CPU) HandleTrap(ctx *arch.Context, scause, stval uint64) {
	cause := Classify(scause)
	switch cause.Vector {
	case Breakpoint:
		c.breakpoint(ctx)
	case LoadFault:
		c.loadFault(ctx, stval)
	case SupervisorTimer:
		c.supervisorTimer()
	default:
		c.fault(ctx, cause, stval)
	}
}

// HandlerOf returns the name of the handler HandleTrap dispatches c to.
func HandlerOf(c Cause) string {
	switch c.Vector {
	case Breakpoint:
		return "breakpoint"
	case LoadFault:
		return "load-fault"
	case SupervisorTimer:
		return "timer"
	default:
		return "fallback"
	}
}

// breakpoint reports the breakpoint and moves the resume address according
// to the kernel's BreakpointPolicy.
func (c *CPU) breakpoint(ctx *arch.Context) {
	c.kernel.printf("Breakpoint at %#x\n", ctx.Sepc)
	switch c.kernel.BreakpointPolicy {
	case BreakpointZero:
		ctx.Sepc = 0
	default:
		ctx.Sepc += riscv.CompressedInstructionSize
	}
}

// loadFault reports the faulting context and halts.
func (c *CPU) loadFault(ctx *arch.Context, stval uint64) {
	c.kernel.printf("load fault on hart %d: context:\n%sstval: %#x\n", c.id, ctx, stval)
	c.halt()
}

// supervisorTimer counts the tick and re-arms the timer if StartTimer was
// used. It must stay cheap: no diagnostics, no context changes.
//
//go:nosplit
func (c *CPU) supervisorTimer() {
	c.ticks.Add(1)
	if c.clock != nil {
		c.clock.SetTimer(c.clock.Now() + c.interval)
	}
}

// fault reports an unresolved trap and halts.
func (c *CPU) fault(ctx *arch.Context, cause Cause, stval uint64) {
	c.kernel.printf("unresolved trap on hart %d: %s (scause %#x)\n%sstval: %#x\n", c.id, cause, cause.Raw(), ctx, stval)
	c.halt()
}

// halt stops the hart. It never returns.
func (c *CPU) halt() {
	for {
		c.machine.Halt()
	}
}
