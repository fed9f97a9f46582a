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

// Package arch defines the register state saved on trap entry.
package arch

import (
	"fmt"
	"io"
	"strings"

	"rvtrap.dev/rvtrap/pkg/riscv"
)

// Context is the processor state saved by the trap entry stub.
//
// The layout is an ABI: the entry stub stores x0..x31 at Regs, then sstatus
// and sepc, and restores them in the same order before sret. See
// ring0.Emit for the offsets.
//
// A Context is only meaningful for the duration of one trap. The entry stub
// owns it; the dispatcher and its handlers borrow it for the call and must
// not retain the pointer.
type Context struct {
	// Regs are the general-purpose registers x0..x31. Regs[0] is stored for
	// layout simplicity and is always restored as zero.
	Regs [riscv.NumGPRs]uint64

	// Sstatus is the saved supervisor status. Its SPP and SPIE bits select
	// the privilege level and interrupt enable restored by sret.
	Sstatus uint64

	// Sepc is the resume address. Handlers may modify it; sret continues at
	// whatever value it holds when the dispatcher returns.
	Sepc uint64
}

// Reg returns general-purpose register i.
func (c *Context) Reg(i int) uint64 {
	if i == riscv.RegZero {
		return 0
	}
	return c.Regs[i]
}

// SetReg sets general-purpose register i. Writes to x0 are discarded.
func (c *Context) SetReg(i int, v uint64) {
	if i == riscv.RegZero {
		return
	}
	c.Regs[i] = v
}

// SP returns the saved stack pointer.
func (c *Context) SP() uint64 {
	return c.Regs[riscv.RegSP]
}

// Dump writes the full register set to w, four registers per line.
func (c *Context) Dump(w io.Writer) {
	fmt.Fprintf(w, "sepc    0x%016x  sstatus 0x%016x\n", c.Sepc, c.Sstatus)
	for i := 0; i < riscv.NumGPRs; i++ {
		fmt.Fprintf(w, "%-4s 0x%016x", riscv.GPRNames[i], c.Regs[i])
		if i%4 == 3 {
			fmt.Fprintln(w)
		} else {
			fmt.Fprint(w, "  ")
		}
	}
}

// String implements fmt.Stringer.String.
func (c *Context) String() string {
	var b strings.Builder
	c.Dump(&b)
	return b.String()
}
