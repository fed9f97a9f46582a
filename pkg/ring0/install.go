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
	"fmt"

	"rvtrap.dev/rvtrap/pkg/riscv"
)

// Install points the trap vector at entry in direct mode, so that every trap
// lands at entry regardless of cause.
//
// Install must be called exactly once per CPU, before any interrupt source
// is enabled. entry must be four byte aligned.
func (c *CPU) Install(entry uintptr) {
	if c.installed {
		panic(fmt.Sprintf("trap vector already installed on hart %d", c.id))
	}
	if entry%riscv.InstructionSize != 0 {
		panic(fmt.Sprintf("trap entry %#x is not %d byte aligned", entry, riscv.InstructionSize))
	}
	c.machine.WriteCSR(riscv.Stvec, riscv.MakeStvec(entry, riscv.TrapModeDirect))
	c.installed = true
}

// Installed returns true if Install has been called.
func (c *CPU) Installed() bool {
	return c.installed
}

// StartTimer enables the supervisor timer interrupt and arms the first
// timeout interval time units from now. The timer handler re-arms it on every
// tick.
//
// StartTimer must be called after Install.
func (c *CPU) StartTimer(clock Clock, interval uint64) {
	if !c.installed {
		panic(fmt.Sprintf("StartTimer called before Install on hart %d", c.id))
	}
	if interval == 0 {
		panic("timer interval must be positive")
	}
	c.clock = clock
	c.interval = interval

	c.machine.WriteCSR(riscv.Sie, c.machine.ReadCSR(riscv.Sie)|riscv.SieSTIE)
	c.machine.WriteCSR(riscv.Sstatus, c.machine.ReadCSR(riscv.Sstatus)|riscv.SstatusSIE)
	clock.SetTimer(clock.Now() + interval)
}
