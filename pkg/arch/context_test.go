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

package arch

import (
	"strings"
	"testing"

	"rvtrap.dev/rvtrap/pkg/riscv"
)

func TestZeroRegister(t *testing.T) {
	var c Context
	c.SetReg(riscv.RegZero, 42)
	if got := c.Reg(riscv.RegZero); got != 0 {
		t.Errorf("Reg(zero) = %d, want 0", got)
	}
	c.SetReg(riscv.RegA0, 42)
	if got := c.Reg(riscv.RegA0); got != 42 {
		t.Errorf("Reg(a0) = %d, want 42", got)
	}
}

func TestDump(t *testing.T) {
	c := Context{Sepc: 0x80200010, Sstatus: riscv.SstatusSPIE}
	c.Regs[riscv.RegSP] = 0x80400000
	c.Regs[31] = 0xdeadbeef

	out := c.String()
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	if len(lines) != 1+riscv.NumGPRs/4 {
		t.Fatalf("got %d lines, want %d:\n%s", len(lines), 1+riscv.NumGPRs/4, out)
	}
	if want := "sepc    0x0000000080200010  sstatus 0x0000000000000020"; lines[0] != want {
		t.Errorf("first line = %q, want %q", lines[0], want)
	}
	// Four registers of 4+1+18 columns joined by two spaces.
	for i, l := range lines[1:] {
		if len(l) != 4*23+3*2 {
			t.Errorf("line %d has width %d, want %d: %q", i+1, len(l), 4*23+3*2, l)
		}
	}
	for _, want := range []string{
		"sepc    0x0000000080200010",
		"sstatus 0x0000000000000020",
		"sp   0x0000000080400000",
		"t6   0x00000000deadbeef",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("dump does not contain %q:\n%s", want, out)
		}
	}
}
