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

// Package riscv describes the RV64 supervisor-level privileged architecture:
// control and status register numbers, their bit layouts and the raw trap
// cause encodings.
package riscv

import (
	"fmt"
	"strings"

	"rvtrap.dev/rvtrap/pkg/bits"
)

// CSR is a control and status register number.
type CSR uint16

// Supervisor CSRs.
const (
	Sstatus  CSR = 0x100
	Sie      CSR = 0x104
	Stvec    CSR = 0x105
	Sscratch CSR = 0x140
	Sepc     CSR = 0x141
	Scause   CSR = 0x142
	Stval    CSR = 0x143
	Sip      CSR = 0x144
	Satp     CSR = 0x180

	// Time is the read-only user timer.
	Time CSR = 0xC01
)

var csrNames = map[CSR]string{
	Sstatus:  "sstatus",
	Sie:      "sie",
	Stvec:    "stvec",
	Sscratch: "sscratch",
	Sepc:     "sepc",
	Scause:   "scause",
	Stval:    "stval",
	Sip:      "sip",
	Satp:     "satp",
	Time:     "time",
}

// String implements fmt.Stringer.String.
func (c CSR) String() string {
	if name, ok := csrNames[c]; ok {
		return name
	}
	return fmt.Sprintf("csr(%#x)", uint16(c))
}

// ReadOnly returns true if the register may not be written. The top two bits
// of the number encode read-only access.
func (c CSR) ReadOnly() bool {
	return c>>10 == 3
}

// CSRFile is a hart's privileged register file.
//
// On hardware these are single csrr/csrw instructions. Implementations are
// not safe for concurrent use: a register file belongs to one hart.
type CSRFile interface {
	// ReadCSR returns the value of the given register.
	ReadCSR(csr CSR) uint64

	// WriteCSR sets the value of the given register.
	WriteCSR(csr CSR, value uint64)
}

// sstatus bits.
const (
	SstatusSIE  uint64 = 1 << 1
	SstatusSPIE uint64 = 1 << 5
	SstatusSPP  uint64 = 1 << 8
	SstatusFS   uint64 = 3 << 13
	SstatusSUM  uint64 = 1 << 18
	SstatusMXR  uint64 = 1 << 19
)

var sstatusNames = map[int]string{
	1:  "SIE",
	5:  "SPIE",
	8:  "SPP",
	13: "FS0",
	14: "FS1",
	18: "SUM",
	19: "MXR",
}

// StatusString names the bits set in an sstatus value, for example
// "SPIE|SPP". Bits without a name print as their index.
func StatusString(sstatus uint64) string {
	if sstatus == 0 {
		return "0"
	}
	var names []string
	bits.ForEachSetBit(sstatus, func(i int) {
		if name, ok := sstatusNames[i]; ok {
			names = append(names, name)
		} else {
			names = append(names, fmt.Sprintf("bit%d", i))
		}
	})
	return strings.Join(names, "|")
}

// sie/sip bits.
const (
	SieSSIE uint64 = 1 << 1 // Supervisor software interrupt.
	SieSTIE uint64 = 1 << 5 // Supervisor timer interrupt.
	SieSEIE uint64 = 1 << 9 // Supervisor external interrupt.
)

// TrapMode is the low two bits of stvec.
type TrapMode uint64

// Trap modes.
const (
	// TrapModeDirect sends every trap to the base address.
	TrapModeDirect TrapMode = 0

	// TrapModeVectored sends interrupts to base + 4*cause and exceptions to
	// the base address.
	TrapModeVectored TrapMode = 1
)

// String implements fmt.Stringer.String.
func (m TrapMode) String() string {
	switch m {
	case TrapModeDirect:
		return "Direct"
	case TrapModeVectored:
		return "Vectored"
	default:
		return fmt.Sprintf("Reserved(%d)", uint64(m))
	}
}

// stvecModeMask selects the mode bits of stvec.
const stvecModeMask = 3

// MakeStvec returns the stvec value for the given base and mode. The base must
// be four byte aligned.
func MakeStvec(base uintptr, mode TrapMode) uint64 {
	return uint64(base)&^stvecModeMask | uint64(mode)
}

// StvecBase returns the trap vector base address held in stvec.
func StvecBase(stvec uint64) uintptr {
	return uintptr(stvec &^ stvecModeMask)
}

// StvecMode returns the trap mode held in stvec.
func StvecMode(stvec uint64) TrapMode {
	return TrapMode(stvec & stvecModeMask)
}
