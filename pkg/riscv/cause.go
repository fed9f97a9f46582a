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

package riscv

// InterruptBit is set in scause when the trap was caused by an interrupt. It
// is the most significant bit of an XLEN-wide register.
const InterruptBit uint64 = 1 << 63

// Exception codes, as found in scause with InterruptBit clear.
const (
	CauseInstructionMisaligned uint64 = 0
	CauseInstructionFault      uint64 = 1
	CauseIllegalInstruction    uint64 = 2
	CauseBreakpoint            uint64 = 3
	CauseLoadMisaligned        uint64 = 4
	CauseLoadFault             uint64 = 5
	CauseStoreMisaligned       uint64 = 6
	CauseStoreFault            uint64 = 7
	CauseUserEnvCall           uint64 = 8
	CauseSupervisorEnvCall     uint64 = 9
	CauseInstructionPageFault  uint64 = 12
	CauseLoadPageFault         uint64 = 13
	CauseStorePageFault        uint64 = 15
)

// Interrupt codes, as found in scause with InterruptBit set.
const (
	CauseUserSoft           uint64 = 0
	CauseSupervisorSoft     uint64 = 1
	CauseUserTimer          uint64 = 4
	CauseSupervisorTimer    uint64 = 5
	CauseUserExternal       uint64 = 8
	CauseSupervisorExternal uint64 = 9
)

// ExceptionCause returns the raw scause value of an exception code.
func ExceptionCause(code uint64) uint64 {
	return code &^ InterruptBit
}

// InterruptCause returns the raw scause value of an interrupt code.
func InterruptCause(code uint64) uint64 {
	return code | InterruptBit
}

// IsInterrupt returns true if the raw scause value denotes an interrupt.
func IsInterrupt(scause uint64) bool {
	return scause&InterruptBit != 0
}

// CauseCode returns the raw scause value with InterruptBit cleared.
func CauseCode(scause uint64) uint64 {
	return scause &^ InterruptBit
}

// SieBit returns the sie/sip bit that gates the given interrupt code.
func SieBit(code uint64) uint64 {
	if code >= 64 {
		return 0
	}
	return 1 << code
}
