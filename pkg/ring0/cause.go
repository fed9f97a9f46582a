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
	"strings"

	"rvtrap.dev/rvtrap/pkg/riscv"
)

// Kind distinguishes synchronous exceptions from asynchronous interrupts.
type Kind uint8

const (
	// Exception is a trap caused by the trapping instruction.
	Exception Kind = iota

	// Interrupt is a trap caused by an external or timer event.
	Interrupt
)

// String implements fmt.Stringer.String.
func (k Kind) String() string {
	if k == Interrupt {
		return "Interrupt"
	}
	return "Exception"
}

// Vector is a trap sub-kind.
//
// The set is closed: every raw scause value maps to exactly one vector, with
// UnknownException and UnknownInterrupt absorbing reserved and custom codes.
// Exception vectors sort before UserSoft; interrupt vectors from UserSoft on.
type Vector uint8

// Exception vectors.
const (
	InstructionMisaligned Vector = iota
	InstructionFault
	IllegalInstruction
	Breakpoint
	LoadMisaligned
	LoadFault
	StoreMisaligned
	StoreFault
	UserEnvCall
	SupervisorEnvCall
	InstructionPageFault
	LoadPageFault
	StorePageFault
	UnknownException
)

// Interrupt vectors.
const (
	UserSoft Vector = iota + UnknownException + 1
	SupervisorSoft
	UserTimer
	SupervisorTimer
	UserExternal
	SupervisorExternal
	UnknownInterrupt

	// numVectors is the number of vectors.
	numVectors
)

var vectorNames = [numVectors]string{
	InstructionMisaligned: "InstructionMisaligned",
	InstructionFault:      "InstructionFault",
	IllegalInstruction:    "IllegalInstruction",
	Breakpoint:            "Breakpoint",
	LoadMisaligned:        "LoadMisaligned",
	LoadFault:             "LoadFault",
	StoreMisaligned:       "StoreMisaligned",
	StoreFault:            "StoreFault",
	UserEnvCall:           "UserEnvCall",
	SupervisorEnvCall:     "SupervisorEnvCall",
	InstructionPageFault:  "InstructionPageFault",
	LoadPageFault:         "LoadPageFault",
	StorePageFault:        "StorePageFault",
	UnknownException:      "Unknown",
	UserSoft:              "UserSoft",
	SupervisorSoft:        "SupervisorSoft",
	UserTimer:             "UserTimer",
	SupervisorTimer:       "SupervisorTimer",
	UserExternal:          "UserExternal",
	SupervisorExternal:    "SupervisorExternal",
	UnknownInterrupt:      "Unknown",
}

// String implements fmt.Stringer.String.
func (v Vector) String() string {
	if v < numVectors {
		return vectorNames[v]
	}
	return fmt.Sprintf("Vector(%d)", uint8(v))
}

// Kind returns the kind of trap the vector belongs to.
func (v Vector) Kind() Kind {
	if v >= UserSoft {
		return Interrupt
	}
	return Exception
}

// Vectors returns every vector, exceptions first.
func Vectors() []Vector {
	vs := make([]Vector, 0, numVectors)
	for v := Vector(0); v < numVectors; v++ {
		vs = append(vs, v)
	}
	return vs
}

// Cause is a classified trap cause.
type Cause struct {
	// Vector is the trap sub-kind.
	Vector Vector

	// Code is the raw scause code with the interrupt bit cleared. It is
	// kept so that unknown causes remain identifiable.
	Code uint64
}

// Kind returns whether the cause is an exception or an interrupt.
func (c Cause) Kind() Kind {
	return c.Vector.Kind()
}

// Raw returns the scause value the cause was classified from.
func (c Cause) Raw() uint64 {
	if c.Kind() == Interrupt {
		return riscv.InterruptCause(c.Code)
	}
	return riscv.ExceptionCause(c.Code)
}

// Known returns true if the cause is a listed vector rather than an unknown
// code.
func (c Cause) Known() bool {
	return c.Vector != UnknownException && c.Vector != UnknownInterrupt
}

// String returns the cause label, for example "Exception(Breakpoint)" or
// "Interrupt(Unknown(12))".
func (c Cause) String() string {
	if !c.Known() {
		return fmt.Sprintf("%s(Unknown(%d))", c.Kind(), c.Code)
	}
	return fmt.Sprintf("%s(%s)", c.Kind(), c.Vector)
}

// Classify decodes a raw scause value. It never fails: codes that the
// architecture reserves or leaves to custom use classify as
// UnknownException or UnknownInterrupt.
//
//go:nosplit
func Classify(scause uint64) Cause {
	code := riscv.CauseCode(scause)
	if riscv.IsInterrupt(scause) {
		return Cause{Vector: interruptVector(code), Code: code}
	}
	return Cause{Vector: exceptionVector(code), Code: code}
}

//go:nosplit
func exceptionVector(code uint64) Vector {
	switch code {
	case riscv.CauseInstructionMisaligned:
		return InstructionMisaligned
	case riscv.CauseInstructionFault:
		return InstructionFault
	case riscv.CauseIllegalInstruction:
		return IllegalInstruction
	case riscv.CauseBreakpoint:
		return Breakpoint
	case riscv.CauseLoadMisaligned:
		return LoadMisaligned
	case riscv.CauseLoadFault:
		return LoadFault
	case riscv.CauseStoreMisaligned:
		return StoreMisaligned
	case riscv.CauseStoreFault:
		return StoreFault
	case riscv.CauseUserEnvCall:
		return UserEnvCall
	case riscv.CauseSupervisorEnvCall:
		return SupervisorEnvCall
	case riscv.CauseInstructionPageFault:
		return InstructionPageFault
	case riscv.CauseLoadPageFault:
		return LoadPageFault
	case riscv.CauseStorePageFault:
		return StorePageFault
	default:
		return UnknownException
	}
}

//go:nosplit
func interruptVector(code uint64) Vector {
	switch code {
	case riscv.CauseUserSoft:
		return UserSoft
	case riscv.CauseSupervisorSoft:
		return SupervisorSoft
	case riscv.CauseUserTimer:
		return UserTimer
	case riscv.CauseSupervisorTimer:
		return SupervisorTimer
	case riscv.CauseUserExternal:
		return UserExternal
	case riscv.CauseSupervisorExternal:
		return SupervisorExternal
	default:
		return UnknownInterrupt
	}
}

// ParseCause parses a cause label as printed by Cause.String, a bare vector
// name such as "breakpoint" or "supervisor_timer", or a raw scause value in
// any base accepted by strconv.ParseUint.
func ParseCause(s string) (Cause, error) {
	if raw, err := parseRaw(s); err == nil {
		return Classify(raw), nil
	}
	if c, ok, err := parseLabel(strings.TrimSpace(s)); ok {
		return c, err
	}
	if c, ok := causeByName[normalizeName(s)]; ok {
		return c, nil
	}
	return Cause{}, fmt.Errorf("unknown trap cause %q", s)
}
