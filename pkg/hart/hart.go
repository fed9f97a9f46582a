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

// Package hart simulates a single RISC-V hart running in supervisor mode.
//
// A Hart provides the privileged register file, the trap entry and exit
// sequence (the hardware side of a trap plus the register save and restore
// glue), the supervisor timer and the halt primitive that the trap core
// expects from real hardware.
package hart

import (
	"errors"
	"fmt"
	"time"

	"rvtrap.dev/rvtrap/pkg/arch"
	"rvtrap.dev/rvtrap/pkg/atomicbitops"
	"rvtrap.dev/rvtrap/pkg/bits"
	"rvtrap.dev/rvtrap/pkg/log"
	"rvtrap.dev/rvtrap/pkg/riscv"
	"rvtrap.dev/rvtrap/pkg/ring0"
)

var (
	// ErrHalted is returned by every operation on a halted hart.
	ErrHalted = errors.New("hart halted")

	// ErrNoVector is returned when a trap lands on an address with no
	// registered entry. The hart is halted.
	ErrNoVector = errors.New("no trap entry registered at target address")

	// ErrNestedTrap is returned when a trap is raised while another trap is
	// being handled.
	ErrNestedTrap = errors.New("trap raised while handling a trap")

	// ErrTimerDisabled is returned when waiting for a timer interrupt that
	// can never be taken.
	ErrTimerDisabled = errors.New("supervisor timer interrupt is disabled")
)

// Privilege is the privilege mode of a hart.
type Privilege uint8

// Privilege modes.
const (
	User Privilege = iota
	Supervisor
)

// String implements fmt.Stringer.String.
func (p Privilege) String() string {
	if p == Supervisor {
		return "S"
	}
	return "U"
}

// EntryFunc is code placed at a trap vector address. It receives the saved
// registers and the trap values, as the entry stub passes them.
type EntryFunc func(ctx *arch.Context, scause, stval uint64)

// timerDisarmed is the deadline of a timer that was never set.
const timerDisarmed = ^uint64(0)

// Options configures a new Hart.
type Options struct {
	// ID is the hart ID.
	ID int

	// Kernel is the trap core configuration shared by all harts. If nil,
	// the hart gets a kernel of its own with default settings.
	Kernel *ring0.Kernel

	// Metrics receives trap counts. If nil, the hart counts into a private
	// registry.
	Metrics *Metrics

	// PC is the initial program counter.
	PC uint64

	// SP is the initial stack pointer.
	SP uint64
}

// Hart is a simulated hart.
//
// A Hart is driven by a single goroutine. Halted and Ticks may be called from
// any goroutine.
type Hart struct {
	id  int
	cpu ring0.CPU

	csrs map[riscv.CSR]uint64
	regs [riscv.NumGPRs]uint64
	pc   uint64
	priv Privilege

	// time is the value of the time CSR. deadline is the timer compare
	// value; the timer interrupt is pending while time >= deadline.
	time     uint64
	deadline uint64

	// entries maps code addresses to the entry stubs placed there.
	entries map[uintptr]EntryFunc

	// inTrap is set while an entry function runs.
	inTrap bool

	halted atomicbitops.Bool

	metrics *Metrics

	// warn reports operations attempted on a halted hart.
	warn log.Logger
}

// New returns a hart in supervisor mode with interrupts disabled and no trap
// vector installed.
func New(opts Options) *Hart {
	m := opts.Metrics
	if m == nil {
		m = NewMetrics(nil, opts.ID+1)
	}
	h := &Hart{
		id:       opts.ID,
		csrs:     make(map[riscv.CSR]uint64),
		pc:       opts.PC,
		priv:     Supervisor,
		deadline: timerDisarmed,
		entries:  make(map[uintptr]EntryFunc),
		metrics:  m,
		warn:     log.BasicRateLimitedLogger(time.Second),
	}
	h.regs[riscv.RegSP] = opts.SP
	k := opts.Kernel
	if k == nil {
		k = &ring0.Kernel{}
	}
	h.cpu.Init(k, opts.ID, h)
	return h
}

// ID returns the hart ID.
func (h *Hart) ID() int {
	return h.id
}

// CPU returns the trap core state of this hart.
func (h *Hart) CPU() *ring0.CPU {
	return &h.cpu
}

// Boot places the trap core's entry stub at entry and installs it as the trap
// vector.
func (h *Hart) Boot(entry uintptr) {
	h.Place(entry, h.cpu.HandleTrap)
	h.cpu.Install(entry)
}

// Place puts an entry stub at the given address.
func (h *Hart) Place(addr uintptr, fn EntryFunc) {
	h.entries[addr] = fn
}

// PC returns the program counter.
func (h *Hart) PC() uint64 {
	return h.pc
}

// Privilege returns the current privilege mode.
func (h *Hart) Privilege() Privilege {
	return h.priv
}

// Reg returns general purpose register i.
func (h *Hart) Reg(i int) uint64 {
	return h.regs[i]
}

// SetReg sets general purpose register i. Writes to x0 are ignored.
func (h *Hart) SetReg(i int, v uint64) {
	if i != riscv.RegZero {
		h.regs[i] = v
	}
}

// Halted returns true once the hart has halted.
func (h *Hart) Halted() bool {
	return h.halted.Load()
}

// Ticks returns the number of timer interrupts the trap core has counted.
func (h *Hart) Ticks() uint64 {
	return h.cpu.Ticks()
}

// ReadCSR implements riscv.CSRFile.ReadCSR.
func (h *Hart) ReadCSR(csr riscv.CSR) uint64 {
	switch csr {
	case riscv.Time:
		return h.time
	case riscv.Sip:
		return bits.Set(h.csrs[riscv.Sip], riscv.SieSTIE, h.timerPending())
	default:
		return h.csrs[csr]
	}
}

// WriteCSR implements riscv.CSRFile.WriteCSR.
func (h *Hart) WriteCSR(csr riscv.CSR, v uint64) {
	if csr.ReadOnly() {
		return
	}
	if csr == riscv.Sip {
		// STIP is driven by the timer and cannot be written.
		v &^= riscv.SieSTIE
	}
	h.csrs[csr] = v
}

// haltSignal unwinds an entry function when the hart halts.
type haltSignal struct{}

// Halt implements ring0.Machine.Halt. It does not return: it unwinds to the
// pending Trap call, which reports ErrHalted.
func (h *Hart) Halt() {
	h.halted.Store(true)
	panic(haltSignal{})
}

// Trap raises a trap with the given scause and stval and runs it to
// completion: hardware entry, the entry stub found at the trap vector, the
// register restore and sret.
//
// Trap returns ErrHalted if the handler halted the hart, or if the hart was
// already halted.
func (h *Hart) Trap(scause, stval uint64) error {
	if h.Halted() {
		h.warn.Warningf("Trap %#x raised on halted hart %d", scause, h.id)
		return ErrHalted
	}
	if h.inTrap {
		return fmt.Errorf("%w: scause %#x on hart %d", ErrNestedTrap, scause, h.id)
	}

	target := h.enter(scause, stval)
	fn, ok := h.entries[target]
	if !ok {
		h.halted.Store(true)
		h.metrics.Halts.Increment(h.hartField())
		return fmt.Errorf("%w: pc %#x, scause %#x", ErrNoVector, target, scause)
	}

	cause := ring0.Classify(scause)
	h.metrics.Traps.Increment(h.hartField(), causeField(cause))
	log.Debugf("Hart %d: trap %s at pc %#x, stval %#x, sstatus %s", h.id, cause, h.csrs[riscv.Sepc], stval, riscv.StatusString(h.csrs[riscv.Sstatus]))

	ctx := &arch.Context{
		Regs:    h.regs,
		Sstatus: h.csrs[riscv.Sstatus],
		Sepc:    h.csrs[riscv.Sepc],
	}
	if halted := h.call(fn, ctx, scause, stval); halted {
		h.metrics.Halts.Increment(h.hartField())
		log.Infof("Hart %d halted on %s", h.id, cause)
		return ErrHalted
	}

	h.regs = ctx.Regs
	h.regs[riscv.RegZero] = 0
	h.csrs[riscv.Sstatus] = ctx.Sstatus
	h.csrs[riscv.Sepc] = ctx.Sepc
	h.sret()
	return nil
}

// enter performs the hardware side of trap entry and returns the new pc.
func (h *Hart) enter(scause, stval uint64) uintptr {
	h.csrs[riscv.Sepc] = h.pc
	h.csrs[riscv.Scause] = scause
	h.csrs[riscv.Stval] = stval

	status := h.csrs[riscv.Sstatus]
	status = bits.Set(status, riscv.SstatusSPIE, bits.IsAnyOn(status, riscv.SstatusSIE))
	status = bits.Set(status, riscv.SstatusSPP, h.priv == Supervisor)
	h.csrs[riscv.Sstatus] = status &^ riscv.SstatusSIE
	h.priv = Supervisor

	stvec := h.csrs[riscv.Stvec]
	target := riscv.StvecBase(stvec)
	if riscv.StvecMode(stvec) == riscv.TrapModeVectored && riscv.IsInterrupt(scause) {
		target += uintptr(4 * riscv.CauseCode(scause))
	}
	h.pc = uint64(target)
	return target
}

// call runs fn and reports whether the hart halted inside it.
func (h *Hart) call(fn EntryFunc, ctx *arch.Context, scause, stval uint64) (halted bool) {
	h.inTrap = true
	defer func() {
		h.inTrap = false
		if r := recover(); r != nil {
			if _, ok := r.(haltSignal); !ok {
				panic(r)
			}
			halted = true
		}
	}()
	fn(ctx, scause, stval)
	return false
}

// sret returns from the trap.
func (h *Hart) sret() {
	status := h.csrs[riscv.Sstatus]
	h.pc = h.csrs[riscv.Sepc]
	h.priv = User
	if bits.IsAnyOn(status, riscv.SstatusSPP) {
		h.priv = Supervisor
	}
	status = bits.Set(status, riscv.SstatusSIE, bits.IsAnyOn(status, riscv.SstatusSPIE))
	h.csrs[riscv.Sstatus] = status&^riscv.SstatusSPP | riscv.SstatusSPIE
}

func (h *Hart) hartField() string {
	return fmt.Sprint(h.id)
}
