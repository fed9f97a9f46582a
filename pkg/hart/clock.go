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

package hart

import (
	"rvtrap.dev/rvtrap/pkg/bits"
	"rvtrap.dev/rvtrap/pkg/riscv"
)

// Now implements ring0.Clock.Now.
func (h *Hart) Now() uint64 {
	return h.time
}

// SetTimer implements ring0.Clock.SetTimer.
func (h *Hart) SetTimer(deadline uint64) {
	h.deadline = deadline
}

// Deadline returns the timer compare value.
func (h *Hart) Deadline() uint64 {
	return h.deadline
}

func (h *Hart) timerPending() bool {
	return h.time >= h.deadline
}

// timerEnabled returns true if a pending timer interrupt would be taken.
func (h *Hart) timerEnabled() bool {
	if !bits.IsOn(h.csrs[riscv.Sie], riscv.SieSTIE) {
		return false
	}
	return h.priv == User || bits.IsOn(h.csrs[riscv.Sstatus], riscv.SstatusSIE)
}

// Advance moves time forward by delta, taking a supervisor timer interrupt
// whenever one is pending and enabled, at most one per time unit. It returns
// the number of interrupts taken.
func (h *Hart) Advance(delta uint64) (int, error) {
	if h.Halted() {
		return 0, ErrHalted
	}
	end := h.time + delta
	taken := 0
	for {
		if h.timerPending() && h.timerEnabled() {
			if err := h.Trap(riscv.InterruptCause(riscv.CauseSupervisorTimer), 0); err != nil {
				return taken, err
			}
			taken++
		}
		if h.time >= end {
			return taken, nil
		}
		switch {
		case h.timerPending() && h.timerEnabled():
			h.time++
		case h.deadline > h.time && h.deadline < end:
			h.time = h.deadline
		default:
			h.time = end
		}
	}
}

// WaitTimer moves time forward until n supervisor timer interrupts have been
// taken.
func (h *Hart) WaitTimer(n int) error {
	for i := 0; i < n; i++ {
		if h.Halted() {
			return ErrHalted
		}
		if !h.timerEnabled() || h.deadline == timerDisarmed {
			return ErrTimerDisabled
		}
		if h.deadline > h.time {
			h.time = h.deadline
		}
		if err := h.Trap(riscv.InterruptCause(riscv.CauseSupervisorTimer), 0); err != nil {
			return err
		}
	}
	return nil
}
