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

// Package scenario runs trap scenarios on simulated harts.
//
// A scenario is a TOML document that names a machine configuration, a list
// of trap events to raise on each hart and, optionally, the expected outcome:
//
//	name = "breakpoint"
//	harts = 1
//	breakpoint_policy = "skip"
//
//	[[event]]
//	cause = "breakpoint"
//
//	[expect]
//	halted = false
//	pc = 0x80200102
package scenario

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/mohae/deepcopy"
	"rvtrap.dev/rvtrap/pkg/ring0"
)

const (
	// MaxHarts is the largest number of harts a scenario may run.
	MaxHarts = 64

	// DefaultEntry is the address of the trap entry stub.
	DefaultEntry = 0x80200000

	// DefaultPC is the initial program counter.
	DefaultPC = 0x80200100

	// DefaultStackTop is the stack pointer of hart 0. Each further hart gets
	// its own DefaultStackSize bytes below it.
	DefaultStackTop  = 0x80400000
	DefaultStackSize = 0x10000

	// DefaultTimerInterval is the timer period, in time units.
	DefaultTimerInterval = 100000
)

// Scenario describes a machine and the traps raised on it.
type Scenario struct {
	// Name identifies the scenario.
	Name string `toml:"name"`

	// Description is a one line summary.
	Description string `toml:"description"`

	// Harts is the number of harts. Zero means the run default.
	Harts int `toml:"harts"`

	// BreakpointPolicy is "skip" or "zero". Empty means the run default.
	BreakpointPolicy string `toml:"breakpoint_policy"`

	// TimerInterval is the timer period. Zero means the run default.
	TimerInterval uint64 `toml:"timer_interval"`

	// NoTimer leaves the supervisor timer disabled.
	NoTimer bool `toml:"no_timer"`

	// Entry is the trap entry address. Zero means DefaultEntry.
	Entry uint64 `toml:"entry"`

	// PC is the initial program counter. Zero means DefaultPC.
	PC uint64 `toml:"pc"`

	// Events are raised in order on every hart they target.
	Events []Event `toml:"event"`

	// Expect is checked against every hart after the run.
	Expect *Expect `toml:"expect"`
}

// Event is one step of a scenario. Exactly one of Cause, Timer and Advance
// must be set.
type Event struct {
	// Cause is the trap to raise, as accepted by ring0.ParseCause: a label
	// such as "Exception(Breakpoint)", a name such as "load_fault" or a raw
	// scause value such as "0x8000000000000005".
	Cause string `toml:"cause"`

	// FaultValue is the stval of the trap.
	FaultValue uint64 `toml:"fault_value"`

	// Repeat raises the trap this many times. Zero means once.
	Repeat int `toml:"repeat"`

	// Timer waits for this many timer interrupts.
	Timer int `toml:"timer"`

	// Advance moves time forward, taking timer interrupts as they fall due.
	Advance uint64 `toml:"advance"`

	// Hart restricts the event to one hart. If nil, every hart runs it.
	Hart *int `toml:"hart"`
}

// Expect is the expected outcome on each hart.
type Expect struct {
	Halted *bool   `toml:"halted"`
	Ticks  *uint64 `toml:"ticks"`
	PC     *uint64 `toml:"pc"`

	// Console lists strings the console transcript must contain.
	Console []string `toml:"console"`
}

// Load parses a scenario. Unknown keys are an error.
func Load(r io.Reader) (*Scenario, error) {
	var s Scenario
	md, err := toml.NewDecoder(r).Decode(&s)
	if err != nil {
		return nil, fmt.Errorf("decoding scenario: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return nil, fmt.Errorf("unknown scenario keys: %s", strings.Join(keys, ", "))
	}
	return &s, nil
}

// LoadFile parses the scenario file at path. A scenario without a name is
// named after the file.
func LoadFile(path string) (*Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	s, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if s.Name == "" {
		s.Name = path
	}
	return s, nil
}

// Defaults are the machine settings used where a scenario leaves a field
// unset.
type Defaults struct {
	Harts            int
	BreakpointPolicy ring0.BreakpointPolicy
	TimerInterval    uint64
	Entry            uint64
}

// resolve returns a copy of s with every unset field taken from d, and
// validates it. s is not modified.
func (s *Scenario) resolve(d Defaults) (*Scenario, error) {
	c := deepcopy.Copy(s).(*Scenario)
	if c.Harts == 0 {
		c.Harts = d.Harts
	}
	if c.Harts == 0 {
		c.Harts = 1
	}
	if c.BreakpointPolicy == "" {
		c.BreakpointPolicy = d.BreakpointPolicy.String()
	}
	if c.TimerInterval == 0 {
		c.TimerInterval = d.TimerInterval
	}
	if c.TimerInterval == 0 {
		c.TimerInterval = DefaultTimerInterval
	}
	if c.Entry == 0 {
		c.Entry = d.Entry
	}
	if c.Entry == 0 {
		c.Entry = DefaultEntry
	}
	if c.PC == 0 {
		c.PC = DefaultPC
	}
	for i := range c.Events {
		if c.Events[i].Repeat == 0 {
			c.Events[i].Repeat = 1
		}
	}
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("scenario %q: %w", s.Name, err)
	}
	return c, nil
}

func (s *Scenario) validate() error {
	if s.Harts < 1 || s.Harts > MaxHarts {
		return fmt.Errorf("harts must be between 1 and %d, got %d", MaxHarts, s.Harts)
	}
	if _, err := ring0.ParseBreakpointPolicy(s.BreakpointPolicy); err != nil {
		return err
	}
	if s.Entry%4 != 0 {
		return fmt.Errorf("entry %#x is not 4 byte aligned", s.Entry)
	}
	for i, e := range s.Events {
		set := 0
		if e.Cause != "" {
			set++
			if _, err := ring0.ParseCause(e.Cause); err != nil {
				return fmt.Errorf("event %d: %w", i, err)
			}
		}
		if e.Timer != 0 {
			set++
		}
		if e.Advance != 0 {
			set++
		}
		if set != 1 {
			return fmt.Errorf("event %d: exactly one of cause, timer and advance must be set", i)
		}
		if e.Repeat < 0 || e.Timer < 0 {
			return fmt.Errorf("event %d: negative count", i)
		}
		if e.Hart != nil && (*e.Hart < 0 || *e.Hart >= s.Harts) {
			return fmt.Errorf("event %d: hart %d out of range", i, *e.Hart)
		}
	}
	return nil
}
