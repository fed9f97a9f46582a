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

package scenario

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"
	"rvtrap.dev/rvtrap/pkg/hart"
	"rvtrap.dev/rvtrap/pkg/log"
	"rvtrap.dev/rvtrap/pkg/metric"
	"rvtrap.dev/rvtrap/pkg/ring0"
	"rvtrap.dev/rvtrap/pkg/sync"
)

// HartReport is the state of one hart after a run.
type HartReport struct {
	ID     int
	PC     uint64
	Ticks  uint64
	Halted bool
}

// Result is the outcome of a run.
type Result struct {
	// Name is the scenario name.
	Name string

	// Harts has one report per hart, by hart ID.
	Harts []HartReport

	// Ticks is the total tick count of the kernel.
	Ticks uint64

	// Console is the diagnostic transcript of all harts.
	Console string

	// Metrics is a snapshot of the trap counters.
	Metrics metric.Values
}

// console is a diagnostic sink shared by concurrently running harts.
type console struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

// Write implements io.Writer.Write.
func (c *console) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.Write(p)
}

func (c *console) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.String()
}

// Run runs s on freshly booted harts, one goroutine per hart, and returns
// the final state. A hart that halts stops running events; halting is an
// outcome, not an error. Run fails if an event cannot be delivered, for
// example a timer event with the timer disabled.
func Run(ctx context.Context, s *Scenario, d Defaults) (*Result, error) {
	c, err := s.resolve(d)
	if err != nil {
		return nil, err
	}
	policy, err := ring0.ParseBreakpointPolicy(c.BreakpointPolicy)
	if err != nil {
		return nil, err
	}

	out := &console{}
	k := &ring0.Kernel{BreakpointPolicy: policy, Console: out}
	metrics := hart.NewMetrics(nil, c.Harts)
	harts := make([]*hart.Hart, c.Harts)
	for i := range harts {
		h := hart.New(hart.Options{
			ID:      i,
			Kernel:  k,
			Metrics: metrics,
			PC:      c.PC,
			SP:      DefaultStackTop - uint64(i)*DefaultStackSize,
		})
		h.Boot(uintptr(c.Entry))
		if !c.NoTimer {
			h.CPU().StartTimer(h, c.TimerInterval)
		}
		harts[i] = h
	}

	log.Infof("Running scenario %q on %d hart(s), breakpoint policy %s", c.Name, c.Harts, policy)
	g, gctx := errgroup.WithContext(ctx)
	for _, h := range harts {
		g.Go(func() error {
			return runHart(gctx, h, c.Events)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("scenario %q: %w", c.Name, err)
	}

	res := &Result{
		Name:    c.Name,
		Harts:   make([]HartReport, len(harts)),
		Ticks:   k.Ticks(),
		Console: out.String(),
		Metrics: metrics.Registry.Values(),
	}
	for i, h := range harts {
		res.Harts[i] = HartReport{
			ID:     h.ID(),
			PC:     h.PC(),
			Ticks:  h.Ticks(),
			Halted: h.Halted(),
		}
	}
	return res, nil
}

func runHart(ctx context.Context, h *hart.Hart, events []Event) error {
	for i, e := range events {
		if e.Hart != nil && *e.Hart != h.ID() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		err := runEvent(h, e)
		if errors.Is(err, hart.ErrHalted) {
			log.Debugf("Hart %d halted at event %d", h.ID(), i)
			return nil
		}
		if err != nil {
			return fmt.Errorf("hart %d, event %d: %w", h.ID(), i, err)
		}
	}
	return nil
}

func runEvent(h *hart.Hart, e Event) error {
	switch {
	case e.Cause != "":
		cause, err := ring0.ParseCause(e.Cause)
		if err != nil {
			return err
		}
		for n := 0; n < e.Repeat; n++ {
			if err := h.Trap(cause.Raw(), e.FaultValue); err != nil {
				return err
			}
		}
		return nil
	case e.Timer != 0:
		return h.WaitTimer(e.Timer)
	default:
		_, err := h.Advance(e.Advance)
		return err
	}
}

// Check compares the result against the scenario's expectations.
func (s *Scenario) Check(res *Result) error {
	if s.Expect == nil {
		return nil
	}
	var errs []error
	for _, h := range res.Harts {
		if want := s.Expect.Halted; want != nil && h.Halted != *want {
			errs = append(errs, fmt.Errorf("hart %d: halted = %t, want %t", h.ID, h.Halted, *want))
		}
		if want := s.Expect.Ticks; want != nil && h.Ticks != *want {
			errs = append(errs, fmt.Errorf("hart %d: ticks = %d, want %d", h.ID, h.Ticks, *want))
		}
		if want := s.Expect.PC; want != nil && h.PC != *want {
			errs = append(errs, fmt.Errorf("hart %d: pc = %#x, want %#x", h.ID, h.PC, *want))
		}
	}
	for _, want := range s.Expect.Console {
		if !strings.Contains(res.Console, want) {
			errs = append(errs, fmt.Errorf("console does not contain %q", want))
		}
	}
	return errors.Join(errs...)
}
