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

package cmd

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"rvtrap.dev/rvtrap/pkg/ring0"
	"rvtrap.dev/rvtrap/pkg/scenario"
)

func TestDescribeCause(t *testing.T) {
	var buf bytes.Buffer
	w := newTable(&buf)
	describeCause(w, ring0.Classify(3))
	describeCause(w, ring0.Classify(0x8000000000000005))
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	want := "0x0000000000000003  Exception(Breakpoint)       breakpoint\n" +
		"0x8000000000000005  Interrupt(SupervisorTimer)  timer\n"
	if got := buf.String(); got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func runBuiltin(t *testing.T, name string) *scenario.Result {
	t.Helper()
	s, ok := scenario.Builtin(name)
	if !ok {
		t.Fatalf("built-in scenario %q not found", name)
	}
	res, err := scenario.Run(context.Background(), s, scenario.Defaults{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	return res
}

func TestReportText(t *testing.T) {
	res := runBuiltin(t, "load-fault")
	var buf bytes.Buffer
	r := &Run{format: "text", metrics: true}
	if err := r.report(&buf, res, nil); err != nil {
		t.Fatalf("report failed: %v", err)
	}
	for _, want := range []string{
		"=== load-fault\n",
		"stval: 0xdeadbeef",
		"halted",
		"/hart/halts{0} 1",
		"--- PASS: load-fault",
	} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("report does not contain %q:\n%s", want, buf.String())
		}
	}
}

func TestReportJSON(t *testing.T) {
	res := runBuiltin(t, "breakpoint")
	var buf bytes.Buffer
	r := &Run{format: "json"}
	if err := r.report(&buf, res, errors.New("pc mismatch")); err != nil {
		t.Fatalf("report failed: %v", err)
	}
	for _, want := range []string{
		`"Name": "breakpoint"`,
		`"passed": false`,
		`"error": "pc mismatch"`,
		`"Metrics": null`,
	} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("report does not contain %q:\n%s", want, buf.String())
		}
	}
}
