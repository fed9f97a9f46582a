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

package log

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestLevelUnmarshal(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want Level
	}{
		{"0", Warning},
		{"1", Info},
		{"2", Debug},
		{`"warning"`, Warning},
		{`"info"`, Info},
		{`"debug"`, Debug},
	} {
		var lv Level
		if err := lv.UnmarshalJSON([]byte(tc.in)); err != nil {
			t.Errorf("UnmarshalJSON(%s) failed: %v", tc.in, err)
			continue
		}
		if lv != tc.want {
			t.Errorf("UnmarshalJSON(%s) = %v, want %v", tc.in, lv, tc.want)
		}
	}

	var lv Level
	if err := lv.UnmarshalJSON([]byte(`"trace"`)); err == nil {
		t.Errorf("UnmarshalJSON(trace) succeeded, want error")
	}
}

func TestJSONEmitter(t *testing.T) {
	tw := &testWriter{}
	e := JSONEmitter{&Writer{Next: tw}}
	ts := time.Date(2026, 10, 19, 7, 0, 0, 0, time.UTC)
	e.Emit(0, Info, ts, "trap %s on hart %d", "Exception(Breakpoint)", 0)

	if len(tw.lines) != 2 || tw.lines[1] != "\n" {
		t.Fatalf("got lines %q, want one object and a newline", tw.lines)
	}
	var got jsonLog
	if err := json.Unmarshal([]byte(tw.lines[0]), &got); err != nil {
		t.Fatalf("json.Unmarshal(%q) failed: %v", tw.lines[0], err)
	}
	want := jsonLog{
		Msg:   "trap Exception(Breakpoint) on hart 0",
		Level: Info,
		Time:  ts,
	}
	if diff := cmp.Diff(want, got, cmpopts.IgnoreFields(jsonLog{}, "Caller")); diff != "" {
		t.Errorf("JSONEmitter output mismatch (-want +got):\n%s", diff)
	}
	if !strings.HasPrefix(got.Caller, "json_test.go:") {
		t.Errorf("Caller = %q, want json_test.go:<line>", got.Caller)
	}
}
