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
	"strconv"
	"strings"

	"rvtrap.dev/rvtrap/pkg/riscv"
)

// causeByName maps normalized vector names to their cause.
var causeByName = func() map[string]Cause {
	m := make(map[string]Cause)
	for _, v := range Vectors() {
		if v == UnknownException || v == UnknownInterrupt {
			continue
		}
		c := Cause{Vector: v, Code: CodeOf(v)}
		m[normalizeName(v.String())] = c
	}
	return m
}()

// CodeOf returns the scause code of a known vector, or zero for the unknown
// vectors.
func CodeOf(v Vector) uint64 {
	for code := uint64(0); code < 64; code++ {
		if v.Kind() == Exception && exceptionVector(code) == v {
			return code
		}
		if v.Kind() == Interrupt && interruptVector(code) == v {
			return code
		}
	}
	return 0
}

func normalizeName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer("_", "", "-", "", " ", "").Replace(s)
}

func parseRaw(s string) (uint64, error) {
	return strconv.ParseUint(strings.TrimSpace(s), 0, 64)
}

// parseLabel parses the "Kind(Name)" form.
func parseLabel(s string) (Cause, bool, error) {
	open := strings.IndexByte(s, '(')
	if open < 0 || !strings.HasSuffix(s, ")") {
		return Cause{}, false, nil
	}
	var kind Kind
	switch normalizeName(s[:open]) {
	case "exception":
		kind = Exception
	case "interrupt":
		kind = Interrupt
	default:
		return Cause{}, false, nil
	}
	inner := s[open+1 : len(s)-1]
	if strings.HasPrefix(normalizeName(inner), "unknown(") && strings.HasSuffix(inner, ")") {
		code, err := parseRaw(inner[strings.IndexByte(inner, '(')+1 : len(inner)-1])
		if err != nil {
			return Cause{}, true, fmt.Errorf("invalid code in %q: %w", s, err)
		}
		raw := riscv.ExceptionCause(code)
		if kind == Interrupt {
			raw = riscv.InterruptCause(code)
		}
		c := Classify(raw)
		if c.Known() {
			return Cause{}, true, fmt.Errorf("%q names a known cause, use %q", s, c)
		}
		return c, true, nil
	}
	c, ok := causeByName[normalizeName(inner)]
	if !ok || c.Kind() != kind {
		return Cause{}, true, fmt.Errorf("unknown %s %q", strings.ToLower(kind.String()), inner)
	}
	return c, true, nil
}
