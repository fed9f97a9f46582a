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
	"embed"
	"fmt"
	"path"
	"sort"

	"rvtrap.dev/rvtrap/pkg/sync"
)

//go:embed builtin/*.toml
var builtinFS embed.FS

// builtins parses the embedded scenarios once.
var builtins = sync.OnceValue(func() map[string]*Scenario {
	entries, err := builtinFS.ReadDir("builtin")
	if err != nil {
		panic(fmt.Sprintf("reading built-in scenarios: %v", err))
	}
	m := make(map[string]*Scenario, len(entries))
	for _, e := range entries {
		data, err := builtinFS.ReadFile(path.Join("builtin", e.Name()))
		if err != nil {
			panic(fmt.Sprintf("reading built-in scenario %s: %v", e.Name(), err))
		}
		s, err := Load(bytes.NewReader(data))
		if err != nil {
			panic(fmt.Sprintf("built-in scenario %s: %v", e.Name(), err))
		}
		m[s.Name] = s
	}
	return m
})

// Builtin returns the built-in scenario with the given name. The returned
// scenario must not be modified.
func Builtin(name string) (*Scenario, bool) {
	s, ok := builtins()[name]
	return s, ok
}

// Builtins returns all built-in scenarios, sorted by name.
func Builtins() []*Scenario {
	m := builtins()
	all := make([]*Scenario, 0, len(m))
	for _, s := range m {
		all = append(all, s)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return all
}
