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

// Package cmd holds implementations of the rvtrap commands.
package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"rvtrap.dev/rvtrap/pkg/ring0"
)

// newTable returns a writer that aligns tab separated columns.
func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
}

// describeCause writes one table row for a cause.
func describeCause(w io.Writer, c ring0.Cause) {
	fmt.Fprintf(w, "0x%016x\t%s\t%s\n", c.Raw(), c, ring0.HandlerOf(c))
}
