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
	"fmt"

	"rvtrap.dev/rvtrap/pkg/metric"
	"rvtrap.dev/rvtrap/pkg/ring0"
)

// Metrics are the trap counters of a set of harts.
type Metrics struct {
	// Registry holds the counters below.
	Registry *metric.Registry

	// Traps counts traps taken, by hart and cause.
	Traps *metric.Uint64Metric

	// Halts counts halted harts.
	Halts *metric.Uint64Metric
}

// NewMetrics registers trap counters for harts 0 to harts-1 in r. If r is
// nil, a new registry is used.
func NewMetrics(r *metric.Registry, harts int) *Metrics {
	if r == nil {
		r = metric.NewRegistry()
	}
	ids := make([]string, harts)
	for i := range ids {
		ids[i] = fmt.Sprint(i)
	}
	hartField := metric.NewField("hart", ids)

	var causes []string
	for _, v := range ring0.Vectors() {
		causes = append(causes, causeField(ring0.Cause{Vector: v, Code: ring0.CodeOf(v)}))
	}
	return &Metrics{
		Registry: r,
		Traps:    r.MustCreateNewUint64Metric("/hart/traps", "Traps taken, by hart and cause.", hartField, metric.NewField("cause", causes)),
		Halts:    r.MustCreateNewUint64Metric("/hart/halts", "Harts halted by the trap core.", hartField),
	}
}

// causeField returns the metric field value for a cause. Unknown causes share
// a single value per kind.
func causeField(c ring0.Cause) string {
	if c.Vector == ring0.UnknownException || c.Vector == ring0.UnknownInterrupt {
		return fmt.Sprintf("%s(Unknown)", c.Kind())
	}
	return c.String()
}
