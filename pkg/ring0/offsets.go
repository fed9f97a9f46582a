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
	"io"
	"reflect"
	"strings"

	"rvtrap.dev/rvtrap/pkg/arch"
	"rvtrap.dev/rvtrap/pkg/riscv"
)

// Emit prints the offsets and constants the entry stub depends on, as
// assembler definitions.
func Emit(w io.Writer) {
	fmt.Fprintf(w, "// Automatically generated, do not edit.\n")

	c := &arch.Context{}
	base := reflect.ValueOf(c).Pointer()
	fmt.Fprintf(w, "\n// Context offsets.\n")
	for i := range c.Regs {
		name := fmt.Sprintf("CONTEXT_X%d", i)
		fmt.Fprintf(w, "#define %-20s 0x%02x // %s\n", name, reflect.ValueOf(&c.Regs[i]).Pointer()-base, riscv.GPRNames[i])
	}
	fmt.Fprintf(w, "#define %-20s 0x%02x\n", "CONTEXT_SSTATUS", reflect.ValueOf(&c.Sstatus).Pointer()-base)
	fmt.Fprintf(w, "#define %-20s 0x%02x\n", "CONTEXT_SEPC", reflect.ValueOf(&c.Sepc).Pointer()-base)
	fmt.Fprintf(w, "#define %-20s 0x%02x\n", "CONTEXT_SIZE", reflect.TypeOf(*c).Size())

	fmt.Fprintf(w, "\n// CSRs.\n")
	for _, csr := range []riscv.CSR{riscv.Sstatus, riscv.Sie, riscv.Stvec, riscv.Sscratch, riscv.Sepc, riscv.Scause, riscv.Stval, riscv.Sip} {
		fmt.Fprintf(w, "#define %-20s 0x%03x\n", "CSR_"+strings.ToUpper(csr.String()), uint16(csr))
	}

	fmt.Fprintf(w, "\n// Bits.\n")
	fmt.Fprintf(w, "#define %-20s 0x%02x\n", "SSTATUS_SIE", riscv.SstatusSIE)
	fmt.Fprintf(w, "#define %-20s 0x%02x\n", "SSTATUS_SPIE", riscv.SstatusSPIE)
	fmt.Fprintf(w, "#define %-20s 0x%02x\n", "SSTATUS_SPP", riscv.SstatusSPP)
	fmt.Fprintf(w, "#define %-20s 0x%02x\n", "STVEC_MODE_DIRECT", uint64(riscv.TrapModeDirect))

	fmt.Fprintf(w, "\n// Vectors.\n")
	for _, v := range Vectors() {
		if v == UnknownException || v == UnknownInterrupt {
			continue
		}
		cause := Cause{Vector: v, Code: CodeOf(v)}
		fmt.Fprintf(w, "#define %-32s 0x%016x\n", strings.ToUpper(v.Kind().String())+"_"+v.String(), cause.Raw())
	}
}
