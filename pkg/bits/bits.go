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

// Package bits includes bit-manipulation helpers for register values.
package bits

import (
	mathbits "math/bits"
)

// Word is an unsigned register-sized integer.
type Word interface {
	~uint32 | ~uint64
}

// IsOn returns true if *all* bits set in 'bits' are set in 'mask'.
func IsOn[T Word](mask, bits T) bool {
	return mask&bits == bits
}

// IsAnyOn returns true if *any* bit set in 'bits' is set in 'mask'.
func IsAnyOn[T Word](mask, bits T) bool {
	return mask&bits != 0
}

// Mask returns a T with all of the given bits set.
func Mask[T Word](is ...int) T {
	ret := T(0)
	for _, i := range is {
		ret |= MaskOf[T](i)
	}
	return ret
}

// MaskOf is like Mask, but sets only a single bit (more efficiently).
func MaskOf[T Word](i int) T {
	return T(1) << T(i)
}

// Set returns v with the given bits set if on, or cleared otherwise.
func Set[T Word](v, bits T, on bool) T {
	if on {
		return v | bits
	}
	return v &^ bits
}

// ForEachSetBit calls f once for each set bit in x, with argument i equal to
// the set bit's index, lowest first.
func ForEachSetBit[T Word](x T, f func(i int)) {
	for x != 0 {
		i := mathbits.TrailingZeros64(uint64(x))
		f(i)
		x &^= MaskOf[T](i)
	}
}
