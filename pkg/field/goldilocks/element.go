// Copyright Consensys Software Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// Package goldilocks implements arithmetic over the Goldilocks prime field,
// p = 2**64 - 2**32 + 1. Goldilocks is not an elliptic-curve field and has
// no gnark-crypto counterpart, so its arithmetic is implemented directly
// here on plain uint64 values.
package goldilocks

import (
	"encoding/binary"
	"fmt"
	"math/bits"
	"strconv"
)

// Order is the Goldilocks prime modulus, p = 2**64 - 2**32 + 1.
const Order uint64 = 0xFFFFFFFF00000001

// epsilon is 2**64 mod p, i.e. 2**32 - 1. Because p = 2**64 - epsilon, any
// carry out of a 64-bit addition or the high limb of a 64-bit multiplication
// can be folded back in by adding epsilon, rather than performing a full
// division.
const epsilon uint64 = 0xFFFFFFFF

// Element is a Goldilocks field element, always held in canonical form (an
// integer in [0, Order)). This mirrors §3's "every value... is an element of
// F, represented canonically as an integer in [0, p)".
type Element uint64

// Zero is the additive identity.
const Zero Element = 0

// One is the multiplicative identity.
const One Element = 1

// New reduces x into a canonical Element.
func New(x uint64) Element {
	if x >= Order {
		return Element(x - Order)
	}

	return Element(x)
}

// NewSigned reduces a signed integer into a canonical Element, wrapping
// negative values modulo p (two's-complement style). This resolves §9's open
// question on the sign of an expression's `const` field: negative constants
// are accepted and reduced, rather than rejected.
func NewSigned(x int64) Element {
	if x >= 0 {
		return New(uint64(x))
	}
	// x < 0: p - |x| (mod p), computed without overflow by reducing |x| first.
	neg := New(uint64(-x))
	return Zero.Sub(neg)
}

// AsInt returns the canonical integer representation of x, in [0, Order).
func (x Element) AsInt() uint64 {
	return uint64(x)
}

// Add returns x+y (mod p).
func (x Element) Add(y Element) Element {
	sum, carry := bits.Add64(uint64(x), uint64(y), 0)
	return reduceCarry(sum, carry)
}

// Sub returns x-y (mod p).
func (x Element) Sub(y Element) Element {
	diff, borrow := bits.Sub64(uint64(x), uint64(y), 0)
	if borrow != 0 {
		diff -= epsilon
	}

	return Element(diff)
}

// Neg returns -x (mod p).
func (x Element) Neg() Element {
	return Zero.Sub(x)
}

// Double returns 2x (mod p).
func (x Element) Double() Element {
	return x.Add(x)
}

// Half returns x/2 (mod p). Since p is odd, every element has a unique half.
func (x Element) Half() Element {
	if uint64(x)&1 == 0 {
		return Element(uint64(x) >> 1)
	}
	// (x + p) is even since p is odd and x is odd. The sum can exceed
	// 2**64, so the carry out of the addition becomes the top bit of the
	// halved value.
	sum, carry := bits.Add64(uint64(x), Order, 0)

	return Element((sum >> 1) | (carry << 63))
}

// Mul returns x*y (mod p).
func (x Element) Mul(y Element) Element {
	hi, lo := bits.Mul64(uint64(x), uint64(y))
	return reduce128(hi, lo)
}

// Cmp returns 1 if x > y, 0 if x = y, and -1 if x < y, comparing canonical
// integer values.
func (x Element) Cmp(y Element) int {
	switch {
	case x > y:
		return 1
	case x < y:
		return -1
	default:
		return 0
	}
}

// Inverse returns x⁻¹ (mod p), or zero if x = 0, via Fermat's little theorem
// (x^(p-2)).
func (x Element) Inverse() Element {
	if x == Zero {
		return Zero
	}

	return x.exp(Order - 2)
}

// Exp returns x^e (mod p) via square-and-multiply.
func (x Element) Exp(e uint64) Element {
	return x.exp(e)
}

// exp returns x^e (mod p) via square-and-multiply.
func (x Element) exp(e uint64) Element {
	result := One
	base := x

	for e > 0 {
		if e&1 == 1 {
			result = result.Mul(base)
		}

		base = base.Mul(base)
		e >>= 1
	}

	return result
}

// Bytes returns the little-endian encoding of the canonical value of x.
func (x Element) Bytes() []byte {
	var buf [8]byte

	binary.LittleEndian.PutUint64(buf[:], uint64(x))

	return buf[:]
}

// FromBytes reads a little-endian-encoded u64 and reduces it modulo p. It
// panics if b is not exactly 8 bytes long, matching the fixed-width column
// file encoding described in §6.
func FromBytes(b []byte) Element {
	if len(b) != 8 {
		panic(fmt.Sprintf("goldilocks: expected 8 bytes, got %d", len(b)))
	}

	return New(binary.LittleEndian.Uint64(b))
}

// AddBytes adds the little-endian value encoded in b to x.
func (x Element) AddBytes(b []byte) Element {
	return x.Add(FromBytes(b))
}

// String renders the canonical decimal value of x.
func (x Element) String() string {
	return fmt.Sprintf("%d", uint64(x))
}

// Text returns the canonical value of x in the given base.
func (x Element) Text(base int) string {
	return strconv.FormatUint(uint64(x), base)
}

// reduceCarry folds a possible carry bit out of a 64-bit addition back into
// the sum, using the fact that 2**64 ≡ epsilon (mod p).
func reduceCarry(sum uint64, carry uint64) Element {
	if carry != 0 {
		// A carry out of the top bit is itself worth exactly epsilon (mod
		// p); folding it in can carry again only if sum was already within
		// epsilon of 2**64, which the second Add64 call handles exactly.
		sum2, c2 := bits.Add64(sum, epsilon, 0)
		if c2 != 0 {
			sum2, _ = bits.Add64(sum2, epsilon, 0)
		}

		sum = sum2
	}

	if sum >= Order {
		return Element(sum - Order)
	}

	return Element(sum)
}

// reduce128 reduces a 128-bit product (hi, lo) modulo p. This is the
// standard Goldilocks reduction: split the high limb into its own high and
// low 32-bit halves, subtract the high-high part (borrowing epsilon on
// underflow), then fold in the high-low part scaled by epsilon.
func reduce128(hi, lo uint64) Element {
	hiHi := hi >> 32
	hiLo := hi & epsilon

	t0, borrow := bits.Sub64(lo, hiHi, 0)
	if borrow != 0 {
		t0 -= epsilon
	}

	t1 := hiLo * epsilon

	sum, carry := bits.Add64(t0, t1, 0)

	return reduceCarry(sum, carry)
}
