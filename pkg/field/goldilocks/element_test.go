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
package goldilocks

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddSubRoundTrip(t *testing.T) {
	a := New(12345678901234567)
	b := New(98765432109876)

	require.Equal(t, a, a.Add(b).Sub(b))
	require.Equal(t, b, a.Add(b).Sub(a))
}

func TestAddWraps(t *testing.T) {
	a := New(Order - 1)
	b := New(2)
	// (p-1) + 2 = p+1 ≡ 1 (mod p)
	require.Equal(t, One, a.Add(b))
}

func TestMulInverse(t *testing.T) {
	for _, v := range []uint64{1, 2, 3, 12345, Order - 2} {
		x := New(v)
		inv := x.Inverse()
		require.Equal(t, One, x.Mul(inv))
	}
}

func TestInverseOfZero(t *testing.T) {
	require.Equal(t, Zero, Zero.Inverse())
}

func TestNegSub(t *testing.T) {
	a := New(42)
	require.Equal(t, Zero, a.Add(a.Neg()))
	require.Equal(t, a.Neg(), Zero.Sub(a))
}

func TestSignedConstant(t *testing.T) {
	require.Equal(t, New(Order-5), NewSigned(-5))
	require.Equal(t, New(5), NewSigned(5))
}

func TestHalve(t *testing.T) {
	for _, v := range []uint64{0, 1, 2, 7, Order - 1} {
		x := New(v)
		half := x.Half()
		require.Equal(t, x, half.Add(half))
	}
}

func TestBytesRoundTrip(t *testing.T) {
	x := New(0xDEADBEEFCAFEF00D % Order)
	require.Equal(t, x, FromBytes(x.Bytes()))
}

func TestCanonicalOnOverflowingInput(t *testing.T) {
	// Order itself must reduce to Zero.
	require.Equal(t, Zero, New(Order))
	require.Equal(t, One, New(Order+1))
}

func TestRootOfUnityOrders(t *testing.T) {
	// roots[0] must be 1, and roots[k]^2 == roots[k-1] for all k.
	require.Equal(t, One, RootOfUnity(0))

	for k := uint(1); k <= MaxTwoAdicity; k++ {
		hi := RootOfUnity(k)
		lo := RootOfUnity(k - 1)
		require.Equal(t, lo, hi.Mul(hi))
	}
}

func TestRootOfUnityIsPrimitive(t *testing.T) {
	// A primitive 4th root of unity, squared twice, reaches 1 but not
	// before.
	w := RootOfUnity(2)
	require.NotEqual(t, One, w)
	require.NotEqual(t, One, w.Mul(w))
	require.Equal(t, One, w.Mul(w).Mul(w).Mul(w))
}

func TestCosetMultipliersDisjointAndOrdered(t *testing.T) {
	ks := CosetMultipliers(5)
	require.Equal(t, One, ks[0])

	for j := 1; j < len(ks); j++ {
		require.NotEqual(t, ks[j-1], ks[j])
	}
}
