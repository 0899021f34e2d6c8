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

// root32 is a known 2**32-th root of unity of the Goldilocks field.
const root32 uint64 = 7277203076849721926

// kappa is the coset-multiplier seed: nqr^(2**s) in the classical two-adic
// decomposition of Goldilocks, i.e. the smallest non-residue raised to the
// 2-adic cofactor. Successive powers of kappa generate disjoint cosets of
// any order-N subgroup for N | 2**32.
const kappa uint64 = 12275445934081160404

// MaxTwoAdicity is the largest k for which RootOfUnity(k) is defined (2**32
// divides p-1).
const MaxTwoAdicity = 32

// roots holds the precomputed root-of-unity schedule: roots[k] is a
// primitive 2**k-th root of unity, for k in [0, 32].
var roots = computeRoots()

func computeRoots() [MaxTwoAdicity + 1]Element {
	var r [MaxTwoAdicity + 1]Element

	r[MaxTwoAdicity] = New(root32)
	for k := MaxTwoAdicity - 1; k >= 0; k-- {
		r[k] = r[k+1].Mul(r[k+1])
	}

	return r
}

// RootOfUnity returns a primitive 2**k-th root of unity, for 0 <= k <= 32.
// It panics if k is out of range, since that indicates a malformed domain
// size elsewhere in the pipeline (N must be a power of two dividing 2**32).
func RootOfUnity(k uint) Element {
	if k > MaxTwoAdicity {
		panic("goldilocks: no root of unity of this order")
	}

	return roots[k]
}

// CosetMultipliers returns the first K entries of the coset-multiplier
// schedule ks[0]=1, ks[j+1] = ks[j] * kappa. These select K pairwise
// disjoint cosets of the order-N subgroup generated by RootOfUnity(log2(N)).
func CosetMultipliers(k int) []Element {
	ks := make([]Element, k)
	if k == 0 {
		return ks
	}

	ks[0] = One

	kap := New(kappa)
	for j := 1; j < k; j++ {
		ks[j] = ks[j-1].Mul(kap)
	}

	return ks
}
