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
package verifier

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/consensys/pil-verify/pkg/field/goldilocks"
)

// TestConnectionMapCompleteness checks invariant #4: for fixed (N, K) the
// coset map has exactly N*K entries, all distinct.
func TestConnectionMapCompleteness(t *testing.T) {
	const n, k = 8, 3

	m, err := buildDefaultConnectionMap(n, k)
	require.NoError(t, err)

	seen := make(map[uint64]cosetLocation)

	pow, err := log2(n)
	require.NoError(t, err)

	wi := goldilocks.RootOfUnity(pow)
	ks := goldilocks.CosetMultipliers(k)

	for j, kj := range ks {
		w := goldilocks.One
		for i := 0; i < n; i++ {
			a := kj.Mul(w).AsInt()

			_, dup := seen[a]
			require.False(t, dup, "value %d produced by coset %d row %d collides with an earlier entry", a, j, i)
			seen[a] = cosetLocation{Coset: j, Row: i}

			loc, ok := m.lookup(a)
			require.True(t, ok)
			require.Equal(t, cosetLocation{Coset: j, Row: i}, loc)

			w = w.Mul(wi)
		}
	}

	require.Len(t, seen, n*k)
}

// TestDefaultAndFlatConnectionMapAgree cross-checks the two connectionMap
// representations against each other, per SPEC_FULL.md's redesign note.
func TestDefaultAndFlatConnectionMapAgree(t *testing.T) {
	const n, k = 4, 2

	def, err := buildDefaultConnectionMap(n, k)
	require.NoError(t, err)

	flat := newFlatConnectionMap()

	pow, err := log2(n)
	require.NoError(t, err)

	wi := goldilocks.RootOfUnity(pow)
	ks := goldilocks.CosetMultipliers(k)

	for j, kj := range ks {
		w := goldilocks.One
		for i := 0; i < n; i++ {
			flat.insert(kj.Mul(w).AsInt(), cosetLocation{Coset: j, Row: i})
			w = w.Mul(wi)
		}
	}

	for v, loc := range flat.m {
		defLoc, ok := def.lookup(v)
		require.True(t, ok)
		require.Equal(t, loc, defLoc)
	}

	_, ok := def.lookup(0xDEADBEEF)
	require.False(t, ok)

	_, ok = flat.lookup(0xDEADBEEF)
	require.False(t, ok)
}

func TestCosetMapCacheReusesBuild(t *testing.T) {
	c := newCosetMapCache(4)

	m1, err := c.buildConnectionMap(4, 2)
	require.NoError(t, err)

	m2, err := c.buildConnectionMap(4, 2)
	require.NoError(t, err)

	require.Same(t, m1, m2)
}

func TestLog2RejectsNonPowerOfTwo(t *testing.T) {
	_, err := log2(6)
	require.Error(t, err)
}
