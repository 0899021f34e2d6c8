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
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/consensys/pil-verify/pkg/field/goldilocks"
)

// cosetLocation identifies where a field value a = ks[j] * w^i lands: the
// j-th coset of the order-N subgroup, at row i.
type cosetLocation struct {
	Coset int
	Row   int
}

// connectionMap resolves a field element's integer representation to the
// (coset, row) pair that produced it, across the K cosets of the order-N
// subgroup swept by buildConnectionMap. Two representations are provided:
// defaultConnectionMap is the three-level nested map grounded directly in
// the source; flatConnectionMap is the single-level alternative sketched as
// a redesign option. Both must agree; see connection_map_test.go.
type connectionMap interface {
	lookup(a uint64) (cosetLocation, bool)
}

// defaultConnectionMap splits a value's integer representation into three
// parts (a1 = v>>52, a2 = (v>>40)&0xFFF, a3 = v&0xFFFFFFFFFF) and nests a map
// per part, exactly mirroring pil_verify.rs's get_connection_map.
type defaultConnectionMap struct {
	m map[uint64]map[uint64]map[uint64]cosetLocation
}

func newDefaultConnectionMap() *defaultConnectionMap {
	return &defaultConnectionMap{m: make(map[uint64]map[uint64]map[uint64]cosetLocation)}
}

func splitKey(v uint64) (uint64, uint64, uint64) {
	a1 := v >> 52
	a2 := (v >> 40) & 0xFFF
	a3 := v & 0xFFFFFFFFFF

	return a1, a2, a3
}

func (c *defaultConnectionMap) insert(v uint64, loc cosetLocation) {
	a1, a2, a3 := splitKey(v)

	l2, ok := c.m[a1]
	if !ok {
		l2 = make(map[uint64]map[uint64]cosetLocation)
		c.m[a1] = l2
	}

	l3, ok := l2[a2]
	if !ok {
		l3 = make(map[uint64]cosetLocation)
		l2[a2] = l3
	}

	l3[a3] = loc
}

func (c *defaultConnectionMap) lookup(v uint64) (cosetLocation, bool) {
	a1, a2, a3 := splitKey(v)

	l2, ok := c.m[a1]
	if !ok {
		return cosetLocation{}, false
	}

	l3, ok := l2[a2]
	if !ok {
		return cosetLocation{}, false
	}

	loc, ok := l3[a3]

	return loc, ok
}

// flatConnectionMap keys directly on the full integer representation. It
// exists as a correctness cross-check against defaultConnectionMap; this
// implementation does not use it as the default because the nested form is
// what the source builds and the spec's redesign note asks for it to remain
// available as an alternative, not a replacement.
type flatConnectionMap struct {
	m map[uint64]cosetLocation
}

func newFlatConnectionMap() *flatConnectionMap {
	return &flatConnectionMap{m: make(map[uint64]cosetLocation)}
}

func (c *flatConnectionMap) insert(v uint64, loc cosetLocation) {
	c.m[v] = loc
}

func (c *flatConnectionMap) lookup(v uint64) (cosetLocation, bool) {
	loc, ok := c.m[v]
	return loc, ok
}

// cosetMapCache memoizes a built connection map by (N, K), since both the
// subgroup and its cosets depend only on those two numbers for a fixed
// field. Each Verifier owns one cache; its capacity bounds memory use across
// the VerifyPIL calls made on that Verifier.
type cosetMapCache struct {
	cache *lru.Cache[string, *defaultConnectionMap]
}

func newCosetMapCache(size int) *cosetMapCache {
	c, err := lru.New[string, *defaultConnectionMap](size)
	if err != nil {
		// Only returns an error for a non-positive size, which callers here
		// never pass.
		panic(err)
	}

	return &cosetMapCache{cache: c}
}

func cacheKey(n, k int) string {
	return fmt.Sprintf("%d_%d_%d", goldilocks.Order, n, k)
}

// buildConnectionMap builds (or returns from cache) the connection map for
// K cosets of the order-N cyclic subgroup: ks[0]=1, ks[j]=ks[j-1]*kappa
// select the cosets; w ranges over the N-th roots of unity.
func (c *cosetMapCache) buildConnectionMap(n, k int) (*defaultConnectionMap, error) {
	key := cacheKey(n, k)
	if m, ok := c.cache.Get(key); ok {
		return m, nil
	}

	m, err := buildDefaultConnectionMap(n, k)
	if err != nil {
		return nil, err
	}

	c.cache.Add(key, m)

	return m, nil
}

func buildDefaultConnectionMap(n, k int) (*defaultConnectionMap, error) {
	pow, err := log2(n)
	if err != nil {
		return nil, err
	}

	wi := goldilocks.RootOfUnity(pow)
	ks := goldilocks.CosetMultipliers(k)

	m := newDefaultConnectionMap()

	var g errgroup.Group

	rows := make([][]struct {
		v   uint64
		loc cosetLocation
	}, n)

	for i := 0; i < n; i++ {
		i := i

		g.Go(func() error {
			if logrus.IsLevelEnabled(logrus.TraceLevel) && i%10000 == 0 {
				logrus.Tracef("building connection map.. %d / %d", i, n)
			}

			w := wi.Exp(uint64(i))
			row := make([]struct {
				v   uint64
				loc cosetLocation
			}, k)

			for j, kj := range ks {
				a := kj.Mul(w)
				row[j] = struct {
					v   uint64
					loc cosetLocation
				}{v: a.AsInt(), loc: cosetLocation{Coset: j, Row: i}}
			}

			rows[i] = row

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, row := range rows {
		for _, entry := range row {
			m.insert(entry.v, entry.loc)
		}
	}

	return m, nil
}

func log2(n int) (uint, error) {
	if n <= 0 || n&(n-1) != 0 {
		return 0, fmt.Errorf("connection map domain size %d is not a power of two", n)
	}

	var k uint
	for (1 << k) < n {
		k++
	}

	return k, nil
}
